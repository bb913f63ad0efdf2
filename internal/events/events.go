package events

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"priyom/internal/models"
)

const (
	EventReservationCreated   = "reservation_created"
	EventReservationConfirmed = "reservation_confirmed"
	EventReservationCancelled = "reservation_cancelled"
)

// ReservationEvents lists every reservation event type.
var ReservationEvents = []string{
	EventReservationCreated,
	EventReservationConfirmed,
	EventReservationCancelled,
}

// EventForStatus maps a new reservation status to its event type.
func EventForStatus(status models.ReservationStatus) string {
	switch status {
	case models.StatusConfirmed:
		return EventReservationConfirmed
	case models.StatusCancelled:
		return EventReservationCancelled
	default:
		return EventReservationCreated
	}
}

// ReservationEventPayload is the reservation snapshot handed to in-process
// consumers. It carries the cancellation secret so the requester can be told it.
type ReservationEventPayload struct {
	ReservationID      int64                    `json:"reservation_id"`
	OwnerID            int64                    `json:"owner_id"`
	RequesterName      string                   `json:"requester_name"`
	RequesterContact   string                   `json:"requester_contact"`
	ScheduledAt        time.Time                `json:"scheduled_at"`
	Status             models.ReservationStatus `json:"status"`
	CancellationSecret string                   `json:"cancellation_secret,omitempty"`
	ChangedBy          string                   `json:"changed_by,omitempty"`
}

// NewReservationPayload snapshots r.
func NewReservationPayload(r *models.Reservation, changedBy string) ReservationEventPayload {
	return ReservationEventPayload{
		ReservationID:      r.ID,
		OwnerID:            r.OwnerID,
		RequesterName:      r.RequesterName,
		RequesterContact:   r.RequesterContact,
		ScheduledAt:        r.ScheduledAt,
		Status:             r.Status,
		CancellationSecret: r.CancellationSecret,
		ChangedBy:          changedBy,
	}
}

// Reservation rebuilds the reservation fields the payload carries.
func (p ReservationEventPayload) Reservation() *models.Reservation {
	return &models.Reservation{
		ID:                 p.ReservationID,
		OwnerID:            p.OwnerID,
		RequesterName:      p.RequesterName,
		RequesterContact:   p.RequesterContact,
		ScheduledAt:        p.ScheduledAt,
		Status:             p.Status,
		CancellationSecret: p.CancellationSecret,
	}
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	seq         atomic.Int64
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for the given event types.
func (b *EventBus) Subscribe(handler EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range eventTypes {
		b.subscribers[t] = append(b.subscribers[t], handler)
	}
}

// Publish runs the subscribers of the event type synchronously and joins
// their errors. Every handler runs even if an earlier one fails.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.ID == 0 {
		event.ID = b.seq.Add(1)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	return b.Publish(&event)
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}

// DecodeReservation unmarshals a reservation event payload.
func DecodeReservation(event *Event) (ReservationEventPayload, error) {
	var p ReservationEventPayload
	err := json.Unmarshal(event.Payload, &p)
	return p, err
}
