package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"priyom/internal/domain"
	"priyom/internal/events"
	"priyom/internal/metrics"
	"priyom/internal/models"

	"github.com/rs/zerolog"
)

// ReserveRequest is the raw input of a reservation attempt.
type ReserveRequest struct {
	OwnerID          int64  `json:"owner_id"`
	RequesterName    string `json:"requester_name"`
	RequesterContact string `json:"requester_contact"`
	ScheduledAt      string `json:"scheduled_at"`
}

// AttemptPolicy bounds how often one requester contact may try to reserve.
type AttemptPolicy struct {
	Limit  int
	Window time.Duration
}

type BookingService struct {
	owners       domain.OwnerDirectory
	windows      domain.AvailabilityStore
	reservations domain.ReservationStore
	slots        *SlotService
	secrets      domain.SecretGenerator
	clock        domain.Clock
	limiter      domain.AttemptLimiter
	attempts     AttemptPolicy
	eventBus     domain.EventPublisher
	logger       *zerolog.Logger
}

func NewBookingService(
	owners domain.OwnerDirectory,
	windows domain.AvailabilityStore,
	reservations domain.ReservationStore,
	slots *SlotService,
	secrets domain.SecretGenerator,
	eventBus domain.EventPublisher,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		owners:       owners,
		windows:      windows,
		reservations: reservations,
		slots:        slots,
		secrets:      secrets,
		clock:        SystemClock{},
		eventBus:     eventBus,
		logger:       logger,
	}
}

func (s *BookingService) WithClock(clock domain.Clock) *BookingService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// WithAttemptLimiter enables per-contact throttling of Reserve.
func (s *BookingService) WithAttemptLimiter(limiter domain.AttemptLimiter, policy AttemptPolicy) *BookingService {
	s.limiter = limiter
	s.attempts = policy
	return s
}

// Reserve books the slot starting at req.ScheduledAt. The returned
// reservation carries the cancellation secret; it is the only place the
// secret is handed out.
func (s *BookingService) Reserve(ctx context.Context, req ReserveRequest) (*models.Reservation, error) {
	scheduledAt, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	if err := s.checkAttempts(ctx, req.RequesterContact); err != nil {
		return nil, err
	}

	exists, err := s.owners.OwnerExists(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", domain.ErrOwnerNotFound, req.OwnerID)
	}

	// Проверяем, что время попадает в одно из окон
	windows, err := s.windows.ListWindows(ctx, req.OwnerID, scheduledAt.Weekday())
	if err != nil {
		return nil, err
	}
	if !insideAnyWindow(windows, scheduledAt) {
		metrics.IncReservationRejected("outside_window")
		return nil, fmt.Errorf("%w: %s is outside the owner's availability", domain.ErrSlotUnavailable, scheduledAt.Format(time.RFC3339))
	}

	existing, err := s.reservations.FindActiveReservation(ctx, req.OwnerID, scheduledAt)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		metrics.IncReservationRejected("taken")
		return nil, fmt.Errorf("%w: %s is already booked", domain.ErrSlotUnavailable, scheduledAt.Format(time.RFC3339))
	}

	secret, err := s.secrets.NewSecret()
	if err != nil {
		return nil, fmt.Errorf("%w: generate cancellation secret: %w", domain.ErrStorage, err)
	}

	reservation := &models.Reservation{
		OwnerID:            req.OwnerID,
		RequesterName:      strings.TrimSpace(req.RequesterName),
		RequesterContact:   strings.TrimSpace(req.RequesterContact),
		ScheduledAt:        scheduledAt,
		Status:             models.StatusPending,
		CancellationSecret: secret,
	}

	// Уникальный индекс в хранилище окончательно разрешает гонку
	if err := s.reservations.CreateReservation(ctx, reservation, s.clock.Now()); err != nil {
		if errors.Is(err, domain.ErrSlotConflict) {
			metrics.IncReservationRejected("conflict")
			s.logger.Info().
				Int64("owner_id", req.OwnerID).
				Time("scheduled_at", scheduledAt).
				Msg("slot taken by a concurrent reservation")
		}
		return nil, err
	}

	metrics.IncReservationCreated()
	s.logger.Info().
		Int64("reservation_id", reservation.ID).
		Int64("owner_id", reservation.OwnerID).
		Time("scheduled_at", reservation.ScheduledAt).
		Msg("reservation created")

	s.publishEvent(events.EventReservationCreated, reservation, "requester")
	return reservation, nil
}

// GetReservation returns the reservation without its cancellation secret.
func (s *BookingService) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: reservation id must be positive", domain.ErrValidation)
	}
	r, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	redacted := r.Redacted()
	return &redacted, nil
}

func (s *BookingService) validate(req ReserveRequest) (time.Time, error) {
	var problems []string
	if req.OwnerID <= 0 {
		problems = append(problems, "owner_id must be positive")
	}
	if strings.TrimSpace(req.RequesterName) == "" {
		problems = append(problems, "requester_name is required")
	}
	if strings.TrimSpace(req.RequesterContact) == "" {
		problems = append(problems, "requester_contact is required")
	}

	scheduledAt, err := ParseScheduledAt(req.ScheduledAt, s.slots.Location())
	if err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return time.Time{}, fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(problems, "; "))
	}
	return scheduledAt, nil
}

func (s *BookingService) checkAttempts(ctx context.Context, contact string) error {
	if s.limiter == nil || s.attempts.Limit <= 0 {
		return nil
	}

	key := "reserve:" + strings.ToLower(strings.TrimSpace(contact))
	allowed, err := s.limiter.CheckRateLimit(ctx, key, s.attempts.Limit, s.attempts.Window)
	if err != nil {
		// ограничитель не должен блокировать запись
		s.logger.Warn().Err(err).Msg("attempt limiter unavailable")
		return nil
	}
	if !allowed {
		metrics.IncReservationRejected("rate_limited")
		return domain.ErrRateLimited
	}
	return nil
}

func (s *BookingService) publishEvent(eventType string, r *models.Reservation, changedBy string) {
	if s.eventBus == nil {
		return
	}

	if err := s.eventBus.PublishJSON(eventType, events.NewReservationPayload(r, changedBy)); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("reservation_id", r.ID).Msg("publish event error")
	}
}

// ParseScheduledAt accepts RFC3339 or "YYYY-MM-DD HH:MM[:SS]" in loc and
// truncates to whole seconds.
func ParseScheduledAt(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("scheduled_at is required")
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(loc).Truncate(time.Second), nil
	}
	for _, layout := range []string{models.DateTimeLayout, "2006-01-02 15:04", "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("scheduled_at %q must be RFC3339 or YYYY-MM-DD HH:MM[:SS]", raw)
}
