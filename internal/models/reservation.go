package models

import (
	"fmt"
	"strings"
	"time"
)

type ReservationStatus string

// ParseReservationStatus accepts any letter case ("Confirmed", "confirmed").
func ParseReservationStatus(s string) (ReservationStatus, error) {
	switch ReservationStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusConfirmed:
		return StatusConfirmed, nil
	case StatusCancelled:
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("unknown reservation status %q", s)
	}
}

// CanTransitionTo reports whether a reservation in status s may move to next.
// Cancelled is terminal. Confirmed -> Confirmed is accepted as a no-op.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusConfirmed || next == StatusCancelled
	default:
		return false
	}
}

func (s ReservationStatus) Active() bool {
	return s != StatusCancelled
}

type Reservation struct {
	ID                 int64             `json:"id"`
	OwnerID            int64             `json:"owner_id"`
	RequesterName      string            `json:"requester_name"`
	RequesterContact   string            `json:"requester_contact"`
	ScheduledAt        time.Time         `json:"scheduled_at"`
	Status             ReservationStatus `json:"status"`
	CancellationSecret string            `json:"cancellation_secret,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	Version            int64             `json:"version"`
}

// Redacted returns a copy without the cancellation secret, for lookups by anyone but the requester.
func (r Reservation) Redacted() Reservation {
	r.CancellationSecret = ""
	return r
}
