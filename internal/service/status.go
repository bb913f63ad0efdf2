package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"priyom/internal/domain"
	"priyom/internal/events"
	"priyom/internal/metrics"
	"priyom/internal/models"

	"github.com/rs/zerolog"
)

// StatusService moves reservations through Pending -> Confirmed -> Cancelled.
type StatusService struct {
	owners       domain.OwnerDirectory
	reservations domain.ReservationStore
	clock        domain.Clock
	eventBus     domain.EventPublisher
	logger       *zerolog.Logger
}

func NewStatusService(
	owners domain.OwnerDirectory,
	reservations domain.ReservationStore,
	clock domain.Clock,
	eventBus domain.EventPublisher,
	logger *zerolog.Logger,
) *StatusService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &StatusService{
		owners:       owners,
		reservations: reservations,
		clock:        clock,
		eventBus:     eventBus,
		logger:       logger,
	}
}

// SetStatus changes the status on behalf of the owner identified by
// credential. An unknown credential, a missing reservation and a reservation
// of another owner all fail with ErrAuthorization.
func (s *StatusService) SetStatus(ctx context.Context, reservationID int64, newStatus models.ReservationStatus, credential string) (bool, error) {
	if newStatus != models.StatusConfirmed && newStatus != models.StatusCancelled {
		return false, fmt.Errorf("%w: status must be confirmed or cancelled, got %q", domain.ErrValidation, newStatus)
	}

	ownerID, err := s.owners.OwnerIDByToken(ctx, credential)
	if err != nil {
		return false, err
	}

	r, err := s.reservations.GetReservation(ctx, reservationID)
	if errors.Is(err, domain.ErrReservationNotFound) {
		return false, domain.ErrAuthorization
	}
	if err != nil {
		return false, err
	}
	if r.OwnerID != ownerID {
		s.logger.Warn().
			Int64("reservation_id", reservationID).
			Int64("owner_id", ownerID).
			Msg("status change on foreign reservation refused")
		return false, domain.ErrAuthorization
	}

	if !r.Status.CanTransitionTo(newStatus) {
		return false, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, r.Status, newStatus)
	}
	if r.Status == newStatus {
		return true, nil
	}

	now := s.clock.Now()
	if err := s.reservations.UpdateReservationStatusWithVersion(ctx, r.ID, r.Version, newStatus, now); err != nil {
		return false, err
	}

	metrics.IncStatusTransition(string(newStatus))
	s.logger.Info().
		Int64("reservation_id", r.ID).
		Str("from", string(r.Status)).
		Str("to", string(newStatus)).
		Msg("reservation status changed")

	r.Status = newStatus
	r.Version++
	r.UpdatedAt = now
	s.publishEvent(events.EventForStatus(newStatus), r, "owner")
	return true, nil
}

// CancelBySecret cancels the reservation identified by its cancellation
// secret. It reports false for unknown or already cancelled reservations.
func (s *StatusService) CancelBySecret(ctx context.Context, secret string) (bool, error) {
	secret = strings.TrimSpace(secret)
	if !ValidCancellationSecret(secret) {
		return false, fmt.Errorf("%w: malformed cancellation secret", domain.ErrValidation)
	}

	r, err := s.reservations.CancelBySecret(ctx, strings.ToLower(secret), s.clock.Now())
	if err != nil {
		return false, err
	}
	if r == nil {
		return false, nil
	}

	metrics.IncStatusTransition(string(models.StatusCancelled))
	s.logger.Info().
		Int64("reservation_id", r.ID).
		Int64("owner_id", r.OwnerID).
		Msg("reservation cancelled by requester")
	s.publishEvent(events.EventReservationCancelled, r, "requester")
	return true, nil
}

func (s *StatusService) publishEvent(eventType string, r *models.Reservation, changedBy string) {
	if s.eventBus == nil {
		return
	}

	// секрет отмены знает только заявитель
	payload := events.NewReservationPayload(r, changedBy)
	payload.CancellationSecret = ""
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("reservation_id", r.ID).Msg("publish event error")
	}
}
