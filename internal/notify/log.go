package notify

import (
	"context"

	"priyom/internal/events"
	"priyom/internal/models"

	"github.com/rs/zerolog"
)

const ChannelLog = "email_log"

// LogNotifier stands in for an e-mail gateway: every message that would be
// sent to the requester is written to the log instead.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Channel() string { return ChannelLog }

func (n *LogNotifier) NotifyReservation(ctx context.Context, eventType string, r *models.Reservation) error {
	e := n.logger.Info().
		Str("channel", ChannelLog).
		Str("to", r.RequesterContact).
		Str("event_type", eventType).
		Int64("reservation_id", r.ID).
		Int64("owner_id", r.OwnerID).
		Time("scheduled_at", r.ScheduledAt)

	switch eventType {
	case events.EventReservationCreated:
		// единственное место, где заявитель узнаёт секрет отмены
		e.Str("cancellation_secret", r.CancellationSecret).
			Msg("simulated email: reservation received")
	case events.EventReservationConfirmed:
		e.Msg("simulated email: reservation confirmed")
	case events.EventReservationCancelled:
		e.Msg("simulated email: reservation cancelled")
	default:
		e.Msg("simulated email: reservation updated")
	}
	return nil
}
