package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"priyom/internal/domain"
	"priyom/internal/events"
	"priyom/internal/metrics"
	"priyom/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const deadLetterKey = "priyom:notifications:deadletter"

// ErrQueueFull is returned by HandleEvent when the delivery queue is saturated.
var ErrQueueFull = errors.New("notification queue is full")

// NotificationTask is one reservation event awaiting delivery.
type NotificationTask struct {
	EventID     int64                          `json:"event_id"`
	EventType   string                         `json:"event_type"`
	Reservation events.ReservationEventPayload `json:"reservation"`
	CreatedAt   time.Time                      `json:"created_at"`
}

// deadLetter is what lands in Redis after all retries of a channel failed.
type deadLetter struct {
	Task    NotificationTask `json:"task"`
	Channel string           `json:"channel"`
	Error   string           `json:"error"`
	Retries int              `json:"retries"`
}

// NotificationWorker fans reservation events out to the configured notifiers.
// Events are queued without blocking the publisher and delivered by Start.
type NotificationWorker struct {
	notifiers   []domain.Notifier
	redis       *redis.Client
	retryPolicy RetryPolicy
	queue       chan NotificationTask
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *zerolog.Logger
}

// NewNotificationWorker builds a worker with sane defaults. redisClient may be
// nil; failed deliveries are then only logged.
func NewNotificationWorker(notifiers []domain.Notifier, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *NotificationWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 3
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 30 * time.Second
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &NotificationWorker{
		notifiers:   notifiers,
		redis:       redisClient,
		retryPolicy: retry,
		queue:       make(chan NotificationTask, models.WorkerQueueSize),
		sleep:       sleepCtx,
		logger:      logger,
	}
}

// Subscribe registers the worker for every reservation event on bus.
func (w *NotificationWorker) Subscribe(bus *events.EventBus) {
	bus.Subscribe(w.HandleEvent, events.ReservationEvents...)
}

// HandleEvent is an events.EventHandler. It never blocks.
func (w *NotificationWorker) HandleEvent(event *events.Event) error {
	payload, err := events.DecodeReservation(event)
	if err != nil {
		return fmt.Errorf("decode %s event: %w", event.Type, err)
	}

	task := NotificationTask{
		EventID:     event.ID,
		EventType:   event.Type,
		Reservation: payload,
		CreatedAt:   event.CreatedAt,
	}

	select {
	case w.queue <- task:
		return nil
	default:
		w.logger.Warn().
			Int64("event_id", event.ID).
			Int64("reservation_id", payload.ReservationID).
			Msg("notification queue full, event dropped")
		return ErrQueueFull
	}
}

// Pending returns the number of queued tasks.
func (w *NotificationWorker) Pending() int {
	return len(w.queue)
}

// Start delivers queued tasks until ctx is done.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.logger.Info().Int("notifiers", len(w.notifiers)).Msg("notification worker started")
	defer func() {
		w.logger.Info().Int("dropped", len(w.queue)).Msg("notification worker stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-w.queue:
			w.processTask(ctx, task)
		}
	}
}

func (w *NotificationWorker) processTask(ctx context.Context, task NotificationTask) {
	r := task.Reservation.Reservation()
	for _, n := range w.notifiers {
		w.deliver(ctx, n, task, r)
	}
}

func (w *NotificationWorker) deliver(ctx context.Context, n domain.Notifier, task NotificationTask, r *models.Reservation) {
	var err error
	for attempt := 1; ; attempt++ {
		err = n.NotifyReservation(ctx, task.EventType, r)
		if err == nil {
			metrics.IncNotification(n.Channel(), true)
			return
		}
		if attempt >= w.retryPolicy.MaxRetries || ctx.Err() != nil {
			break
		}

		delay := w.retryPolicy.NextDelay(attempt)
		w.logger.Warn().
			Err(err).
			Str("channel", n.Channel()).
			Int64("reservation_id", r.ID).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("notification failed, retrying")
		if w.sleep(ctx, delay) != nil {
			break
		}
	}

	metrics.IncNotification(n.Channel(), false)
	w.logger.Error().
		Err(err).
		Str("channel", n.Channel()).
		Str("event_type", task.EventType).
		Int64("reservation_id", r.ID).
		Msg("notification delivery failed")
	w.pushDeadLetter(ctx, deadLetter{Task: task, Channel: n.Channel(), Error: err.Error(), Retries: w.retryPolicy.MaxRetries})
}

func (w *NotificationWorker) pushDeadLetter(ctx context.Context, letter deadLetter) {
	if w.redis == nil {
		return
	}
	// секрет отмены не должен оседать в Redis
	letter.Task.Reservation.CancellationSecret = ""
	data, err := json.Marshal(letter)
	if err != nil {
		w.logger.Error().Err(err).Msg("encode dead letter")
		return
	}
	if err := w.redis.LPush(context.WithoutCancel(ctx), deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("reservation_id", letter.Task.Reservation.ReservationID).Msg("dead letter push failed")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
