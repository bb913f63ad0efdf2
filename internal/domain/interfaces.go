package domain

import (
	"context"
	"time"

	"priyom/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type AvailabilityStore interface {
	ListWindows(ctx context.Context, ownerID int64, weekday time.Weekday) ([]*models.AvailabilityWindow, error)
	ListOwnerWindows(ctx context.Context, ownerID int64) ([]*models.AvailabilityWindow, error)
	CreateWindow(ctx context.Context, window *models.AvailabilityWindow, now time.Time) error
	DeleteWindow(ctx context.Context, ownerID, windowID int64) (bool, error)
}

type ReservationStore interface {
	ListActiveReservations(ctx context.Context, ownerID int64, from, to time.Time) ([]*models.Reservation, error)
	FindActiveReservation(ctx context.Context, ownerID int64, at time.Time) (*models.Reservation, error)
	CreateReservation(ctx context.Context, r *models.Reservation, now time.Time) error
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	UpdateReservationStatusWithVersion(ctx context.Context, id, version int64, status models.ReservationStatus, now time.Time) error
	// CancelBySecret returns the cancelled reservation, or nil when no active
	// reservation holds secret.
	CancelBySecret(ctx context.Context, secret string, now time.Time) (*models.Reservation, error)
	ListOwnerReservations(ctx context.Context, ownerID int64, from, to time.Time) ([]*models.Reservation, error)
}

// OwnerDirectory resolves management credentials. The credential is opaque.
type OwnerDirectory interface {
	OwnerIDByToken(ctx context.Context, token string) (int64, error)
	OwnerExists(ctx context.Context, ownerID int64) (bool, error)
}

type OwnerStore interface {
	OwnerDirectory
	CreateOwnerWithWindows(ctx context.Context, owner *models.Owner, windows []*models.AvailabilityWindow, now time.Time) error
	GetOwner(ctx context.Context, id int64) (*models.Owner, error)
	ListOwners(ctx context.Context) ([]*models.Owner, error)
	UpdateOwner(ctx context.Context, id int64, patch models.OwnerPatch, now time.Time) (*models.Owner, error)
}

// Repository is everything a storage backend provides.
type Repository interface {
	AvailabilityStore
	ReservationStore
	OwnerStore
	Ping(ctx context.Context) error
	Close() error
}

type AttemptLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Clock is the single source of stored timestamps.
type Clock interface {
	Now() time.Time
}

type SecretGenerator interface {
	NewSecret() (string, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Notifier delivers reservation events over one channel.
type Notifier interface {
	Channel() string
	NotifyReservation(ctx context.Context, eventType string, r *models.Reservation) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}
