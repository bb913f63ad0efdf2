package service

import (
	"context"
	"io"
	"time"

	"priyom/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

type mockOwners struct {
	mock.Mock
}

func (m *mockOwners) OwnerIDByToken(ctx context.Context, token string) (int64, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(int64), args.Error(1)
}
func (m *mockOwners) OwnerExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
func (m *mockOwners) CreateOwnerWithWindows(ctx context.Context, o *models.Owner, w []*models.AvailabilityWindow, now time.Time) error {
	return m.Called(ctx, o, w, now).Error(0)
}
func (m *mockOwners) GetOwner(ctx context.Context, id int64) (*models.Owner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Owner), args.Error(1)
}
func (m *mockOwners) ListOwners(ctx context.Context) ([]*models.Owner, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Owner), args.Error(1)
}
func (m *mockOwners) UpdateOwner(ctx context.Context, id int64, p models.OwnerPatch, now time.Time) (*models.Owner, error) {
	args := m.Called(ctx, id, p, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Owner), args.Error(1)
}

type mockWindows struct {
	mock.Mock
}

func (m *mockWindows) ListWindows(ctx context.Context, ownerID int64, d time.Weekday) ([]*models.AvailabilityWindow, error) {
	args := m.Called(ctx, ownerID, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AvailabilityWindow), args.Error(1)
}
func (m *mockWindows) ListOwnerWindows(ctx context.Context, ownerID int64) ([]*models.AvailabilityWindow, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AvailabilityWindow), args.Error(1)
}
func (m *mockWindows) CreateWindow(ctx context.Context, w *models.AvailabilityWindow, now time.Time) error {
	return m.Called(ctx, w, now).Error(0)
}
func (m *mockWindows) DeleteWindow(ctx context.Context, ownerID, windowID int64) (bool, error) {
	args := m.Called(ctx, ownerID, windowID)
	return args.Bool(0), args.Error(1)
}

type mockReservations struct {
	mock.Mock
}

func (m *mockReservations) ListActiveReservations(ctx context.Context, ownerID int64, from, to time.Time) ([]*models.Reservation, error) {
	args := m.Called(ctx, ownerID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reservation), args.Error(1)
}
func (m *mockReservations) FindActiveReservation(ctx context.Context, ownerID int64, at time.Time) (*models.Reservation, error) {
	args := m.Called(ctx, ownerID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}
func (m *mockReservations) CreateReservation(ctx context.Context, r *models.Reservation, now time.Time) error {
	return m.Called(ctx, r, now).Error(0)
}
func (m *mockReservations) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}
func (m *mockReservations) UpdateReservationStatusWithVersion(ctx context.Context, id, v int64, s models.ReservationStatus, now time.Time) error {
	return m.Called(ctx, id, v, s, now).Error(0)
}
func (m *mockReservations) CancelBySecret(ctx context.Context, secret string, now time.Time) (*models.Reservation, error) {
	args := m.Called(ctx, secret, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}
func (m *mockReservations) ListOwnerReservations(ctx context.Context, ownerID int64, from, to time.Time) ([]*models.Reservation, error) {
	args := m.Called(ctx, ownerID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reservation), args.Error(1)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

type fixedSecret string

func (f fixedSecret) NewSecret() (string, error) { return string(f), nil }

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func nopLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// monday is 2024-06-10, a Monday.
var monday = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

func tod(h, m int) models.TimeOfDay {
	return models.NewTimeOfDay(h, m, 0)
}

func window(ownerID int64, d time.Weekday, start, end models.TimeOfDay) *models.AvailabilityWindow {
	return &models.AvailabilityWindow{OwnerID: ownerID, Weekday: d, StartTime: start, EndTime: end}
}
