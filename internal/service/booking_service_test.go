package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"priyom/internal/domain"
	"priyom/internal/events"
	"priyom/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var bookingNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

type bookingFixture struct {
	owners       *mockOwners
	windows      *mockWindows
	reservations *mockReservations
	bus          *mockEventBus
	service      *BookingService
}

func newBookingFixture() *bookingFixture {
	f := &bookingFixture{
		owners:       new(mockOwners),
		windows:      new(mockWindows),
		reservations: new(mockReservations),
		bus:          new(mockEventBus),
	}
	slots := NewSlotService(f.windows, f.reservations, 30*time.Minute, time.UTC, nopLogger())
	f.service = NewBookingService(f.owners, f.windows, f.reservations, slots, fixedSecret(testSecret), f.bus, nopLogger()).
		WithClock(fixedClock(bookingNow))
	return f
}

func (f *bookingFixture) expectOpenMonday(ctx context.Context) {
	f.owners.On("OwnerExists", ctx, int64(1)).Return(true, nil)
	f.windows.On("ListWindows", ctx, int64(1), time.Monday).
		Return([]*models.AvailabilityWindow{window(1, time.Monday, tod(9, 0), tod(10, 0))}, nil)
}

func validRequest() ReserveRequest {
	return ReserveRequest{
		OwnerID:          1,
		RequesterName:    "Anna",
		RequesterContact: "anna@example.com",
		ScheduledAt:      "2024-06-10T09:30:00Z",
	}
}

func TestBookingService_Reserve(t *testing.T) {
	ctx := context.Background()
	at := tod(9, 30).On(monday)

	t.Run("Success", func(t *testing.T) {
		f := newBookingFixture()
		f.expectOpenMonday(ctx)
		f.reservations.On("FindActiveReservation", ctx, int64(1), at).Return(nil, nil).Once()
		f.reservations.On("CreateReservation", ctx, mock.MatchedBy(func(r *models.Reservation) bool {
			return r.OwnerID == 1 && r.Status == models.StatusPending && r.CancellationSecret == testSecret && r.ScheduledAt.Equal(at)
		}), bookingNow).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Reservation).ID = 42
		}).Return(nil).Once()
		f.bus.On("PublishJSON", events.EventReservationCreated, mock.MatchedBy(func(p events.ReservationEventPayload) bool {
			return p.ReservationID == 42 && p.CancellationSecret == testSecret && p.ChangedBy == "requester"
		})).Return(nil).Once()

		r, err := f.service.Reserve(ctx, validRequest())
		require.NoError(t, err)
		assert.Equal(t, int64(42), r.ID)
		assert.Equal(t, testSecret, r.CancellationSecret)
		assert.Equal(t, models.StatusPending, r.Status)
		f.reservations.AssertExpectations(t)
		f.bus.AssertExpectations(t)
	})

	t.Run("TrimsRequesterFields", func(t *testing.T) {
		f := newBookingFixture()
		f.expectOpenMonday(ctx)
		f.reservations.On("FindActiveReservation", ctx, int64(1), at).Return(nil, nil).Once()
		f.reservations.On("CreateReservation", ctx, mock.MatchedBy(func(r *models.Reservation) bool {
			return r.RequesterName == "Anna" && r.RequesterContact == "anna@example.com"
		}), bookingNow).Return(nil).Once()
		f.bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)

		req := validRequest()
		req.RequesterName = "  Anna "
		req.RequesterContact = " anna@example.com\t"
		_, err := f.service.Reserve(ctx, req)
		require.NoError(t, err)
		f.reservations.AssertExpectations(t)
	})

	t.Run("Validation", func(t *testing.T) {
		cases := map[string]func(*ReserveRequest){
			"owner":     func(r *ReserveRequest) { r.OwnerID = 0 },
			"name":      func(r *ReserveRequest) { r.RequesterName = "  " },
			"contact":   func(r *ReserveRequest) { r.RequesterContact = "" },
			"time":      func(r *ReserveRequest) { r.ScheduledAt = "tomorrow" },
			"timeEmpty": func(r *ReserveRequest) { r.ScheduledAt = "" },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				f := newBookingFixture()
				req := validRequest()
				mutate(&req)
				_, err := f.service.Reserve(ctx, req)
				assert.ErrorIs(t, err, domain.ErrValidation)
				f.owners.AssertNotCalled(t, "OwnerExists", mock.Anything, mock.Anything)
				f.reservations.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("OwnerNotFound", func(t *testing.T) {
		f := newBookingFixture()
		f.owners.On("OwnerExists", ctx, int64(1)).Return(false, nil).Once()

		_, err := f.service.Reserve(ctx, validRequest())
		assert.ErrorIs(t, err, domain.ErrOwnerNotFound)
	})

	t.Run("OutsideWindow", func(t *testing.T) {
		f := newBookingFixture()
		f.expectOpenMonday(ctx)

		req := validRequest()
		req.ScheduledAt = "2024-06-10 10:00"
		_, err := f.service.Reserve(ctx, req)
		assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
		f.reservations.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("InsideWindowOffGrid", func(t *testing.T) {
		for _, raw := range []string{"2024-06-10 09:15", "2024-06-10 09:59:59"} {
			f := newBookingFixture()
			f.expectOpenMonday(ctx)
			f.reservations.On("FindActiveReservation", ctx, int64(1), mock.Anything).Return(nil, nil).Once()
			f.reservations.On("CreateReservation", ctx, mock.Anything, bookingNow).Return(nil).Once()
			f.bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)

			req := validRequest()
			req.ScheduledAt = raw
			r, err := f.service.Reserve(ctx, req)
			require.NoError(t, err, raw)
			assert.Equal(t, raw, r.ScheduledAt.Format("2006-01-02 15:04:05")[:len(raw)])
			f.reservations.AssertExpectations(t)
		}
	})

	t.Run("BeforeWindow", func(t *testing.T) {
		f := newBookingFixture()
		f.expectOpenMonday(ctx)

		req := validRequest()
		req.ScheduledAt = "2024-06-10 08:59:59"
		_, err := f.service.Reserve(ctx, req)
		assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	})

	t.Run("NoWindowThatDay", func(t *testing.T) {
		f := newBookingFixture()
		f.owners.On("OwnerExists", ctx, int64(1)).Return(true, nil)
		f.windows.On("ListWindows", ctx, int64(1), time.Tuesday).Return([]*models.AvailabilityWindow{}, nil)

		req := validRequest()
		req.ScheduledAt = "2024-06-11 09:30"
		_, err := f.service.Reserve(ctx, req)
		assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	})

	t.Run("AlreadyTaken", func(t *testing.T) {
		f := newBookingFixture()
		f.expectOpenMonday(ctx)
		f.reservations.On("FindActiveReservation", ctx, int64(1), at).
			Return(&models.Reservation{ID: 7, Status: models.StatusConfirmed}, nil).Once()

		_, err := f.service.Reserve(ctx, validRequest())
		assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
		f.reservations.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything, mock.Anything)
		f.bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
	})

	t.Run("LostRace", func(t *testing.T) {
		f := newBookingFixture()
		f.expectOpenMonday(ctx)
		f.reservations.On("FindActiveReservation", ctx, int64(1), at).Return(nil, nil).Once()
		f.reservations.On("CreateReservation", ctx, mock.Anything, bookingNow).Return(domain.ErrSlotConflict).Once()

		_, err := f.service.Reserve(ctx, validRequest())
		assert.ErrorIs(t, err, domain.ErrSlotConflict)
		f.bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
	})

	t.Run("StorageFailure", func(t *testing.T) {
		f := newBookingFixture()
		f.owners.On("OwnerExists", ctx, int64(1)).Return(false, errors.Join(domain.ErrStorage, errors.New("locked"))).Once()

		_, err := f.service.Reserve(ctx, validRequest())
		assert.ErrorIs(t, err, domain.ErrStorage)
	})

	t.Run("PublishFailureIgnored", func(t *testing.T) {
		f := newBookingFixture()
		f.expectOpenMonday(ctx)
		f.reservations.On("FindActiveReservation", ctx, int64(1), at).Return(nil, nil).Once()
		f.reservations.On("CreateReservation", ctx, mock.Anything, bookingNow).Return(nil).Once()
		f.bus.On("PublishJSON", mock.Anything, mock.Anything).Return(errors.New("handler failed")).Once()

		_, err := f.service.Reserve(ctx, validRequest())
		assert.NoError(t, err)
	})
}

func TestBookingService_AttemptLimiter(t *testing.T) {
	ctx := context.Background()
	policy := AttemptPolicy{Limit: 3, Window: time.Minute}

	t.Run("Denied", func(t *testing.T) {
		f := newBookingFixture()
		limiter := new(mockLimiter)
		f.service.WithAttemptLimiter(limiter, policy)
		limiter.On("CheckRateLimit", ctx, "reserve:anna@example.com", 3, time.Minute).Return(false, nil).Once()

		req := validRequest()
		req.RequesterContact = "Anna@Example.com"
		_, err := f.service.Reserve(ctx, req)
		assert.ErrorIs(t, err, domain.ErrRateLimited)
		f.owners.AssertNotCalled(t, "OwnerExists", mock.Anything, mock.Anything)
		limiter.AssertExpectations(t)
	})

	t.Run("LimiterErrorAllows", func(t *testing.T) {
		f := newBookingFixture()
		limiter := new(mockLimiter)
		f.service.WithAttemptLimiter(limiter, policy)
		limiter.On("CheckRateLimit", ctx, mock.Anything, 3, time.Minute).Return(false, errors.New("redis down")).Once()
		f.expectOpenMonday(ctx)
		f.reservations.On("FindActiveReservation", ctx, int64(1), mock.Anything).Return(nil, nil).Once()
		f.reservations.On("CreateReservation", ctx, mock.Anything, bookingNow).Return(nil).Once()
		f.bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)

		_, err := f.service.Reserve(ctx, validRequest())
		assert.NoError(t, err)
	})

	t.Run("ZeroLimitDisables", func(t *testing.T) {
		f := newBookingFixture()
		limiter := new(mockLimiter)
		f.service.WithAttemptLimiter(limiter, AttemptPolicy{})
		f.owners.On("OwnerExists", ctx, int64(1)).Return(false, nil).Once()

		_, err := f.service.Reserve(ctx, validRequest())
		assert.ErrorIs(t, err, domain.ErrOwnerNotFound)
		limiter.AssertNotCalled(t, "CheckRateLimit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBookingService_GetReservation(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture()

	stored := &models.Reservation{ID: 5, OwnerID: 1, Status: models.StatusPending, CancellationSecret: testSecret}
	f.reservations.On("GetReservation", ctx, int64(5)).Return(stored, nil).Once()
	f.reservations.On("GetReservation", ctx, int64(6)).Return(nil, domain.ErrReservationNotFound).Once()

	r, err := f.service.GetReservation(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, r.CancellationSecret)
	assert.Equal(t, testSecret, stored.CancellationSecret, "stored value is not mutated")

	_, err = f.service.GetReservation(ctx, 6)
	assert.ErrorIs(t, err, domain.ErrReservationNotFound)

	_, err = f.service.GetReservation(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestParseScheduledAt(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	want := time.Date(2024, 6, 10, 9, 30, 0, 0, loc)

	for _, raw := range []string{
		"2024-06-10T09:30:00+03:00",
		"2024-06-10T06:30:00Z",
		"2024-06-10T06:30:00.750Z",
		"2024-06-10 09:30:00",
		"2024-06-10 09:30",
		"2024-06-10T09:30:00",
		" 2024-06-10T09:30 ",
	} {
		got, err := ParseScheduledAt(raw, loc)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), "%s: got %s", raw, got)
		assert.Equal(t, loc, got.Location(), raw)
	}

	for _, raw := range []string{"", "10.06.2024 09:30", "2024-06-10", "09:30"} {
		_, err := ParseScheduledAt(raw, loc)
		assert.Error(t, err, raw)
	}
}
