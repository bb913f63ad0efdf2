package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"priyom/internal/domain"
	"priyom/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCalculateSlots(t *testing.T) {
	nine := tod(9, 0).On(monday)

	t.Run("NoWindows", func(t *testing.T) {
		slots := CalculateSlots(monday, nil, nil, 30*time.Minute)
		assert.NotNil(t, slots)
		assert.Empty(t, slots)
	})

	t.Run("OneHourWindow", func(t *testing.T) {
		slots := CalculateSlots(monday, []*models.AvailabilityWindow{window(1, time.Monday, tod(9, 0), tod(10, 0))}, nil, 30*time.Minute)
		require.Len(t, slots, 2)
		assert.Equal(t, nine, slots[0].Start)
		assert.Equal(t, nine.Add(30*time.Minute), slots[0].End)
		assert.Equal(t, nine.Add(30*time.Minute), slots[1].Start)
		assert.Equal(t, nine.Add(time.Hour), slots[1].End)
	})

	t.Run("OccupiedSkipped", func(t *testing.T) {
		occupied := map[int64]struct{}{nine.Unix(): {}}
		slots := CalculateSlots(monday, []*models.AvailabilityWindow{window(1, time.Monday, tod(9, 0), tod(10, 0))}, occupied, 30*time.Minute)
		require.Len(t, slots, 1)
		assert.Equal(t, nine.Add(30*time.Minute), slots[0].Start)
	})

	t.Run("TrailingPartialDropped", func(t *testing.T) {
		slots := CalculateSlots(monday, []*models.AvailabilityWindow{window(1, time.Monday, tod(9, 0), tod(10, 15))}, nil, 30*time.Minute)
		assert.Len(t, slots, 2)
	})

	t.Run("WindowShorterThanSlot", func(t *testing.T) {
		slots := CalculateSlots(monday, []*models.AvailabilityWindow{window(1, time.Monday, tod(9, 0), tod(9, 20))}, nil, 30*time.Minute)
		assert.Empty(t, slots)
	})

	t.Run("SortedByWindowStart", func(t *testing.T) {
		windows := []*models.AvailabilityWindow{
			window(1, time.Monday, tod(14, 0), tod(14, 30)),
			window(1, time.Monday, tod(9, 0), tod(9, 30)),
		}
		slots := CalculateSlots(monday, windows, nil, 30*time.Minute)
		require.Len(t, slots, 2)
		assert.Equal(t, nine, slots[0].Start)
		assert.Equal(t, tod(14, 0).On(monday), slots[1].Start)
	})

	t.Run("OverlapProducesDuplicates", func(t *testing.T) {
		windows := []*models.AvailabilityWindow{
			window(1, time.Monday, tod(9, 0), tod(10, 0)),
			window(1, time.Monday, tod(9, 30), tod(10, 30)),
		}
		slots := CalculateSlots(monday, windows, nil, 30*time.Minute)
		require.Len(t, slots, 4)
		assert.Equal(t, slots[1].Start, slots[2].Start)
	})

	t.Run("ConfigurableDuration", func(t *testing.T) {
		slots := CalculateSlots(monday, []*models.AvailabilityWindow{window(1, time.Monday, tod(9, 0), tod(10, 0))}, nil, 20*time.Minute)
		assert.Len(t, slots, 3)
	})
}

func TestInsideAnyWindow(t *testing.T) {
	windows := []*models.AvailabilityWindow{
		window(1, time.Monday, tod(9, 0), tod(10, 0)),
		window(1, time.Monday, tod(14, 0), tod(17, 0)),
	}

	assert.True(t, insideAnyWindow(windows, tod(9, 0).On(monday)))
	assert.True(t, insideAnyWindow(windows, tod(9, 15).On(monday)), "off the slot grid")
	assert.True(t, insideAnyWindow(windows, tod(16, 45).On(monday)), "slot may run past the window end")
	assert.True(t, insideAnyWindow(windows, models.NewTimeOfDay(9, 59, 59).On(monday)))
	assert.False(t, insideAnyWindow(windows, tod(10, 0).On(monday)), "window end is exclusive")
	assert.False(t, insideAnyWindow(windows, tod(12, 0).On(monday)), "gap between windows")
	assert.False(t, insideAnyWindow(windows, tod(8, 30).On(monday)))
	assert.False(t, insideAnyWindow(nil, tod(9, 0).On(monday)))
}

func TestSlotService_ComputeAvailableSlots(t *testing.T) {
	ctx := context.Background()

	newService := func() (*SlotService, *mockWindows, *mockReservations) {
		w := new(mockWindows)
		r := new(mockReservations)
		return NewSlotService(w, r, 30*time.Minute, time.UTC, nopLogger()), w, r
	}

	t.Run("Success", func(t *testing.T) {
		svc, w, r := newService()
		w.On("ListWindows", ctx, int64(1), time.Monday).
			Return([]*models.AvailabilityWindow{window(1, time.Monday, tod(9, 0), tod(10, 0))}, nil).Once()
		r.On("ListActiveReservations", ctx, int64(1), monday, monday.AddDate(0, 0, 1)).
			Return([]*models.Reservation{{ScheduledAt: tod(9, 0).On(monday), Status: models.StatusConfirmed}}, nil).Once()

		slots, err := svc.ComputeAvailableSlots(ctx, 1, "2024-06-10")
		require.NoError(t, err)
		require.Len(t, slots, 1)
		assert.Equal(t, tod(9, 30).On(monday), slots[0].Start)
		w.AssertExpectations(t)
		r.AssertExpectations(t)
	})

	t.Run("NoWindowsSkipsReservations", func(t *testing.T) {
		svc, w, r := newService()
		w.On("ListWindows", ctx, int64(1), time.Sunday).Return([]*models.AvailabilityWindow{}, nil).Once()

		slots, err := svc.ComputeAvailableSlots(ctx, 1, "2024-06-09")
		require.NoError(t, err)
		assert.NotNil(t, slots)
		assert.Empty(t, slots)
		r.AssertNotCalled(t, "ListActiveReservations", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MalformedDate", func(t *testing.T) {
		svc, _, _ := newService()
		for _, d := range []string{"", "10.06.2024", "2024-13-01", "2024-06-10T09:00"} {
			_, err := svc.ComputeAvailableSlots(ctx, 1, d)
			assert.ErrorIs(t, err, domain.ErrValidation, d)
		}
	})

	t.Run("BadOwner", func(t *testing.T) {
		svc, _, _ := newService()
		_, err := svc.ComputeAvailableSlots(ctx, 0, "2024-06-10")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("StorageError", func(t *testing.T) {
		svc, w, _ := newService()
		storageErr := errors.Join(domain.ErrStorage, errors.New("disk"))
		w.On("ListWindows", ctx, int64(1), time.Monday).Return(nil, storageErr).Once()

		_, err := svc.ComputeAvailableSlots(ctx, 1, "2024-06-10")
		assert.ErrorIs(t, err, domain.ErrStorage)
	})

	t.Run("TimeZone", func(t *testing.T) {
		loc := time.FixedZone("UTC+3", 3*3600)
		w := new(mockWindows)
		r := new(mockReservations)
		svc := NewSlotService(w, r, 30*time.Minute, loc, nopLogger())

		w.On("ListWindows", ctx, int64(1), time.Monday).
			Return([]*models.AvailabilityWindow{window(1, time.Monday, tod(9, 0), tod(9, 30))}, nil).Once()
		r.On("ListActiveReservations", ctx, int64(1), mock.Anything, mock.Anything).Return(nil, nil).Once()

		slots, err := svc.ComputeAvailableSlots(ctx, 1, "2024-06-10")
		require.NoError(t, err)
		require.Len(t, slots, 1)
		assert.Equal(t, time.Date(2024, 6, 10, 6, 0, 0, 0, time.UTC).Unix(), slots[0].Start.Unix())
	})
}
