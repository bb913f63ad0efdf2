package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"priyom/internal/domain"
	"priyom/internal/models"

	"github.com/rs/zerolog"
)

// SlotService computes the bookable slots of an owner's day.
type SlotService struct {
	windows      domain.AvailabilityStore
	reservations domain.ReservationStore
	slotDuration time.Duration
	loc          *time.Location
	logger       *zerolog.Logger
}

func NewSlotService(
	windows domain.AvailabilityStore,
	reservations domain.ReservationStore,
	slotDuration time.Duration,
	loc *time.Location,
	logger *zerolog.Logger,
) *SlotService {
	if slotDuration <= 0 {
		slotDuration = models.DefaultSlotDuration
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SlotService{
		windows:      windows,
		reservations: reservations,
		slotDuration: slotDuration,
		loc:          loc,
		logger:       logger,
	}
}

func (s *SlotService) SlotDuration() time.Duration { return s.slotDuration }

func (s *SlotService) Location() *time.Location { return s.loc }

// ParseDate parses YYYY-MM-DD as midnight in the booking time zone.
func (s *SlotService) ParseDate(date string) (time.Time, error) {
	d, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(date), s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD: %q", domain.ErrValidation, date)
	}
	return d, nil
}

// ComputeAvailableSlots returns the free slots of ownerID on date, ordered by
// window start. A day without windows yields an empty slice.
func (s *SlotService) ComputeAvailableSlots(ctx context.Context, ownerID int64, date string) ([]models.Slot, error) {
	if ownerID <= 0 {
		return nil, fmt.Errorf("%w: owner id must be positive", domain.ErrValidation)
	}
	day, err := s.ParseDate(date)
	if err != nil {
		return nil, err
	}

	windows, err := s.windows.ListWindows(ctx, ownerID, day.Weekday())
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return []models.Slot{}, nil
	}

	nextDay := day.AddDate(0, 0, 1)
	reserved, err := s.reservations.ListActiveReservations(ctx, ownerID, day, nextDay)
	if err != nil {
		return nil, err
	}

	occupied := make(map[int64]struct{}, len(reserved))
	for _, r := range reserved {
		occupied[r.ScheduledAt.Unix()] = struct{}{}
	}

	slots := CalculateSlots(day, windows, occupied, s.slotDuration)
	s.logger.Debug().
		Int64("owner_id", ownerID).
		Str("date", date).
		Int("windows", len(windows)).
		Int("reserved", len(reserved)).
		Int("slots", len(slots)).
		Msg("computed available slots")
	return slots, nil
}

// CalculateSlots walks each window in duration steps while the slot still
// ends inside the window, skipping starts present in occupied (Unix seconds).
// Overlapping windows may produce the same slot twice.
func CalculateSlots(day time.Time, windows []*models.AvailabilityWindow, occupied map[int64]struct{}, duration time.Duration) []models.Slot {
	sorted := append([]*models.AvailabilityWindow(nil), windows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})

	slots := make([]models.Slot, 0)
	for _, w := range sorted {
		windowEnd := w.EndTime.On(day)
		for start := w.StartTime.On(day); !start.Add(duration).After(windowEnd); start = start.Add(duration) {
			if _, taken := occupied[start.Unix()]; taken {
				continue
			}
			slots = append(slots, models.Slot{Start: start, End: start.Add(duration)})
		}
	}
	return slots
}

// insideAnyWindow reports whether the time of day of at falls in [start, end)
// of one of windows. Starts off the slot grid are accepted.
func insideAnyWindow(windows []*models.AvailabilityWindow, at time.Time) bool {
	tod := models.TimeOfDayOf(at)
	for _, w := range windows {
		if w.Contains(tod) {
			return true
		}
	}
	return false
}
