package service

import (
	"context"
	"fmt"
	"time"

	"priyom/internal/domain"
	"priyom/internal/models"

	"github.com/rs/zerolog"
)

// AvailabilityService manages an owner's recurring windows.
type AvailabilityService struct {
	owners  domain.OwnerDirectory
	windows domain.AvailabilityStore
	clock   domain.Clock
	logger  *zerolog.Logger
}

func NewAvailabilityService(owners domain.OwnerDirectory, windows domain.AvailabilityStore, logger *zerolog.Logger) *AvailabilityService {
	return &AvailabilityService{owners: owners, windows: windows, clock: SystemClock{}, logger: logger}
}

func (s *AvailabilityService) WithClock(clock domain.Clock) *AvailabilityService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// WindowRequest is the raw input for a new window. Times are "HH:MM" or "HH:MM:SS".
type WindowRequest struct {
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (r WindowRequest) parse() (time.Weekday, models.TimeOfDay, models.TimeOfDay, error) {
	if r.Weekday < 0 || r.Weekday > 6 {
		return 0, 0, 0, fmt.Errorf("%w: weekday must be 0..6 (0 = Sunday)", domain.ErrValidation)
	}
	start, err := models.ParseTimeOfDay(r.StartTime)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: start_time: %w", domain.ErrValidation, err)
	}
	end, err := models.ParseTimeOfDay(r.EndTime)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: end_time: %w", domain.ErrValidation, err)
	}
	if start >= end {
		return 0, 0, 0, fmt.Errorf("%w: start_time must be before end_time", domain.ErrValidation)
	}
	return time.Weekday(r.Weekday), start, end, nil
}

// AddWindow stores a new window for the credential's owner. Overlap with
// existing windows is accepted.
func (s *AvailabilityService) AddWindow(ctx context.Context, credential string, req WindowRequest) (*models.AvailabilityWindow, error) {
	ownerID, err := s.owners.OwnerIDByToken(ctx, credential)
	if err != nil {
		return nil, err
	}

	weekday, start, end, err := req.parse()
	if err != nil {
		return nil, err
	}

	w := &models.AvailabilityWindow{OwnerID: ownerID, Weekday: weekday, StartTime: start, EndTime: end}
	if err := s.windows.CreateWindow(ctx, w, s.clock.Now()); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("owner_id", ownerID).
		Int64("window_id", w.ID).
		Str("weekday", weekday.String()).
		Str("start", start.String()).
		Str("end", end.String()).
		Msg("availability window added")
	return w, nil
}

// RemoveWindow deletes the window if the credential's owner holds it.
// Missing or foreign windows yield false.
func (s *AvailabilityService) RemoveWindow(ctx context.Context, credential string, windowID int64) (bool, error) {
	ownerID, err := s.owners.OwnerIDByToken(ctx, credential)
	if err != nil {
		return false, err
	}
	return s.windows.DeleteWindow(ctx, ownerID, windowID)
}

// ListOwnWindows lists the credential owner's windows by weekday and start time.
func (s *AvailabilityService) ListOwnWindows(ctx context.Context, credential string) ([]*models.AvailabilityWindow, error) {
	ownerID, err := s.owners.OwnerIDByToken(ctx, credential)
	if err != nil {
		return nil, err
	}
	return s.windows.ListOwnerWindows(ctx, ownerID)
}

// ListWindows is the public view; weekday nil means the whole week.
func (s *AvailabilityService) ListWindows(ctx context.Context, ownerID int64, weekday *time.Weekday) ([]*models.AvailabilityWindow, error) {
	if ownerID <= 0 {
		return nil, fmt.Errorf("%w: owner id must be positive", domain.ErrValidation)
	}
	exists, err := s.owners.OwnerExists(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", domain.ErrOwnerNotFound, ownerID)
	}
	if weekday == nil {
		return s.windows.ListOwnerWindows(ctx, ownerID)
	}
	return s.windows.ListWindows(ctx, ownerID, *weekday)
}
