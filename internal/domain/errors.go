package domain

import "errors"

var (
	ErrValidation             = errors.New("validation failed")
	ErrSlotUnavailable        = errors.New("slot is not available")
	ErrSlotConflict           = errors.New("slot was booked by another request")
	ErrAuthorization          = errors.New("not authorized")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrStorage                = errors.New("storage failure")
	ErrOwnerNotFound          = errors.New("owner not found")
	ErrReservationNotFound    = errors.New("reservation not found")
	ErrAlreadyExists          = errors.New("already exists")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrRateLimited            = errors.New("too many attempts")
)
