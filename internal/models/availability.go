package models

import "time"

// AvailabilityWindow is a recurring weekly block during which an owner accepts reservations.
type AvailabilityWindow struct {
	ID        int64        `json:"id"`
	OwnerID   int64        `json:"owner_id"`
	Weekday   time.Weekday `json:"weekday"` // 0=Sunday ... 6=Saturday
	StartTime TimeOfDay    `json:"start_time"`
	EndTime   TimeOfDay    `json:"end_time"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// WindowTemplate describes a window without an owner, used for defaults.
type WindowTemplate struct {
	Weekday   time.Weekday `yaml:"weekday"`
	StartTime TimeOfDay    `yaml:"start_time"`
	EndTime   TimeOfDay    `yaml:"end_time"`
}

// Contains reports whether tod falls in [StartTime, EndTime).
func (w AvailabilityWindow) Contains(tod TimeOfDay) bool {
	return tod >= w.StartTime && tod < w.EndTime
}

// Slot is a bookable fixed-duration interval. It is never persisted.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
