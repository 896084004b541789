package calendar

import "errors"

var (
	// ErrConflict is returned when a booking would overlap an existing one.
	ErrConflict = errors.New("slot already booked")

	// ErrInvalidDuration is returned when a duration cannot tile the
	// business-hours window evenly.
	ErrInvalidDuration = errors.New("duration does not fit business hours")

	// ErrOutsideHours is returned when a slot falls outside business hours
	// or on a non-working day.
	ErrOutsideHours = errors.New("slot outside business hours")

	// ErrPastSlot is returned when a slot has already begun.
	ErrPastSlot = errors.New("slot is in the past")
)
