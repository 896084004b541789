package model

import (
	"time"
)

// BookingEventType classifies booking lifecycle events published to the
// event stream.
type BookingEventType string

const (
	BookingEventConfirmed BookingEventType = "confirmed"
	BookingEventConflict  BookingEventType = "conflict"
)

// BookingEvent is the payload published when a booking outcome is reached.
// Downstream consumers (notifications, sync jobs) subscribe to these; the
// agent itself never reads them back.
type BookingEvent struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	Type      BookingEventType `json:"type"`
	Booking   *Booking         `json:"booking,omitempty"`
	Slot      TimeSlot         `json:"slot"`
	CreatedAt time.Time        `json:"created_at"`
}
