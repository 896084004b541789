// Package model defines data structures for the booking agent.
package model

import (
	"fmt"
	"time"
)

// TimeSlot represents a bookable interval. Intervals are half-open
// [Start, End), so back-to-back slots never overlap.
type TimeSlot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

// Overlaps reports whether two slots share any instant.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s.Start.Before(other.End) && s.End.After(other.Start)
}

// Label renders the slot as "15:04 - 15:34" for chat replies.
func (s TimeSlot) Label() string {
	return fmt.Sprintf("%s - %s", s.Start.Format("15:04"), s.End.Format("15:04"))
}

// Duration returns the slot length.
func (s TimeSlot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Booking is the record produced when a conversation reaches completion.
// The referenced slot is unavailable in the availability engine from the
// moment the booking exists.
type Booking struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Slot      TimeSlot  `json:"slot"`
	CreatedAt time.Time `json:"created_at"`
}
