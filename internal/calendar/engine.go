// Package calendar implements the availability engine. It derives open
// slots from a business-hours policy and records bookings, guaranteeing no
// two bookings ever overlap.
package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bookline-ai/booking-agent/internal/model"
)

// Policy describes when appointments may happen. Open and Close are offsets
// from midnight in the calendar's location.
type Policy struct {
	Open        time.Duration
	Close       time.Duration
	Granularity time.Duration
	Workdays    map[time.Weekday]bool
}

// Span returns the length of the daily booking window.
func (p Policy) Span() time.Duration {
	return p.Close - p.Open
}

// Reader answers availability questions without mutating the calendar.
type Reader interface {
	// ListSlots returns the open slots of one calendar day, in order.
	// A zero duration means the policy's default appointment length.
	ListSlots(ctx context.Context, date time.Time, duration time.Duration) ([]model.TimeSlot, error)

	// IsAvailable reports whether the exact slot could be booked right now.
	IsAvailable(ctx context.Context, slot model.TimeSlot) (bool, error)

	// Suggest probes upcoming days for open mid-morning and early-afternoon
	// slots, returning at most limit of them.
	Suggest(ctx context.Context, days, limit int, duration time.Duration) ([]model.TimeSlot, error)
}

// Booker records bookings. It is separate from Reader so dialogue nodes
// that only present availability cannot create bookings.
type Booker interface {
	Book(ctx context.Context, sessionID string, slot model.TimeSlot) (*model.Booking, error)
}

// Engine is the full calendar surface.
type Engine interface {
	Reader
	Booker
}

// MemoryEngine keeps bookings in process memory. All booking checks and
// writes run under one mutex, so concurrent attempts on the same slot
// produce exactly one winner.
type MemoryEngine struct {
	policy Policy
	now    func() time.Time

	mu       sync.Mutex
	bookings []model.Booking
}

// NewMemoryEngine creates an engine over the given policy. The policy is
// assumed validated: a positive granularity that tiles the window evenly.
func NewMemoryEngine(policy Policy) *MemoryEngine {
	return &MemoryEngine{
		policy: policy,
		now:    time.Now,
	}
}

// ListSlots returns the open slots of the given day. Non-working days and
// days already past yield an empty list, not an error. A duration longer
// than the whole window also yields an empty list; a duration that fits but
// does not tile the window evenly is rejected.
func (e *MemoryEngine) ListSlots(_ context.Context, date time.Time, duration time.Duration) ([]model.TimeSlot, error) {
	if duration <= 0 {
		duration = e.policy.Granularity
	}
	span := e.policy.Span()
	if duration > span {
		return []model.TimeSlot{}, nil
	}
	if span%duration != 0 {
		return nil, ErrInvalidDuration
	}

	now := e.now()
	day := dayStart(date)
	if !e.policy.Workdays[day.Weekday()] || day.Before(dayStart(now)) {
		return []model.TimeSlot{}, nil
	}

	booked := e.bookedSlots()

	slots := make([]model.TimeSlot, 0, span/duration)
	opens := day.Add(e.policy.Open)
	closes := day.Add(e.policy.Close)
	for start := opens; !start.Add(duration).After(closes); start = start.Add(duration) {
		if !start.After(now) {
			continue // already begun
		}
		slot := model.TimeSlot{Start: start, End: start.Add(duration), Available: true}
		if overlapsAny(slot, booked) {
			continue
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// IsAvailable reports whether the exact slot is bookable: a future interval
// on a working day, inside business hours, clear of existing bookings.
func (e *MemoryEngine) IsAvailable(_ context.Context, slot model.TimeSlot) (bool, error) {
	if e.validate(slot) != nil {
		return false, nil
	}
	return !overlapsAny(slot, e.bookedSlots()), nil
}

// Suggest scans the next days for open slots at 10:00 and 14:00, the times
// people most often accept, and returns up to limit of them.
func (e *MemoryEngine) Suggest(ctx context.Context, days, limit int, duration time.Duration) ([]model.TimeSlot, error) {
	if duration <= 0 {
		duration = e.policy.Granularity
	}

	probes := []time.Duration{10 * time.Hour, 14 * time.Hour}
	today := dayStart(e.now())

	var suggestions []model.TimeSlot
	for i := 1; i <= days && len(suggestions) < limit; i++ {
		day := today.AddDate(0, 0, i)
		if !e.policy.Workdays[day.Weekday()] {
			continue
		}
		for _, offset := range probes {
			if len(suggestions) >= limit {
				break
			}
			slot := model.TimeSlot{Start: day.Add(offset), End: day.Add(offset + duration), Available: true}
			ok, err := e.IsAvailable(ctx, slot)
			if err != nil {
				return nil, err
			}
			if ok {
				suggestions = append(suggestions, slot)
			}
		}
	}
	return suggestions, nil
}

// Book records the slot for the session. The conflict check and the write
// run under the engine mutex, so a race between two sessions over the same
// slot leaves one booking and one ErrConflict.
func (e *MemoryEngine) Book(_ context.Context, sessionID string, slot model.TimeSlot) (*model.Booking, error) {
	if err := e.validate(slot); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, b := range e.bookings {
		if b.Slot.Overlaps(slot) {
			return nil, ErrConflict
		}
	}

	booking := model.Booking{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Slot:      slot,
		CreatedAt: e.now(),
	}
	e.bookings = append(e.bookings, booking)
	return &booking, nil
}

// validate checks the slot against the policy, ignoring other bookings.
func (e *MemoryEngine) validate(slot model.TimeSlot) error {
	if !slot.End.After(slot.Start) {
		return ErrInvalidDuration
	}
	day := dayStart(slot.Start)
	if !e.policy.Workdays[day.Weekday()] {
		return ErrOutsideHours
	}
	if slot.Start.Before(day.Add(e.policy.Open)) || slot.End.After(day.Add(e.policy.Close)) {
		return ErrOutsideHours
	}
	if !slot.Start.After(e.now()) {
		return ErrPastSlot
	}
	return nil
}

func (e *MemoryEngine) bookedSlots() []model.TimeSlot {
	e.mu.Lock()
	defer e.mu.Unlock()

	slots := make([]model.TimeSlot, len(e.bookings))
	for i, b := range e.bookings {
		slots[i] = b.Slot
	}
	return slots
}

func overlapsAny(slot model.TimeSlot, others []model.TimeSlot) bool {
	for _, other := range others {
		if slot.Overlaps(other) {
			return true
		}
	}
	return false
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
