package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bookline-ai/booking-agent/internal/model"
)

// now is a Wednesday before business hours.
var now = time.Date(2026, time.March, 4, 8, 0, 0, 0, time.UTC)

func testPolicy() Policy {
	return Policy{
		Open:        9 * time.Hour,
		Close:       17 * time.Hour,
		Granularity: 30 * time.Minute,
		Workdays: map[time.Weekday]bool{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
		},
	}
}

func newTestEngine(at time.Time) *MemoryEngine {
	e := NewMemoryEngine(testPolicy())
	e.now = func() time.Time { return at }
	return e
}

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func slotAt(date time.Time, hour, minute int, duration time.Duration) model.TimeSlot {
	start := date.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	return model.TimeSlot{Start: start, End: start.Add(duration), Available: true}
}

func TestListSlotsFullDay(t *testing.T) {
	e := newTestEngine(now)

	slots, err := e.ListSlots(context.Background(), day(5), 0) // Thursday, default duration
	if err != nil {
		t.Fatalf("ListSlots() error = %v", err)
	}
	if len(slots) != 16 {
		t.Fatalf("ListSlots() returned %d slots, want 16", len(slots))
	}
	if got := slots[0].Label(); got != "09:00 - 09:30" {
		t.Errorf("first slot = %q, want %q", got, "09:00 - 09:30")
	}
	if got := slots[len(slots)-1].Label(); got != "16:30 - 17:00" {
		t.Errorf("last slot = %q, want %q", got, "16:30 - 17:00")
	}
	for i := 1; i < len(slots); i++ {
		if slots[i].Start.Before(slots[i-1].End) {
			t.Errorf("slots %d and %d overlap", i-1, i)
		}
	}
}

func TestListSlotsNonWorkingDay(t *testing.T) {
	e := newTestEngine(now)

	for _, d := range []int{7, 8} { // Saturday, Sunday
		slots, err := e.ListSlots(context.Background(), day(d), 0)
		if err != nil {
			t.Fatalf("ListSlots() error = %v", err)
		}
		if len(slots) != 0 {
			t.Errorf("ListSlots(%v) returned %d slots, want 0", day(d), len(slots))
		}
	}
}

func TestListSlotsPastDay(t *testing.T) {
	e := newTestEngine(now)

	slots, err := e.ListSlots(context.Background(), day(3), 0) // yesterday
	if err != nil {
		t.Fatalf("ListSlots() error = %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("ListSlots() returned %d slots for a past day, want 0", len(slots))
	}
}

func TestListSlotsTodaySkipsBegunSlots(t *testing.T) {
	e := newTestEngine(time.Date(2026, time.March, 4, 12, 15, 0, 0, time.UTC))

	slots, err := e.ListSlots(context.Background(), day(4), 0)
	if err != nil {
		t.Fatalf("ListSlots() error = %v", err)
	}
	if len(slots) != 9 {
		t.Fatalf("ListSlots() returned %d slots, want 9", len(slots))
	}
	if got := slots[0].Label(); got != "12:30 - 13:00" {
		t.Errorf("first slot = %q, want %q", got, "12:30 - 13:00")
	}
}

func TestListSlotsDurationLongerThanWindow(t *testing.T) {
	e := newTestEngine(now)

	slots, err := e.ListSlots(context.Background(), day(5), 9*time.Hour)
	if err != nil {
		t.Fatalf("ListSlots() error = %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("ListSlots() returned %d slots, want 0", len(slots))
	}
}

func TestListSlotsDurationNotTiling(t *testing.T) {
	e := newTestEngine(now)

	_, err := e.ListSlots(context.Background(), day(5), 3*time.Hour)
	if !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("ListSlots() error = %v, want ErrInvalidDuration", err)
	}
}

func TestListSlotsExcludesBooked(t *testing.T) {
	e := newTestEngine(now)

	booked := slotAt(day(5), 10, 0, time.Hour)
	if _, err := e.Book(context.Background(), "s1", booked); err != nil {
		t.Fatalf("Book() error = %v", err)
	}

	slots, err := e.ListSlots(context.Background(), day(5), 0)
	if err != nil {
		t.Fatalf("ListSlots() error = %v", err)
	}
	if len(slots) != 14 {
		t.Fatalf("ListSlots() returned %d slots, want 14", len(slots))
	}
	labels := make(map[string]bool, len(slots))
	for _, s := range slots {
		if s.Overlaps(booked) {
			t.Errorf("slot %s overlaps booked %s", s.Label(), booked.Label())
		}
		labels[s.Label()] = true
	}
	// Back-to-back neighbours stay open.
	if !labels["09:30 - 10:00"] {
		t.Error("slot before the booking should stay open")
	}
	if !labels["11:00 - 11:30"] {
		t.Error("slot after the booking should stay open")
	}
}

func TestBookConflict(t *testing.T) {
	e := newTestEngine(now)
	slot := slotAt(day(5), 14, 0, 30*time.Minute)

	first, err := e.Book(context.Background(), "s1", slot)
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}
	if first.ID == "" {
		t.Error("Book() returned booking without ID")
	}
	if first.SessionID != "s1" {
		t.Errorf("booking session = %q, want %q", first.SessionID, "s1")
	}

	if _, err := e.Book(context.Background(), "s2", slot); !errors.Is(err, ErrConflict) {
		t.Errorf("second Book() error = %v, want ErrConflict", err)
	}

	// Partial overlap conflicts too.
	overlapping := slotAt(day(5), 14, 15, 30*time.Minute)
	if _, err := e.Book(context.Background(), "s3", overlapping); !errors.Is(err, ErrConflict) {
		t.Errorf("overlapping Book() error = %v, want ErrConflict", err)
	}

	// A back-to-back slot does not conflict.
	if _, err := e.Book(context.Background(), "s4", slotAt(day(5), 14, 30, 30*time.Minute)); err != nil {
		t.Errorf("back-to-back Book() error = %v", err)
	}
}

func TestBookRejectsPolicyViolations(t *testing.T) {
	e := newTestEngine(now)

	tests := []struct {
		name string
		slot model.TimeSlot
		want error
	}{
		{"before opening", slotAt(day(5), 8, 0, 30*time.Minute), ErrOutsideHours},
		{"past closing", slotAt(day(5), 16, 45, 30*time.Minute), ErrOutsideHours},
		{"non-working day", slotAt(day(7), 10, 0, 30*time.Minute), ErrOutsideHours},
		{"already begun", slotAt(day(3), 10, 0, 30*time.Minute), ErrPastSlot},
		{"inverted interval", model.TimeSlot{Start: day(5).Add(10 * time.Hour), End: day(5).Add(9 * time.Hour)}, ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Book(context.Background(), "s1", tt.slot); !errors.Is(err, tt.want) {
				t.Errorf("Book() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBookConcurrentSingleWinner(t *testing.T) {
	e := newTestEngine(now)
	slot := slotAt(day(5), 11, 0, 30*time.Minute)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Book(context.Background(), fmt.Sprintf("s%d", i), slot)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case !errors.Is(err, ErrConflict):
			t.Errorf("Book() error = %v, want ErrConflict", err)
		}
	}
	if wins != 1 {
		t.Errorf("%d bookings succeeded, want exactly 1", wins)
	}
}

func TestIsAvailable(t *testing.T) {
	e := newTestEngine(now)

	free := slotAt(day(5), 9, 0, 30*time.Minute)
	if ok, _ := e.IsAvailable(context.Background(), free); !ok {
		t.Error("IsAvailable() = false for a free slot")
	}

	if _, err := e.Book(context.Background(), "s1", free); err != nil {
		t.Fatalf("Book() error = %v", err)
	}
	if ok, _ := e.IsAvailable(context.Background(), free); ok {
		t.Error("IsAvailable() = true for a booked slot")
	}

	if ok, _ := e.IsAvailable(context.Background(), slotAt(day(8), 10, 0, 30*time.Minute)); ok {
		t.Error("IsAvailable() = true on a non-working day")
	}
	if ok, _ := e.IsAvailable(context.Background(), slotAt(day(5), 18, 0, 30*time.Minute)); ok {
		t.Error("IsAvailable() = true outside business hours")
	}
}

func TestSuggestSkipsNonWorkingDaysAndBooked(t *testing.T) {
	e := newTestEngine(now)

	// Thursday 10:00 goes first; booking it shifts the first suggestion.
	if _, err := e.Book(context.Background(), "s1", slotAt(day(5), 10, 0, 30*time.Minute)); err != nil {
		t.Fatalf("Book() error = %v", err)
	}

	got, err := e.Suggest(context.Background(), 14, 5, 0)
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("Suggest() returned %d slots, want 5", len(got))
	}
	if !got[0].Start.Equal(day(5).Add(14 * time.Hour)) {
		t.Errorf("first suggestion = %v, want Thursday 14:00", got[0].Start)
	}
	for _, s := range got {
		wd := s.Start.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			t.Errorf("suggestion on %v falls on a weekend", s.Start)
		}
	}
}

func TestSuggestHonorsLimit(t *testing.T) {
	e := newTestEngine(now)

	got, err := e.Suggest(context.Background(), 14, 3, 0)
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Suggest() returned %d slots, want 3", len(got))
	}
}
