package model

import (
	"fmt"
	"time"
)

// Node identifies one stage of the conversation state machine. The set is
// closed: the router refuses to start with a handler map that does not cover
// every declared node.
type Node string

const (
	NodeStart            Node = "start"
	NodeIntentBooking    Node = "intent_booking"
	NodeCollectDate      Node = "collect_date"
	NodeCollectTime      Node = "collect_time"
	NodeShowAvailability Node = "show_availability"
	NodeConfirmBooking   Node = "confirm_booking"
	NodeBookingComplete  Node = "booking_complete"
	NodeHandleQuery      Node = "handle_query"
)

// Nodes returns every declared node.
func Nodes() []Node {
	return []Node{
		NodeStart,
		NodeIntentBooking,
		NodeCollectDate,
		NodeCollectTime,
		NodeShowAvailability,
		NodeConfirmBooking,
		NodeBookingComplete,
		NodeHandleQuery,
	}
}

// Valid reports whether n is one of the declared nodes.
func (n Node) Valid() bool {
	switch n {
	case NodeStart, NodeIntentBooking, NodeCollectDate, NodeCollectTime,
		NodeShowAvailability, NodeConfirmBooking, NodeBookingComplete, NodeHandleQuery:
		return true
	}
	return false
}

// Role represents the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single utterance in the session history.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// TimeOfDay is a wall-clock time with minute precision, collected
// independently of the date.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// String renders the time as "15:04".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// At anchors the time of day onto a calendar date.
func (t TimeOfDay) At(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour, t.Minute, 0, 0, date.Location())
}

// DayPart is a coarse time-of-day preference used to filter candidates when
// the user never names an exact time.
type DayPart string

const (
	DayPartNone      DayPart = ""
	DayPartMorning   DayPart = "morning"
	DayPartAfternoon DayPart = "afternoon"
	DayPartEvening   DayPart = "evening"
)

// Window returns the preference window [from, to) in hours of the day.
func (p DayPart) Window() (from, to int) {
	switch p {
	case DayPartMorning:
		return 9, 12
	case DayPartAfternoon:
		return 12, 17
	case DayPartEvening:
		return 17, 20
	default:
		return 0, 24
	}
}

// Contains reports whether t falls inside the preference window.
func (p DayPart) Contains(t time.Time) bool {
	from, to := p.Window()
	return t.Hour() >= from && t.Hour() < to
}

// BookingFields holds the booking information collected so far. Members are
// explicit optionals rather than a loose map so a missing field is a typed
// nil check, not a runtime key lookup.
type BookingFields struct {
	Date     *time.Time     `json:"date,omitempty"`
	Time     *TimeOfDay     `json:"time,omitempty"`
	Duration *time.Duration `json:"duration,omitempty"`
	DayPart  DayPart        `json:"day_part,omitempty"`
}

// HasDate reports whether a date has been collected.
func (f BookingFields) HasDate() bool { return f.Date != nil }

// HasTime reports whether an exact time has been collected.
func (f BookingFields) HasTime() bool { return f.Time != nil }

// ConversationState is the per-session record mutated exactly once per
// inbound message. It is owned by its session; all access goes through the
// session store, which serializes turns for a given session ID.
type ConversationState struct {
	SessionID        string        `json:"session_id"`
	CurrentNode      Node          `json:"current_node"`
	Fields           BookingFields `json:"fields"`
	History          []Turn        `json:"history"`
	PendingSlots     []TimeSlot    `json:"pending_slots,omitempty"`
	PendingSlot      *TimeSlot     `json:"pending_slot,omitempty"`
	BookingConfirmed bool          `json:"booking_confirmed"`
	LastBooking      *Booking      `json:"last_booking,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// NewConversationState creates the state for a session's first message.
func NewConversationState(sessionID string) *ConversationState {
	now := time.Now()
	return &ConversationState{
		SessionID:   sessionID,
		CurrentNode: NodeStart,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AppendTurn records an utterance, trimming history to the supplied cap.
// A cap of zero keeps everything.
func (s *ConversationState) AppendTurn(role Role, content string, max int) {
	s.History = append(s.History, Turn{Role: role, Content: content, CreatedAt: time.Now()})
	if max > 0 && len(s.History) > max {
		s.History = s.History[len(s.History)-max:]
	}
}

// ResetFields clears everything collected, returning the session to a blank
// booking flow. Only explicit restart/cancel utterances reach this.
func (s *ConversationState) ResetFields() {
	s.Fields = BookingFields{}
	s.ClearSlotSearch()
	s.BookingConfirmed = false
}

// ClearSlotSearch drops candidate slots and any chosen candidate, keeping
// collected fields intact.
func (s *ConversationState) ClearSlotSearch() {
	s.PendingSlots = nil
	s.PendingSlot = nil
}

// Clone returns a deep copy, so callers can read state without holding the
// store's session lock.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := *s
	out.Fields = s.Fields.clone()
	if len(s.History) > 0 {
		out.History = append([]Turn(nil), s.History...)
	}
	if len(s.PendingSlots) > 0 {
		out.PendingSlots = append([]TimeSlot(nil), s.PendingSlots...)
	}
	if s.PendingSlot != nil {
		slot := *s.PendingSlot
		out.PendingSlot = &slot
	}
	if s.LastBooking != nil {
		booking := *s.LastBooking
		out.LastBooking = &booking
	}
	return &out
}

func (f BookingFields) clone() BookingFields {
	out := f
	if f.Date != nil {
		d := *f.Date
		out.Date = &d
	}
	if f.Time != nil {
		t := *f.Time
		out.Time = &t
	}
	if f.Duration != nil {
		d := *f.Duration
		out.Duration = &d
	}
	return out
}
