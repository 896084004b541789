package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bookline-ai/booking-agent/internal/calendar"
	"github.com/bookline-ai/booking-agent/internal/dialog"
	"github.com/bookline-ai/booking-agent/internal/intent"
	"github.com/bookline-ai/booking-agent/internal/model"
	"github.com/bookline-ai/booking-agent/internal/session"
	"github.com/bookline-ai/booking-agent/internal/timeparse"
)

type stubAnalyzer struct {
	name    string
	analyze func(ctx context.Context, message string, history []model.Turn) (*intent.Result, error)
}

func (s *stubAnalyzer) Analyze(ctx context.Context, message string, history []model.Turn) (*intent.Result, error) {
	return s.analyze(ctx, message, history)
}

func (s *stubAnalyzer) Name() string {
	if s.name == "" {
		return "stub"
	}
	return s.name
}

// keywordish routes on simple keywords, enough to drive flows in tests.
func keywordish(_ context.Context, message string, _ []model.Turn) (*intent.Result, error) {
	text := strings.ToLower(message)
	switch {
	case strings.Contains(text, "book"):
		return &intent.Result{Intent: intent.IntentBooking, Confidence: 0.9}, nil
	case strings.Contains(text, "yes"):
		return &intent.Result{Intent: intent.IntentConfirm, Confidence: 0.9}, nil
	default:
		return &intent.Result{Intent: intent.IntentQuery, Confidence: 0.5}, nil
	}
}

func testRouter(t *testing.T, reader calendar.Reader, booker calendar.Booker) *dialog.Router {
	t.Helper()
	r, err := dialog.NewRouter(reader, booker, timeparse.NewRuleParser(), dialog.Options{}, nil)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return r
}

func newTestAgent(t *testing.T, analyze func(context.Context, string, []model.Turn) (*intent.Result, error)) (*Agent, *session.MemoryStore) {
	t.Helper()

	engine := calendar.NewMemoryEngine(calendar.Policy{
		Open:        9 * time.Hour,
		Close:       17 * time.Hour,
		Granularity: 30 * time.Minute,
		Workdays: map[time.Weekday]bool{
			time.Sunday: true, time.Monday: true, time.Tuesday: true,
			time.Wednesday: true, time.Thursday: true, time.Friday: true,
			time.Saturday: true,
		},
	})
	store := session.NewMemoryStore()
	a := New(store, &stubAnalyzer{analyze: analyze}, testRouter(t, engine, engine), Config{IntentTimeout: time.Second}, nil)
	return a, store
}

func TestChatBookingFlow(t *testing.T) {
	a, store := newTestAgent(t, keywordish)

	res, err := a.Chat(context.Background(), "s1", "book me tomorrow at 2pm")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if res.Node != model.NodeConfirmBooking {
		t.Fatalf("node = %q, want confirm_booking", res.Node)
	}
	if res.BookingConfirmed {
		t.Error("nothing is booked yet")
	}

	res, err = a.Chat(context.Background(), "s1", "yes")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !res.BookingConfirmed {
		t.Fatal("booking not confirmed")
	}
	if res.Booking == nil {
		t.Fatal("confirmed result carries no booking")
	}
	if res.Booking.SessionID != "s1" {
		t.Errorf("booking session = %q, want %q", res.Booking.SessionID, "s1")
	}

	st, ok := store.Get(context.Background(), "s1")
	if !ok {
		t.Fatal("session state missing")
	}
	if len(st.History) != 4 {
		t.Errorf("history length = %d, want 4 (two turns)", len(st.History))
	}
	if st.History[0].Role != model.RoleUser || st.History[1].Role != model.RoleAssistant {
		t.Error("history roles out of order")
	}
}

func TestChatAnalyzerFailureDegrades(t *testing.T) {
	a, store := newTestAgent(t, func(context.Context, string, []model.Turn) (*intent.Result, error) {
		return nil, errors.New("upstream exploded")
	})

	res, err := a.Chat(context.Background(), "s1", "book me in")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !strings.Contains(res.Reply, "trouble") {
		t.Errorf("reply = %q, want degraded apology", res.Reply)
	}
	if res.Node != model.NodeStart {
		t.Errorf("node = %q, degraded turn must not move the session", res.Node)
	}

	st, _ := store.Get(context.Background(), "s1")
	if st.Fields.HasDate() || st.Fields.HasTime() {
		t.Error("degraded turn must not collect fields")
	}
	if len(st.History) != 2 {
		t.Errorf("history length = %d, want 2 (turn still recorded)", len(st.History))
	}
}

func TestChatAnalyzerTimeout(t *testing.T) {
	a, _ := newTestAgent(t, func(ctx context.Context, _ string, _ []model.Turn) (*intent.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	a.cfg.IntentTimeout = 20 * time.Millisecond

	start := time.Now()
	res, err := a.Chat(context.Background(), "s1", "book me tomorrow")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("turn took %v, timeout did not bound the analyzer", elapsed)
	}
	if !strings.Contains(res.Reply, "trouble") {
		t.Errorf("reply = %q, want degraded apology", res.Reply)
	}
}

type failingCalendar struct{}

func (failingCalendar) ListSlots(context.Context, time.Time, time.Duration) ([]model.TimeSlot, error) {
	return nil, errors.New("calendar offline")
}

func (failingCalendar) IsAvailable(context.Context, model.TimeSlot) (bool, error) {
	return false, errors.New("calendar offline")
}

func (failingCalendar) Suggest(context.Context, int, int, time.Duration) ([]model.TimeSlot, error) {
	return nil, errors.New("calendar offline")
}

func (failingCalendar) Book(context.Context, string, model.TimeSlot) (*model.Booking, error) {
	return nil, errors.New("calendar offline")
}

func TestChatInternalErrorFallsBack(t *testing.T) {
	store := session.NewMemoryStore()
	a := New(store, &stubAnalyzer{analyze: keywordish}, testRouter(t, failingCalendar{}, failingCalendar{}), Config{}, nil)

	res, err := a.Chat(context.Background(), "s1", "book me tomorrow at 2pm")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if res.Reply != replyTrouble {
		t.Errorf("reply = %q, want %q", res.Reply, replyTrouble)
	}
	if res.BookingConfirmed {
		t.Error("failed turn must not confirm anything")
	}
}

func TestChatSessionsIndependent(t *testing.T) {
	a, _ := newTestAgent(t, keywordish)

	if _, err := a.Chat(context.Background(), "a", "book me tomorrow at 2pm"); err != nil {
		t.Fatalf("Chat(a) error = %v", err)
	}
	res, err := a.Chat(context.Background(), "b", "yes")
	if err != nil {
		t.Fatalf("Chat(b) error = %v", err)
	}
	// Session b has nothing pending; its yes must not book a's slot.
	if res.BookingConfirmed {
		t.Error("session b confirmed a booking it never started")
	}

	res, err = a.Chat(context.Background(), "a", "yes")
	if err != nil {
		t.Fatalf("Chat(a) error = %v", err)
	}
	if !res.BookingConfirmed {
		t.Error("session a lost its pending slot")
	}
}

func TestHistory(t *testing.T) {
	a, _ := newTestAgent(t, keywordish)

	if _, ok := a.History(context.Background(), "missing"); ok {
		t.Error("History() found a session that never spoke")
	}

	if _, err := a.Chat(context.Background(), "s1", "hello"); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	turns, ok := a.History(context.Background(), "s1")
	if !ok {
		t.Fatal("History() missing session")
	}
	if len(turns) != 2 {
		t.Errorf("history length = %d, want 2", len(turns))
	}
}
