package session

import (
	"context"
	"sync"
	"testing"

	"github.com/bookline-ai/booking-agent/internal/model"
)

func TestUpdateCreatesState(t *testing.T) {
	s := NewMemoryStore()

	if _, ok := s.Get(context.Background(), "s1"); ok {
		t.Fatal("Get() found state before first update")
	}

	st, err := s.Update(context.Background(), "s1", func(st *model.ConversationState) error {
		st.AppendTurn(model.RoleUser, "hello", 0)
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if st.SessionID != "s1" {
		t.Errorf("session ID = %q, want %q", st.SessionID, "s1")
	}
	if st.CurrentNode != model.NodeStart {
		t.Errorf("new state node = %q, want %q", st.CurrentNode, model.NodeStart)
	}
	if len(st.History) != 1 {
		t.Errorf("history length = %d, want 1", len(st.History))
	}

	got, ok := s.Get(context.Background(), "s1")
	if !ok {
		t.Fatal("Get() did not find updated session")
	}
	if got.History[0].Content != "hello" {
		t.Errorf("history content = %q, want %q", got.History[0].Content, "hello")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Update(context.Background(), "s1", func(st *model.ConversationState) error {
		st.AppendTurn(model.RoleUser, "original", 0)
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := s.Get(context.Background(), "s1")
	got.History[0].Content = "mutated"
	got.CurrentNode = model.NodeBookingComplete

	again, _ := s.Get(context.Background(), "s1")
	if again.History[0].Content != "original" {
		t.Error("mutating a Get() result leaked into the store")
	}
	if again.CurrentNode != model.NodeStart {
		t.Error("mutating a Get() result changed the stored node")
	}
}

func TestUpdateSerializesPerSession(t *testing.T) {
	s := NewMemoryStore()

	// Each update reads the counter, yields, then writes back. Lost updates
	// would show as a final count below the number of turns.
	const turns = 50
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(context.Background(), "s1", func(st *model.ConversationState) error {
				n := len(st.History)
				st.History = append(st.History, model.Turn{Role: model.RoleUser, Content: "turn"})
				if len(st.History) != n+1 {
					t.Error("concurrent update observed torn state")
				}
				return nil
			})
			if err != nil {
				t.Errorf("Update() error = %v", err)
			}
		}()
	}
	wg.Wait()

	st, _ := s.Get(context.Background(), "s1")
	if len(st.History) != turns {
		t.Errorf("history length = %d, want %d (lost updates)", len(st.History), turns)
	}
}

func TestUpdateIndependentSessions(t *testing.T) {
	s := NewMemoryStore()

	for _, id := range []string{"a", "b"} {
		if _, err := s.Update(context.Background(), id, func(st *model.ConversationState) error {
			st.AppendTurn(model.RoleUser, id, 0)
			return nil
		}); err != nil {
			t.Fatalf("Update(%q) error = %v", id, err)
		}
	}

	a, _ := s.Get(context.Background(), "a")
	b, _ := s.Get(context.Background(), "b")
	if a.History[0].Content != "a" || b.History[0].Content != "b" {
		t.Error("sessions shared state")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestUpdateErrorDoesNotStampState(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Update(context.Background(), "s1", func(st *model.ConversationState) error {
		return context.Canceled
	})
	if err != context.Canceled {
		t.Fatalf("Update() error = %v, want context.Canceled", err)
	}

	// The session exists but is untouched.
	st, ok := s.Get(context.Background(), "s1")
	if !ok {
		t.Fatal("session entry should exist after failed update")
	}
	if len(st.History) != 0 {
		t.Errorf("history length = %d, want 0", len(st.History))
	}
}
