// Package agent orchestrates one chat turn: intent analysis, the dialogue
// state machine, and session persistence.
package agent

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bookline-ai/booking-agent/internal/dialog"
	"github.com/bookline-ai/booking-agent/internal/intent"
	"github.com/bookline-ai/booking-agent/internal/model"
	"github.com/bookline-ai/booking-agent/internal/session"
	"github.com/bookline-ai/booking-agent/pkg/logger"
	"github.com/bookline-ai/booking-agent/pkg/metrics"
)

// replyTrouble is sent when a turn fails for reasons the user cannot fix.
// The session keeps its position, so retrying is always safe.
const replyTrouble = "Sorry, something went wrong on my end. Please try again."

// Config tunes the agent.
type Config struct {
	// IntentTimeout bounds one intent analysis call. When it expires the
	// turn degrades instead of blocking the session.
	IntentTimeout time.Duration
	// HistoryLimit caps the turns kept per session. Zero keeps everything.
	HistoryLimit int
}

func (c *Config) fill() {
	if c.IntentTimeout <= 0 {
		c.IntentTimeout = 10 * time.Second
	}
}

// Agent serves chat turns.
type Agent struct {
	store    session.Store
	analyzer intent.Client
	router   *dialog.Router
	cfg      Config
	log      *logger.Logger
}

// New creates an agent.
func New(store session.Store, analyzer intent.Client, router *dialog.Router, cfg Config, log *logger.Logger) *Agent {
	if log == nil {
		log = logger.Global()
	}
	cfg.fill()

	return &Agent{
		store:    store,
		analyzer: analyzer,
		router:   router,
		cfg:      cfg,
		log:      log,
	}
}

// Chat runs one conversation turn for the session. Turns of one session are
// strictly serialized: the whole turn, intent analysis included, runs under
// the session's lock, so a client that fires two messages concurrently gets
// two turns in some order, never interleaved state.
func (a *Agent) Chat(ctx context.Context, sessionID, message string) (*model.ChatResult, error) {
	var out dialog.Outcome

	snapshot, err := a.store.Update(ctx, sessionID, func(st *model.ConversationState) error {
		res := a.analyze(ctx, st, message)

		st.AppendTurn(model.RoleUser, message, a.cfg.HistoryLimit)

		var herr error
		out, herr = a.router.Handle(ctx, st, message, res)
		if herr != nil {
			return herr
		}

		st.AppendTurn(model.RoleAssistant, out.Reply, a.cfg.HistoryLimit)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		a.log.Error("chat turn failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		metrics.RecordChatTurn("error")
		return &model.ChatResult{Reply: replyTrouble, Node: model.NodeStart}, nil
	}

	metrics.RecordChatTurn(string(snapshot.CurrentNode))

	result := &model.ChatResult{
		Reply:            out.Reply,
		Node:             snapshot.CurrentNode,
		BookingConfirmed: snapshot.BookingConfirmed,
	}
	if snapshot.BookingConfirmed && snapshot.LastBooking != nil {
		result.Booking = snapshot.LastBooking
	}
	return result, nil
}

// History returns the session's conversation so far.
func (a *Agent) History(ctx context.Context, sessionID string) ([]model.Turn, bool) {
	st, ok := a.store.Get(ctx, sessionID)
	if !ok {
		return nil, false
	}
	return st.History, true
}

// analyze runs intent analysis under its own deadline. Failure returns nil,
// which the router turns into a degraded reply without moving the session.
func (a *Agent) analyze(ctx context.Context, st *model.ConversationState, message string) *intent.Result {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.IntentTimeout)
	defer cancel()

	start := time.Now()
	res, err := a.analyzer.Analyze(ctx, message, st.History)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		metrics.RecordIntent(a.analyzer.Name(), outcome, elapsed)
		a.log.Warn("intent analysis failed",
			zap.String("session_id", st.SessionID),
			zap.String("provider", a.analyzer.Name()),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
		return nil
	}

	metrics.RecordIntent(a.analyzer.Name(), "ok", elapsed)
	return res
}
