// Package dialog implements the conversation state machine that drives a
// booking from first contact to a confirmed slot.
//
// Each inbound message is handled by exactly one node handler. The router
// picks that handler from the session's current node and the message's
// intent, the handler mutates the session state and produces the reply, and
// the node it names becomes the session's position for the next turn.
package dialog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bookline-ai/booking-agent/internal/calendar"
	"github.com/bookline-ai/booking-agent/internal/intent"
	"github.com/bookline-ai/booking-agent/internal/model"
	"github.com/bookline-ai/booking-agent/internal/timeparse"
	"github.com/bookline-ai/booking-agent/pkg/logger"
)

// Input carries one inbound message into a node handler, along with what
// upstream analysis made of it.
type Input struct {
	State      *model.ConversationState
	Message    string
	Intent     *intent.Result
	Resolution timeparse.Resolution
	Now        time.Time
}

// Outcome is a node handler's verdict: the reply to send and the node the
// session rests on afterwards.
type Outcome struct {
	Reply string
	Next  model.Node
}

// HandlerFunc processes one message at one node.
type HandlerFunc func(ctx context.Context, in Input) (Outcome, error)

// Options tune the router's presentation limits.
type Options struct {
	// MaxCandidates caps how many open slots one reply lists.
	MaxCandidates int
	// SuggestDays is how far ahead alternative-day suggestions look.
	SuggestDays int
	// SuggestLimit caps how many alternative suggestions one reply lists.
	SuggestLimit int
	// DefaultDuration is the appointment length assumed when the user
	// never gives one. It is quoted in replies only; the calendar applies
	// the same default.
	DefaultDuration time.Duration
}

func (o *Options) fill() {
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = 5
	}
	if o.SuggestDays <= 0 {
		o.SuggestDays = 14
	}
	if o.SuggestLimit <= 0 {
		o.SuggestLimit = 5
	}
	if o.DefaultDuration <= 0 {
		o.DefaultDuration = 30 * time.Minute
	}
}

// Router owns the node handlers and the edges between them.
type Router struct {
	reader   calendar.Reader
	booker   calendar.Booker
	parser   timeparse.Parser
	opts     Options
	log      *logger.Logger
	now      func() time.Time
	handlers map[model.Node]HandlerFunc
}

// NewRouter wires the node handlers. It fails when any declared node is
// left without a handler, so a half-wired state machine never serves
// traffic.
func NewRouter(reader calendar.Reader, booker calendar.Booker, parser timeparse.Parser, opts Options, log *logger.Logger) (*Router, error) {
	if log == nil {
		log = logger.Global()
	}
	opts.fill()

	r := &Router{
		reader: reader,
		booker: booker,
		parser: parser,
		opts:   opts,
		log:    log,
		now:    time.Now,
	}
	r.handlers = map[model.Node]HandlerFunc{
		model.NodeStart:            r.handleStart,
		model.NodeIntentBooking:    r.handleIntentBooking,
		model.NodeCollectDate:      r.handleCollectDate,
		model.NodeCollectTime:      r.handleCollectTime,
		model.NodeShowAvailability: r.handleShowAvailability,
		model.NodeConfirmBooking:   r.handleConfirmBooking,
		model.NodeBookingComplete:  r.handleBookingComplete,
		model.NodeHandleQuery:      r.handleQuery,
	}

	if err := coverage(r.handlers); err != nil {
		return nil, err
	}
	return r, nil
}

// coverage checks that every declared node has a handler.
func coverage(handlers map[model.Node]HandlerFunc) error {
	for _, node := range model.Nodes() {
		if handlers[node] == nil {
			return fmt.Errorf("dialog: node %q has no handler", node)
		}
	}
	return nil
}

// restartPhrases abandon the current flow from any node except the
// confirmation prompt, where "cancel" means declining the pending slot.
var restartPhrases = []string{"restart", "start over", "never mind", "forget it", "cancel"}

// midFlowNodes process the message themselves instead of being re-routed
// by intent; the user is answering a question we asked.
var midFlowNodes = map[model.Node]bool{
	model.NodeCollectDate:      true,
	model.NodeCollectTime:      true,
	model.NodeShowAvailability: true,
}

// Handle runs one conversation turn. The state is mutated in place; callers
// hold the session lock for the duration.
//
// A nil intent result means upstream analysis failed. The turn degrades to a
// fixed apology: the state keeps its node and fields, so the user can repeat
// themselves once the service recovers.
func (r *Router) Handle(ctx context.Context, st *model.ConversationState, message string, res *intent.Result) (Outcome, error) {
	if res == nil {
		return Outcome{Reply: replyDegraded, Next: currentNode(st)}, nil
	}

	node := currentNode(st)

	// The confirmation prompt owns "cancel" and "no"; everywhere else they
	// abandon the flow entirely.
	if node != model.NodeConfirmBooking && wantsRestart(message, res) {
		st.ResetFields()
		st.CurrentNode = model.NodeStart
		return Outcome{Reply: replyRestart, Next: model.NodeStart}, nil
	}

	now := r.now()
	resolution, err := r.parser.Resolve(ctx, message, now)
	if err != nil {
		// A parser failure is not fatal; the turn proceeds without
		// extracted fields and the node re-prompts.
		r.log.Warn("time phrase resolution failed",
			zap.String("session_id", st.SessionID),
			zap.Error(err),
		)
		resolution = timeparse.Resolution{}
	}

	in := Input{State: st, Message: message, Intent: res, Resolution: resolution, Now: now}

	target := r.route(st, node, in)
	handler := r.handlers[target]
	if handler == nil {
		return Outcome{}, fmt.Errorf("dialog: no handler for node %q", target)
	}

	out, err := handler(ctx, in)
	if err != nil {
		return Outcome{}, err
	}
	if !out.Next.Valid() {
		return Outcome{}, fmt.Errorf("dialog: handler for %q returned unknown node %q", target, out.Next)
	}
	st.CurrentNode = out.Next
	return out, nil
}

// route applies the edge policy and picks the node handler for this turn.
func (r *Router) route(st *model.ConversationState, node model.Node, in Input) model.Node {
	// The confirmation prompt interprets everything itself: "cancel" and
	// "no" decline the pending slot rather than restarting the session.
	if node == model.NodeConfirmBooking {
		return node
	}

	if midFlowNodes[node] {
		mergeFields(st, in)
		// Jumping to availability is allowed mid-flow once a date exists;
		// the user changed the question, not their answer.
		if in.Intent.Intent == intent.IntentAvailability && st.Fields.HasDate() {
			return model.NodeShowAvailability
		}
		return node
	}

	// Resting nodes: route by intent.
	switch in.Intent.Intent {
	case intent.IntentBooking, intent.IntentAvailability:
		mergeFields(st, in)
		if node == model.NodeBookingComplete {
			// A new flow begins; the previous confirmation no longer
			// describes this conversation's outcome.
			st.BookingConfirmed = false
		}
	}

	switch in.Intent.Intent {
	case intent.IntentBooking:
		switch {
		case !st.Fields.HasDate():
			return model.NodeIntentBooking
		case st.Fields.HasTime() || st.Fields.DayPart != model.DayPartNone:
			return model.NodeShowAvailability
		default:
			return model.NodeCollectTime
		}
	case intent.IntentAvailability:
		if st.Fields.HasDate() {
			return model.NodeShowAvailability
		}
		return model.NodeCollectDate
	case intent.IntentConfirm, intent.IntentDecline:
		// Nothing is pending at a resting node.
		return model.NodeStart
	default:
		return model.NodeHandleQuery
	}
}

// mergeFields folds the resolved date, time, duration, and day-part
// preference into the collected fields. Newer information wins. When the
// date changes mid-search, stale candidates are dropped.
func mergeFields(st *model.ConversationState, in Input) {
	res := in.Resolution

	if res.Date != nil {
		if st.Fields.Date == nil || !st.Fields.Date.Equal(*res.Date) {
			st.ClearSlotSearch()
		}
		d := *res.Date
		st.Fields.Date = &d
	}
	if res.Time != nil {
		t := *res.Time
		st.Fields.Time = &t
	}
	if res.DayPart != model.DayPartNone {
		st.Fields.DayPart = res.DayPart
	}
	if res.Duration > 0 {
		d := res.Duration
		st.Fields.Duration = &d
	}
}

// wantsRestart reports whether the message abandons the current flow.
func wantsRestart(message string, res *intent.Result) bool {
	if res != nil && res.Intent == intent.IntentRestart {
		return true
	}
	text := strings.ToLower(message)
	for _, phrase := range restartPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// currentNode returns the session's node, falling back to the start node
// when stored state carries a label this build no longer declares.
func currentNode(st *model.ConversationState) model.Node {
	if st.CurrentNode.Valid() {
		return st.CurrentNode
	}
	return model.NodeStart
}

// durationOf returns the appointment length for the session, falling back
// to the configured default.
func (r *Router) durationOf(st *model.ConversationState) time.Duration {
	if st.Fields.Duration != nil && *st.Fields.Duration > 0 {
		return *st.Fields.Duration
	}
	return r.opts.DefaultDuration
}
