package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/bookline-ai/booking-agent/internal/calendar"
	"github.com/bookline-ai/booking-agent/internal/intent"
	"github.com/bookline-ai/booking-agent/internal/model"
	"github.com/bookline-ai/booking-agent/internal/timeparse"
)

// handleStart greets and invites. It is dispatched when a resting session
// sends something with nothing to route on, like agreeing to no proposal.
func (r *Router) handleStart(_ context.Context, in Input) (Outcome, error) {
	switch in.Intent.Intent {
	case intent.IntentConfirm, intent.IntentDecline:
		return Outcome{Reply: replyNothingPending, Next: model.NodeStart}, nil
	default:
		return Outcome{Reply: replyGreeting, Next: model.NodeStart}, nil
	}
}

// handleIntentBooking acknowledges a booking request that arrived without a
// usable date and asks for one.
func (r *Router) handleIntentBooking(_ context.Context, in Input) (Outcome, error) {
	return Outcome{Reply: replyBookingStart, Next: model.NodeCollectDate}, nil
}

// handleCollectDate waits for a date. Once one exists it either asks for a
// time or, when a time or day-part preference is already collected, moves
// straight to availability.
func (r *Router) handleCollectDate(ctx context.Context, in Input) (Outcome, error) {
	st := in.State

	if !st.Fields.HasDate() {
		reply := replyAskDate
		if st.CurrentNode == model.NodeCollectDate {
			reply = replyAskDateAgain
		}
		return Outcome{Reply: reply, Next: model.NodeCollectDate}, nil
	}

	if st.Fields.HasTime() || st.Fields.DayPart != model.DayPartNone {
		return r.handleShowAvailability(ctx, in)
	}
	return Outcome{Reply: askTime(*st.Fields.Date), Next: model.NodeCollectTime}, nil
}

// handleCollectTime waits for an exact time or a day-part preference, then
// moves to availability.
func (r *Router) handleCollectTime(ctx context.Context, in Input) (Outcome, error) {
	st := in.State

	if !st.Fields.HasDate() {
		return Outcome{Reply: replyAskDate, Next: model.NodeCollectDate}, nil
	}
	if st.Fields.HasTime() || st.Fields.DayPart != model.DayPartNone {
		return r.handleShowAvailability(ctx, in)
	}

	reply := askTime(*st.Fields.Date)
	if st.CurrentNode == model.NodeCollectTime {
		reply = replyAskTimeAgain
	}
	return Outcome{Reply: reply, Next: model.NodeCollectTime}, nil
}

// handleShowAvailability consults the calendar for the collected date. An
// exact collected time that matches an open slot is promoted straight to
// the confirmation prompt; otherwise the open slots are listed and the
// session waits for a choice. A day without openings produces alternative
// suggestions and sends the user back to picking a date.
func (r *Router) handleShowAvailability(ctx context.Context, in Input) (Outcome, error) {
	st := in.State

	if !st.Fields.HasDate() {
		return Outcome{Reply: replyAskDate, Next: model.NodeCollectDate}, nil
	}
	date := *st.Fields.Date
	duration := r.durationOf(st)

	slots, err := r.reader.ListSlots(ctx, date, duration)
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidDuration) {
			st.Fields.Duration = nil
			reply := fmt.Sprintf("I can't offer %s appointments. The standard length is %s. How long do you need?",
				timeparse.FormatDuration(duration), timeparse.FormatDuration(r.opts.DefaultDuration))
			return Outcome{Reply: reply, Next: model.NodeShowAvailability}, nil
		}
		return Outcome{}, fmt.Errorf("listing slots: %w", err)
	}

	var prefix string
	if st.Fields.HasTime() {
		want := st.Fields.Time.At(date)
		for _, s := range slots {
			if s.Start.Equal(want) {
				slot := s
				st.PendingSlot = &slot
				st.PendingSlots = nil
				return Outcome{Reply: confirmPrompt(slot), Next: model.NodeConfirmBooking}, nil
			}
		}
		prefix = fmt.Sprintf("%s on %s isn't available. ", st.Fields.Time.String(), timeparse.FormatDate(date))
		st.Fields.Time = nil
	}

	candidates := filterDayPart(slots, st.Fields.DayPart)

	// The preferred part of the day may be full while the rest is open.
	if len(candidates) == 0 && len(slots) > 0 && st.Fields.DayPart != model.DayPartNone {
		prefix += fmt.Sprintf("Nothing is open in the %s on %s, but other times are. ",
			string(st.Fields.DayPart), timeparse.FormatDate(date))
		candidates = slots
		st.Fields.DayPart = model.DayPartNone
	}

	if len(candidates) == 0 {
		return r.suggestOtherDays(ctx, in, prefix, date, duration)
	}

	if len(candidates) > r.opts.MaxCandidates {
		candidates = candidates[:r.opts.MaxCandidates]
	}
	st.PendingSlots = candidates
	st.PendingSlot = nil

	reply := fmt.Sprintf("%sHere's what's open on %s:\n%s\nWhich time works for you?",
		prefix, timeparse.FormatDate(date), listSlotLabels(candidates))
	return Outcome{Reply: reply, Next: model.NodeShowAvailability}, nil
}

// suggestOtherDays handles a day with no openings: offer nearby slots and
// go back to collecting a date.
func (r *Router) suggestOtherDays(ctx context.Context, in Input, prefix string, date time.Time, duration time.Duration) (Outcome, error) {
	st := in.State

	suggestions, err := r.reader.Suggest(ctx, r.opts.SuggestDays, r.opts.SuggestLimit, duration)
	if err != nil {
		return Outcome{}, fmt.Errorf("suggesting slots: %w", err)
	}

	st.Fields.Date = nil
	st.ClearSlotSearch()

	if len(suggestions) == 0 {
		reply := fmt.Sprintf("%sI have no openings on %s, and the next %d days look full. Try a date further out?",
			prefix, timeparse.FormatDate(date), r.opts.SuggestDays)
		return Outcome{Reply: reply, Next: model.NodeCollectDate}, nil
	}

	reply := fmt.Sprintf("%sI have no openings on %s. Nearby options:\n%s\nWhich day should I check?",
		prefix, timeparse.FormatDate(date), listSlotDays(suggestions))
	return Outcome{Reply: reply, Next: model.NodeCollectDate}, nil
}

// Confirmation vocabulary. Matching runs on word boundaries after
// apostrophes are dropped, so "don't" reads as "dont".
var (
	confirmWords = map[string]bool{
		"yes": true, "yeah": true, "yep": true, "sure": true, "ok": true,
		"okay": true, "confirm": true, "correct": true, "right": true, "book": true,
	}
	declineWords = map[string]bool{
		"no": true, "nope": true, "not": true, "dont": true, "cancel": true,
		"different": true, "change": true,
	}
)

// handleConfirmBooking interprets the answer to "shall I book it?". Yes
// books immediately; no abandons the chosen slot and returns to picking a
// date; anything else re-asks.
func (r *Router) handleConfirmBooking(ctx context.Context, in Input) (Outcome, error) {
	st := in.State

	if st.PendingSlot == nil {
		return Outcome{Reply: replyNothingPending, Next: model.NodeStart}, nil
	}

	words := messageWords(in.Message)
	switch {
	case words["restart"] || strings.Contains(strings.ToLower(in.Message), "start over") || in.Intent.Intent == intent.IntentRestart:
		st.ResetFields()
		return Outcome{Reply: replyRestart, Next: model.NodeStart}, nil

	case hasAny(words, declineWords) || in.Intent.Intent == intent.IntentDecline:
		st.ClearSlotSearch()
		st.Fields.Date = nil
		st.Fields.Time = nil
		return Outcome{
			Reply: "No problem, we'll skip that one. What other date should I look at?",
			Next:  model.NodeCollectDate,
		}, nil

	case hasAny(words, confirmWords) || in.Intent.Intent == intent.IntentConfirm:
		return r.handleBookingComplete(ctx, in)

	default:
		reply := fmt.Sprintf("Just to check: should I book %s? (yes/no)", describeSlot(*st.PendingSlot))
		return Outcome{Reply: reply, Next: model.NodeConfirmBooking}, nil
	}
}

// handleBookingComplete writes the booking. It is the only handler that
// touches the booking side of the calendar. A conflict discovered here
// means someone else won the slot since it was listed; the session returns
// to a fresh availability list.
func (r *Router) handleBookingComplete(ctx context.Context, in Input) (Outcome, error) {
	st := in.State

	if st.PendingSlot == nil {
		return Outcome{Reply: replyNothingPending, Next: model.NodeStart}, nil
	}
	slot := *st.PendingSlot

	booking, err := r.booker.Book(ctx, st.SessionID, slot)
	if err != nil {
		switch {
		case errors.Is(err, calendar.ErrConflict),
			errors.Is(err, calendar.ErrPastSlot),
			errors.Is(err, calendar.ErrOutsideHours):
			st.PendingSlot = nil
			st.Fields.Time = nil
			out, derr := r.handleShowAvailability(ctx, in)
			if derr != nil {
				return Outcome{}, derr
			}
			out.Reply = fmt.Sprintf("Sorry, %s was just taken. %s", describeSlot(slot), out.Reply)
			return out, nil
		default:
			return Outcome{}, fmt.Errorf("booking slot: %w", err)
		}
	}

	st.LastBooking = booking
	st.BookingConfirmed = true
	st.Fields = model.BookingFields{}
	st.ClearSlotSearch()

	return Outcome{Reply: bookedReply(booking), Next: model.NodeBookingComplete}, nil
}

// handleQuery answers general questions, preferring the analyzer's own
// answer when it produced one.
func (r *Router) handleQuery(_ context.Context, in Input) (Outcome, error) {
	if in.Intent.Response != "" {
		return Outcome{Reply: in.Intent.Response, Next: model.NodeStart}, nil
	}
	return Outcome{Reply: replyCapabilities, Next: model.NodeStart}, nil
}

func filterDayPart(slots []model.TimeSlot, part model.DayPart) []model.TimeSlot {
	if part == model.DayPartNone {
		return slots
	}
	out := make([]model.TimeSlot, 0, len(slots))
	for _, s := range slots {
		if part.Contains(s.Start) {
			out = append(out, s)
		}
	}
	return out
}

func messageWords(message string) map[string]bool {
	text := strings.ReplaceAll(strings.ToLower(message), "'", "")
	fields := strings.FieldsFunc(text, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsNumber(c)
	})
	words := make(map[string]bool, len(fields))
	for _, f := range fields {
		words[f] = true
	}
	return words
}

func hasAny(words, vocabulary map[string]bool) bool {
	for w := range words {
		if vocabulary[w] {
			return true
		}
	}
	return false
}
