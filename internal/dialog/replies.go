package dialog

import (
	"fmt"
	"strings"
	"time"

	"github.com/bookline-ai/booking-agent/internal/model"
	"github.com/bookline-ai/booking-agent/internal/timeparse"
)

const (
	replyDegraded = "Sorry, I'm having trouble understanding requests right now. " +
		"Please try again in a moment."

	replyRestart = "No problem, let's start fresh. Would you like to book an " +
		"appointment or check availability?"

	replyGreeting = "Hello! I can help you book an appointment or check " +
		"availability. What would you like to do?"

	replyNothingPending = "There's nothing waiting on a yes or no right now. " +
		"Would you like to book an appointment or check availability?"

	replyCapabilities = "I can check open appointment times and book a slot for " +
		"you. Try \"what's free tomorrow?\" or \"book me in next Friday at 2pm\"."

	replyBookingStart = "I'd be happy to help you book an appointment! What date " +
		"works for you? You can say \"tomorrow\", a weekday like \"Friday\", or " +
		"a date like \"06/28\"."

	replyAskDate = "Sure, what date should I check? You can say \"tomorrow\", " +
		"a weekday like \"Friday\", or a date like \"06/28\"."

	replyAskDateAgain = "I couldn't find a date in that. Try \"tomorrow\", a " +
		"weekday like \"Friday\", or a date like \"06/28\"."

	replyAskTimeAgain = "I couldn't find a time in that. Try something like " +
		"\"2:30 pm\", or a part of the day like \"morning\"."
)

func askTime(date time.Time) string {
	return fmt.Sprintf("Great, %s. What time works for you? You can give an exact "+
		"time like \"2:30 pm\" or a part of the day like \"morning\".",
		timeparse.FormatDate(date))
}

// describeSlot renders a slot with its date: "Friday, June 28 at 14:00".
func describeSlot(s model.TimeSlot) string {
	return fmt.Sprintf("%s at %s", timeparse.FormatDate(s.Start), s.Start.Format("15:04"))
}

// listSlotLabels renders same-day slots as a bulleted list of time ranges.
func listSlotLabels(slots []model.TimeSlot) string {
	var b strings.Builder
	for i, s := range slots {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "  - %s", s.Label())
	}
	return b.String()
}

// listSlotDays renders cross-day suggestions with their dates.
func listSlotDays(slots []model.TimeSlot) string {
	var b strings.Builder
	for i, s := range slots {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "  - %s", describeSlot(s))
	}
	return b.String()
}

func confirmPrompt(slot model.TimeSlot) string {
	return fmt.Sprintf("You'd like %s for %s. Shall I book it? (yes/no)",
		describeSlot(slot), timeparse.FormatDuration(slot.Duration()))
}

func bookedReply(b *model.Booking) string {
	code := b.ID
	if len(code) > 8 {
		code = code[:8]
	}
	return fmt.Sprintf("You're all set! %s for %s is booked. Your confirmation code is %s.",
		describeSlot(b.Slot), timeparse.FormatDuration(b.Slot.Duration()), code)
}
