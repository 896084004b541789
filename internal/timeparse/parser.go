// Package timeparse resolves informal date and time phrases ("tomorrow",
// "next friday 3pm") into concrete calendar values.
package timeparse

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bookline-ai/booking-agent/internal/model"
)

// Resolution is everything a parser extracted from one phrase. Zero-valued
// members mean the phrase carried no such information.
type Resolution struct {
	Date     *time.Time
	Time     *model.TimeOfDay
	DayPart  model.DayPart
	Duration time.Duration
}

// Empty reports whether the phrase resolved to nothing usable.
func (r Resolution) Empty() bool {
	return r.Date == nil && r.Time == nil && r.DayPart == model.DayPartNone && r.Duration == 0
}

// Parser converts informal date/time phrases into calendar values relative
// to a reference instant. Implementations may call out to a slow external
// service; the context bounds that call.
type Parser interface {
	Resolve(ctx context.Context, phrase string, ref time.Time) (Resolution, error)
}

// RuleParser is a deterministic Parser built on keyword and digit patterns.
// It covers the phrasing the booking flow prompts for and never errors; an
// unrecognized phrase simply resolves to nothing.
type RuleParser struct{}

// NewRuleParser creates a rule-based parser.
func NewRuleParser() *RuleParser {
	return &RuleParser{}
}

var (
	clockPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d{1,2}):(\d{2})\s*([ap]m)?`),
		regexp.MustCompile(`(\d{1,2})\s*([ap]m)`),
		regexp.MustCompile(`(\d{1,2})\.(\d{2})`),
	}
	usDatePattern  = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})`)
	isoDatePattern = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)

	minutesPattern = regexp.MustCompile(`(\d{1,3})\s*(?:minutes?|mins?)\b`)
	hoursPattern   = regexp.MustCompile(`(\d{1,2})\s*(?:hours?|hrs?)\b`)
)

// Resolve extracts a date, a clock time, a day-part preference, and a
// duration from the phrase. Members absent from the phrase stay zero.
func (p *RuleParser) Resolve(_ context.Context, phrase string, ref time.Time) (Resolution, error) {
	text := strings.ToLower(strings.TrimSpace(phrase))

	res := Resolution{
		DayPart:  parseDayPart(text),
		Duration: parseDuration(text),
	}
	if d, ok := parseDate(text, ref); ok {
		res.Date = &d
	}
	if t, ok := parseClock(text); ok {
		res.Time = &t
	}
	return res, nil
}

func parseDate(text string, ref time.Time) (time.Time, bool) {
	midnight := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, ref.Location())
	}

	switch {
	case strings.Contains(text, "today"):
		return midnight(ref), true
	case strings.Contains(text, "tomorrow"):
		return midnight(ref.AddDate(0, 0, 1)), true
	case strings.Contains(text, "yesterday"):
		return midnight(ref.AddDate(0, 0, -1)), true
	case strings.Contains(text, "next week"):
		// Next Monday.
		ahead := 7 - mondayIndex(ref.Weekday())
		return midnight(ref.AddDate(0, 0, ahead)), true
	case strings.Contains(text, "this week"):
		if ref.Weekday() == time.Sunday {
			return midnight(ref.AddDate(0, 0, 1)), true
		}
		return midnight(ref), true
	}

	weekdays := []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	for i, name := range weekdays {
		if strings.Contains(text, name) {
			ahead := i - mondayIndex(ref.Weekday())
			if ahead <= 0 {
				ahead += 7
			}
			return midnight(ref.AddDate(0, 0, ahead)), true
		}
	}

	if m := usDatePattern.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		if d, ok := buildDate(year, month, day, ref.Location()); ok {
			return d, true
		}
	}

	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if d, ok := buildDate(year, month, day, ref.Location()); ok {
			return d, true
		}
	}

	return time.Time{}, false
}

// mondayIndex maps a weekday onto a Monday-based 0..6 index.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// buildDate validates the components; time.Date normalizes overflow, so a
// round-trip mismatch means the input was not a real calendar date.
func buildDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func parseClock(text string) (model.TimeOfDay, bool) {
	if strings.Contains(text, "noon") {
		return model.TimeOfDay{Hour: 12}, true
	}
	if strings.Contains(text, "midnight") {
		return model.TimeOfDay{}, true
	}

	for i, pattern := range clockPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		hour, _ := strconv.Atoi(m[1])
		minute := 0
		meridiem := ""

		switch i {
		case 0: // "2:30 pm", "14:30"
			minute, _ = strconv.Atoi(m[2])
			meridiem = m[3]
		case 1: // "2 pm", "9am"
			meridiem = m[2]
		case 2: // "2.30"
			minute, _ = strconv.Atoi(m[2])
		}

		if meridiem == "pm" && hour != 12 {
			hour += 12
		} else if meridiem == "am" && hour == 12 {
			hour = 0
		}

		if hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59 {
			return model.TimeOfDay{Hour: hour, Minute: minute}, true
		}
	}

	return model.TimeOfDay{}, false
}

func parseDayPart(text string) model.DayPart {
	switch {
	case strings.Contains(text, "morning"):
		return model.DayPartMorning
	case strings.Contains(text, "afternoon"):
		return model.DayPartAfternoon
	case strings.Contains(text, "evening"):
		return model.DayPartEvening
	}
	return model.DayPartNone
}

// parseDuration recognizes unit-anchored durations only; bare digits are
// left alone so clock times and dates never masquerade as durations.
func parseDuration(text string) time.Duration {
	if m := minutesPattern.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n > 0 {
			return time.Duration(n) * time.Minute
		}
	}
	if m := hoursPattern.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n > 0 {
			return time.Duration(n) * time.Hour
		}
	}
	if strings.Contains(text, "half an hour") || strings.Contains(text, "half hour") {
		return 30 * time.Minute
	}
	if strings.Contains(text, "an hour") || strings.Contains(text, "one hour") {
		return time.Hour
	}
	return 0
}

// FormatDate renders a date the way replies speak about it: "Monday, January 02".
func FormatDate(t time.Time) string {
	return t.Format("Monday, January 02")
}

// FormatDuration renders a duration in plain words: "30 minutes",
// "1 hour and 30 minutes".
func FormatDuration(d time.Duration) string {
	minutes := int(d / time.Minute)
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	rest := minutes % 60
	unit := "hour"
	if hours > 1 {
		unit = "hours"
	}
	if rest == 0 {
		return fmt.Sprintf("%d %s", hours, unit)
	}
	return fmt.Sprintf("%d %s and %d minutes", hours, unit, rest)
}
