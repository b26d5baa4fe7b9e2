package booking

import (
	"errors"
	"time"
)

var (
	ErrInvalidRecurrence = errors.New("invalid recurrence pattern")
)

// Expansion stops after this many occurrences regardless of end date, so a
// far-future end date cannot produce an unbounded batch of rows.
const maxRecurrenceInstances = 1000

// Validate checks that the pattern can be expanded.
func (p RecurrencePattern) Validate() error {
	switch p.Frequency {
	case FreqDaily, FreqWeekly, FreqMonthly:
	default:
		return ErrInvalidRecurrence
	}
	if p.Interval <= 0 {
		return ErrInvalidRecurrence
	}
	if p.EndDate.IsZero() {
		return ErrInvalidRecurrence
	}
	return nil
}

// ExpandRecurrence materializes the occurrences of a recurring booking.
// The base occurrence is element 0; each instance keeps the original
// duration. The sequence ends after the last occurrence whose start falls
// on or before the pattern's end date (inclusive to end of that calendar
// day, in the start time's location).
//
// Monthly stepping preserves the day of month; when the target month is
// shorter the day clamps to its last day, so Jan 31 + 1 month lands on
// Feb 28 (or 29).
func ExpandRecurrence(baseStart, baseEnd time.Time, p RecurrencePattern) []Interval {
	if p.Validate() != nil || !baseEnd.After(baseStart) {
		return nil
	}

	boundary := endOfDay(p.EndDate, baseStart.Location())
	duration := baseEnd.Sub(baseStart)

	var out []Interval
	for step := 0; step < maxRecurrenceInstances; step++ {
		var start time.Time
		switch p.Frequency {
		case FreqDaily:
			start = baseStart.AddDate(0, 0, step*p.Interval)
		case FreqWeekly:
			start = baseStart.AddDate(0, 0, 7*step*p.Interval)
		case FreqMonthly:
			start = addMonthsClamped(baseStart, step*p.Interval)
		}
		if start.After(boundary) {
			break
		}
		out = append(out, Interval{Start: start, End: start.Add(duration)})
	}
	return out
}

// addMonthsClamped adds months to t keeping the day of month, clamping to
// the target month's last day. time.AddDate is unsuitable here: it rolls
// Jan 31 + 1 month over into March.
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())

	if last := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); d > last {
		d = last
	}
	return firstOfTarget.AddDate(0, 0, d-1)
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func endOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), loc)
}
