package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestExpandRecurrenceWeekly(t *testing.T) {
	// One hour every week through an inclusive end date.
	instances := ExpandRecurrence(
		date(2025, 1, 1, 10, 0),
		date(2025, 1, 1, 11, 0),
		RecurrencePattern{Frequency: FreqWeekly, Interval: 1, EndDate: date(2025, 1, 22, 0, 0)},
	)

	require.Len(t, instances, 4)
	wantDays := []int{1, 8, 15, 22}
	for i, inst := range instances {
		assert.Equal(t, date(2025, 1, wantDays[i], 10, 0), inst.Start)
		assert.Equal(t, time.Hour, inst.End.Sub(inst.Start))
	}
}

func TestExpandRecurrenceDailyInterval(t *testing.T) {
	instances := ExpandRecurrence(
		date(2025, 3, 1, 9, 0),
		date(2025, 3, 1, 9, 30),
		RecurrencePattern{Frequency: FreqDaily, Interval: 3, EndDate: date(2025, 3, 10, 0, 0)},
	)

	require.Len(t, instances, 4) // Mar 1, 4, 7, 10
	assert.Equal(t, date(2025, 3, 10, 9, 0), instances[3].Start)
	assert.Equal(t, 30*time.Minute, instances[3].End.Sub(instances[3].Start))
}

func TestExpandRecurrenceEndDateInclusive(t *testing.T) {
	// The last instance starts on the end date itself, later in the day
	// than midnight; it must still be included.
	instances := ExpandRecurrence(
		date(2025, 5, 5, 14, 0),
		date(2025, 5, 5, 15, 0),
		RecurrencePattern{Frequency: FreqWeekly, Interval: 1, EndDate: date(2025, 5, 12, 0, 0)},
	)

	require.Len(t, instances, 2)
	assert.Equal(t, date(2025, 5, 12, 14, 0), instances[1].Start)
}

func TestExpandRecurrenceMonthlyClampsShortMonths(t *testing.T) {
	instances := ExpandRecurrence(
		date(2025, 1, 31, 10, 0),
		date(2025, 1, 31, 12, 0),
		RecurrencePattern{Frequency: FreqMonthly, Interval: 1, EndDate: date(2025, 4, 30, 0, 0)},
	)

	require.Len(t, instances, 4)
	assert.Equal(t, date(2025, 1, 31, 10, 0), instances[0].Start)
	assert.Equal(t, date(2025, 2, 28, 10, 0), instances[1].Start) // clamped
	assert.Equal(t, date(2025, 3, 31, 10, 0), instances[2].Start) // day restored
	assert.Equal(t, date(2025, 4, 30, 10, 0), instances[3].Start) // clamped again
	for _, inst := range instances {
		assert.Equal(t, 2*time.Hour, inst.End.Sub(inst.Start))
	}
}

func TestExpandRecurrenceLeapFebruary(t *testing.T) {
	instances := ExpandRecurrence(
		date(2024, 1, 30, 8, 0),
		date(2024, 1, 30, 9, 0),
		RecurrencePattern{Frequency: FreqMonthly, Interval: 1, EndDate: date(2024, 2, 29, 0, 0)},
	)

	require.Len(t, instances, 2)
	assert.Equal(t, date(2024, 2, 29, 8, 0), instances[1].Start)
}

func TestExpandRecurrenceInvalid(t *testing.T) {
	base := date(2025, 1, 1, 10, 0)
	end := date(2025, 1, 1, 11, 0)

	assert.Nil(t, ExpandRecurrence(base, end, RecurrencePattern{Frequency: "yearly", Interval: 1, EndDate: end}))
	assert.Nil(t, ExpandRecurrence(base, end, RecurrencePattern{Frequency: FreqDaily, Interval: 0, EndDate: end}))
	assert.Nil(t, ExpandRecurrence(base, end, RecurrencePattern{Frequency: FreqDaily, Interval: 1}))
	// Inverted base interval.
	assert.Nil(t, ExpandRecurrence(end, base, RecurrencePattern{Frequency: FreqDaily, Interval: 1, EndDate: end}))
}

func TestPatternValidate(t *testing.T) {
	valid := RecurrencePattern{Frequency: FreqMonthly, Interval: 2, EndDate: date(2026, 1, 1, 0, 0)}
	assert.NoError(t, valid.Validate())

	invalid := valid
	invalid.Interval = -1
	assert.ErrorIs(t, invalid.Validate(), ErrInvalidRecurrence)
}
