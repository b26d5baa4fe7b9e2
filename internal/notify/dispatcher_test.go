package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localcare/care-booking/internal/booking"
)

func newTestDispatcher(t *testing.T) (*RedisDispatcher, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisDispatcher(client), mr
}

func testReminder(apptID uuid.UUID, triggerAt time.Time) booking.Reminder {
	return booking.Reminder{
		TriggerAt:     triggerAt,
		Kind:          booking.ReminderKind,
		AppointmentID: apptID,
		PatientID:     uuid.New(),
		CaregiverID:   uuid.New(),
	}
}

func TestScheduleAndPopDue(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	apptID := uuid.New()
	due := testReminder(apptID, now.Add(-time.Minute))
	future := testReminder(apptID, now.Add(2*time.Hour))

	require.NoError(t, d.Schedule(ctx, due))
	require.NoError(t, d.Schedule(ctx, future))

	popped, err := d.PopDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, popped, 1)
	assert.Equal(t, apptID, popped[0].AppointmentID)
	assert.Equal(t, due.TriggerAt.Unix(), popped[0].TriggerAt.Unix())

	// Popped entries are removed; the future one stays queued.
	popped, err = d.PopDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, popped)

	popped, err = d.PopDue(ctx, now.Add(3*time.Hour), 10)
	require.NoError(t, err)
	assert.Len(t, popped, 1)
}

func TestPopDueTriggerExactlyNow(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, d.Schedule(ctx, testReminder(uuid.New(), now)))

	popped, err := d.PopDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Len(t, popped, 1)
}

func TestSupersedeClearsPendingReminders(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	target := uuid.New()
	other := uuid.New()
	require.NoError(t, d.Schedule(ctx, testReminder(target, now.Add(time.Hour))))
	require.NoError(t, d.Schedule(ctx, testReminder(target, now.Add(23*time.Hour))))
	require.NoError(t, d.Schedule(ctx, testReminder(other, now.Add(time.Hour))))

	require.NoError(t, d.Supersede(ctx, target))

	// Only the other appointment's reminder survives.
	popped, err := d.PopDue(ctx, now.Add(24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, popped, 1)
	assert.Equal(t, other, popped[0].AppointmentID)

	// Superseding with nothing pending is a no-op.
	assert.NoError(t, d.Supersede(ctx, target))
}

func TestPopDueDropsMalformedEntries(t *testing.T) {
	d, mr := newTestDispatcher(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	mr.ZAdd("reminders:queue", float64(now.Add(-time.Minute).Unix()), "not-json")
	require.NoError(t, d.Schedule(ctx, testReminder(uuid.New(), now.Add(-time.Minute))))

	popped, err := d.PopDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Len(t, popped, 1)

	// The malformed member was removed, not left to wedge the queue.
	members, err := mr.ZMembers("reminders:queue")
	if err == nil {
		assert.NotContains(t, members, "not-json")
	}
}

func TestPopDueLimit(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Schedule(ctx, testReminder(uuid.New(), now.Add(-time.Duration(i+1)*time.Minute))))
	}

	popped, err := d.PopDue(ctx, now, 3)
	require.NoError(t, err)
	assert.Len(t, popped, 3)

	popped, err = d.PopDue(ctx, now, 3)
	require.NoError(t, err)
	assert.Len(t, popped, 2)
}
