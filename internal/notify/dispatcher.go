package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/localcare/care-booking/internal/booking"
)

const (
	queueKey       = "reminders:queue"
	apptIndexKey   = "reminders:appt:%s"
	apptIndexTTL   = 45 * 24 * time.Hour
	defaultPopSize = 100
)

// RedisDispatcher stores scheduled reminders in a sorted set scored by
// trigger time. The reminder worker pops due entries; the booking
// service only ever schedules and supersedes.
type RedisDispatcher struct {
	client *redis.Client
}

func NewRedisDispatcher(client *redis.Client) *RedisDispatcher {
	return &RedisDispatcher{client: client}
}

// Schedule enqueues a reminder for delivery at its trigger time.
func (d *RedisDispatcher) Schedule(ctx context.Context, r booking.Reminder) error {
	member, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reminder: %w", err)
	}

	pipe := d.client.TxPipeline()
	pipe.ZAdd(ctx, queueKey, redis.Z{
		Score:  float64(r.TriggerAt.Unix()),
		Member: string(member),
	})
	// Secondary index so Supersede can find this appointment's entries
	// without scanning the whole queue.
	idx := fmt.Sprintf(apptIndexKey, r.AppointmentID)
	pipe.SAdd(ctx, idx, string(member))
	pipe.Expire(ctx, idx, apptIndexTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue reminder: %w", err)
	}
	return nil
}

// Supersede removes all not-yet-fired reminders for an appointment,
// called on reschedule and cancellation.
func (d *RedisDispatcher) Supersede(ctx context.Context, appointmentID uuid.UUID) error {
	idx := fmt.Sprintf(apptIndexKey, appointmentID)

	members, err := d.client.SMembers(ctx, idx).Result()
	if err != nil {
		return fmt.Errorf("read reminder index: %w", err)
	}
	if len(members) == 0 {
		return nil
	}

	zrem := make([]interface{}, len(members))
	for i, m := range members {
		zrem[i] = m
	}

	pipe := d.client.TxPipeline()
	pipe.ZRem(ctx, queueKey, zrem...)
	pipe.Del(ctx, idx)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove reminders: %w", err)
	}
	return nil
}

// PopDue removes and returns up to limit reminders whose trigger time is
// at or before now. Used by the reminder worker.
func (d *RedisDispatcher) PopDue(ctx context.Context, now time.Time, limit int) ([]booking.Reminder, error) {
	if limit <= 0 {
		limit = defaultPopSize
	}

	members, err := d.client.ZRangeByScore(ctx, queueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.Unix()),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read due reminders: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	var out []booking.Reminder
	pipe := d.client.TxPipeline()
	for _, m := range members {
		var r booking.Reminder
		if err := json.Unmarshal([]byte(m), &r); err != nil {
			// A malformed entry would wedge the queue; drop it.
			pipe.ZRem(ctx, queueKey, m)
			continue
		}
		out = append(out, r)
		pipe.ZRem(ctx, queueKey, m)
		pipe.SRem(ctx, fmt.Sprintf(apptIndexKey, r.AppointmentID), m)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("pop due reminders: %w", err)
	}

	return out, nil
}
