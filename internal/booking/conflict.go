package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap: an
// appointment ending at 11:00 never conflicts with one starting at 11:00.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// HasConflict reports whether any non-cancelled appointment for the
// caregiver overlaps the proposed interval. excludeID removes one
// appointment from consideration, used when rescheduling it.
//
// This is only a read. Callers that go on to write a booking must run
// both the check and the write inside the caregiver lock, otherwise two
// concurrent requests can each pass the check before either commits.
func (s *Service) HasConflict(ctx context.Context, caregiverID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	existing, err := s.repo.FindOverlapping(ctx, caregiverID, start, end, excludeID)
	if err != nil {
		return false, fmt.Errorf("find overlapping appointments: %w", err)
	}
	return len(existing) > 0, nil
}
