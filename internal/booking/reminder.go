package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const ReminderKind = "appointment_reminder"

// Reminders fire this long before the appointment starts.
var reminderOffsets = []time.Duration{24 * time.Hour, 2 * time.Hour}

// Reminder is a future notification keyed to an appointment's start time.
type Reminder struct {
	TriggerAt     time.Time `json:"trigger_at"`
	Kind          string    `json:"kind"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	CaregiverID   uuid.UUID `json:"caregiver_id"`
}

// ReminderDispatcher hands computed reminders to an external delivery
// mechanism. Schedule is fire-and-forget from the service's point of
// view; Supersede drops any not-yet-fired reminders for an appointment
// whose time changed or that was cancelled.
type ReminderDispatcher interface {
	Schedule(ctx context.Context, r Reminder) error
	Supersede(ctx context.Context, appointmentID uuid.UUID) error
}

// ComputeReminders returns the reminder entries still in the future at
// `now`. Entries whose trigger time has already passed are dropped, not
// fired late.
func ComputeReminders(appt *Appointment, now time.Time) []Reminder {
	var out []Reminder
	for _, offset := range reminderOffsets {
		trigger := appt.StartTime.Add(-offset)
		if !trigger.After(now) {
			continue
		}
		out = append(out, Reminder{
			TriggerAt:     trigger,
			Kind:          ReminderKind,
			AppointmentID: appt.ID,
			PatientID:     appt.PatientID,
			CaregiverID:   appt.CaregiverID,
		})
	}
	return out
}
