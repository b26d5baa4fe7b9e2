package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/localcare/care-booking/internal/caregiver"
	"github.com/localcare/care-booking/internal/payments"
	redisclient "github.com/localcare/care-booking/internal/redis"
	"github.com/localcare/care-booking/pkg/logging"
)

var (
	ErrInvalidInterval    = errors.New("end time must be after start time")
	ErrMissingParty       = errors.New("patient and caregiver are required")
	ErrSlotUnavailable    = errors.New("caregiver is not available for the requested time")
	ErrCaregiverBusy      = errors.New("caregiver schedule is being updated, please retry")
	ErrCaregiverSuspended = errors.New("caregiver is not accepting bookings")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrNothingToUpdate    = errors.New("no updatable fields in request")
)

// ConflictPolicy decides what happens when a generated recurring instance
// conflicts with an existing booking.
type ConflictPolicy string

const (
	// PolicySkipConflicts books everything that fits and reports the
	// conflicting occurrences as skipped.
	PolicySkipConflicts ConflictPolicy = "skip"
	// PolicyAbortOnConflict rejects the whole recurring booking on the
	// first conflicting occurrence; nothing is committed.
	PolicyAbortOnConflict ConflictPolicy = "abort"
)

// ServiceConfig carries the booking-level settings the service needs.
type ServiceConfig struct {
	Currency         string
	RecurrencePolicy ConflictPolicy
}

// Service owns the appointment lifecycle: create with conflict detection
// and recurrence expansion, reschedule, cancel with refund computation,
// and the forward status transitions.
type Service struct {
	repo      Repository
	locker    redisclient.Locker
	directory caregiver.Directory
	processor payments.Processor
	reminders ReminderDispatcher
	cfg       ServiceConfig
	logger    *logging.Logger

	// now is swapped in tests.
	now func() time.Time
}

func NewService(
	repo Repository,
	locker redisclient.Locker,
	directory caregiver.Directory,
	processor payments.Processor,
	reminders ReminderDispatcher,
	cfg ServiceConfig,
	logger *logging.Logger,
) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "GBP"
	}
	if cfg.RecurrencePolicy == "" {
		cfg.RecurrencePolicy = PolicySkipConflicts
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:      repo,
		locker:    locker,
		directory: directory,
		processor: processor,
		reminders: reminders,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

type CreateRequest struct {
	PatientID    uuid.UUID
	CaregiverID  uuid.UUID
	StartTime    time.Time
	EndTime      time.Time
	Kind         Kind
	Recurrence   *RecurrencePattern
	CareServices []CareService
	Location     string
	Notes        string
}

// CreateResult reports everything a create committed: the requested
// appointment, the one_time instances a recurring booking generated, and
// the occurrences skipped under the skip policy.
type CreateResult struct {
	Appointment *Appointment
	Instances   []Appointment
	Skipped     []Interval
}

// Create validates and books an appointment. The conflict check and the
// insert run inside the per-caregiver lock so two concurrent requests for
// overlapping slots cannot both pass the check before either commits.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.PatientID == uuid.Nil || req.CaregiverID == uuid.Nil {
		return nil, ErrMissingParty
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() || !req.EndTime.After(req.StartTime) {
		return nil, ErrInvalidInterval
	}

	kind := req.Kind
	if kind == "" {
		kind = KindOneTime
	}
	if kind == KindRecurring {
		if req.Recurrence == nil {
			return nil, ErrInvalidRecurrence
		}
		if err := req.Recurrence.Validate(); err != nil {
			return nil, err
		}
	} else if kind != KindOneTime {
		return nil, fmt.Errorf("%w: unknown appointment kind %q", ErrInvalidRecurrence, kind)
	}

	cg, err := s.directory.GetByID(ctx, req.CaregiverID)
	if err != nil {
		if errors.Is(err, caregiver.ErrCaregiverNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load caregiver: %w", err)
	}
	if cg.Status == caregiver.StatusSuspended {
		return nil, ErrCaregiverSuspended
	}

	occurrences := []Interval{{Start: req.StartTime, End: req.EndTime}}
	if kind == KindRecurring {
		occurrences = ExpandRecurrence(req.StartTime, req.EndTime, *req.Recurrence)
		if len(occurrences) == 0 {
			return nil, ErrInvalidRecurrence
		}
	}

	var rate float64
	if cg.HourlyRate != nil {
		rate = *cg.HourlyRate
	}
	amount := AppointmentCost(rate, req.StartTime, req.EndTime, req.CareServices)

	// The intent is created before the lock so no external call happens
	// inside the critical section. If the booking is rejected below the
	// intent is never confirmed and expires at the processor.
	intent, err := s.processor.CreateIntent(ctx, payments.IntentRequest{
		Amount:   amount,
		Currency: s.cfg.Currency,
		Metadata: map[string]string{
			"patient_id":   req.PatientID.String(),
			"caregiver_id": req.CaregiverID.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	result := &CreateResult{}
	nowTS := s.now()

	err = s.locker.WithCaregiverLock(ctx, req.CaregiverID, func(lockCtx context.Context) error {
		var toCreate []Interval
		var skipped []Interval

		for i, occ := range occurrences {
			conflict, err := s.HasConflict(lockCtx, req.CaregiverID, occ.Start, occ.End, nil)
			if err != nil {
				return err
			}
			// Occurrences in the same batch can overlap each other when
			// the duration exceeds the recurrence step; the store check
			// alone cannot see those because nothing is inserted yet.
			if !conflict {
				for _, accepted := range toCreate {
					if Overlaps(accepted.Start, accepted.End, occ.Start, occ.End) {
						conflict = true
						break
					}
				}
			}
			if !conflict {
				toCreate = append(toCreate, occ)
				continue
			}
			// The requested slot itself must be free regardless of
			// policy; only generated instances are skippable.
			if i == 0 || s.cfg.RecurrencePolicy == PolicyAbortOnConflict {
				return ErrSlotUnavailable
			}
			skipped = append(skipped, occ)
		}

		for i, occ := range toCreate {
			appt := &Appointment{
				ID:          uuid.New(),
				PatientID:   req.PatientID,
				CaregiverID: req.CaregiverID,
				StartTime:   occ.Start,
				EndTime:     occ.End,
				Status:      StatusPending,
				Kind:        KindOneTime,
				Payment: Payment{
					Amount:   amount,
					Currency: s.cfg.Currency,
					Status:   PaymentPending,
				},
				CareServices: req.CareServices,
				Location:     req.Location,
				Notes:        req.Notes,
				CreatedAt:    nowTS,
				UpdatedAt:    nowTS,
			}
			if i == 0 {
				// The base record keeps the requested kind and carries
				// the intent obtained above. Generated instances are
				// independent one_time bookings paid for separately.
				appt.Kind = kind
				appt.Recurrence = req.Recurrence
				appt.Payment.IntentRef = intent.Ref
			}

			if err := s.repo.Create(lockCtx, appt); err != nil {
				return fmt.Errorf("create appointment: %w", err)
			}

			if i == 0 {
				result.Appointment = appt
			} else {
				result.Instances = append(result.Instances, *appt)
			}
		}

		result.Skipped = skipped
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrCaregiverBusy
		}
		return nil, err
	}

	s.scheduleReminders(ctx, result.Appointment)
	for i := range result.Instances {
		s.scheduleReminders(ctx, &result.Instances[i])
	}

	s.logger.Info("appointment created",
		"appointment_id", result.Appointment.ID,
		"caregiver_id", req.CaregiverID,
		"kind", string(kind),
		"instances", len(result.Instances),
		"skipped", len(result.Skipped),
		"amount", amount,
	)

	return result, nil
}

type RescheduleRequest struct {
	StartTime *time.Time
	EndTime   *time.Time
	Location  *string
	Notes     *string
}

// Reschedule updates the whitelisted mutable fields of an appointment.
// A time change re-runs conflict detection, excluding the appointment
// itself, under the caregiver lock.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req RescheduleRequest) (*Appointment, error) {
	if req.StartTime == nil && req.EndTime == nil && req.Location == nil && req.Notes == nil {
		return nil, ErrNothingToUpdate
	}

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	timeChanged := req.StartTime != nil || req.EndTime != nil
	if !timeChanged {
		return s.repo.Update(ctx, id, AppointmentUpdate{Location: req.Location, Notes: req.Notes})
	}

	newStart := appt.StartTime
	newEnd := appt.EndTime
	if req.StartTime != nil {
		newStart = *req.StartTime
	}
	if req.EndTime != nil {
		newEnd = *req.EndTime
	}
	if !newEnd.After(newStart) {
		return nil, ErrInvalidInterval
	}

	var updated *Appointment
	err = s.locker.WithCaregiverLock(ctx, appt.CaregiverID, func(lockCtx context.Context) error {
		conflict, err := s.HasConflict(lockCtx, appt.CaregiverID, newStart, newEnd, &id)
		if err != nil {
			return err
		}
		if conflict {
			return ErrSlotUnavailable
		}

		updated, err = s.repo.Update(lockCtx, id, AppointmentUpdate{
			StartTime: &newStart,
			EndTime:   &newEnd,
			Location:  req.Location,
			Notes:     req.Notes,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrCaregiverBusy
		}
		return nil, err
	}

	// Old reminder entries are superseded by the new schedule; removal is
	// best-effort because the worker re-checks nothing and stale fires
	// are filtered by trigger time at delivery.
	if err := s.reminders.Supersede(ctx, id); err != nil {
		s.logger.Warn("supersede reminders failed", "error", err, "appointment_id", id)
	}
	s.scheduleReminders(ctx, updated)

	s.logger.Info("appointment rescheduled", "appointment_id", id, "start", newStart, "end", newEnd)
	return updated, nil
}

// Cancel transitions an appointment to cancelled and computes the refund
// for a paid booking. Cancelling an already-cancelled appointment is a
// no-op. Refund processing is best-effort: its failure is recorded and
// logged but never reverses the cancellation.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string, cancelledBy uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusCancelled {
		return appt, nil
	}
	if appt.Status == StatusCompleted {
		return nil, ErrInvalidTransition
	}

	nowTS := s.now()
	cancelled, err := s.repo.MarkCancelled(ctx, id, Cancellation{
		Reason:       reason,
		CancelledBy:  cancelledBy,
		CancelledAt:  nowTS,
		RefundStatus: RefundPending,
	})
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race with another cancel or a completion; re-read
			// to report the settled state.
			current, getErr := s.repo.GetByID(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			if current.Status == StatusCancelled {
				return current, nil
			}
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	if err := s.reminders.Supersede(ctx, id); err != nil {
		s.logger.Warn("supersede reminders failed", "error", err, "appointment_id", id)
	}

	if cancelled.Payment.Status == PaymentPaid {
		s.processRefund(ctx, cancelled, reason, nowTS)
	}

	s.logger.Info("appointment cancelled", "appointment_id", id, "reason", reason, "cancelled_by", cancelledBy)
	return cancelled, nil
}

// processRefund computes the tiered refund and settles it with the
// payment collaborator, recording the outcome on the appointment.
func (s *Service) processRefund(ctx context.Context, appt *Appointment, reason string, now time.Time) {
	amount := ComputeRefund(appt.Payment.Amount, appt.StartTime, now)
	if amount <= 0 {
		s.setRefundOutcome(ctx, appt, RefundDenied)
		s.logger.Info("no refund due", "appointment_id", appt.ID, "paid", appt.Payment.Amount)
		return
	}

	if err := s.processor.Refund(ctx, appt.Payment.IntentRef, amount, reason); err != nil {
		s.logger.Error("refund processing failed", "error", err, "appointment_id", appt.ID, "amount", amount)
		s.setRefundOutcome(ctx, appt, RefundDenied)
		return
	}

	if err := s.repo.UpdatePaymentStatus(ctx, appt.ID, PaymentPaid, PaymentRefunded); err != nil {
		s.logger.Error("record refunded payment failed", "error", err, "appointment_id", appt.ID)
	} else {
		appt.Payment.Status = PaymentRefunded
	}
	s.setRefundOutcome(ctx, appt, RefundProcessed)
	s.logger.Info("refund processed", "appointment_id", appt.ID, "amount", amount)
}

func (s *Service) setRefundOutcome(ctx context.Context, appt *Appointment, status RefundStatus) {
	if err := s.repo.SetRefundStatus(ctx, appt.ID, status); err != nil {
		s.logger.Error("record refund status failed", "error", err, "appointment_id", appt.ID, "refund_status", string(status))
		return
	}
	if appt.Cancellation != nil {
		appt.Cancellation.RefundStatus = status
	}
}

// Confirm moves a pending appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusPending, StatusConfirmed)
}

// Start moves a confirmed appointment to in_progress.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusConfirmed, StatusInProgress)
}

// Complete moves an in_progress appointment to completed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusInProgress, StatusCompleted)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != from {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, id, from, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Status moved under us between the read and the update.
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("transition %s to %s: %w", from, to, err)
	}

	s.logger.Info("appointment status changed", "appointment_id", id, "from", string(from), "to", string(to))
	return updated, nil
}

// Get retrieves an appointment by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByPatient retrieves a patient's appointments, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// ListByCaregiver retrieves a caregiver's appointments, newest first.
func (s *Service) ListByCaregiver(ctx context.Context, caregiverID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByCaregiver(ctx, caregiverID, limit, offset)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// scheduleReminders computes and dispatches the future reminders for an
// appointment. Failures are logged, not surfaced: reminder delivery is
// never allowed to fail a booking.
func (s *Service) scheduleReminders(ctx context.Context, appt *Appointment) {
	if appt == nil {
		return
	}
	for _, r := range ComputeReminders(appt, s.now()) {
		if err := s.reminders.Schedule(ctx, r); err != nil {
			s.logger.Warn("schedule reminder failed", "error", err, "appointment_id", appt.ID, "trigger_at", r.TriggerAt)
		}
	}
}
