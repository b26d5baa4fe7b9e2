package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a mutex-guarded in-memory Repository for tests and
// local runs without Postgres. It is not the production store: the
// per-caregiver lock still serializes check-then-commit around it.
type MemoryRepository struct {
	mu    sync.RWMutex
	appts map[uuid.UUID]*Appointment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{appts: make(map[uuid.UUID]*Appointment)}
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	appt, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := cloneAppointment(appt)
	return &cp, nil
}

func (r *MemoryRepository) FindOverlapping(_ context.Context, caregiverID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Appointment
	for _, appt := range r.appts {
		if appt.CaregiverID != caregiverID || appt.Status == StatusCancelled {
			continue
		}
		if excludeID != nil && appt.ID == *excludeID {
			continue
		}
		if Overlaps(appt.StartTime, appt.EndTime, start, end) {
			out = append(out, cloneAppointment(appt))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *MemoryRepository) Create(_ context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := cloneAppointment(appt)
	r.appts[appt.ID] = &cp
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, id uuid.UUID, upd AppointmentUpdate) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if upd.StartTime != nil {
		appt.StartTime = *upd.StartTime
	}
	if upd.EndTime != nil {
		appt.EndTime = *upd.EndTime
	}
	if upd.Location != nil {
		appt.Location = *upd.Location
	}
	if upd.Notes != nil {
		appt.Notes = *upd.Notes
	}
	appt.UpdatedAt = time.Now()

	cp := cloneAppointment(appt)
	return &cp, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appts[id]
	if !ok || appt.Status != from {
		return nil, ErrAppointmentNotFound
	}
	appt.Status = to
	appt.UpdatedAt = time.Now()

	cp := cloneAppointment(appt)
	return &cp, nil
}

func (r *MemoryRepository) MarkCancelled(_ context.Context, id uuid.UUID, c Cancellation) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appts[id]
	if !ok || appt.Status.Terminal() {
		return nil, ErrAppointmentNotFound
	}
	appt.Status = StatusCancelled
	appt.Cancellation = &c
	appt.UpdatedAt = time.Now()

	cp := cloneAppointment(appt)
	return &cp, nil
}

func (r *MemoryRepository) UpdatePaymentStatus(_ context.Context, id uuid.UUID, from, to PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appts[id]
	if !ok || appt.Payment.Status != from {
		return ErrAppointmentNotFound
	}
	appt.Payment.Status = to
	return nil
}

func (r *MemoryRepository) SetRefundStatus(_ context.Context, id uuid.UUID, status RefundStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appts[id]
	if !ok || appt.Cancellation == nil {
		return ErrAppointmentNotFound
	}
	appt.Cancellation.RefundStatus = status
	return nil
}

func (r *MemoryRepository) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	return r.list(func(a *Appointment) bool { return a.PatientID == patientID }, limit, offset), nil
}

func (r *MemoryRepository) ListByCaregiver(_ context.Context, caregiverID uuid.UUID, limit, offset int) ([]Appointment, error) {
	return r.list(func(a *Appointment) bool { return a.CaregiverID == caregiverID }, limit, offset), nil
}

func (r *MemoryRepository) list(match func(*Appointment) bool, limit, offset int) []Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []Appointment
	for _, appt := range r.appts {
		if match(appt) {
			all = append(all, cloneAppointment(appt))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartTime.After(all[j].StartTime) })

	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

func cloneAppointment(a *Appointment) Appointment {
	cp := *a
	if a.Recurrence != nil {
		rec := *a.Recurrence
		cp.Recurrence = &rec
	}
	if a.Cancellation != nil {
		c := *a.Cancellation
		cp.Cancellation = &c
	}
	if a.CareServices != nil {
		cp.CareServices = append([]CareService(nil), a.CareServices...)
	}
	return cp
}
