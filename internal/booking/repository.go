package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// AppointmentUpdate names the fields a reschedule may touch. Anything not
// listed here cannot be mutated through the update path.
type AppointmentUpdate struct {
	StartTime *time.Time
	EndTime   *time.Time
	Location  *string
	Notes     *string
}

// Repository contains all appointment store interactions needed by the service.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// FindOverlapping returns non-cancelled appointments for the caregiver
	// whose half-open interval intersects [start, end). excludeID, when
	// non-nil, removes that appointment from consideration (reschedule
	// against itself).
	FindOverlapping(ctx context.Context, caregiverID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]Appointment, error)

	Create(ctx context.Context, appt *Appointment) error

	// Update applies the whitelisted mutable fields and returns the
	// updated row.
	Update(ctx context.Context, id uuid.UUID, upd AppointmentUpdate) (*Appointment, error)

	// UpdateStatus transitions status from -> to; it fails with
	// ErrAppointmentNotFound when the row is missing or not in `from`.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// MarkCancelled sets status=cancelled and writes the cancellation
	// block in one statement, guarded against terminal states.
	MarkCancelled(ctx context.Context, id uuid.UUID, c Cancellation) (*Appointment, error)

	// UpdatePaymentStatus transitions payment status from -> to.
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to PaymentStatus) error

	// SetRefundStatus records the refund outcome on a cancelled appointment.
	SetRefundStatus(ctx context.Context, id uuid.UUID, status RefundStatus) error

	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListByCaregiver(ctx context.Context, caregiverID uuid.UUID, limit, offset int) ([]Appointment, error)
}
