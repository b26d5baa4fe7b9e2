package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Kind string

const (
	KindOneTime   Kind = "one_time"
	KindRecurring Kind = "recurring"
)

type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
)

// RecurrencePattern describes how a recurring booking expands into
// repeated instances. EndDate is an inclusive calendar-day boundary: an
// instance whose start falls on that day is still generated.
type RecurrencePattern struct {
	Frequency Frequency `json:"frequency"`
	Interval  int       `json:"interval"`
	EndDate   time.Time `json:"end_date"`
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Payment carries the money side of an appointment. Amount is in minor
// currency units (pence for GBP).
type Payment struct {
	Amount    int64
	Currency  string
	Status    PaymentStatus
	IntentRef string
}

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundProcessed RefundStatus = "processed"
	RefundDenied    RefundStatus = "denied"
)

// Cancellation is written once, when the appointment is cancelled.
type Cancellation struct {
	Reason       string
	CancelledBy  uuid.UUID
	CancelledAt  time.Time
	RefundStatus RefundStatus
}

const ServiceSpecializedCare = "specialized_care"

type CareService struct {
	Type            string `json:"type"`
	DurationMinutes int    `json:"duration_minutes"`
	Notes           string `json:"notes,omitempty"`
}

type Appointment struct {
	ID           uuid.UUID
	PatientID    uuid.UUID
	CaregiverID  uuid.UUID
	StartTime    time.Time
	EndTime      time.Time
	Status       Status
	Kind         Kind
	Recurrence   *RecurrencePattern
	Payment      Payment
	Cancellation *Cancellation
	CareServices []CareService
	Location     string
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
