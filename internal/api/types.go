package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/localcare/care-booking/internal/booking"
)

type RecurrencePayload struct {
	Frequency string `json:"frequency"`
	Interval  int    `json:"interval"`
	EndDate   string `json:"end_date"` // YYYY-MM-DD
}

type CareServicePayload struct {
	Type            string `json:"type"`
	DurationMinutes int    `json:"duration_minutes"`
	Notes           string `json:"notes,omitempty"`
}

type CreateAppointmentRequest struct {
	PatientID    string               `json:"patient_id"`
	CaregiverID  string               `json:"caregiver_id"`
	StartTime    time.Time            `json:"start_time"`
	EndTime      time.Time            `json:"end_time"`
	Kind         string               `json:"kind,omitempty"`
	Recurrence   *RecurrencePayload   `json:"recurrence,omitempty"`
	CareServices []CareServicePayload `json:"care_services,omitempty"`
	Location     string               `json:"location,omitempty"`
	Notes        string               `json:"notes,omitempty"`
}

type RescheduleAppointmentRequest struct {
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Location  *string    `json:"location,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

type CancelAppointmentRequest struct {
	Reason      string `json:"reason"`
	CancelledBy string `json:"cancelled_by"`
}

type PaymentResponse struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	IntentRef string `json:"intent_ref,omitempty"`
}

type CancellationResponse struct {
	Reason       string    `json:"reason"`
	CancelledBy  uuid.UUID `json:"cancelled_by"`
	CancelledAt  time.Time `json:"cancelled_at"`
	RefundStatus string    `json:"refund_status"`
}

type AppointmentResponse struct {
	ID           uuid.UUID             `json:"id"`
	PatientID    uuid.UUID             `json:"patient_id"`
	CaregiverID  uuid.UUID             `json:"caregiver_id"`
	StartTime    time.Time             `json:"start_time"`
	EndTime      time.Time             `json:"end_time"`
	Status       string                `json:"status"`
	Kind         string                `json:"kind"`
	Location     string                `json:"location,omitempty"`
	Notes        string                `json:"notes,omitempty"`
	Payment      PaymentResponse       `json:"payment"`
	Cancellation *CancellationResponse `json:"cancellation,omitempty"`
}

type CreateAppointmentResponse struct {
	Appointment AppointmentResponse   `json:"appointment"`
	Instances   []AppointmentResponse `json:"instances,omitempty"`
	Skipped     []booking.Interval    `json:"skipped,omitempty"`
}

type ListAppointmentsResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:          a.ID,
		PatientID:   a.PatientID,
		CaregiverID: a.CaregiverID,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		Status:      string(a.Status),
		Kind:        string(a.Kind),
		Location:    a.Location,
		Notes:       a.Notes,
		Payment: PaymentResponse{
			Amount:    a.Payment.Amount,
			Currency:  a.Payment.Currency,
			Status:    string(a.Payment.Status),
			IntentRef: a.Payment.IntentRef,
		},
	}
	if a.Cancellation != nil {
		resp.Cancellation = &CancellationResponse{
			Reason:       a.Cancellation.Reason,
			CancelledBy:  a.Cancellation.CancelledBy,
			CancelledAt:  a.Cancellation.CancelledAt,
			RefundStatus: string(a.Cancellation.RefundStatus),
		}
	}
	return resp
}
