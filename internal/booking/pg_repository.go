package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentColumns = `
	id, patient_id, caregiver_id, start_time, end_time, status, kind,
	recurrence_frequency, recurrence_interval, recurrence_end_date,
	payment_amount, payment_currency, payment_status, payment_intent_ref,
	cancel_reason, cancelled_by, cancelled_at, refund_status,
	care_services, location, notes, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var freq *string
	var interval *int
	var endDate *time.Time
	var cancelReason *string
	var cancelledBy *uuid.UUID
	var cancelledAt *time.Time
	var refundStatus *string
	var services []byte
	var location, notes *string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.CaregiverID,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.Kind,
		&freq,
		&interval,
		&endDate,
		&a.Payment.Amount,
		&a.Payment.Currency,
		&a.Payment.Status,
		&a.Payment.IntentRef,
		&cancelReason,
		&cancelledBy,
		&cancelledAt,
		&refundStatus,
		&services,
		&location,
		&notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if freq != nil && interval != nil && endDate != nil {
		a.Recurrence = &RecurrencePattern{
			Frequency: Frequency(*freq),
			Interval:  *interval,
			EndDate:   *endDate,
		}
	}

	if cancelledAt != nil {
		c := Cancellation{CancelledAt: *cancelledAt}
		if cancelReason != nil {
			c.Reason = *cancelReason
		}
		if cancelledBy != nil {
			c.CancelledBy = *cancelledBy
		}
		if refundStatus != nil {
			c.RefundStatus = RefundStatus(*refundStatus)
		}
		a.Cancellation = &c
	}

	if len(services) > 0 {
		if err := json.Unmarshal(services, &a.CareServices); err != nil {
			return nil, fmt.Errorf("decode care services: %w", err)
		}
	}
	if location != nil {
		a.Location = *location
	}
	if notes != nil {
		a.Notes = *notes
	}

	return &a, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindOverlapping(ctx context.Context, caregiverID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE caregiver_id = $1
		  AND status <> 'cancelled'
		  AND start_time < $3
		  AND end_time > $2
		  AND ($4::uuid IS NULL OR id <> $4)
		ORDER BY start_time
	`, caregiverID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) Create(ctx context.Context, appt *Appointment) error {
	var freq *string
	var interval *int
	var endDate *time.Time
	if appt.Recurrence != nil {
		f := string(appt.Recurrence.Frequency)
		freq = &f
		interval = &appt.Recurrence.Interval
		endDate = &appt.Recurrence.EndDate
	}

	services, err := json.Marshal(appt.CareServices)
	if err != nil {
		return fmt.Errorf("encode care services: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO appointments (
			id, patient_id, caregiver_id, start_time, end_time, status, kind,
			recurrence_frequency, recurrence_interval, recurrence_end_date,
			payment_amount, payment_currency, payment_status, payment_intent_ref,
			care_services, location, notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17, now(), now()
		)
	`,
		appt.ID, appt.PatientID, appt.CaregiverID, appt.StartTime, appt.EndTime, appt.Status, appt.Kind,
		freq, interval, endDate,
		appt.Payment.Amount, appt.Payment.Currency, appt.Payment.Status, appt.Payment.IntentRef,
		services, appt.Location, appt.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) Update(ctx context.Context, id uuid.UUID, upd AppointmentUpdate) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET start_time = COALESCE($2, start_time),
		    end_time   = COALESCE($3, end_time),
		    location   = COALESCE($4, location),
		    notes      = COALESCE($5, notes),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, upd.StartTime, upd.EndTime, upd.Location, upd.Notes)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)
	return scanAppointment(row)
}

func (r *PgRepository) MarkCancelled(ctx context.Context, id uuid.UUID, c Cancellation) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    cancel_reason = $2,
		    cancelled_by = $3,
		    cancelled_at = $4,
		    refund_status = $5,
		    updated_at = now()
		WHERE id = $1
		  AND status NOT IN ('cancelled', 'completed')
		RETURNING `+appointmentColumns+`
	`, id, c.Reason, c.CancelledBy, c.CancelledAt, c.RefundStatus)
	return scanAppointment(row)
}

func (r *PgRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to PaymentStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET payment_status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND payment_status = $3
	`, id, to, from)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) SetRefundStatus(ctx context.Context, id uuid.UUID, status RefundStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET refund_status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND cancelled_at IS NOT NULL
	`, id, status)
	if err != nil {
		return fmt.Errorf("set refund status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) ListByCaregiver(ctx context.Context, caregiverID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE caregiver_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`, caregiverID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
