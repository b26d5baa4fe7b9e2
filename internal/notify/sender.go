package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/localcare/care-booking/internal/booking"
	"github.com/localcare/care-booking/pkg/logging"
)

// Sender delivers a due reminder. Implementations can be swapped
// (email, SMS, push) without changing the worker.
type Sender interface {
	Send(ctx context.Context, r booking.Reminder) error
}

// LogSender writes reminders to the log. It is the fallback delivery
// channel when email is not configured.
type LogSender struct {
	logger *logging.Logger
}

func NewLogSender(logger *logging.Logger) *LogSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, r booking.Reminder) error {
	s.logger.Info("reminder due",
		"kind", r.Kind,
		"appointment_id", r.AppointmentID,
		"patient_id", r.PatientID,
		"caregiver_id", r.CaregiverID,
		"trigger_at", r.TriggerAt,
	)
	return nil
}

// SendGridSender emails due reminders to the care team inbox via
// SendGrid.
type SendGridSender struct {
	client *sendgrid.Client
	from   string
	to     string
	logger *logging.Logger
}

// SendGridConfig holds configuration for SendGrid delivery.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	ToEmail   string
}

// NewSendGridSender creates a SendGrid-backed sender; it returns nil when
// no API key is configured so callers can fall back to the log sender.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" || cfg.ToEmail == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SendGridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   cfg.FromEmail,
		to:     cfg.ToEmail,
		logger: logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, r booking.Reminder) error {
	subject := fmt.Sprintf("Appointment reminder: %s", r.AppointmentID)
	body := fmt.Sprintf(
		"Reminder for appointment %s\nPatient: %s\nCaregiver: %s\nDue at: %s\n",
		r.AppointmentID, r.PatientID, r.CaregiverID, r.TriggerAt.Format("Monday, January 2 at 3:04 PM"),
	)

	from := mail.NewEmail("Care Booking", s.from)
	to := mail.NewEmail("Care Team", s.to)
	message := mail.NewSingleEmail(from, subject, to, body, body)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "appointment_id", r.AppointmentID)
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "appointment_id", r.AppointmentID)
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info("reminder emailed", "appointment_id", r.AppointmentID, "status", response.StatusCode)
	return nil
}
