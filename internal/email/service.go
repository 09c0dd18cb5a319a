package email

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/model"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/logger"
)

type Config struct {
	Host     string `envconfig:"SMTP_HOST" required:"true"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	Username string `envconfig:"SMTP_USERNAME"`
	Password string `envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"SMTP_FROM" required:"true"`
}

// Service sends booking notices over SMTP.
type Service struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

func NewService(cfg Config, log *logger.Logger) *Service {
	return &Service{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: log,
	}
}

// SendBookingNotice mails a confirmation, cancellation or reschedule
// notice for one appointment. Notices without a contact address are
// skipped silently; collecting contact details is the client's concern.
func (s *Service) SendBookingNotice(eventType string, p model.BookingNoticePayload) error {
	if p.ContactEmail == "" {
		return nil
	}

	subject, body := s.compose(eventType, p)

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", p.ContactEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send booking notice: %w", err)
	}

	s.logger.Info("booking notice sent",
		"event_type", eventType,
		"appointment_id", p.AppointmentID.String(),
	)
	return nil
}

func (s *Service) compose(eventType string, p model.BookingNoticePayload) (string, string) {
	when := p.StartTime.Format(time.RFC1123)

	switch eventType {
	case model.OutboxEventCancelled:
		return "Your appointment was cancelled",
			fmt.Sprintf("Your appointment on %s has been cancelled.", when)
	case model.OutboxEventRescheduled:
		return "Your appointment was rescheduled",
			fmt.Sprintf("Your appointment has been moved to %s (%d minutes).", when, p.DurationMinutes)
	default:
		return "Your appointment is confirmed",
			fmt.Sprintf("Your appointment is confirmed for %s (%d minutes).", when, p.DurationMinutes)
	}
}
