package notify

import (
	"context"
	"fmt"

	"github.com/go-gomail/gomail"

	"healthcare-services/pkg/logging"
)

type smtpDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends plain-text mail through an authenticated SMTP relay.
type SMTPSender struct {
	dialer smtpDialer
	from   string
	logger *logging.Logger
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// NewSMTPSender returns nil unless a username and password are set.
func NewSMTPSender(cfg SMTPConfig, logger *logging.Logger) *SMTPSender {
	if cfg.Username == "" || cfg.Password == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.Username,
		logger: logger,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	// gomail has no context support; give up waiting once ctx is done.
	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			s.logger.Error("smtp send failed", "error", err, "to", msg.To)
			return fmt.Errorf("notify: smtp send failed: %w", err)
		}
	case <-ctx.Done():
		s.logger.Error("smtp send timed out", "error", ctx.Err(), "to", msg.To)
		return fmt.Errorf("notify: smtp send: %w", ctx.Err())
	}

	s.logger.Info("email sent via smtp", "to", msg.To, "subject", msg.Subject)
	return nil
}

var _ EmailSender = (*SMTPSender)(nil)
