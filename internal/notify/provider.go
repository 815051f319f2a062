package notify

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"healthcare-services/internal/config"
	"healthcare-services/pkg/logging"
)

// NewEmailSenderFromConfig picks the email provider named by EMAIL_PROVIDER.
// "auto" prefers SendGrid, then SES, then SMTP, and falls back to the stub.
func NewEmailSenderFromConfig(ctx context.Context, cfg *config.Config, logger *logging.Logger) (EmailSender, error) {
	if logger == nil {
		logger = logging.Default()
	}

	sendgridSender := func() EmailSender {
		if s := NewSendGridSender(SendGridConfig{
			APIKey: cfg.SendGridAPIKey, FromEmail: cfg.SendGridFromEmail, FromName: cfg.SendGridFromName,
		}, logger); s != nil {
			return s
		}
		return nil
	}
	smtpSender := func() EmailSender {
		if s := NewSMTPSender(SMTPConfig{
			Host: cfg.SMTPHost, Port: cfg.SMTPPort, Username: cfg.EmailAddress, Password: cfg.EmailPassword,
		}, logger); s != nil {
			return s
		}
		return nil
	}
	sesSender := func() (EmailSender, error) {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("notify: load aws config: %w", err)
		}
		return NewSESSender(sesv2.NewFromConfig(awsCfg), cfg.SESFromEmail, logger), nil
	}

	switch cfg.EmailProvider {
	case "sendgrid":
		if s := sendgridSender(); s != nil {
			return s, nil
		}
		return nil, fmt.Errorf("notify: sendgrid selected but SENDGRID_API_KEY is empty")
	case "smtp":
		if s := smtpSender(); s != nil {
			return s, nil
		}
		return nil, fmt.Errorf("notify: smtp selected but EMAIL_ADDRESS/EMAIL_PASSWORD are empty")
	case "ses":
		if cfg.SESFromEmail == "" {
			return nil, fmt.Errorf("notify: ses selected but SES_FROM_EMAIL is empty")
		}
		return sesSender()
	case "stub", "none":
		return NewStubEmailSender(logger), nil
	case "auto", "":
		if s := sendgridSender(); s != nil {
			return s, nil
		}
		if cfg.SESFromEmail != "" {
			return sesSender()
		}
		if s := smtpSender(); s != nil {
			return s, nil
		}
		logger.Warn("no email provider configured, reminders will only be logged")
		return NewStubEmailSender(logger), nil
	default:
		return nil, fmt.Errorf("notify: unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
}

// NewSMSSenderFromConfig returns Twilio when configured, otherwise the stub.
func NewSMSSenderFromConfig(cfg *config.Config, logger *logging.Logger) SMSSender {
	if s := NewTwilioSender(TwilioConfig{
		AccountSID: cfg.TwilioAccountSID, AuthToken: cfg.TwilioAuthToken, From: cfg.TwilioPhoneNumber,
	}, logger); s != nil {
		return s
	}
	if logger == nil {
		logger = logging.Default()
	}
	logger.Warn("twilio not configured, sms reminders will only be logged")
	return NewStubSMSSender(logger)
}
