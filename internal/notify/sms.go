package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"healthcare-services/pkg/logging"
)

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender sends SMS through the Twilio Messages API.
type TwilioSender struct {
	messages messageCreator
	from     string
	logger   *logging.Logger
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

// NewTwilioSender returns nil unless credentials and a sender number are set.
func NewTwilioSender(cfg TwilioConfig, logger *logging.Logger) *TwilioSender {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSender{messages: client.Api, from: cfg.From, logger: logger}
}

func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	if strings.TrimSpace(body) == "" {
		return errors.New("notify: sms body required")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("notify: twilio send: %w", err)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	// the twilio client takes no context; run it aside so ctx still bounds the wait
	type result struct {
		msg *twilioApi.ApiV2010Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		m, err := s.messages.CreateMessage(params)
		done <- result{m, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			s.logger.Error("twilio send failed", "error", r.err, "to", to)
			return fmt.Errorf("notify: twilio send failed: %w", r.err)
		}
		sid := ""
		if r.msg != nil && r.msg.Sid != nil {
			sid = *r.msg.Sid
		}
		s.logger.Info("sms sent via twilio", "to", to, "sid", sid)
		return nil
	case <-ctx.Done():
		s.logger.Error("twilio send timed out", "error", ctx.Err(), "to", to)
		return fmt.Errorf("notify: twilio send: %w", ctx.Err())
	}
}

// StubSMSSender logs instead of sending.
type StubSMSSender struct {
	logger *logging.Logger
}

func NewStubSMSSender(logger *logging.Logger) *StubSMSSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubSMSSender{logger: logger}
}

func (s *StubSMSSender) SendSMS(ctx context.Context, to, body string) error {
	s.logger.Info("stub sms sender: would send sms", "to", to)
	return nil
}

var (
	_ SMSSender = (*TwilioSender)(nil)
	_ SMSSender = (*StubSMSSender)(nil)
)
