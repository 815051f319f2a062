// Package notify delivers reminder messages over email and SMS.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"healthcare-services/internal/metrics"
	"healthcare-services/pkg/logging"
)

var dispatchTracer = otel.Tracer("healthcare.internal.notify")

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

var (
	ErrUnknownChannel = errors.New("notify: unknown channel")
	ErrNoAddress      = errors.New("notify: address required")
)

const defaultDispatchTimeout = 10 * time.Second

// Dispatcher routes a message to the sender for its channel and bounds each
// delivery with a timeout.
type Dispatcher struct {
	email   EmailSender
	sms     SMSSender
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.Metrics
}

func NewDispatcher(email EmailSender, sms SMSSender, timeout time.Duration, logger *logging.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if email == nil {
		email = NewStubEmailSender(logger)
	}
	if sms == nil {
		sms = NewStubSMSSender(logger)
	}
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &Dispatcher{email: email, sms: sms, timeout: timeout, logger: logger, metrics: m}
}

func (d *Dispatcher) Notify(ctx context.Context, channel Channel, address, subject, body string) error {
	if address == "" {
		return ErrNoAddress
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	ctx, span := dispatchTracer.Start(ctx, "notify.dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("notify.channel", string(channel)))

	var err error
	switch channel {
	case ChannelEmail:
		err = d.email.Send(ctx, EmailMessage{To: address, Subject: subject, Body: body})
	case ChannelSMS:
		err = d.sms.SendSMS(ctx, address, body)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.metrics.ObserveDispatch(string(channel), "failed")
		return err
	}
	d.metrics.ObserveDispatch(string(channel), "sent")
	return nil
}
