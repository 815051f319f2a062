// Package reminder periodically sends reminders for upcoming appointments.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"healthcare-services/internal/metrics"
	"healthcare-services/internal/model"
	"healthcare-services/internal/notify"
	"healthcare-services/pkg/logging"
)

var sweepTracer = otel.Tracer("healthcare.internal.reminder")

// ErrSweepInProgress is returned when a sweep is requested while another holds the lock.
var ErrSweepInProgress = errors.New("reminder: sweep already in progress")

const (
	Subject = "Appointment Reminder"
	Body    = "Your appointment is scheduled for tomorrow."
)

type DueLister interface {
	ListAppointmentsDue(ctx context.Context, horizon time.Time) ([]model.Appointment, error)
}

type Notifier interface {
	Notify(ctx context.Context, channel notify.Channel, address, subject, body string) error
}

type Config struct {
	Interval  time.Duration
	Lookahead time.Duration
	// Location is the zone appointment wall-clock times are expressed in.
	Location *time.Location
}

// Result summarises one sweep.
type Result struct {
	Due     int
	Sent    int
	Skipped int
	Failed  int
}

type Scheduler struct {
	appointments DueLister
	notifier     Notifier
	locker       Locker
	cfg          Config
	now          func() time.Time
	logger       *logging.Logger
	metrics      *metrics.Metrics

	mu sync.Mutex
}

type Option func(*Scheduler)

func WithLocker(l Locker) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func NewScheduler(appointments DueLister, notifier Notifier, cfg Config, logger *logging.Logger, m *metrics.Metrics, opts ...Option) *Scheduler {
	if appointments == nil || notifier == nil {
		panic("reminder: appointments and notifier required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = 24 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Scheduler{
		appointments: appointments,
		notifier:     notifier,
		locker:       NoopLocker{},
		cfg:          cfg,
		now:          time.Now,
		logger:       logger,
		metrics:      m,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps once per interval until ctx is cancelled. Ticks that arrive
// while a sweep is still running are dropped by the ticker.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("reminder scheduler started", "interval", s.cfg.Interval.String(), "lookahead", s.cfg.Lookahead.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
			res, err := s.Sweep(ctx)
			switch {
			case errors.Is(err, ErrSweepInProgress):
				s.logger.Debug("reminder sweep skipped, another sweep holds the lock")
			case err != nil:
				s.logger.Error("reminder sweep failed", "error", err)
			default:
				s.logger.Info("reminder sweep finished", "due", res.Due, "sent", res.Sent, "skipped", res.Skipped, "failed", res.Failed)
			}
		}
	}
}

// Sweep sends one reminder for every appointment at or before now+lookahead.
// Appointments already reminded by an earlier sweep are reminded again.
func (s *Scheduler) Sweep(ctx context.Context) (Result, error) {
	if !s.mu.TryLock() {
		s.metrics.ObserveSweep("skipped", 0)
		return Result{}, ErrSweepInProgress
	}
	defer s.mu.Unlock()

	// An unreachable lock backend degrades to the in-process mutex above.
	release, ok, err := s.locker.Acquire(ctx)
	switch {
	case err != nil:
		s.logger.Warn("reminder lock unavailable, sweeping without it", "error", err)
	case !ok:
		s.metrics.ObserveSweep("skipped", 0)
		return Result{}, ErrSweepInProgress
	default:
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("reminder lock release failed", "error", err)
			}
		}()
	}

	started := time.Now()
	ctx, span := sweepTracer.Start(ctx, "reminder.sweep")
	defer span.End()

	horizon := model.WallClock(s.now().In(s.cfg.Location)).Add(s.cfg.Lookahead)
	due, err := s.appointments.ListAppointmentsDue(ctx, horizon)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveSweep("error", time.Since(started).Seconds())
		return Result{}, fmt.Errorf("reminder: list due: %w", err)
	}

	res := Result{Due: len(due)}
	for _, a := range due {
		channel, address, ok := target(a)
		if !ok {
			res.Skipped++
			continue
		}
		if err := s.notifier.Notify(ctx, channel, address, Subject, Body); err != nil {
			res.Failed++
			s.logger.Error("reminder dispatch failed", "error", err, "appointment_id", a.ID, "channel", string(channel))
			continue
		}
		res.Sent++
	}

	span.SetAttributes(
		attribute.Int("reminder.due", res.Due),
		attribute.Int("reminder.sent", res.Sent),
		attribute.Int("reminder.failed", res.Failed),
	)
	s.metrics.ObserveSweep("ok", time.Since(started).Seconds())
	return res, nil
}

// target picks the channel from the stored preference. An appointment whose
// preferred channel has no contact value is skipped.
func target(a model.Appointment) (notify.Channel, string, bool) {
	switch a.ReminderMethod {
	case model.ReminderEmail:
		if a.Email != nil && *a.Email != "" {
			return notify.ChannelEmail, *a.Email, true
		}
	case model.ReminderSMS:
		if a.Phone != nil && *a.Phone != "" {
			return notify.ChannelSMS, *a.Phone, true
		}
	}
	return "", "", false
}
