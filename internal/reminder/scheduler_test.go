package reminder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthcare-services/internal/model"
	"healthcare-services/internal/notify"
)

type memDue struct {
	appointments []model.Appointment
	horizons     []time.Time
	entered      chan struct{}
	gate         chan struct{}
	calls        atomic.Int32
}

func (m *memDue) ListAppointmentsDue(ctx context.Context, horizon time.Time) ([]model.Appointment, error) {
	m.calls.Add(1)
	m.horizons = append(m.horizons, horizon)
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.gate != nil {
		<-m.gate
	}
	var out []model.Appointment
	for _, a := range m.appointments {
		if !a.DateTime.After(horizon) {
			out = append(out, a)
		}
	}
	return out, nil
}

type sent struct {
	channel notify.Channel
	address string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sent
	fail map[string]bool
}

func (f *fakeNotifier) Notify(ctx context.Context, channel notify.Channel, address, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[address] {
		return errors.New("smtp: connection reset")
	}
	f.sent = append(f.sent, sent{channel, address})
	return nil
}

func ptr(s string) *string { return &s }

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func appt(id string, offset time.Duration, method model.ReminderMethod, email, phone *string) model.Appointment {
	return model.Appointment{
		ID: id, Doctor: "D1", Slot: "S1", DateTime: fixedNow.Add(offset),
		ReminderMethod: method, Email: email, Phone: phone,
	}
}

func newTestScheduler(due *memDue, n *fakeNotifier, opts ...Option) *Scheduler {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewScheduler(due, n, Config{}, nil, nil, opts...)
}

func TestSweepSelectsCumulativeWindow(t *testing.T) {
	due := &memDue{appointments: []model.Appointment{
		appt("past", -2*time.Hour, model.ReminderEmail, ptr("past@example.com"), nil),
		appt("soon", time.Hour, model.ReminderEmail, ptr("soon@example.com"), nil),
		appt("edge", 23*time.Hour, model.ReminderSMS, nil, ptr("+15550001")),
		appt("later", 25*time.Hour, model.ReminderEmail, ptr("later@example.com"), nil),
		appt("far", 48*time.Hour, model.ReminderEmail, ptr("far@example.com"), nil),
	}}
	n := &fakeNotifier{}
	s := newTestScheduler(due, n)

	res, err := s.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Due: 3, Sent: 3}, res)
	assert.Equal(t, []sent{
		{notify.ChannelEmail, "past@example.com"},
		{notify.ChannelEmail, "soon@example.com"},
		{notify.ChannelSMS, "+15550001"},
	}, n.sent)
	assert.Equal(t, fixedNow.Add(24*time.Hour), due.horizons[0])
}

func TestSweepRepeatsReminders(t *testing.T) {
	due := &memDue{appointments: []model.Appointment{
		appt("a", time.Hour, model.ReminderEmail, ptr("a@example.com"), nil),
	}}
	n := &fakeNotifier{}
	s := newTestScheduler(due, n)

	for i := 0; i < 2; i++ {
		_, err := s.Sweep(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, n.sent, 2)
}

func TestSweepSkipsMissingContact(t *testing.T) {
	due := &memDue{appointments: []model.Appointment{
		appt("sms-no-phone", time.Hour, model.ReminderSMS, ptr("a@example.com"), nil),
		appt("email-no-address", time.Hour, model.ReminderEmail, nil, ptr("+15550001")),
		appt("email-blank", time.Hour, model.ReminderEmail, ptr(""), nil),
	}}
	n := &fakeNotifier{}
	s := newTestScheduler(due, n)

	res, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Due: 3, Skipped: 3}, res)
	assert.Empty(t, n.sent)
}

func TestSweepContinuesAfterDispatchFailure(t *testing.T) {
	due := &memDue{appointments: []model.Appointment{
		appt("a", time.Hour, model.ReminderEmail, ptr("broken@example.com"), nil),
		appt("b", 2*time.Hour, model.ReminderEmail, ptr("ok@example.com"), nil),
	}}
	n := &fakeNotifier{fail: map[string]bool{"broken@example.com": true}}
	s := newTestScheduler(due, n)

	res, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Due: 2, Sent: 1, Failed: 1}, res)
	assert.Equal(t, []sent{{notify.ChannelEmail, "ok@example.com"}}, n.sent)
}

func TestSweepUsesConfiguredZone(t *testing.T) {
	due := &memDue{}
	lagos := time.FixedZone("WAT", 3600)
	s := NewScheduler(due, &fakeNotifier{}, Config{Location: lagos, Lookahead: 24 * time.Hour}, nil, nil,
		WithClock(func() time.Time { return fixedNow }))

	_, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 2, 13, 0, 0, 0, time.UTC), due.horizons[0])
}

func TestOverlappingSweepIsRejected(t *testing.T) {
	due := &memDue{entered: make(chan struct{}, 1), gate: make(chan struct{})}
	s := newTestScheduler(due, &fakeNotifier{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Sweep(context.Background())
		done <- err
	}()
	<-due.entered

	_, err := s.Sweep(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)

	close(due.gate)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), due.calls.Load())
}

type denyLocker struct{}

func (denyLocker) Acquire(context.Context) (func(context.Context) error, bool, error) {
	return nil, false, nil
}

func TestSweepRespectsExternalLock(t *testing.T) {
	due := &memDue{}
	s := newTestScheduler(due, &fakeNotifier{}, WithLocker(denyLocker{}))

	_, err := s.Sweep(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)
	assert.Zero(t, due.calls.Load())
}

type brokenLocker struct{}

func (brokenLocker) Acquire(context.Context) (func(context.Context) error, bool, error) {
	return nil, false, errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}

func TestSweepProceedsWhenLockBackendDown(t *testing.T) {
	due := &memDue{appointments: []model.Appointment{
		appt("a", time.Hour, model.ReminderEmail, ptr("a@x.io"), nil),
	}}
	n := &fakeNotifier{}
	s := newTestScheduler(due, n, WithLocker(brokenLocker{}))

	res, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, []sent{{notify.ChannelEmail, "a@x.io"}}, n.sent)
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	due := &memDue{}
	s := NewScheduler(due, &fakeNotifier{}, Config{Interval: 5 * time.Millisecond}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return due.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
