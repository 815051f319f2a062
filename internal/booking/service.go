// Package booking owns the appointment lifecycle: validation, the user
// existence check, slot conflict detection and persistence.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"healthcare-services/internal/metrics"
	"healthcare-services/internal/model"
	"healthcare-services/internal/store"
	"healthcare-services/internal/userclient"
	"healthcare-services/pkg/logging"
)

// Repository is the persistence the service needs; *store.Store implements it.
type Repository interface {
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	ListAppointmentsByUser(ctx context.Context, username string) ([]model.Appointment, error)
	SlotTaken(ctx context.Context, doctor string, at time.Time, slot, excludeID string) (bool, error)
	UpdateAppointment(ctx context.Context, id string, ch model.AppointmentChanges) error
	DeleteAppointment(ctx context.Context, id string) error
}

type UserOracle interface {
	Exists(ctx context.Context, username string) (bool, error)
}

type CreateInput struct {
	Doctor         string
	DateTime       string
	Slot           string
	Email          *string
	Phone          *string
	ReminderMethod string
}

// UpdateInput carries only the fields the caller supplied.
type UpdateInput struct {
	Doctor         *string
	DateTime       *string
	Slot           *string
	Status         *string
	Email          *string
	Phone          *string
	ReminderMethod *string
}

type Service struct {
	repo    Repository
	users   UserOracle
	logger  *logging.Logger
	metrics *metrics.Metrics
}

func NewService(repo Repository, users UserOracle, logger *logging.Logger, m *metrics.Metrics) *Service {
	if repo == nil {
		panic("booking: repository required")
	}
	if users == nil {
		panic("booking: user oracle required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, users: users, logger: logger, metrics: m}
}

// Create books a new appointment for identity and returns its id.
func (s *Service) Create(ctx context.Context, identity string, in CreateInput) (string, error) {
	id, err := s.create(ctx, identity, in)
	s.metrics.ObserveBooking("create", outcome(err))
	return id, err
}

func (s *Service) create(ctx context.Context, identity string, in CreateInput) (string, error) {
	switch {
	case strings.TrimSpace(in.Doctor) == "":
		return "", missingField("doctor")
	case strings.TrimSpace(in.DateTime) == "":
		return "", missingField("date_time")
	case strings.TrimSpace(in.Slot) == "":
		return "", missingField("slot")
	}

	at, err := model.ParseDateTime(in.DateTime)
	if err != nil {
		return "", msgInvalidDate
	}

	method := model.ReminderEmail
	if in.ReminderMethod != "" {
		method = model.ReminderMethod(in.ReminderMethod)
		if !method.Valid() {
			return "", msgInvalidMethod
		}
	}

	if err := s.checkUser(ctx, identity); err != nil {
		return "", err
	}

	taken, err := s.repo.SlotTaken(ctx, in.Doctor, at, in.Slot, "")
	if err != nil {
		return "", fmt.Errorf("booking: create: %w", err)
	}
	if taken {
		return "", ErrSlotConflict
	}

	a := &model.Appointment{
		Username:       identity,
		Doctor:         in.Doctor,
		DateTime:       at,
		Slot:           in.Slot,
		Status:         model.StatusScheduled,
		Email:          in.Email,
		Phone:          in.Phone,
		ReminderMethod: method,
	}
	if err := s.repo.CreateAppointment(ctx, a); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// lost the check-then-insert race; the unique index caught it
			return "", ErrSlotConflict
		}
		return "", fmt.Errorf("booking: create: %w", err)
	}

	s.logger.Info("appointment created", "id", a.ID, "username", identity, "doctor", a.Doctor,
		"date_time", model.FormatDateTime(a.DateTime), "slot", a.Slot)
	return a.ID, nil
}

func (s *Service) checkUser(ctx context.Context, identity string) error {
	ok, err := s.users.Exists(ctx, identity)
	if err != nil {
		if errors.Is(err, userclient.ErrUnavailable) {
			s.logger.Warn("user existence check failed", "username", identity, "error", err)
			return ErrUpstreamUnavailable
		}
		return fmt.Errorf("booking: check user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Appointment, error) {
	a, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("booking: get: %w", err)
	}
	return a, nil
}

// ListForUser returns identity's appointments; none is an empty slice.
func (s *Service) ListForUser(ctx context.Context, identity string) ([]model.Appointment, error) {
	out, err := s.repo.ListAppointmentsByUser(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("booking: list: %w", err)
	}
	if out == nil {
		out = []model.Appointment{}
	}
	return out, nil
}

// Update applies the supplied fields. When the change moves the appointment
// to another (doctor, date_time, slot) the merged coordinate is checked
// against every other booking before anything is written.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) error {
	err := s.update(ctx, id, in)
	s.metrics.ObserveBooking("update", outcome(err))
	return err
}

func (s *Service) update(ctx context.Context, id string, in UpdateInput) error {
	ch, err := in.changes()
	if err != nil {
		return err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if ch.Empty() {
		return nil
	}

	if ch.TouchesSlot() {
		doctor, at, slot := current.Doctor, current.DateTime, current.Slot
		if ch.Doctor != nil {
			doctor = *ch.Doctor
		}
		if ch.DateTime != nil {
			at = *ch.DateTime
		}
		if ch.Slot != nil {
			slot = *ch.Slot
		}
		taken, err := s.repo.SlotTaken(ctx, doctor, at, slot, id)
		if err != nil {
			return fmt.Errorf("booking: update: %w", err)
		}
		if taken {
			return ErrSlotConflict
		}
	}

	if err := s.repo.UpdateAppointment(ctx, id, ch); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return ErrSlotConflict
		case errors.Is(err, store.ErrNotFound):
			return ErrNotFound
		}
		return fmt.Errorf("booking: update: %w", err)
	}
	s.logger.Info("appointment updated", "id", id)
	return nil
}

// changes validates the input and converts it to a store change set.
func (in UpdateInput) changes() (model.AppointmentChanges, error) {
	if in.Doctor != nil && strings.TrimSpace(*in.Doctor) == "" {
		return model.AppointmentChanges{}, missingField("doctor")
	}
	if in.Slot != nil && strings.TrimSpace(*in.Slot) == "" {
		return model.AppointmentChanges{}, missingField("slot")
	}
	ch := model.AppointmentChanges{
		Doctor: in.Doctor,
		Slot:   in.Slot,
		Status: in.Status,
		Email:  in.Email,
		Phone:  in.Phone,
	}
	if in.DateTime != nil {
		at, err := model.ParseDateTime(*in.DateTime)
		if err != nil {
			return ch, msgInvalidDate
		}
		ch.DateTime = &at
	}
	if in.ReminderMethod != nil {
		m := model.ReminderMethod(*in.ReminderMethod)
		if !m.Valid() {
			return ch, msgInvalidMethod
		}
		ch.ReminderMethod = &m
	}
	return ch, nil
}

// Delete removes the appointment. Deleting a missing id succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteAppointment(ctx, id); err != nil {
		s.metrics.ObserveBooking("delete", "error")
		return fmt.Errorf("booking: delete: %w", err)
	}
	s.metrics.ObserveBooking("delete", "ok")
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	case errors.Is(err, ErrSlotConflict):
		return "conflict"
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
