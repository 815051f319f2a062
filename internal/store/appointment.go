package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"healthcare-services/internal/model"
)

const appointmentColumns = `id, username, doctor, date_time, slot, status,
		        email, phone, reminder_method, created_at, updated_at`

// CreateAppointment inserts a and fills in its generated id and timestamps.
// A booking that collides with the unique (doctor, date_time, slot) index returns ErrConflict.
func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	id := uuid.New().String()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO appointments (id,username,doctor,date_time,slot,status,email,phone,reminder_method)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING created_at, updated_at`,
		id, a.Username, a.Doctor, a.DateTime, a.Slot, a.Status, a.Email, a.Phone, string(a.ReminderMethod),
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create appointment: %w", mapErr(err))
	}
	a.ID = id
	return nil
}

// SlotTaken reports whether another appointment already holds the exact
// (doctor, date_time, slot) coordinate. excludeID, when set, is left out of the check.
func (s *Store) SlotTaken(ctx context.Context, doctor string, at time.Time, slot, excludeID string) (bool, error) {
	q := `SELECT EXISTS(
		SELECT 1 FROM appointments
		WHERE doctor = $1
		  AND date_time = $2
		  AND slot = $3`

	args := []any{doctor, at, slot}

	if excludeID != "" {
		q += ` AND id <> $4`
		args = append(args, excludeID)
	}
	q += `)`

	var exists bool
	if err := s.pool.QueryRow(ctx, q, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("store: slot taken: %w", err)
	}
	return exists, nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments WHERE id = $1`, id,
	))
	if err != nil {
		return nil, fmt.Errorf("store: get appointment: %w", mapErr(err))
	}
	return a, nil
}

// ListAppointmentsByUser returns the user's appointments in insertion order.
func (s *Store) ListAppointmentsByUser(ctx context.Context, username string) ([]model.Appointment, error) {
	return s.listAppointments(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE username = $1
		 ORDER BY created_at, id`, username)
}

// ListAppointmentsDue returns every appointment at or before horizon. Past
// appointments are included; callers decide what to do with them.
func (s *Store) ListAppointmentsDue(ctx context.Context, horizon time.Time) ([]model.Appointment, error) {
	return s.listAppointments(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE date_time <= $1
		 ORDER BY date_time, id`, horizon)
}

// UpdateAppointment writes the supplied fields in a single statement.
func (s *Store) UpdateAppointment(ctx context.Context, id string, ch model.AppointmentChanges) error {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}

	if ch.Doctor != nil {
		set("doctor", *ch.Doctor)
	}
	if ch.DateTime != nil {
		set("date_time", *ch.DateTime)
	}
	if ch.Slot != nil {
		set("slot", *ch.Slot)
	}
	if ch.Status != nil {
		set("status", *ch.Status)
	}
	if ch.Email != nil {
		set("email", *ch.Email)
	}
	if ch.Phone != nil {
		set("phone", *ch.Phone)
	}
	if ch.ReminderMethod != nil {
		set("reminder_method", string(*ch.ReminderMethod))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE appointments SET %s, updated_at=NOW() WHERE id=$%d`,
		strings.Join(sets, ", "), len(args))

	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("store: update appointment: %w", mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("store: update appointment: %w", ErrNotFound)
	}
	return nil
}

// DeleteAppointment removes the row. Deleting a missing id is not an error.
func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE id=$1`, id); err != nil {
		return fmt.Errorf("store: delete appointment: %w", err)
	}
	return nil
}

func (s *Store) listAppointments(ctx context.Context, q string, args ...any) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list appointments: %w", err)
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list appointments: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list appointments: %w", err)
	}
	return out, nil
}

func scanAppointment(row scanner) (*model.Appointment, error) {
	var (
		a      model.Appointment
		method string
	)
	if err := row.Scan(
		&a.ID, &a.Username, &a.Doctor, &a.DateTime, &a.Slot, &a.Status,
		&a.Email, &a.Phone, &method, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.ReminderMethod = model.ReminderMethod(method)
	return &a, nil
}
