package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"healthcare-services/internal/auth"
	"healthcare-services/internal/model"
	"healthcare-services/internal/store"
)

const testSecret = "handler-test-secret"

func bearer(t *testing.T, username string) string {
	t.Helper()
	tok, err := auth.MakeToken(username, testSecret)
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(t *testing.T, h http.Handler, method, path, authz, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

type oracle struct {
	users map[string]bool
	err   error
}

func (o oracle) Exists(_ context.Context, username string) (bool, error) {
	if o.err != nil {
		return false, o.err
	}
	return o.users[username], nil
}

// appointmentRepo is an in-memory stand-in for the Postgres store.
type appointmentRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[string]model.Appointment
}

func newAppointmentRepo() *appointmentRepo {
	return &appointmentRepo{rows: map[string]model.Appointment{}}
}

func (r *appointmentRepo) taken(doctor string, at time.Time, slot, exclude string) bool {
	for id, a := range r.rows {
		if id != exclude && a.Doctor == doctor && a.DateTime.Equal(at) && a.Slot == slot {
			return true
		}
	}
	return false
}

func (r *appointmentRepo) CreateAppointment(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken(a.Doctor, a.DateTime, a.Slot, "") {
		return store.ErrConflict
	}
	r.seq++
	a.ID = fmt.Sprintf("%024d", r.seq)
	a.CreatedAt = time.Date(2024, 1, 1, 0, 0, r.seq, 0, time.UTC)
	a.UpdatedAt = a.CreatedAt
	r.rows[a.ID] = *a
	return nil
}

func (r *appointmentRepo) GetAppointment(_ context.Context, id string) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (r *appointmentRepo) ListAppointmentsByUser(_ context.Context, username string) ([]model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Appointment{}
	for _, a := range r.rows {
		if a.Username == username {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *appointmentRepo) SlotTaken(_ context.Context, doctor string, at time.Time, slot, exclude string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.taken(doctor, at, slot, exclude), nil
}

func (r *appointmentRepo) UpdateAppointment(_ context.Context, id string, ch model.AppointmentChanges) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	if ch.Doctor != nil {
		a.Doctor = *ch.Doctor
	}
	if ch.DateTime != nil {
		a.DateTime = *ch.DateTime
	}
	if ch.Slot != nil {
		a.Slot = *ch.Slot
	}
	if ch.Status != nil {
		a.Status = *ch.Status
	}
	if ch.Email != nil {
		a.Email = ch.Email
	}
	if ch.Phone != nil {
		a.Phone = ch.Phone
	}
	if ch.ReminderMethod != nil {
		a.ReminderMethod = *ch.ReminderMethod
	}
	r.rows[id] = a
	return nil
}

func (r *appointmentRepo) DeleteAppointment(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}
