package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"healthcare-services/internal/booking"
	"healthcare-services/internal/middleware"
	"healthcare-services/internal/model"
	"healthcare-services/pkg/logging"
)

type AppointmentService interface {
	Create(ctx context.Context, identity string, in booking.CreateInput) (string, error)
	Get(ctx context.Context, id string) (*model.Appointment, error)
	ListForUser(ctx context.Context, identity string) ([]model.Appointment, error)
	Update(ctx context.Context, id string, in booking.UpdateInput) error
	Delete(ctx context.Context, id string) error
}

type AppointmentHandler struct {
	svc    AppointmentService
	logger *logging.Logger
}

func NewAppointmentHandler(svc AppointmentService, logger *logging.Logger) *AppointmentHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentHandler{svc: svc, logger: logger}
}

type createAppointmentRequest struct {
	Doctor         string  `json:"doctor"`
	DateTime       string  `json:"date_time"`
	Slot           string  `json:"slot"`
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
	ReminderMethod string  `json:"reminder_method"`
}

type updateAppointmentRequest struct {
	Doctor         *string `json:"doctor"`
	DateTime       *string `json:"date_time"`
	Slot           *string `json:"slot"`
	Status         *string `json:"status"`
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
	ReminderMethod *string `json:"reminder_method"`
}

type appointmentView struct {
	ID             string    `json:"_id"`
	Username       string    `json:"username"`
	Doctor         string    `json:"doctor"`
	DateTime       string    `json:"date_time"`
	Slot           string    `json:"slot"`
	Status         string    `json:"status"`
	Email          *string   `json:"email"`
	Phone          *string   `json:"phone"`
	ReminderMethod string    `json:"reminder_method"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toAppointmentView(a *model.Appointment) appointmentView {
	return appointmentView{
		ID:             a.ID,
		Username:       a.Username,
		Doctor:         a.Doctor,
		DateTime:       model.FormatDateTime(a.DateTime),
		Slot:           a.Slot,
		Status:         a.Status,
		Email:          a.Email,
		Phone:          a.Phone,
		ReminderMethod: string(a.ReminderMethod),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	var req createAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadJSON)
		return
	}

	id, err := h.svc.Create(r.Context(), identity, booking.CreateInput{
		Doctor:         req.Doctor,
		DateTime:       req.DateTime,
		Slot:           req.Slot,
		Email:          req.Email,
		Phone:          req.Phone,
		ReminderMethod: req.ReminderMethod,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Appointment created successfully",
		"_id":     id,
	})
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentView(a))
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	list, err := h.svc.ListForUser(r.Context(), identity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]appointmentView, len(list))
	for i := range list {
		out[i] = toAppointmentView(&list[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadJSON)
		return
	}

	err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), booking.UpdateInput{
		Doctor:         req.Doctor,
		DateTime:       req.DateTime,
		Slot:           req.Slot,
		Status:         req.Status,
		Email:          req.Email,
		Phone:          req.Phone,
		ReminderMethod: req.ReminderMethod,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Appointment updated successfully")
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Appointment deleted successfully")
}

func (h *AppointmentHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, "User does not exist")
	case errors.Is(err, booking.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Appointment not found")
	case errors.Is(err, booking.ErrSlotConflict):
		writeMessage(w, http.StatusConflict, "Appointment slot is already booked")
	case errors.Is(err, booking.ErrUpstreamUnavailable):
		writeMessage(w, http.StatusServiceUnavailable, "User service unavailable")
	default:
		internalError(w, r, h.logger, err)
	}
}
