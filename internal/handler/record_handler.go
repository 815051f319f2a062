package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"healthcare-services/internal/model"
	"healthcare-services/internal/store"
	"healthcare-services/pkg/logging"
)

type RecordStore interface {
	CreateRecord(ctx context.Context, r *model.MedicalRecord) error
	GetRecord(ctx context.Context, id string) (*model.MedicalRecord, error)
	ListRecords(ctx context.Context, userID string) ([]model.MedicalRecord, error)
	UpdateRecord(ctx context.Context, id string, ch model.MedicalRecordChanges) error
	DeleteRecord(ctx context.Context, id string) error
}

// RecordHandler serves medical records. Callers must already have passed
// Auth and RequireUser.
type RecordHandler struct {
	store  RecordStore
	logger *logging.Logger
}

func NewRecordHandler(st RecordStore, logger *logging.Logger) *RecordHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &RecordHandler{store: st, logger: logger}
}

var recordFields = []string{
	"user_id", "doctor_id", "record_type", "details",
	"patient_info", "medical_history", "consultation_details",
}

type recordView struct {
	ID                  string          `json:"_id"`
	UserID              string          `json:"user_id"`
	DoctorID            string          `json:"doctor_id"`
	RecordType          string          `json:"record_type"`
	Details             string          `json:"details"`
	PatientInfo         json.RawMessage `json:"patient_info"`
	MedicalHistory      json.RawMessage `json:"medical_history"`
	ConsultationDetails json.RawMessage `json:"consultation_details"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func toRecordView(rec *model.MedicalRecord) recordView {
	return recordView{
		ID:                  rec.ID,
		UserID:              rec.UserID,
		DoctorID:            rec.DoctorID,
		RecordType:          rec.RecordType,
		Details:             rec.Details,
		PatientInfo:         orEmptyDoc(rec.PatientInfo),
		MedicalHistory:      orEmptyDoc(rec.MedicalHistory),
		ConsultationDetails: orEmptyDoc(rec.ConsultationDetails),
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	}
}

func orEmptyDoc(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return raw
}

func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := decodeJSON(w, r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadJSON)
		return
	}
	for _, f := range recordFields {
		if _, ok := body[f]; !ok {
			writeMessage(w, http.StatusBadRequest, "Missing field: "+f)
			return
		}
	}

	ch, field, err := recordChanges(body)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid field: "+field)
		return
	}
	rec := &model.MedicalRecord{
		UserID:              *ch.UserID,
		DoctorID:            *ch.DoctorID,
		RecordType:          *ch.RecordType,
		Details:             *ch.Details,
		PatientInfo:         ch.PatientInfo,
		MedicalHistory:      ch.MedicalHistory,
		ConsultationDetails: ch.ConsultationDetails,
	}
	if err := h.store.CreateRecord(r.Context(), rec); err != nil {
		internalError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Record created successfully",
		"_id":     rec.ID,
	})
}

// List returns every record, or only those of ?user_id= when given.
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListRecords(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		internalError(w, r, h.logger, err)
		return
	}
	out := make([]recordView, len(list))
	for i := range list {
		out[i] = toRecordView(&list[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.GetRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Record not found")
			return
		}
		internalError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordView(rec))
}

func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := decodeJSON(w, r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadJSON)
		return
	}
	ch, field, err := recordChanges(body)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid field: "+field)
		return
	}
	if err := h.store.UpdateRecord(r.Context(), chi.URLParam(r, "id"), ch); err != nil {
		internalError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Record updated successfully")
}

func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteRecord(r.Context(), chi.URLParam(r, "id")); err != nil {
		internalError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Record deleted successfully")
}

// recordChanges picks the known fields out of body. Unknown keys are ignored.
// On a type mismatch it returns the offending field name.
func recordChanges(body map[string]json.RawMessage) (model.MedicalRecordChanges, string, error) {
	var ch model.MedicalRecordChanges
	strs := []struct {
		name string
		dst  **string
	}{
		{"user_id", &ch.UserID},
		{"doctor_id", &ch.DoctorID},
		{"record_type", &ch.RecordType},
		{"details", &ch.Details},
	}
	for _, f := range strs {
		raw, ok := body[f.name]
		if !ok {
			continue
		}
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return ch, f.name, err
		}
		*f.dst = &v
	}

	docs := []struct {
		name string
		dst  *json.RawMessage
	}{
		{"patient_info", &ch.PatientInfo},
		{"medical_history", &ch.MedicalHistory},
		{"consultation_details", &ch.ConsultationDetails},
	}
	for _, f := range docs {
		if raw, ok := body[f.name]; ok {
			*f.dst = raw
		}
	}
	return ch, "", nil
}
