package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"healthcare-services/internal/model"
)

const recordColumns = `id, user_id, doctor_id, record_type, details,
		        patient_info, medical_history, consultation_details, created_at, updated_at`

func (s *Store) CreateRecord(ctx context.Context, r *model.MedicalRecord) error {
	id := uuid.New().String()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO medical_records
		   (id, user_id, doctor_id, record_type, details, patient_info, medical_history, consultation_details)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING created_at, updated_at`,
		id, r.UserID, r.DoctorID, r.RecordType, r.Details,
		jsonDoc(r.PatientInfo), jsonDoc(r.MedicalHistory), jsonDoc(r.ConsultationDetails),
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create record: %w", mapErr(err))
	}
	r.ID = id
	return nil
}

func (s *Store) GetRecord(ctx context.Context, id string) (*model.MedicalRecord, error) {
	r, err := scanRecord(s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM medical_records WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("store: get record: %w", mapErr(err))
	}
	return r, nil
}

// ListRecords returns all records, or only userID's when it is non-empty.
func (s *Store) ListRecords(ctx context.Context, userID string) ([]model.MedicalRecord, error) {
	q := `SELECT ` + recordColumns + ` FROM medical_records`
	var args []any
	if userID != "" {
		q += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	q += ` ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list records: %w", err)
	}
	defer rows.Close()

	out := []model.MedicalRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list records: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list records: %w", err)
	}
	return out, nil
}

// UpdateRecord writes the supplied fields and bumps updated_at.
func (s *Store) UpdateRecord(ctx context.Context, id string, ch model.MedicalRecordChanges) error {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}

	if ch.UserID != nil {
		set("user_id", *ch.UserID)
	}
	if ch.DoctorID != nil {
		set("doctor_id", *ch.DoctorID)
	}
	if ch.RecordType != nil {
		set("record_type", *ch.RecordType)
	}
	if ch.Details != nil {
		set("details", *ch.Details)
	}
	if ch.PatientInfo != nil {
		set("patient_info", jsonDoc(ch.PatientInfo))
	}
	if ch.MedicalHistory != nil {
		set("medical_history", jsonDoc(ch.MedicalHistory))
	}
	if ch.ConsultationDetails != nil {
		set("consultation_details", jsonDoc(ch.ConsultationDetails))
	}

	args = append(args, id)
	sets = append(sets, "updated_at=NOW()")
	q := fmt.Sprintf(`UPDATE medical_records SET %s WHERE id=$%d`, strings.Join(sets, ", "), len(args))

	if _, err := s.pool.Exec(ctx, q, args...); err != nil {
		return fmt.Errorf("store: update record: %w", err)
	}
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM medical_records WHERE id=$1`, id); err != nil {
		return fmt.Errorf("store: delete record: %w", err)
	}
	return nil
}

func scanRecord(row scanner) (*model.MedicalRecord, error) {
	var (
		r                      model.MedicalRecord
		patient, history, cons []byte
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.DoctorID, &r.RecordType, &r.Details,
		&patient, &history, &cons, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.PatientInfo = json.RawMessage(patient)
	r.MedicalHistory = json.RawMessage(history)
	r.ConsultationDetails = json.RawMessage(cons)
	return &r, nil
}

// jsonDoc sends raw JSON as text so Postgres casts it into the jsonb column.
func jsonDoc(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}
