package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateTimeLayout is the wire format for appointment times. It carries no zone.
const DateTimeLayout = "2006-01-02 15:04:05"

const (
	StatusScheduled   = "scheduled"
	StatusRescheduled = "rescheduled"
)

type ReminderMethod string

const (
	ReminderEmail ReminderMethod = "email"
	ReminderSMS   ReminderMethod = "sms"
)

func (m ReminderMethod) Valid() bool {
	return m == ReminderEmail || m == ReminderSMS
}

type User struct {
	ID             string
	Username       string
	PasswordHash   string
	Email          string
	Phone          string
	Role           string
	ProfilePicture *string
	MFAEnabled     bool
	EmailVerified  bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Appointment.DateTime holds the wall-clock time labelled UTC; see WallClock.
type Appointment struct {
	ID             string
	Username       string
	Doctor         string
	DateTime       time.Time
	Slot           string
	Status         string
	Email          *string
	Phone          *string
	ReminderMethod ReminderMethod
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AppointmentChanges is a partial update; nil fields are left untouched.
type AppointmentChanges struct {
	Doctor         *string
	DateTime       *time.Time
	Slot           *string
	Status         *string
	Email          *string
	Phone          *string
	ReminderMethod *ReminderMethod
}

func (c AppointmentChanges) Empty() bool {
	return c.Doctor == nil && c.DateTime == nil && c.Slot == nil && c.Status == nil &&
		c.Email == nil && c.Phone == nil && c.ReminderMethod == nil
}

// TouchesSlot reports whether the change moves the (doctor, date_time, slot) coordinate.
func (c AppointmentChanges) TouchesSlot() bool {
	return c.Doctor != nil || c.DateTime != nil || c.Slot != nil
}

type MedicalRecord struct {
	ID                  string
	UserID              string
	DoctorID            string
	RecordType          string
	Details             string
	PatientInfo         json.RawMessage
	MedicalHistory      json.RawMessage
	ConsultationDetails json.RawMessage
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// MedicalRecordChanges is a partial update of a medical record.
type MedicalRecordChanges struct {
	UserID              *string
	DoctorID            *string
	RecordType          *string
	Details             *string
	PatientInfo         json.RawMessage
	MedicalHistory      json.RawMessage
	ConsultationDetails json.RawMessage
}

// ParseDateTime parses the wire format strictly: the input must format back
// to itself, so fractional seconds are rejected.
func ParseDateTime(s string) (time.Time, error) {
	t, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	if t.Format(DateTimeLayout) != s {
		return time.Time{}, fmt.Errorf("model: date time %q is not in %q format", s, DateTimeLayout)
	}
	return t, nil
}

func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeLayout)
}

// WallClock drops t's zone and keeps its clock reading, labelled UTC, so it compares
// directly with stored appointment times.
func WallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
