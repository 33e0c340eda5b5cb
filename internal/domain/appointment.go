package domain

import (
	"fmt"
	"strings"
	"time"
)

// AppointmentStatus represents the attendance state of an appointment.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "SCHEDULED"
	AppointmentAttended  AppointmentStatus = "ATTENDED"
	AppointmentNoShow    AppointmentStatus = "NO_SHOW"
)

func (s AppointmentStatus) String() string { return string(s) }

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentScheduled, AppointmentAttended, AppointmentNoShow:
		return true
	}
	return false
}

func ParseAppointmentStatusFromString(s string) (AppointmentStatus, error) {
	st := AppointmentStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid appointment status %q", ErrValidation, s)
	}
	return st, nil
}

// Patient is read-only to the dispatch flow. Email is optional.
type Patient struct {
	ID         int64
	FullName   string
	Email      *string
	Phone      string
	NationalID string
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasEmail reports whether the patient can be reached by email.
func (p *Patient) HasEmail() bool {
	return p != nil && p.Email != nil && strings.TrimSpace(*p.Email) != ""
}

// Appointment is a scheduled session. SessionDate holds a calendar day
// anchored at local noon in the clinic time zone.
type Appointment struct {
	ID           int64
	PatientID    int64
	SessionDate  time.Time
	SessionTime  string
	Location     string
	Practitioner string
	ServiceType  string
	Status       AppointmentStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Patient *Patient
}

// PractitionerOr returns the appointment practitioner, or fallback when unset.
func (a *Appointment) PractitionerOr(fallback string) string {
	if a != nil {
		if name := strings.TrimSpace(a.Practitioner); name != "" {
			return name
		}
	}
	return fallback
}
