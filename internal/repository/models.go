package repository

import (
	"time"

	"github.com/kursadbilgin/clinic-dispatch/internal/domain"
)

// PatientModel is the persistence model for the patients table.
type PatientModel struct {
	ID         int64   `gorm:"primaryKey;autoIncrement"`
	FullName   string  `gorm:"type:varchar(200);not null"`
	Email      *string `gorm:"type:varchar(255)"`
	Phone      string  `gorm:"type:varchar(40);not null;default:''"`
	NationalID string  `gorm:"type:varchar(20);not null;default:''"`
	Notes      string  `gorm:"type:text;not null;default:''"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (PatientModel) TableName() string {
	return "patients"
}

// AppointmentModel is the persistence model for the appointments table.
// SessionDate holds the calendar day anchored at local noon.
type AppointmentModel struct {
	ID           int64                    `gorm:"primaryKey;autoIncrement"`
	PatientID    int64                    `gorm:"not null;index"`
	SessionDate  time.Time                `gorm:"not null;index"`
	SessionTime  string                   `gorm:"type:varchar(5);not null"`
	Location     string                   `gorm:"type:varchar(200);not null;default:''"`
	Practitioner string                   `gorm:"type:varchar(200);not null;default:''"`
	ServiceType  string                   `gorm:"type:varchar(100);not null;default:''"`
	Status       domain.AppointmentStatus `gorm:"type:varchar(20);not null;default:'SCHEDULED'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Patient *PatientModel `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
}

func (AppointmentModel) TableName() string {
	return "appointments"
}

// DispatchOutcomeModel is the persistence model for the append-only
// dispatch_outcomes ledger.
type DispatchOutcomeModel struct {
	ID            string                `gorm:"type:uuid;primaryKey"`
	Kind          domain.DispatchKind   `gorm:"type:varchar(30);not null"`
	AppointmentID int64                 `gorm:"not null;index"`
	PatientID     int64                 `gorm:"not null;index"`
	DispatchedAt  time.Time             `gorm:"not null;index"`
	Result        domain.DispatchResult `gorm:"type:varchar(10);not null"`
	ErrorDetail   *string               `gorm:"type:text"`
	ErrorKind     *string               `gorm:"type:varchar(20)"`
	Transport     string                `gorm:"type:varchar(20);not null;default:''"`

	Appointment *AppointmentModel `gorm:"foreignKey:AppointmentID;constraint:OnDelete:CASCADE"`
	Patient     *PatientModel     `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
}

func (DispatchOutcomeModel) TableName() string {
	return "dispatch_outcomes"
}

func patientModelFromDomain(p *domain.Patient) *PatientModel {
	if p == nil {
		return nil
	}

	return &PatientModel{
		ID:         p.ID,
		FullName:   p.FullName,
		Email:      p.Email,
		Phone:      p.Phone,
		NationalID: p.NationalID,
		Notes:      p.Notes,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func patientModelToDomain(m *PatientModel) *domain.Patient {
	if m == nil {
		return nil
	}

	return &domain.Patient{
		ID:         m.ID,
		FullName:   m.FullName,
		Email:      m.Email,
		Phone:      m.Phone,
		NationalID: m.NationalID,
		Notes:      m.Notes,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func appointmentModelFromDomain(a *domain.Appointment) *AppointmentModel {
	if a == nil {
		return nil
	}

	status := a.Status
	if status == "" {
		status = domain.AppointmentScheduled
	}

	return &AppointmentModel{
		ID:           a.ID,
		PatientID:    a.PatientID,
		SessionDate:  a.SessionDate,
		SessionTime:  a.SessionTime,
		Location:     a.Location,
		Practitioner: a.Practitioner,
		ServiceType:  a.ServiceType,
		Status:       status,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func appointmentModelToDomain(m *AppointmentModel) *domain.Appointment {
	if m == nil {
		return nil
	}

	return &domain.Appointment{
		ID:           m.ID,
		PatientID:    m.PatientID,
		SessionDate:  m.SessionDate,
		SessionTime:  m.SessionTime,
		Location:     m.Location,
		Practitioner: m.Practitioner,
		ServiceType:  m.ServiceType,
		Status:       m.Status,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		Patient:      patientModelToDomain(m.Patient),
	}
}

func outcomeModelFromDomain(o *domain.DispatchOutcome) *DispatchOutcomeModel {
	if o == nil {
		return nil
	}

	return &DispatchOutcomeModel{
		ID:            o.ID,
		Kind:          o.Kind,
		AppointmentID: o.AppointmentID,
		PatientID:     o.PatientID,
		DispatchedAt:  o.DispatchedAt,
		Result:        o.Result,
		ErrorDetail:   o.ErrorDetail,
		ErrorKind:     o.ErrorKind,
		Transport:     o.Transport,
	}
}

func outcomeModelToDomain(m *DispatchOutcomeModel) *domain.DispatchOutcome {
	if m == nil {
		return nil
	}

	return &domain.DispatchOutcome{
		ID:            m.ID,
		Kind:          m.Kind,
		AppointmentID: m.AppointmentID,
		PatientID:     m.PatientID,
		DispatchedAt:  m.DispatchedAt,
		Result:        m.Result,
		ErrorDetail:   m.ErrorDetail,
		ErrorKind:     m.ErrorKind,
		Transport:     m.Transport,
	}
}

func outcomeModelToRecord(m *DispatchOutcomeModel) domain.DispatchRecord {
	record := domain.DispatchRecord{DispatchOutcome: *outcomeModelToDomain(m)}

	if m.Patient != nil {
		record.PatientName = m.Patient.FullName
		record.PatientEmail = m.Patient.Email
	}
	if m.Appointment != nil {
		sessionDate := m.Appointment.SessionDate
		record.SessionDate = &sessionDate
		record.SessionTime = m.Appointment.SessionTime
		record.Location = m.Appointment.Location
	}

	return record
}
