package service

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/clinic-dispatch/internal/domain"
	"github.com/kursadbilgin/clinic-dispatch/internal/observability"
	"github.com/kursadbilgin/clinic-dispatch/internal/repository"
	"go.uber.org/zap"
)

// AppointmentService applies the attendance answers patients give through
// the links in confirmation emails.
type AppointmentService struct {
	appointments repository.AppointmentRepository
	logger       *zap.Logger
}

func NewAppointmentService(appointments repository.AppointmentRepository, logger *zap.Logger) (*AppointmentService, error) {
	if appointments == nil {
		return nil, fmt.Errorf("appointment repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentService{appointments: appointments, logger: logger}, nil
}

// Confirm marks the appointment as attended.
func (s *AppointmentService) Confirm(ctx context.Context, id int64) (*domain.Appointment, error) {
	return s.setStatus(ctx, id, domain.AppointmentAttended)
}

// Decline marks the appointment as a no-show.
func (s *AppointmentService) Decline(ctx context.Context, id int64) (*domain.Appointment, error) {
	return s.setStatus(ctx, id, domain.AppointmentNoShow)
}

func (s *AppointmentService) setStatus(ctx context.Context, id int64, status domain.AppointmentStatus) (*domain.Appointment, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid appointment id %d", domain.ErrValidation, id)
	}

	appointment, err := s.appointments.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	observability.LoggerFor(ctx, s.logger).Info("appointment status updated",
		zap.Int64("appointmentId", id),
		zap.String("status", status.String()),
	)
	return appointment, nil
}
