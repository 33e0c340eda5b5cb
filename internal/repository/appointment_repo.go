package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/clinic-dispatch/internal/domain"
	"gorm.io/gorm"
)

// AppointmentRepository reads appointments together with their patient.
type AppointmentRepository interface {
	Create(ctx context.Context, a *domain.Appointment) error
	FindByID(ctx context.Context, id int64) (*domain.Appointment, error)
	FindManyByID(ctx context.Context, ids []int64) ([]domain.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status domain.AppointmentStatus) (*domain.Appointment, error)
}

type GormAppointmentRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormAppointmentRepo(db *gorm.DB) *GormAppointmentRepo {
	return &GormAppointmentRepo{db: db, now: time.Now}
}

func (r *GormAppointmentRepo) Create(ctx context.Context, a *domain.Appointment) error {
	model := appointmentModelFromDomain(a)
	if model == nil {
		return fmt.Errorf("%w: appointment is required", domain.ErrValidation)
	}
	if !model.Status.IsValid() {
		return fmt.Errorf("%w: invalid appointment status %q", domain.ErrValidation, model.Status)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	patient := a.Patient
	*a = *appointmentModelToDomain(model)
	a.Patient = patient
	return nil
}

func (r *GormAppointmentRepo) FindByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	var model AppointmentModel
	err := r.db.WithContext(ctx).
		Preload("Patient").
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: appointment %d", domain.ErrNotFound, id)
		}
		return nil, err
	}

	return appointmentModelToDomain(&model), nil
}

// FindManyByID loads every existing appointment among ids in one query.
// Missing ids are simply absent from the result.
func (r *GormAppointmentRepo) FindManyByID(ctx context.Context, ids []int64) ([]domain.Appointment, error) {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return nil, nil
	}

	var models []AppointmentModel
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Where("id IN ?", unique).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	appointments := make([]domain.Appointment, 0, len(models))
	for i := range models {
		appointments = append(appointments, *appointmentModelToDomain(&models[i]))
	}

	return appointments, nil
}

func (r *GormAppointmentRepo) UpdateStatus(ctx context.Context, id int64, status domain.AppointmentStatus) (*domain.Appointment, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: invalid appointment status %q", domain.ErrValidation, status)
	}

	result := r.db.WithContext(ctx).
		Model(&AppointmentModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": r.now().UTC(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: appointment %d", domain.ErrNotFound, id)
	}

	return r.FindByID(ctx, id)
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
