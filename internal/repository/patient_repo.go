package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/kursadbilgin/clinic-dispatch/internal/domain"
	"gorm.io/gorm"
)

type PatientRepository interface {
	Create(ctx context.Context, p *domain.Patient) error
	GetByID(ctx context.Context, id int64) (*domain.Patient, error)
}

type GormPatientRepo struct {
	db *gorm.DB
}

func NewGormPatientRepo(db *gorm.DB) *GormPatientRepo {
	return &GormPatientRepo{db: db}
}

func (r *GormPatientRepo) Create(ctx context.Context, p *domain.Patient) error {
	model := patientModelFromDomain(p)
	if model == nil {
		return fmt.Errorf("%w: patient is required", domain.ErrValidation)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	*p = *patientModelToDomain(model)
	return nil
}

func (r *GormPatientRepo) GetByID(ctx context.Context, id int64) (*domain.Patient, error) {
	var model PatientModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: patient %d", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return patientModelToDomain(&model), nil
}
