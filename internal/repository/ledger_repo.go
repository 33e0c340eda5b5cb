package repository

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/clinic-dispatch/internal/domain"
	"gorm.io/gorm"
)

const DefaultHistoryLimit = 50

// LedgerRepository is the append-only store of dispatch outcomes.
type LedgerRepository interface {
	Append(ctx context.Context, o *domain.DispatchOutcome) error
	ListRecent(ctx context.Context, limit int) ([]domain.DispatchRecord, error)
}

type GormLedgerRepo struct {
	db *gorm.DB
}

func NewGormLedgerRepo(db *gorm.DB) *GormLedgerRepo {
	return &GormLedgerRepo{db: db}
}

func (r *GormLedgerRepo) Append(ctx context.Context, o *domain.DispatchOutcome) error {
	model := outcomeModelFromDomain(o)
	if model == nil {
		return fmt.Errorf("%w: outcome is required", domain.ErrValidation)
	}
	if model.ID == "" {
		return fmt.Errorf("%w: outcome id is required", domain.ErrValidation)
	}
	if (model.Result == domain.ResultError) != (model.ErrorDetail != nil) {
		return fmt.Errorf("%w: error detail must be set exactly for ERROR outcomes", domain.ErrValidation)
	}

	return r.db.WithContext(ctx).Omit("Appointment", "Patient").Create(model).Error
}

// ListRecent returns the newest outcomes first, joined with patient and
// appointment display data.
func (r *GormLedgerRepo) ListRecent(ctx context.Context, limit int) ([]domain.DispatchRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var models []DispatchOutcomeModel
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Preload("Appointment").
		Order("dispatched_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	records := make([]domain.DispatchRecord, 0, len(models))
	for i := range models {
		records = append(records, outcomeModelToRecord(&models[i]))
	}

	return records, nil
}
