package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/clinic-dispatch/internal/repository"
	"gorm.io/gorm"
)

func createDispatchOutcomesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_dispatch_outcomes",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DispatchOutcomeModel{}); err != nil {
				return err
			}
			statements := []string{
				`CREATE INDEX IF NOT EXISTS idx_dispatch_outcomes_kind_dispatched ON dispatch_outcomes (kind, dispatched_at DESC)`,
				`ALTER TABLE dispatch_outcomes DROP CONSTRAINT IF EXISTS chk_dispatch_outcomes_error_detail`,
				`ALTER TABLE dispatch_outcomes ADD CONSTRAINT chk_dispatch_outcomes_error_detail CHECK ((result = 'ERROR') = (error_detail IS NOT NULL))`,
			}
			for _, sql := range statements {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DispatchOutcomeModel{})
		},
	}
}
