package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/clinic-dispatch/internal/repository"
	"gorm.io/gorm"
)

func createPatientsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_patients",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.PatientModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_patients_national_id ON patients (national_id) WHERE national_id <> ''`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.PatientModel{})
		},
	}
}
