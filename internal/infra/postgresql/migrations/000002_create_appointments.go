package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/clinic-dispatch/internal/repository"
	"gorm.io/gorm"
)

func createAppointmentsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_appointments",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.AppointmentModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_appointments_status_session ON appointments (status, session_date)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.AppointmentModel{})
		},
	}
}
