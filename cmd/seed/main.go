package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"time"
	_ "time/tzdata"

	"github.com/Netflix/go-env"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/kursadbilgin/clinic-dispatch/internal/infra/postgresql"
	"github.com/kursadbilgin/clinic-dispatch/internal/infra/postgresql/migrations"
	"github.com/kursadbilgin/clinic-dispatch/internal/observability"
	"github.com/kursadbilgin/clinic-dispatch/internal/repository"
	"go.uber.org/zap"
)

type seedConfig struct {
	DatabaseDSN    string `env:"DATABASE_DSN,required=true"`
	ClinicTimezone string `env:"CLINIC_TIMEZONE,default=America/Santiago"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`
}

var practitioners = []string{"Klgo. Matias Fuentes", "Klga. Daniela Rojas", "Klga. Camila Soto"}

func main() {
	patients := flag.Int("patients", 25, "number of patients to create")
	seed := flag.Uint64("seed", 0, "random seed (0 picks one)")
	statuses := flag.String("statuses", "", "comma separated appointment statuses to cycle through (default all)")
	around := flag.String("around", "", "yyyy-mm-dd day the sessions are spread around (default today)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}
	var cfg seedConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	opts := seedOptions{patients: *patients, seed: *seed, statuses: *statuses, around: *around}
	if err := run(cfg, opts, logger); err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
}

type seedOptions struct {
	patients int
	seed     uint64
	statuses string
	around   string
}

func run(cfg seedConfig, opts seedOptions, logger *zap.Logger) error {
	loc, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		return fmt.Errorf("invalid CLINIC_TIMEZONE %q: %w", cfg.ClinicTimezone, err)
	}
	statuses, err := parseStatuses(opts.statuses)
	if err != nil {
		return err
	}
	around, err := parseAround(opts.around, time.Now(), loc)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := postgresql.NewPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	if err := migrations.Migrate(db); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}

	patientRepo := repository.NewGormPatientRepo(db)
	appointmentRepo := repository.NewGormAppointmentRepo(db)

	logger.Info("seed starting", zap.Int("patients", opts.patients), zap.Time("around", around))

	appointments := 0
	for _, f := range buildFixtures(gofakeit.New(opts.seed), opts.patients, practitioners, statuses, around, loc) {
		patient := f.Patient
		if err := patientRepo.Create(ctx, &patient); err != nil {
			return fmt.Errorf("create patient %s: %w", patient.FullName, err)
		}
		for _, appointment := range f.Appointments {
			appointment.PatientID = patient.ID
			if err := appointmentRepo.Create(ctx, &appointment); err != nil {
				return fmt.Errorf("create appointment for patient %d: %w", patient.ID, err)
			}
			appointments++
		}
	}

	logger.Info("seed complete", zap.Int("patients", opts.patients), zap.Int("appointments", appointments))
	return nil
}
