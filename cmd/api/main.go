package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kursadbilgin/clinic-dispatch/internal/config"
	"github.com/kursadbilgin/clinic-dispatch/internal/events"
	"github.com/kursadbilgin/clinic-dispatch/internal/handler"
	"github.com/kursadbilgin/clinic-dispatch/internal/infra/postgresql"
	"github.com/kursadbilgin/clinic-dispatch/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/clinic-dispatch/internal/infra/redis"
	"github.com/kursadbilgin/clinic-dispatch/internal/mailer"
	"github.com/kursadbilgin/clinic-dispatch/internal/observability"
	"github.com/kursadbilgin/clinic-dispatch/internal/render"
	"github.com/kursadbilgin/clinic-dispatch/internal/repository"
	"github.com/kursadbilgin/clinic-dispatch/internal/service"
	"github.com/kursadbilgin/clinic-dispatch/internal/transport"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("clinic-dispatch api stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := postgresql.NewPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	if err := migrations.Migrate(db); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	defer sqlDB.Close()

	gateway, err := mailer.New(mailer.Config{
		Transport: cfg.MailTransport,
		Timeout:   cfg.MailTimeout(),
		SMTP: mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			Secure:   cfg.SMTPSecure,
		},
		Resend: mailer.ResendConfig{
			APIKey:  cfg.ResendAPIKey,
			BaseURL: cfg.ResendBaseURL,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("mail gateway initialization failed: %w", err)
	}

	logoPath, logoFound := render.LocateLogo(cfg.LogoPath)
	if logoFound {
		logger.Info("clinic logo found", zap.String("path", logoPath))
	} else {
		logoPath = ""
		logger.Warn("clinic logo not found, emails will use a text header", zap.String("path", cfg.LogoPath))
	}

	renderer := render.NewRenderer(render.Clinic{
		Name:          cfg.ClinicName,
		Location:      loc,
		LogoAvailable: logoFound,
	})

	metrics := observability.NewMetrics()
	appointmentRepo := repository.NewGormAppointmentRepo(db)
	ledgerRepo := repository.NewGormLedgerRepo(db)

	dispatchService, err := service.NewDispatchService(appointmentRepo, ledgerRepo, gateway, renderer, service.DispatchConfig{
		From:                cfg.MailFrom,
		BaseURL:             cfg.BaseURL,
		DefaultPractitioner: cfg.DefaultPractitioner,
		LogoPath:            logoPath,
		HistoryLimit:        cfg.HistoryLimit,
	}, logger)
	if err != nil {
		return err
	}
	dispatchService.SetMetrics(metrics)

	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		rdb, err = infraredis.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis initialization failed: %w", err)
		}
		defer rdb.Close()

		limiter, err := infraredis.NewSendLimiter(rdb, cfg.RateLimitPerSec)
		if err != nil {
			return err
		}
		dispatchService.SetRateLimiter(limiter)
	} else {
		logger.Info("REDIS_URL not set, provider sends are not rate limited")
	}

	if cfg.RabbitMQURL != "" {
		client, err := events.NewRabbitMQ(ctx, cfg.RabbitMQURL)
		if err != nil {
			return fmt.Errorf("rabbitmq initialization failed: %w", err)
		}
		publisher := events.NewRabbitMQPublisher(client)
		defer publisher.Close()
		dispatchService.SetPublisher(publisher)
	}

	appointmentService, err := service.NewAppointmentService(appointmentRepo, logger)
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		AppName:               "clinic-dispatch",
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(observability.CorrelationMiddleware())
	app.Use(metrics.HTTPMiddleware())

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	handler.RegisterConfigRoutes(app, handler.ClientConfig{DefaultPractitioner: cfg.DefaultPractitioner})
	if err := handler.RegisterDispatchRoutes(app, dispatchService); err != nil {
		return err
	}
	if err := handler.RegisterAppointmentRoutes(app, appointmentService, cfg.ClinicName); err != nil {
		return err
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("clinic-dispatch api started",
			zap.Int("port", cfg.APIPort),
			zap.String("transport", gateway.Transport()),
		)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down clinic-dispatch api")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	return g.Wait()
}
