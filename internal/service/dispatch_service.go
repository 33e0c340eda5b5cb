package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/clinic-dispatch/internal/domain"
	"github.com/kursadbilgin/clinic-dispatch/internal/events"
	"github.com/kursadbilgin/clinic-dispatch/internal/mailer"
	"github.com/kursadbilgin/clinic-dispatch/internal/observability"
	"github.com/kursadbilgin/clinic-dispatch/internal/ratelimit"
	"github.com/kursadbilgin/clinic-dispatch/internal/render"
	"github.com/kursadbilgin/clinic-dispatch/internal/repository"
	"go.uber.org/zap"
)

const (
	maxBatchSize        = 500
	limiterWaitTimeout  = 10 * time.Second
	eventPublishTimeout = 5 * time.Second
)

// DispatchConfig carries the static inputs of every message. LogoPath is
// empty when no logo file was found at boot.
type DispatchConfig struct {
	From                string
	BaseURL             string
	DefaultPractitioner string
	LogoPath            string
	HistoryLimit        int
}

// DispatchService runs dispatch batches: one pass over the requested
// appointments, one delivery attempt per eligible item, one ledger row per
// attempt.
type DispatchService struct {
	appointments repository.AppointmentRepository
	ledger       repository.LedgerRepository
	gateway      mailer.Gateway
	renderer     *render.Renderer
	limiter      ratelimit.Limiter
	publisher    events.Publisher
	cfg          DispatchConfig
	logger       *zap.Logger
	metrics      *observability.Metrics
	now          func() time.Time
	newID        func() string
}

func NewDispatchService(
	appointments repository.AppointmentRepository,
	ledger repository.LedgerRepository,
	gateway mailer.Gateway,
	renderer *render.Renderer,
	cfg DispatchConfig,
	logger *zap.Logger,
) (*DispatchService, error) {
	if appointments == nil || ledger == nil {
		return nil, fmt.Errorf("appointment and ledger repositories are required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("delivery gateway is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = repository.DefaultHistoryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchService{
		appointments: appointments,
		ledger:       ledger,
		gateway:      gateway,
		renderer:     renderer,
		limiter:      ratelimit.Unlimited{},
		publisher:    events.Discard{},
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
		newID:        uuid.NewString,
	}, nil
}

func (s *DispatchService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *DispatchService) SetRateLimiter(limiter ratelimit.Limiter) {
	if s == nil || limiter == nil {
		return
	}
	s.limiter = limiter
}

func (s *DispatchService) SetPublisher(publisher events.Publisher) {
	if s == nil || publisher == nil {
		return
	}
	s.publisher = publisher
}

// Dispatch processes ids in input order and returns one outcome per id.
// Only a failed bulk lookup aborts the batch.
func (s *DispatchService) Dispatch(ctx context.Context, kind domain.DispatchKind, ids []int64) (*domain.BatchResult, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: invalid dispatch kind %q", domain.ErrValidation, kind)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: appointmentIds must contain at least one id", domain.ErrValidation)
	}
	if len(ids) > maxBatchSize {
		return nil, fmt.Errorf("%w: batch size exceeds %d", domain.ErrValidation, maxBatchSize)
	}

	logger := observability.LoggerFor(ctx, s.logger).With(zap.String("kind", kind.String()))
	defer s.metrics.TrackBatch()()

	found, err := s.appointments.FindManyByID(ctx, ids)
	if err != nil {
		logger.Error("appointment lookup failed", zap.Int("count", len(ids)), zap.Error(err))
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}

	index := make(map[int64]*domain.Appointment, len(found))
	for i := range found {
		index[found[i].ID] = &found[i]
	}

	logger.Info("dispatch batch started", zap.Int("count", len(ids)), zap.String("transport", s.gateway.Transport()))

	// Items keep running if the caller disconnects mid-batch.
	itemCtx := context.WithoutCancel(ctx)

	result := &domain.BatchResult{Kind: kind, Items: make([]domain.ItemOutcome, 0, len(ids))}
	for _, id := range ids {
		item := s.processItem(itemCtx, logger, kind, id, index[id])
		result.Record(item)
		s.metrics.IncDispatchItem(kind.String(), item.State.String())
	}

	logger.Info("dispatch batch finished",
		zap.Int("ok", result.OKCount),
		zap.Int("error", result.ErrorCount),
		zap.Int("skippedNotAttended", len(result.SkippedNotAttended)),
	)

	return result, nil
}

// History returns the most recent ledger rows, newest first.
func (s *DispatchService) History(ctx context.Context) ([]domain.DispatchRecord, error) {
	records, err := s.ledger.ListRecent(ctx, s.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispatch history: %w", err)
	}
	return records, nil
}

func (s *DispatchService) processItem(
	ctx context.Context,
	logger *zap.Logger,
	kind domain.DispatchKind,
	id int64,
	appointment *domain.Appointment,
) domain.ItemOutcome {
	item := domain.ItemOutcome{AppointmentID: id, Status: domain.ResultError, State: domain.ItemPending}

	if appointment == nil || appointment.Patient == nil {
		item.State = domain.ItemNotFound
		item.Message = domain.MsgNotFound
		return item
	}

	patient := appointment.Patient
	patientID := patient.ID
	item.PatientID = &patientID

	if kind == domain.DispatchAttendanceCertificate && appointment.Status != domain.AppointmentAttended {
		item.State = domain.ItemPreconditionSkipped
		item.Message = domain.MsgNotAttended
		return item
	}
	if !patient.HasEmail() {
		item.State = domain.ItemNoEmail
		item.Message = domain.MsgNoEmail
		return item
	}

	msg, err := s.buildMessage(kind, appointment)
	if err != nil {
		item.Message = err.Error()
		logger.Error("message render failed", zap.Int64("appointmentId", appointment.ID), zap.Error(err))
		return item
	}
	item.State = domain.ItemSending

	s.waitForSlot(ctx, logger)

	start := s.now()
	receipt, sendErr := s.gateway.Send(ctx, msg)
	s.metrics.ObserveDeliveryDuration(s.gateway.Transport(), s.now().Sub(start))

	outcome := domain.DispatchOutcome{
		ID:            s.newID(),
		Kind:          kind,
		AppointmentID: appointment.ID,
		PatientID:     patientID,
		DispatchedAt:  s.now().UTC(),
		Result:        domain.ResultOK,
		Transport:     s.gateway.Transport(),
	}

	if sendErr != nil {
		detail := sendErr.Error()
		errKind := mailer.KindOf(sendErr).String()
		outcome.Result = domain.ResultError
		outcome.ErrorDetail = &detail
		outcome.ErrorKind = &errKind

		item.State = domain.ItemSendFailed
		item.Message = detail

		fields := []zap.Field{
			zap.Int64("appointmentId", appointment.ID),
			zap.String("transport", outcome.Transport),
			zap.String("errorKind", errKind),
			zap.Error(sendErr),
		}
		var deliveryErr *mailer.DeliveryError
		if errors.As(sendErr, &deliveryErr) && deliveryErr.StatusCode > 0 {
			fields = append(fields, zap.Int("statusCode", deliveryErr.StatusCode))
		}
		logger.Warn("delivery failed", fields...)
		s.metrics.IncDeliveryFailure(outcome.Transport, errKind)
	} else {
		item.State = domain.ItemOK
		item.Status = domain.ResultOK
		if receipt != nil && receipt.MessageID != "" {
			logger.Debug("delivery accepted",
				zap.Int64("appointmentId", appointment.ID),
				zap.String("messageId", receipt.MessageID),
			)
		}
	}

	s.record(ctx, logger, outcome)
	return item
}

func (s *DispatchService) buildMessage(kind domain.DispatchKind, appointment *domain.Appointment) (mailer.Message, error) {
	snapshot := render.Snapshot{
		AppointmentID: appointment.ID,
		PatientName:   appointment.Patient.FullName,
		SessionDate:   appointment.SessionDate,
		SessionTime:   appointment.SessionTime,
		Location:      appointment.Location,
		Practitioner:  appointment.PractitionerOr(s.cfg.DefaultPractitioner),
		ServiceType:   appointment.ServiceType,
		BaseURL:       s.cfg.BaseURL,
	}

	rendered, err := s.renderer.Render(kind, snapshot)
	if err != nil {
		return mailer.Message{}, err
	}

	msg := mailer.Message{
		From:    s.cfg.From,
		To:      *appointment.Patient.Email,
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		Text:    rendered.Text,
	}
	if rendered.LogoCID != "" && s.cfg.LogoPath != "" {
		msg.Attachments = []mailer.Attachment{{
			Filename:    filepath.Base(s.cfg.LogoPath),
			ContentType: mime.TypeByExtension(filepath.Ext(s.cfg.LogoPath)),
			Path:        s.cfg.LogoPath,
			ContentID:   rendered.LogoCID,
		}}
	}
	return msg, nil
}

// waitForSlot blocks on the send limiter. A limiter failure never blocks
// delivery.
func (s *DispatchService) waitForSlot(ctx context.Context, logger *zap.Logger) {
	waitCtx, cancel := context.WithTimeout(ctx, limiterWaitTimeout)
	defer cancel()

	if err := s.limiter.Wait(waitCtx, s.gateway.Transport()); err != nil {
		logger.Warn("send limiter unavailable, sending without throttle", zap.Error(err))
	}
}

// record appends the ledger row and announces it. Failures are logged and
// never change the item outcome.
func (s *DispatchService) record(ctx context.Context, logger *zap.Logger, outcome domain.DispatchOutcome) {
	if err := s.ledger.Append(ctx, &outcome); err != nil {
		logger.Error("ledger append failed",
			zap.String("outcomeId", outcome.ID),
			zap.Int64("appointmentId", outcome.AppointmentID),
			zap.String("result", outcome.Result.String()),
			zap.Error(err),
		)
		s.metrics.IncLedgerWriteFailure()
		return
	}

	correlationID, _ := observability.CorrelationIDFromContext(ctx)
	publishCtx, cancel := context.WithTimeout(ctx, eventPublishTimeout)
	defer cancel()

	if err := s.publisher.Publish(publishCtx, events.FromOutcome(outcome, correlationID)); err != nil {
		logger.Warn("outcome event not published", zap.String("outcomeId", outcome.ID), zap.Error(err))
		s.metrics.IncEventPublishFailure()
	}
}
