package service

import (
	"context"

	"github.com/kursadbilgin/clinic-dispatch/internal/domain"
	"github.com/kursadbilgin/clinic-dispatch/internal/events"
	"github.com/kursadbilgin/clinic-dispatch/internal/mailer"
)

type fakeAppointmentRepo struct {
	createFn       func(ctx context.Context, a *domain.Appointment) error
	findByIDFn     func(ctx context.Context, id int64) (*domain.Appointment, error)
	findManyByIDFn func(ctx context.Context, ids []int64) ([]domain.Appointment, error)
	updateStatusFn func(ctx context.Context, id int64, status domain.AppointmentStatus) (*domain.Appointment, error)
}

func (f *fakeAppointmentRepo) Create(ctx context.Context, a *domain.Appointment) error {
	if f.createFn != nil {
		return f.createFn(ctx, a)
	}
	return nil
}

func (f *fakeAppointmentRepo) FindByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAppointmentRepo) FindManyByID(ctx context.Context, ids []int64) ([]domain.Appointment, error) {
	if f.findManyByIDFn != nil {
		return f.findManyByIDFn(ctx, ids)
	}
	return nil, nil
}

func (f *fakeAppointmentRepo) UpdateStatus(ctx context.Context, id int64, status domain.AppointmentStatus) (*domain.Appointment, error) {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, id, status)
	}
	return nil, domain.ErrNotFound
}

type fakeLedgerRepo struct {
	appended     []domain.DispatchOutcome
	appendFn     func(ctx context.Context, o *domain.DispatchOutcome) error
	listRecentFn func(ctx context.Context, limit int) ([]domain.DispatchRecord, error)
}

func (f *fakeLedgerRepo) Append(ctx context.Context, o *domain.DispatchOutcome) error {
	if f.appendFn != nil {
		if err := f.appendFn(ctx, o); err != nil {
			return err
		}
	}
	f.appended = append(f.appended, *o)
	return nil
}

func (f *fakeLedgerRepo) ListRecent(ctx context.Context, limit int) ([]domain.DispatchRecord, error) {
	if f.listRecentFn != nil {
		return f.listRecentFn(ctx, limit)
	}
	return nil, nil
}

type fakeGateway struct {
	transport string
	sent      []mailer.Message
	sendFn    func(ctx context.Context, msg mailer.Message) (*mailer.Receipt, error)
}

func (f *fakeGateway) Send(ctx context.Context, msg mailer.Message) (*mailer.Receipt, error) {
	f.sent = append(f.sent, msg)
	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	return &mailer.Receipt{Transport: f.Transport(), MessageID: "msg-1"}, nil
}

func (f *fakeGateway) Transport() string {
	if f.transport == "" {
		return mailer.TransportSMTP
	}
	return f.transport
}

type fakeLimiter struct {
	allowFn func(ctx context.Context, key string) (bool, error)
	waitFn  func(ctx context.Context, key string) error
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, key)
	}
	return true, nil
}

func (f *fakeLimiter) Wait(ctx context.Context, key string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, key)
	}
	return nil
}

type fakePublisher struct {
	published []events.OutcomeEvent
	publishFn func(ctx context.Context, event events.OutcomeEvent) error
}

func (f *fakePublisher) Publish(ctx context.Context, event events.OutcomeEvent) error {
	if f.publishFn != nil {
		if err := f.publishFn(ctx, event); err != nil {
			return err
		}
	}
	f.published = append(f.published, event)
	return nil
}

func (f *fakePublisher) Close() error { return nil }
