package handler

import (
	"bytes"
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/clinic-dispatch/internal/domain"
	"github.com/kursadbilgin/clinic-dispatch/internal/transport"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	return fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

type stubDispatchService struct {
	dispatchFn func(ctx context.Context, kind domain.DispatchKind, ids []int64) (*domain.BatchResult, error)
	historyFn  func(ctx context.Context) ([]domain.DispatchRecord, error)
}

func (s *stubDispatchService) Dispatch(ctx context.Context, kind domain.DispatchKind, ids []int64) (*domain.BatchResult, error) {
	if s.dispatchFn == nil {
		return nil, errors.New("dispatchFn not configured")
	}
	return s.dispatchFn(ctx, kind, ids)
}

func (s *stubDispatchService) History(ctx context.Context) ([]domain.DispatchRecord, error) {
	if s.historyFn == nil {
		return nil, errors.New("historyFn not configured")
	}
	return s.historyFn(ctx)
}

type stubAppointmentService struct {
	confirmFn func(ctx context.Context, id int64) (*domain.Appointment, error)
	declineFn func(ctx context.Context, id int64) (*domain.Appointment, error)
}

func (s *stubAppointmentService) Confirm(ctx context.Context, id int64) (*domain.Appointment, error) {
	if s.confirmFn == nil {
		return nil, errors.New("confirmFn not configured")
	}
	return s.confirmFn(ctx, id)
}

func (s *stubAppointmentService) Decline(ctx context.Context, id int64) (*domain.Appointment, error) {
	if s.declineFn == nil {
		return nil, errors.New("declineFn not configured")
	}
	return s.declineFn(ctx, id)
}

type stubConnector struct {
	pingErr error
}

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return stubConn(c), nil
}

func (c stubConnector) Driver() driver.Driver {
	return stubDriver(c)
}

type stubDriver struct {
	pingErr error
}

func (d stubDriver) Open(string) (driver.Conn, error) {
	return stubConn(d), nil
}

type stubConn struct {
	pingErr error
}

func (c stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c stubConn) Close() error                        { return nil }
func (c stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }
func (c stubConn) Ping(context.Context) error          { return c.pingErr }

type stubRedisHook struct {
	pingErr error
}

func (h stubRedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h stubRedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if strings.EqualFold(cmd.Name(), "ping") && h.pingErr != nil {
			cmd.SetErr(h.pingErr)
			return h.pingErr
		}
		cmd.SetErr(nil)
		return nil
	}
}

func (h stubRedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			cmd.SetErr(nil)
		}
		return nil
	}
}

func newStubRedisClient(pingErr error) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:6379",
		DialTimeout:  time.Millisecond,
		ReadTimeout:  time.Millisecond,
		WriteTimeout: time.Millisecond,
	})
	rdb.AddHook(stubRedisHook{pingErr: pingErr})
	return rdb
}
