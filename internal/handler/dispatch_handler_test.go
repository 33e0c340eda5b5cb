package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/clinic-dispatch/internal/domain"
)

func newDispatchTestApp(t *testing.T, svc DispatchService) *fiber.App {
	t.Helper()

	app := newTestApp(t)
	if err := RegisterDispatchRoutes(app, svc); err != nil {
		t.Fatalf("RegisterDispatchRoutes() error = %v", err)
	}
	return app
}

func int64Ptr(v int64) *int64 { return &v }

func stringPtr(v string) *string { return &v }

func TestDispatchHandler_SendConfirmations(t *testing.T) {
	t.Parallel()

	var gotKind domain.DispatchKind
	var gotIDs []int64
	svc := &stubDispatchService{
		dispatchFn: func(ctx context.Context, kind domain.DispatchKind, ids []int64) (*domain.BatchResult, error) {
			gotKind = kind
			gotIDs = ids
			result := &domain.BatchResult{Kind: kind}
			result.Record(domain.ItemOutcome{AppointmentID: 1, PatientID: int64Ptr(10), Status: domain.ResultOK, State: domain.ItemOK})
			result.Record(domain.ItemOutcome{AppointmentID: 2, PatientID: int64Ptr(20), Status: domain.ResultError, Message: domain.MsgNoEmail, State: domain.ItemNoEmail})
			result.Record(domain.ItemOutcome{AppointmentID: 3, Status: domain.ResultError, Message: domain.MsgNotFound, State: domain.ItemNotFound})
			return result, nil
		},
	}
	app := newDispatchTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodPost, "/dispatch/confirmation", `{"appointmentIds":[1,2,3]}`)
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("status = %d, want 502, body=%s", resp.StatusCode, string(body))
	}
	if gotKind != domain.DispatchConfirmation {
		t.Fatalf("kind = %s, want %s", gotKind, domain.DispatchConfirmation)
	}
	if len(gotIDs) != 3 || gotIDs[0] != 1 || gotIDs[2] != 3 {
		t.Fatalf("ids = %v, want [1 2 3]", gotIDs)
	}

	var payload struct {
		Success bool `json:"success"`
		Results []struct {
			AppointmentID int64  `json:"appointmentId"`
			PatientID     *int64 `json:"patientId"`
			Status        string `json:"status"`
			Message       string `json:"message"`
		} `json:"results"`
		OKCount            int              `json:"okCount"`
		ErrorCount         int              `json:"errorCount"`
		SkippedNotAttended *json.RawMessage `json:"skippedNotAttended"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if payload.Success {
		t.Fatal("success = true, want false")
	}
	if payload.OKCount != 1 || payload.ErrorCount != 2 {
		t.Fatalf("counts = %d/%d, want 1/2", payload.OKCount, payload.ErrorCount)
	}
	if len(payload.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(payload.Results))
	}
	if payload.Results[0].Status != "OK" || payload.Results[0].PatientID == nil || *payload.Results[0].PatientID != 10 {
		t.Fatalf("results[0] = %+v, want OK for patient 10", payload.Results[0])
	}
	if payload.Results[1].Message != domain.MsgNoEmail {
		t.Fatalf("results[1].message = %q, want %q", payload.Results[1].Message, domain.MsgNoEmail)
	}
	if payload.Results[2].PatientID != nil || payload.Results[2].Message != domain.MsgNotFound {
		t.Fatalf("results[2] = %+v, want not found without patient", payload.Results[2])
	}
	if payload.SkippedNotAttended != nil {
		t.Fatal("confirmation response must not carry skippedNotAttended")
	}
}

func TestDispatchHandler_AllOKReturns200(t *testing.T) {
	t.Parallel()

	svc := &stubDispatchService{
		dispatchFn: func(ctx context.Context, kind domain.DispatchKind, ids []int64) (*domain.BatchResult, error) {
			result := &domain.BatchResult{Kind: kind}
			for _, id := range ids {
				result.Record(domain.ItemOutcome{AppointmentID: id, PatientID: int64Ptr(id * 10), Status: domain.ResultOK, State: domain.ItemOK})
			}
			return result, nil
		},
	}
	app := newDispatchTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodPost, "/dispatch/certificate", `{"appointmentIds":[4,5]}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if payload["success"] != true {
		t.Fatalf("success = %v, want true", payload["success"])
	}
	skipped, ok := payload["skippedNotAttended"].([]any)
	if !ok || len(skipped) != 0 {
		t.Fatalf("skippedNotAttended = %v, want empty array", payload["skippedNotAttended"])
	}
}

func TestDispatchHandler_SendCertificatesReportsSkipped(t *testing.T) {
	t.Parallel()

	svc := &stubDispatchService{
		dispatchFn: func(ctx context.Context, kind domain.DispatchKind, ids []int64) (*domain.BatchResult, error) {
			if kind != domain.DispatchAttendanceCertificate {
				return nil, fmt.Errorf("unexpected kind %s", kind)
			}
			result := &domain.BatchResult{Kind: kind}
			result.Record(domain.ItemOutcome{AppointmentID: 4, PatientID: int64Ptr(40), Status: domain.ResultOK, State: domain.ItemOK})
			result.Record(domain.ItemOutcome{AppointmentID: 5, PatientID: int64Ptr(50), Status: domain.ResultError, Message: domain.MsgNotAttended, State: domain.ItemPreconditionSkipped})
			return result, nil
		},
	}
	app := newDispatchTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodPost, "/dispatch/certificate", `{"appointmentIds":[4,5]}`)
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("status = %d, want 502, body=%s", resp.StatusCode, string(body))
	}

	var payload struct {
		OKCount            int     `json:"okCount"`
		ErrorCount         int     `json:"errorCount"`
		SkippedNotAttended []int64 `json:"skippedNotAttended"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if payload.OKCount != 1 || payload.ErrorCount != 1 {
		t.Fatalf("counts = %d/%d, want 1/1", payload.OKCount, payload.ErrorCount)
	}
	if len(payload.SkippedNotAttended) != 1 || payload.SkippedNotAttended[0] != 5 {
		t.Fatalf("skippedNotAttended = %v, want [5]", payload.SkippedNotAttended)
	}
}

func TestDispatchHandler_RejectsBadRequests(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "malformed json", body: `{"appointmentIds":`},
		{name: "absent ids", body: `{}`},
		{name: "empty ids", body: `{"appointmentIds":[]}`},
		{name: "ids not numbers", body: `{"appointmentIds":["a","b"]}`},
		{name: "ids not an array", body: `{"appointmentIds":7}`},
		{name: "non positive id", body: `{"appointmentIds":[1,0]}`},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			called := false
			svc := &stubDispatchService{
				dispatchFn: func(ctx context.Context, kind domain.DispatchKind, ids []int64) (*domain.BatchResult, error) {
					called = true
					return &domain.BatchResult{Kind: kind}, nil
				},
			}
			app := newDispatchTestApp(t, svc)

			resp, body := performRequest(t, app, http.MethodPost, "/dispatch/confirmation", tc.body)
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Fatalf("status = %d, want 400, body=%s", resp.StatusCode, string(body))
			}
			if called {
				t.Fatal("service must not be called for a rejected request")
			}

			var payload map[string]string
			if err := json.Unmarshal(body, &payload); err != nil {
				t.Fatalf("json unmarshal error = %v", err)
			}
			if payload["error"] == "" {
				t.Fatal("error message is empty")
			}
		})
	}
}

func TestDispatchHandler_ServiceErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "lookup failure", err: errors.New("failed to load appointments: connection refused"), wantStatus: fiber.StatusInternalServerError},
		{name: "validation", err: fmt.Errorf("%w: too many appointment ids", domain.ErrValidation), wantStatus: fiber.StatusBadRequest},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &stubDispatchService{
				dispatchFn: func(ctx context.Context, kind domain.DispatchKind, ids []int64) (*domain.BatchResult, error) {
					return nil, tc.err
				},
			}
			app := newDispatchTestApp(t, svc)

			resp, body := performRequest(t, app, http.MethodPost, "/dispatch/confirmation", `{"appointmentIds":[1]}`)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d, body=%s", resp.StatusCode, tc.wantStatus, string(body))
			}
		})
	}
}

func TestDispatchHandler_History(t *testing.T) {
	t.Parallel()

	dispatchedAt := time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)
	sessionDate := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	svc := &stubDispatchService{
		historyFn: func(ctx context.Context) ([]domain.DispatchRecord, error) {
			return []domain.DispatchRecord{
				{
					DispatchOutcome: domain.DispatchOutcome{
						ID:            "out-2",
						Kind:          domain.DispatchAttendanceCertificate,
						AppointmentID: 7,
						PatientID:     70,
						DispatchedAt:  dispatchedAt,
						Result:        domain.ResultError,
						ErrorDetail:   stringPtr("smtp: 550 mailbox unavailable"),
						ErrorKind:     stringPtr("REJECTED"),
						Transport:     "smtp",
					},
					PatientName:  "Ana Rojas",
					PatientEmail: stringPtr("ana@example.com"),
					SessionDate:  &sessionDate,
					SessionTime:  "10:30",
					Location:     "Box 2",
				},
			}, nil
		},
	}
	app := newDispatchTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/dispatch/history", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var payload struct {
		Data []struct {
			ID            string    `json:"id"`
			Kind          string    `json:"kind"`
			AppointmentID int64     `json:"appointmentId"`
			PatientID     int64     `json:"patientId"`
			DispatchedAt  time.Time `json:"dispatchedAt"`
			Result        string    `json:"result"`
			ErrorDetail   string    `json:"errorDetail"`
			ErrorKind     string    `json:"errorKind"`
			Transport     string    `json:"transport"`
			Patient       struct {
				Name  string `json:"name"`
				Email string `json:"email"`
			} `json:"patient"`
			Appointment struct {
				SessionTime string `json:"sessionTime"`
				Location    string `json:"location"`
			} `json:"appointment"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(payload.Data) != 1 {
		t.Fatalf("data = %d, want 1", len(payload.Data))
	}
	got := payload.Data[0]
	if got.ID != "out-2" || got.Kind != "ATTENDANCE_CERTIFICATE" || got.Result != "ERROR" {
		t.Fatalf("record = %+v, want out-2 certificate error", got)
	}
	if !got.DispatchedAt.Equal(dispatchedAt) {
		t.Fatalf("dispatchedAt = %s, want %s", got.DispatchedAt, dispatchedAt)
	}
	if got.ErrorKind != "REJECTED" || got.Transport != "smtp" {
		t.Fatalf("errorKind/transport = %s/%s, want REJECTED/smtp", got.ErrorKind, got.Transport)
	}
	if got.Patient.Name != "Ana Rojas" || got.Patient.Email != "ana@example.com" {
		t.Fatalf("patient = %+v, want Ana Rojas", got.Patient)
	}
	if got.Appointment.SessionTime != "10:30" || got.Appointment.Location != "Box 2" {
		t.Fatalf("appointment = %+v, want 10:30 at Box 2", got.Appointment)
	}
}

func TestDispatchHandler_HistoryEmptyAndFailure(t *testing.T) {
	t.Parallel()

	empty := newDispatchTestApp(t, &stubDispatchService{
		historyFn: func(ctx context.Context) ([]domain.DispatchRecord, error) { return nil, nil },
	})
	resp, body := performRequest(t, empty, http.MethodGet, "/dispatch/history", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if string(body) != `{"data":[]}` {
		t.Fatalf("body = %s, want empty data array", string(body))
	}

	failing := newDispatchTestApp(t, &stubDispatchService{
		historyFn: func(ctx context.Context) ([]domain.DispatchRecord, error) {
			return nil, errors.New("failed to list dispatch outcomes: db closed")
		},
	})
	resp, _ = performRequest(t, failing, http.MethodGet, "/dispatch/history", "")
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestRegisterDispatchRoutesRequiresService(t *testing.T) {
	t.Parallel()

	if err := RegisterDispatchRoutes(fiber.New(), nil); err == nil {
		t.Fatal("RegisterDispatchRoutes() error = nil, want error")
	}
}
