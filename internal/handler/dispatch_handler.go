package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/clinic-dispatch/internal/domain"
)

type DispatchService interface {
	Dispatch(ctx context.Context, kind domain.DispatchKind, ids []int64) (*domain.BatchResult, error)
	History(ctx context.Context) ([]domain.DispatchRecord, error)
}

type DispatchHandler struct {
	service DispatchService
}

func NewDispatchHandler(service DispatchService) (*DispatchHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	return &DispatchHandler{service: service}, nil
}

func RegisterDispatchRoutes(router fiber.Router, service DispatchService) error {
	h, err := NewDispatchHandler(service)
	if err != nil {
		return err
	}

	dispatch := router.Group("/dispatch")
	dispatch.Post("/confirmation", h.SendConfirmations)
	dispatch.Post("/certificate", h.SendCertificates)
	dispatch.Get("/history", h.History)

	return nil
}

type dispatchRequest struct {
	AppointmentIDs []int64 `json:"appointmentIds"`
}

type dispatchItemResponse struct {
	AppointmentID int64  `json:"appointmentId"`
	PatientID     *int64 `json:"patientId,omitempty"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
}

type dispatchResponse struct {
	Success    bool                   `json:"success"`
	Results    []dispatchItemResponse `json:"results"`
	OKCount    int                    `json:"okCount"`
	ErrorCount int                    `json:"errorCount"`
}

type certificateResponse struct {
	dispatchResponse
	SkippedNotAttended []int64 `json:"skippedNotAttended"`
}

type historyPatientResponse struct {
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
}

type historyAppointmentResponse struct {
	SessionDate *time.Time `json:"sessionDate,omitempty"`
	SessionTime string     `json:"sessionTime,omitempty"`
	Location    string     `json:"location,omitempty"`
}

type historyRecordResponse struct {
	ID            string                     `json:"id"`
	Kind          string                     `json:"kind"`
	AppointmentID int64                      `json:"appointmentId"`
	PatientID     int64                      `json:"patientId"`
	DispatchedAt  time.Time                  `json:"dispatchedAt"`
	Result        string                     `json:"result"`
	ErrorDetail   *string                    `json:"errorDetail,omitempty"`
	ErrorKind     *string                    `json:"errorKind,omitempty"`
	Transport     string                     `json:"transport"`
	Patient       historyPatientResponse     `json:"patient"`
	Appointment   historyAppointmentResponse `json:"appointment"`
}

type historyResponse struct {
	Data []historyRecordResponse `json:"data"`
}

func (h *DispatchHandler) SendConfirmations(c *fiber.Ctx) error {
	result, err := h.dispatch(c, domain.DispatchConfirmation)
	if err != nil {
		return err
	}
	return c.Status(batchStatusCode(result)).JSON(toDispatchResponse(result))
}

func (h *DispatchHandler) SendCertificates(c *fiber.Ctx) error {
	result, err := h.dispatch(c, domain.DispatchAttendanceCertificate)
	if err != nil {
		return err
	}

	skipped := result.SkippedNotAttended
	if skipped == nil {
		skipped = []int64{}
	}
	return c.Status(batchStatusCode(result)).JSON(certificateResponse{
		dispatchResponse:   toDispatchResponse(result),
		SkippedNotAttended: skipped,
	})
}

func (h *DispatchHandler) History(c *fiber.Ctx) error {
	records, err := h.service.History(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]historyRecordResponse, 0, len(records))
	for _, record := range records {
		data = append(data, toHistoryRecordResponse(record))
	}
	return c.Status(fiber.StatusOK).JSON(historyResponse{Data: data})
}

func (h *DispatchHandler) dispatch(c *fiber.Ctx, kind domain.DispatchKind) (*domain.BatchResult, error) {
	var req dispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.AppointmentIDs) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "appointmentIds must be a non-empty array")
	}
	for _, id := range req.AppointmentIDs {
		if id <= 0 {
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid appointment id %d", id))
		}
	}

	result, err := h.service.Dispatch(c.UserContext(), kind, req.AppointmentIDs)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return result, nil
}

// batchStatusCode reports 502 when any item failed so callers notice partial
// delivery without inspecting every result.
func batchStatusCode(result *domain.BatchResult) int {
	if result.PartialFailure() {
		return fiber.StatusBadGateway
	}
	return fiber.StatusOK
}

func toDispatchResponse(result *domain.BatchResult) dispatchResponse {
	items := make([]dispatchItemResponse, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, dispatchItemResponse{
			AppointmentID: item.AppointmentID,
			PatientID:     item.PatientID,
			Status:        item.Status.String(),
			Message:       item.Message,
		})
	}

	return dispatchResponse{
		Success:    !result.PartialFailure(),
		Results:    items,
		OKCount:    result.OKCount,
		ErrorCount: result.ErrorCount,
	}
}

func toHistoryRecordResponse(record domain.DispatchRecord) historyRecordResponse {
	return historyRecordResponse{
		ID:            record.ID,
		Kind:          record.Kind.String(),
		AppointmentID: record.AppointmentID,
		PatientID:     record.PatientID,
		DispatchedAt:  record.DispatchedAt,
		Result:        record.Result.String(),
		ErrorDetail:   record.ErrorDetail,
		ErrorKind:     record.ErrorKind,
		Transport:     record.Transport,
		Patient: historyPatientResponse{
			Name:  record.PatientName,
			Email: record.PatientEmail,
		},
		Appointment: historyAppointmentResponse{
			SessionDate: record.SessionDate,
			SessionTime: record.SessionTime,
			Location:    record.Location,
		},
	}
}
