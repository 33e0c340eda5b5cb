package handler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/clinic-dispatch/internal/domain"
	"github.com/kursadbilgin/clinic-dispatch/internal/render"
)

type AppointmentService interface {
	Confirm(ctx context.Context, id int64) (*domain.Appointment, error)
	Decline(ctx context.Context, id int64) (*domain.Appointment, error)
}

// AppointmentHandler serves the attendance links embedded in confirmation
// emails. Patients open them in a browser, so every answer is an HTML page.
type AppointmentHandler struct {
	service    AppointmentService
	clinicName string
}

func NewAppointmentHandler(service AppointmentService, clinicName string) (*AppointmentHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("appointment service is required")
	}
	if strings.TrimSpace(clinicName) == "" {
		clinicName = render.DefaultClinic
	}
	return &AppointmentHandler{service: service, clinicName: clinicName}, nil
}

func RegisterAppointmentRoutes(router fiber.Router, service AppointmentService, clinicName string) error {
	h, err := NewAppointmentHandler(service, clinicName)
	if err != nil {
		return err
	}

	appointments := router.Group("/appointments")
	appointments.Get("/:id/confirm", h.Confirm)
	appointments.Post("/:id/confirm", h.Confirm)
	appointments.Get("/:id/decline", h.Decline)
	appointments.Post("/:id/decline", h.Decline)

	return nil
}

func (h *AppointmentHandler) Confirm(c *fiber.Ctx) error {
	return h.answer(c, h.service.Confirm,
		"Asistencia confirmada",
		"Gracias por confirmar tu asistencia. Te esperamos en tu sesion.",
	)
}

func (h *AppointmentHandler) Decline(c *fiber.Ctx) error {
	return h.answer(c, h.service.Decline,
		"Asistencia cancelada",
		"Registramos que no podras asistir. Contactanos para reagendar tu sesion.",
	)
}

func (h *AppointmentHandler) answer(
	c *fiber.Ctx,
	apply func(context.Context, int64) (*domain.Appointment, error),
	title string,
	body string,
) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return h.page(c, fiber.StatusBadRequest, "Enlace invalido", "El enlace que abriste no es valido.")
	}

	if _, err := apply(c.UserContext(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return h.page(c, fiber.StatusNotFound, "Cita no encontrada", "No encontramos la cita asociada a este enlace.")
		case errors.Is(err, domain.ErrValidation):
			return h.page(c, fiber.StatusBadRequest, "Enlace invalido", "El enlace que abriste no es valido.")
		default:
			return err
		}
	}

	return h.page(c, fiber.StatusOK, title, body)
}

func (h *AppointmentHandler) page(c *fiber.Ctx, status int, title string, body string) error {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html lang="es"><head><meta charset="utf-8">`)
	b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	fmt.Fprintf(&b, `<title>%s</title></head>`, html.EscapeString(title))
	b.WriteString(`<body style="font-family:Arial,sans-serif;background:#f4f6f8;margin:0;padding:40px 16px;">`)
	b.WriteString(`<div style="max-width:480px;margin:0 auto;background:#fff;border-radius:8px;padding:32px;text-align:center;">`)
	fmt.Fprintf(&b, `<h1 style="color:#1f4e79;font-size:22px;">%s</h1>`, html.EscapeString(title))
	fmt.Fprintf(&b, `<p style="color:#333;font-size:15px;">%s</p>`, html.EscapeString(body))
	fmt.Fprintf(&b, `<p style="color:#888;font-size:12px;margin-top:24px;">%s</p>`, html.EscapeString(strings.ToUpper(h.clinicName)))
	b.WriteString(`</div></body></html>`)

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).SendString(b.String())
}
