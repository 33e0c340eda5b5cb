// Package render builds the transactional emails sent by the dispatch flow.
// Rendering is pure: the same input always yields byte-identical output.
package render

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/kursadbilgin/clinic-dispatch/internal/domain"
)

const (
	// LogoCID is the content id the HTML body references when a logo is attached.
	LogoCID = "clinic-logo"

	DefaultBaseURL  = "http://localhost:4000"
	DefaultClinic   = "FisioMove"
	dateLayout      = "02-01-2006"
	verificationMsg = "Nota: Puedes verificar la validez del profesional en el Registro Nacional de Prestadores Individuales de la Superintendencia de Salud."
)

// Clinic holds the static branding shared by every message.
type Clinic struct {
	Name          string
	Location      *time.Location
	LogoAvailable bool
}

// Snapshot is the appointment data a message is rendered from.
type Snapshot struct {
	AppointmentID int64
	PatientName   string
	SessionDate   time.Time
	SessionTime   string
	Location      string
	Practitioner  string
	ServiceType   string
	BaseURL       string
}

// Message is a rendered email. LogoCID is set when the HTML references an
// inline logo that the sender should attach.
type Message struct {
	Subject string
	HTML    string
	Text    string
	LogoCID string
}

type Renderer struct {
	clinic Clinic
}

func NewRenderer(clinic Clinic) *Renderer {
	if strings.TrimSpace(clinic.Name) == "" {
		clinic.Name = DefaultClinic
	}
	if clinic.Location == nil {
		clinic.Location = time.Local
	}
	return &Renderer{clinic: clinic}
}

// Render dispatches to the template for kind.
func (r *Renderer) Render(kind domain.DispatchKind, s Snapshot) (Message, error) {
	switch kind {
	case domain.DispatchConfirmation:
		return r.Confirmation(s), nil
	case domain.DispatchAttendanceCertificate:
		return r.Certificate(s), nil
	default:
		return Message{}, fmt.Errorf("%w: invalid dispatch kind %q", domain.ErrValidation, kind)
	}
}

// Confirmation renders the appointment reminder with attendance links.
func (r *Renderer) Confirmation(s Snapshot) Message {
	return r.withLogo(r.confirmation(s))
}

// Certificate renders the attendance certificate for the session date.
func (r *Renderer) Certificate(s Snapshot) Message {
	return r.withLogo(r.certificate(s))
}

func (r *Renderer) withLogo(msg Message) Message {
	if r.clinic.LogoAvailable {
		msg.LogoCID = LogoCID
	}
	return msg
}

// FormatDate renders a session date as dd-mm-yyyy in the clinic time zone.
func (r *Renderer) FormatDate(t time.Time) string {
	return t.In(r.clinic.Location).Format(dateLayout)
}

// ActionURLs returns the attendance confirm and decline links for an appointment.
func ActionURLs(baseURL string, appointmentID int64) (confirmURL string, declineURL string) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	prefix := base + "/appointments/" + strconv.FormatInt(appointmentID, 10)
	return prefix + "/confirm", prefix + "/decline"
}

func (r *Renderer) confirmation(s Snapshot) Message {
	date := r.FormatDate(s.SessionDate)
	confirmURL, declineURL := ActionURLs(s.BaseURL, s.AppointmentID)
	signature := strings.ToUpper(r.clinic.Name)

	var body strings.Builder
	body.WriteString(r.header())
	body.WriteString(title("Citacion a sesion"))
	body.WriteString(`<tr><td style="padding:0 24px 20px 24px;color:#374151;font-size:15px;line-height:1.7;">`)
	fmt.Fprintf(&body, `<p style="margin:0 0 12px 0;">Estimado/a <strong>%s</strong>,</p>`, esc(s.PatientName))
	fmt.Fprintf(&body,
		`<p style="margin:0 0 12px 0;">Te recordamos tu citacion a sesion de kinesiologia el dia <strong>%s</strong> a las <strong>%s</strong>, en <strong>%s</strong>, con el profesional <strong>%s</strong>.</p>`,
		esc(date), esc(s.SessionTime), esc(s.Location), esc(s.Practitioner),
	)
	body.WriteString(`<p style="margin:0 0 12px 0;">Por favor llega 10 minutos antes de la hora indicada. Si cuentas con examenes o informes, traelos a la sesion.</p>`)
	body.WriteString(`<p style="margin:0 0 12px 0;">Ante cualquier duda, puedes responder a este mismo correo.</p>`)
	body.WriteString(signatureHTML(signature))
	body.WriteString(`</td></tr>`)
	fmt.Fprintf(&body,
		`<tr><td style="padding:0 24px 24px 24px;"><table role="presentation" width="100%%" cellspacing="0" cellpadding="0" border="0"><tr>`+
			`<td style="width:50%%;padding-right:8px;"><a href="%s" style="display:block;text-decoration:none;background:#ef4444;color:#fff;padding:14px;border-radius:10px;text-align:center;font-weight:700;">No voy a asistir</a></td>`+
			`<td style="width:50%%;padding-left:8px;"><a href="%s" style="display:block;text-decoration:none;background:#22c55e;color:#fff;padding:14px;border-radius:10px;text-align:center;font-weight:700;">Confirmar asistencia</a></td>`+
			`</tr></table></td></tr>`,
		esc(declineURL), esc(confirmURL),
	)

	text := strings.Join([]string{
		fmt.Sprintf("Estimado/a %s,", s.PatientName),
		fmt.Sprintf("Te recordamos tu citacion a sesion de kinesiologia el dia %s a las %s, en %s, con el profesional %s.", date, s.SessionTime, s.Location, s.Practitioner),
		"Por favor llega 10 minutos antes de la hora indicada. Si cuentas con examenes o informes, traelos a la sesion.",
		"Ante cualquier duda, puedes responder a este mismo correo.",
		"Confirmar asistencia: " + confirmURL,
		"No voy a asistir: " + declineURL,
		"Atentamente,",
		signature,
		verificationMsg,
	}, "\n")

	return Message{
		Subject: "Citacion a sesion de kinesiologia - " + date,
		HTML:    shell(body.String()),
		Text:    text,
	}
}

func (r *Renderer) certificate(s Snapshot) Message {
	date := r.FormatDate(s.SessionDate)
	signature := strings.ToUpper(r.clinic.Name)
	service := strings.TrimSpace(s.ServiceType)
	if service == "" {
		service = "Kinesiologia"
	}

	var body strings.Builder
	body.WriteString(r.header())
	body.WriteString(title("Certificado de asistencia"))
	body.WriteString(`<tr><td style="padding:0 24px 20px 24px;color:#374151;font-size:15px;line-height:1.7;">`)
	fmt.Fprintf(&body, `<p style="margin:0 0 12px 0;">Estimado/a <strong>%s</strong>,</p>`, esc(s.PatientName))
	fmt.Fprintf(&body,
		`<p style="margin:0 0 12px 0;">Por medio del presente, se certifica que <strong>%s</strong> asistio el dia <strong>%s</strong> a nuestro servicio de %s, para continuar su tratamiento.</p>`,
		esc(s.PatientName), esc(date), esc(service),
	)
	body.WriteString(`<p style="margin:0 0 12px 0;">Se extiende el presente certificado para ser presentado en su lugar de trabajo.</p>`)
	fmt.Fprintf(&body, `<p style="margin:0 0 12px 0;">Profesional: <strong>%s</strong>.</p>`, esc(s.Practitioner))
	body.WriteString(`<p style="margin:0 0 12px 0;">Muchas gracias por confiar en nuestro servicio.</p>`)
	body.WriteString(signatureHTML(signature))
	body.WriteString(`</td></tr>`)

	text := strings.Join([]string{
		fmt.Sprintf("Estimado/a %s,", s.PatientName),
		fmt.Sprintf("Por medio del presente, se certifica que %s asistio el dia %s a nuestro servicio de %s, para continuar su tratamiento.", s.PatientName, date, service),
		"Se extiende el presente certificado para ser presentado en su lugar de trabajo.",
		fmt.Sprintf("Profesional: %s.", s.Practitioner),
		"Muchas gracias por confiar en nuestro servicio.",
		"Atentamente,",
		signature,
		verificationMsg,
	}, "\n")

	return Message{
		Subject: "Certificado de asistencia - " + date,
		HTML:    shell(body.String()),
		Text:    text,
	}
}

func (r *Renderer) header() string {
	brand := fmt.Sprintf(`<span style="color:#e5e7eb;font-size:20px;font-weight:700;">%s</span>`, esc(r.clinic.Name))
	if r.clinic.LogoAvailable {
		brand = fmt.Sprintf(
			`<img src="cid:%s" alt="%s" width="150" style="max-width:150px;height:auto;display:block;margin:0 auto;border:0;" />`,
			LogoCID, esc(r.clinic.Name),
		)
	}
	return `<tr><td style="padding:18px 20px;text-align:center;background:#0b1220;">` + brand + `</td></tr>`
}

func title(text string) string {
	return `<tr><td style="padding:20px 24px 8px 24px;text-align:center;"><h2 style="margin:0;color:#1f2937;font-size:22px;">` +
		esc(text) + `</h2></td></tr>`
}

func signatureHTML(signature string) string {
	return `<p style="margin:0;">Atentamente,<br/>` + esc(signature) + `</p>` +
		`<p style="margin:12px 0 0 0;color:#6b7280;font-size:13px;">` + esc(verificationMsg) + `</p>`
}

func shell(content string) string {
	return `<!DOCTYPE html><html lang="es"><head><meta charset="UTF-8" />` +
		`<meta name="viewport" content="width=device-width, initial-scale=1.0" /><title>Citas Kinesiologia</title></head>` +
		`<body style="margin:0;padding:0;font-family:'Segoe UI',Arial,sans-serif;background:#f5f7fa;">` +
		`<table role="presentation" width="100%" cellspacing="0" cellpadding="0" border="0" style="background:#f5f7fa;padding:32px 16px;"><tr><td align="center">` +
		`<table role="presentation" width="640" cellspacing="0" cellpadding="0" border="0" style="max-width:640px;background:#fff;border-radius:12px;overflow:hidden;">` +
		content +
		`</table></td></tr></table></body></html>`
}

func esc(s string) string { return html.EscapeString(s) }
