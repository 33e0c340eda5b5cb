package mailer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Secure   bool
	Timeout  time.Duration
}

// SMTPGateway opens one authenticated SMTP session per message and closes it
// after transmission.
type SMTPGateway struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

func NewSMTPGateway(cfg SMTPConfig, logger *zap.Logger) (*SMTPGateway, error) {
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SMTPGateway{cfg: cfg, logger: logger}, nil
}

func (g *SMTPGateway) Transport() string { return TransportSMTP }

func (g *SMTPGateway) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if g == nil {
		return nil, fmt.Errorf("smtp gateway is not initialized")
	}

	m, err := g.buildMessage(msg)
	if err != nil {
		return nil, &DeliveryError{
			Kind:      KindRejected,
			Transport: TransportSMTP,
			Message:   "invalid message",
			Cause:     err,
		}
	}

	client, err := mail.NewClient(g.cfg.Host, g.clientOptions()...)
	if err != nil {
		return nil, &DeliveryError{
			Kind:      KindUnknown,
			Transport: TransportSMTP,
			Message:   "smtp client setup failed",
			Cause:     err,
		}
	}

	sendCtx, cancel := withSendTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	if err := client.DialAndSendWithContext(sendCtx, m); err != nil {
		return nil, classifySMTP(sendCtx, err)
	}

	return &Receipt{Transport: TransportSMTP}, nil
}

func (g *SMTPGateway) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(g.cfg.Port),
		mail.WithTimeout(g.cfg.Timeout),
	}
	if g.cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if g.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(g.cfg.Username),
			mail.WithPassword(g.cfg.Password),
		)
	}
	return opts
}

func (g *SMTPGateway) buildMessage(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	for _, attachment := range NormalizeAttachments(g.logger, msg.Attachments) {
		reader := bytes.NewReader(attachment.Content)
		if attachment.ContentID != "" {
			if err := m.EmbedReader(attachment.Filename, reader, mail.WithFileContentID(attachment.ContentID)); err != nil {
				return nil, fmt.Errorf("embed %s: %w", attachment.Filename, err)
			}
			continue
		}
		if err := m.AttachReader(attachment.Filename, reader); err != nil {
			return nil, fmt.Errorf("attach %s: %w", attachment.Filename, err)
		}
	}

	return m, nil
}
