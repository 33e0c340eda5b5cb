// Package mailer delivers rendered messages through a single transport
// chosen at boot.
package mailer

import (
	"context"
	"time"
)

const (
	TransportSMTP   = "smtp"
	TransportResend = "resend"

	DefaultTimeout = 30 * time.Second
)

// Gateway is the outbound email delivery port.
type Gateway interface {
	Send(ctx context.Context, msg Message) (*Receipt, error)
	Transport() string
}

// Message is a fully rendered email ready for delivery.
type Message struct {
	From        string
	To          string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Attachment carries either Content or a filesystem Path. A non-empty
// ContentID marks it as inline, referenced from HTML as cid:<ContentID>.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
	Path        string
	ContentID   string
}

// Receipt stores transport metadata for a delivered message.
type Receipt struct {
	Transport  string
	MessageID  string
	StatusCode int
}

func withSendTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
