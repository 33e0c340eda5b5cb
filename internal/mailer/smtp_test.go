package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"testing"
	"time"

	"github.com/wneessen/go-mail"
)

func TestNewSMTPGatewayRequiresHost(t *testing.T) {
	t.Parallel()

	if _, err := NewSMTPGateway(SMTPConfig{Host: "  "}, nil); err == nil {
		t.Fatal("expected error for missing host")
	}

	g, err := NewSMTPGateway(SMTPConfig{Host: "smtp.example.com"}, nil)
	if err != nil {
		t.Fatalf("NewSMTPGateway() error = %v", err)
	}
	if g.cfg.Port != 587 || g.cfg.Timeout != DefaultTimeout {
		t.Fatalf("unexpected defaults: %+v", g.cfg)
	}
}

func TestSMTPGatewayRejectsInvalidRecipient(t *testing.T) {
	t.Parallel()

	g, err := NewSMTPGateway(SMTPConfig{Host: "smtp.example.com"}, nil)
	if err != nil {
		t.Fatalf("NewSMTPGateway() error = %v", err)
	}

	msg := testMessage()
	msg.To = "not an address"

	_, err = g.Send(context.Background(), msg)
	if got := KindOf(err); got != KindRejected {
		t.Fatalf("KindOf() = %s, want %s (err=%v)", got, KindRejected, err)
	}
}

func TestSMTPGatewayExpiredContextIsTimeout(t *testing.T) {
	t.Parallel()

	g, err := NewSMTPGateway(SMTPConfig{Host: "127.0.0.1", Port: 2525}, nil)
	if err != nil {
		t.Fatalf("NewSMTPGateway() error = %v", err)
	}

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err = g.Send(ctx, testMessage())
	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("expected DeliveryError, got %T (%v)", err, err)
	}
	if deliveryErr.Kind != KindTimeout || deliveryErr.Transport != TransportSMTP {
		t.Fatalf("unexpected delivery error: %+v", deliveryErr)
	}
}

func TestSMTPGatewayConnectionRefused(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	_ = listener.Close()

	g, err := NewSMTPGateway(SMTPConfig{Host: "127.0.0.1", Port: port, Timeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("NewSMTPGateway() error = %v", err)
	}

	_, err = g.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("expected error")
	}
	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("expected DeliveryError, got %T", err)
	}
	if deliveryErr.Transport != TransportSMTP {
		t.Fatalf("Transport = %q, want %q", deliveryErr.Transport, TransportSMTP)
	}
}

func TestSendErrorKind(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		code      int
		temporary bool
		want      DeliveryErrorKind
	}{
		{name: "service not available", code: 421, temporary: true, want: KindTimeout},
		{name: "mailbox busy", code: 450, temporary: true, want: KindUnknown},
		{name: "local error", code: 451, temporary: true, want: KindUnknown},
		{name: "temporary auth failure", code: 454, temporary: true, want: KindAuth},
		{name: "auth required", code: 530, want: KindAuth},
		{name: "user unknown", code: 550, want: KindRejected},
		{name: "temporary without code", temporary: true, want: KindUnknown},
		{name: "permanent without code", want: KindRejected},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := sendErrorKind(tc.code, tc.temporary); got != tc.want {
				t.Fatalf("sendErrorKind(%d, %v) = %s, want %s", tc.code, tc.temporary, got, tc.want)
			}
		})
	}
}

func TestClassifySMTP(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		err      error
		wantKind DeliveryErrorKind
		wantCode int
	}{
		{
			name:     "bad credentials",
			err:      fmt.Errorf("dial failed: %w", &textproto.Error{Code: 535, Msg: "5.7.8 authentication failed"}),
			wantKind: KindAuth,
			wantCode: 535,
		},
		{
			name:     "mailbox unavailable",
			err:      &textproto.Error{Code: 550, Msg: "5.1.1 user unknown"},
			wantKind: KindRejected,
			wantCode: 550,
		},
		{
			name:     "send error",
			err:      &mail.SendError{Reason: mail.ErrSMTPRcptTo},
			wantKind: KindRejected,
		},
		{
			name:     "deadline",
			err:      fmt.Errorf("dial failed: %w", context.DeadlineExceeded),
			wantKind: KindTimeout,
		},
		{
			name:     "unknown",
			err:      errors.New("boom"),
			wantKind: KindUnknown,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := classifySMTP(context.Background(), tc.err)
			if got.Kind != tc.wantKind {
				t.Fatalf("Kind = %s, want %s", got.Kind, tc.wantKind)
			}
			if got.StatusCode != tc.wantCode {
				t.Fatalf("StatusCode = %d, want %d", got.StatusCode, tc.wantCode)
			}
			if !errors.Is(got, tc.err) {
				t.Fatalf("classified error should wrap its cause")
			}
		})
	}
}
