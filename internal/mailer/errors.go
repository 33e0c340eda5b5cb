package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/wneessen/go-mail"
)

// DeliveryErrorKind is the closed set of delivery failure classes.
type DeliveryErrorKind string

const (
	KindTimeout  DeliveryErrorKind = "TIMEOUT"
	KindAuth     DeliveryErrorKind = "AUTH"
	KindRejected DeliveryErrorKind = "REJECTED"
	KindUnknown  DeliveryErrorKind = "UNKNOWN"
)

func (k DeliveryErrorKind) String() string { return string(k) }

// DeliveryError reports a failed Send.
type DeliveryError struct {
	Kind       DeliveryErrorKind
	Transport  string
	StatusCode int
	Message    string
	Cause      error
}

func (e *DeliveryError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, fmt.Sprintf("%s delivery failed (%s)", e.Transport, e.Kind))

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *DeliveryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// KindOf returns the delivery kind of err, or UNKNOWN for foreign errors.
func KindOf(err error) DeliveryErrorKind {
	var deliveryErr *DeliveryError
	if errors.As(err, &deliveryErr) {
		return deliveryErr.Kind
	}
	if isTimeout(err) {
		return KindTimeout
	}
	return KindUnknown
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classifySMTP maps an SMTP session failure onto a delivery kind using the
// reply code when one is available.
func classifySMTP(ctx context.Context, err error) *DeliveryError {
	deliveryErr := &DeliveryError{
		Kind:      KindUnknown,
		Transport: TransportSMTP,
		Message:   "smtp session failed",
		Cause:     err,
	}

	if isTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		deliveryErr.Kind = KindTimeout
		return deliveryErr
	}

	// SendError carries the reply code itself and does not unwrap to it.
	var sendErr *mail.SendError
	if errors.As(err, &sendErr) {
		deliveryErr.StatusCode = sendErr.ErrorCode()
		deliveryErr.Kind = sendErrorKind(sendErr.ErrorCode(), sendErr.IsTemp())
		return deliveryErr
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		deliveryErr.StatusCode = protoErr.Code
		deliveryErr.Kind = smtpCodeKind(protoErr.Code)
		return deliveryErr
	}

	return deliveryErr
}

// sendErrorKind classifies a go-mail send failure. Without a reply code a
// permanent failure is a rejection and a temporary one stays unknown.
func sendErrorKind(code int, temporary bool) DeliveryErrorKind {
	if code > 0 {
		return smtpCodeKind(code)
	}
	if temporary {
		return KindUnknown
	}
	return KindRejected
}

func smtpCodeKind(code int) DeliveryErrorKind {
	switch {
	case code == 530 || code == 534 || code == 535 || code == 454:
		return KindAuth
	case code >= 500 && code <= 599:
		return KindRejected
	case code == 421:
		return KindTimeout
	default:
		return KindUnknown
	}
}

func httpStatusKind(statusCode int) DeliveryErrorKind {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return KindAuth
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return KindTimeout
	case statusCode >= http.StatusBadRequest && statusCode < http.StatusInternalServerError:
		return KindRejected
	default:
		return KindUnknown
	}
}
