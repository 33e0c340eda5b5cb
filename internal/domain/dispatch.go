package domain

import (
	"fmt"
	"strings"
	"time"
)

// DispatchKind identifies which message a batch sends.
type DispatchKind string

const (
	DispatchConfirmation          DispatchKind = "CONFIRMATION"
	DispatchAttendanceCertificate DispatchKind = "ATTENDANCE_CERTIFICATE"
)

func (k DispatchKind) String() string { return string(k) }

func (k DispatchKind) IsValid() bool {
	switch k {
	case DispatchConfirmation, DispatchAttendanceCertificate:
		return true
	}
	return false
}

func ParseDispatchKindFromString(s string) (DispatchKind, error) {
	k := DispatchKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid dispatch kind %q", ErrValidation, s)
	}
	return k, nil
}

// DispatchResult is the recorded result of a delivery attempt.
type DispatchResult string

const (
	ResultOK    DispatchResult = "OK"
	ResultError DispatchResult = "ERROR"
)

func (r DispatchResult) String() string { return string(r) }

// DispatchOutcome is one immutable ledger row. It exists only for attempts
// that reached the delivery gateway.
type DispatchOutcome struct {
	ID            string
	Kind          DispatchKind
	AppointmentID int64
	PatientID     int64
	DispatchedAt  time.Time
	Result        DispatchResult
	ErrorDetail   *string
	ErrorKind     *string
	Transport     string
}

// DispatchRecord is a ledger row joined with display data for history views.
type DispatchRecord struct {
	DispatchOutcome

	PatientName  string
	PatientEmail *string
	SessionDate  *time.Time
	SessionTime  string
	Location     string
}

// ItemState is the terminal state of one item in a batch.
type ItemState string

const (
	ItemPending             ItemState = "PENDING"
	ItemNotFound            ItemState = "NOT_FOUND"
	ItemNoEmail             ItemState = "NO_EMAIL"
	ItemPreconditionSkipped ItemState = "PRECONDITION_SKIPPED"
	ItemSending             ItemState = "SENDING"
	ItemOK                  ItemState = "OK"
	ItemSendFailed          ItemState = "SEND_FAILED"
)

func (s ItemState) String() string { return string(s) }

// Attempted reports whether the item reached the delivery gateway.
func (s ItemState) Attempted() bool {
	return s == ItemOK || s == ItemSendFailed
}

// Messages reported for items that never reached the gateway.
const (
	MsgNotFound    = "appointment or patient not found"
	MsgNoEmail     = "patient has no email"
	MsgNotAttended = "appointment not marked ATTENDED"
)

// ItemOutcome is the caller-visible result for one requested identifier.
type ItemOutcome struct {
	AppointmentID int64
	PatientID     *int64
	Status        DispatchResult
	Message       string
	State         ItemState
}

// BatchResult aggregates the outcomes of one dispatch request.
type BatchResult struct {
	Kind               DispatchKind
	Items              []ItemOutcome
	OKCount            int
	ErrorCount         int
	SkippedNotAttended []int64
}

// PartialFailure reports whether any item ended in error.
func (b *BatchResult) PartialFailure() bool {
	return b != nil && b.ErrorCount > 0
}

// Record appends an item outcome and updates the batch counters.
func (b *BatchResult) Record(item ItemOutcome) {
	if b == nil {
		return
	}

	b.Items = append(b.Items, item)
	if item.Status == ResultOK {
		b.OKCount++
		return
	}
	b.ErrorCount++
	if item.State == ItemPreconditionSkipped {
		b.SkippedNotAttended = append(b.SkippedNotAttended, item.AppointmentID)
	}
}
