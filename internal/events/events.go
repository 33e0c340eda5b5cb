// Package events publishes ledger outcomes to a message broker for
// downstream consumers. Publication is best-effort and never affects a
// dispatch result.
package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/clinic-dispatch/internal/domain"
)

const (
	ExchangeName = "clinic.dispatch.outcomes"
	QueueName    = "dispatch.outcomes"
	BindingKey   = "outcome.#"
)

// Publisher emits outcome events.
type Publisher interface {
	Publish(ctx context.Context, event OutcomeEvent) error
	Close() error
}

// OutcomeEvent is the broker payload for one ledger row.
type OutcomeEvent struct {
	OutcomeID     string    `json:"outcomeId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Kind          string    `json:"kind"`
	AppointmentID int64     `json:"appointmentId"`
	PatientID     int64     `json:"patientId"`
	Result        string    `json:"result"`
	ErrorKind     string    `json:"errorKind,omitempty"`
	Transport     string    `json:"transport"`
	DispatchedAt  time.Time `json:"dispatchedAt"`
}

// FromOutcome builds the event for a stored ledger row.
func FromOutcome(o domain.DispatchOutcome, correlationID string) OutcomeEvent {
	event := OutcomeEvent{
		OutcomeID:     o.ID,
		CorrelationID: correlationID,
		Kind:          o.Kind.String(),
		AppointmentID: o.AppointmentID,
		PatientID:     o.PatientID,
		Result:        o.Result.String(),
		Transport:     o.Transport,
		DispatchedAt:  o.DispatchedAt,
	}
	if o.ErrorKind != nil {
		event.ErrorKind = *o.ErrorKind
	}
	return event
}

func (e OutcomeEvent) Validate() error {
	if strings.TrimSpace(e.OutcomeID) == "" {
		return fmt.Errorf("outcomeId is required")
	}
	if !domain.DispatchKind(e.Kind).IsValid() {
		return fmt.Errorf("invalid kind %q", e.Kind)
	}
	switch domain.DispatchResult(e.Result) {
	case domain.ResultOK, domain.ResultError:
	default:
		return fmt.Errorf("invalid result %q", e.Result)
	}
	return nil
}

// RoutingKey returns e.g. outcome.confirmation.error.
func (e OutcomeEvent) RoutingKey() string {
	return fmt.Sprintf("outcome.%s.%s", strings.ToLower(e.Kind), strings.ToLower(e.Result))
}

// Discard drops every event. Used when no broker is configured.
type Discard struct{}

func (Discard) Publish(context.Context, OutcomeEvent) error { return nil }

func (Discard) Close() error { return nil }
