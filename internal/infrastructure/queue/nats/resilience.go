package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/kmrl/docintel/internal/core/domain"
	"github.com/kmrl/docintel/internal/infrastructure/resilience"
)

// deliveryFailure says why a processed-document event was not delivered.
type deliveryFailure int

const (
	deliveryAbandoned deliveryFailure = iota
	// deliveryBrokerDown: no connection to the broker right now.
	deliveryBrokerDown
	// deliveryUndeliverable: the event itself can never be published as is
	// (bad subject, payload over the server limit).
	deliveryUndeliverable
	deliveryUnknown
)

func classifyDelivery(err error) deliveryFailure {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return deliveryAbandoned
	case resilience.IsCircuitOpen(err),
		errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrConnectionReconnecting),
		errors.Is(err, nats.ErrDisconnected):
		return deliveryBrokerDown
	case errors.Is(err, nats.ErrBadSubject), errors.Is(err, nats.ErrMaxPayload):
		return deliveryUndeliverable
	default:
		return deliveryUnknown
	}
}

// classifyNATSError retries only while the broker is unreachable. An
// undeliverable event says nothing about broker health.
func classifyNATSError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	switch classifyDelivery(err) {
	case deliveryBrokerDown:
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case deliveryUnknown:
		return resilience.ErrorClassification{RecordFailure: true}
	default:
		return resilience.ErrorClassification{}
	}
}

// publishError maps a failed publish onto the domain kinds: a broker outage
// is temporary, an undeliverable event is invalid input.
func publishError(subject string, err error) error {
	if err == nil {
		return nil
	}
	op := fmt.Sprintf("publish document event on %s", subject)
	switch classifyDelivery(err) {
	case deliveryBrokerDown:
		return domain.WrapError(domain.ErrTemporary, op, err)
	case deliveryUndeliverable:
		return domain.WrapError(domain.ErrInvalidInput, op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
