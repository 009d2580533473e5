package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"

	"github.com/kmrl/docintel/internal/core/domain"
)

func TestClassifyNATSError(t *testing.T) {
	if class := classifyNATSError(fmt.Errorf("publish: %w", nats.ErrConnectionClosed)); !class.Retryable || !class.RecordFailure {
		t.Fatalf("closed connection should be retryable: %#v", class)
	}
	if class := classifyNATSError(gobreaker.ErrOpenState); !class.RecordFailure {
		t.Fatalf("open breaker means the broker is down: %#v", class)
	}
	if class := classifyNATSError(context.Canceled); class.Retryable || class.RecordFailure {
		t.Fatalf("cancellation must not count: %#v", class)
	}
	if class := classifyNATSError(nats.ErrMaxPayload); class.Retryable || class.RecordFailure {
		t.Fatalf("oversized event is not a broker failure: %#v", class)
	}
	if class := classifyNATSError(errors.New("boom")); class.Retryable || !class.RecordFailure {
		t.Fatalf("unknown errors count once without retry: %#v", class)
	}
}

func TestPublishError(t *testing.T) {
	err := publishError("documents.processed", nats.ErrTimeout)
	if !domain.IsKind(err, domain.ErrTemporary) || !errors.Is(err, nats.ErrTimeout) {
		t.Fatalf("timeout should be temporary: %v", err)
	}
	if err := publishError("documents.processed", nats.ErrBadSubject); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("bad subject should be invalid input: %v", err)
	}
	if err := publishError("documents.processed", errors.New("boom")); domain.IsKind(err, domain.ErrTemporary) || domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown errors keep no kind: %v", err)
	}
	if publishError("documents.processed", nil) != nil {
		t.Fatalf("nil stays nil")
	}
}
