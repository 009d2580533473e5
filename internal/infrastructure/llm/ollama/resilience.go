package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kmrl/docintel/internal/core/domain"
	"github.com/kmrl/docintel/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "ollama status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// modelFailure says why a generate call produced no answer.
type modelFailure int

const (
	// failureAbandoned: the caller cancelled or the analysis deadline passed.
	failureAbandoned modelFailure = iota
	// failureUnavailable: server unreachable, overloaded or the breaker is open.
	failureUnavailable
	// failureRejected: the server refused this request; it is healthy.
	failureRejected
	failureUnknown
)

func classifyModelFailure(err error) modelFailure {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return failureAbandoned
	}
	if resilience.IsCircuitOpen(err) {
		return failureUnavailable
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if serverUnavailable(statusErr.StatusCode) {
			return failureUnavailable
		}
		return failureRejected
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return failureUnavailable
	}
	return failureUnknown
}

// classifyGenerateError never retries: analysis makes exactly one model call
// per document. Only failures that say something about server health count
// against the breaker.
func classifyGenerateError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	switch classifyModelFailure(err) {
	case failureUnavailable, failureUnknown:
		return resilience.ErrorClassification{RecordFailure: true}
	default:
		return resilience.ErrorClassification{}
	}
}

// markUnavailable tags an outage as domain.ErrTemporary so the ingest
// pipeline reports its rule-based fallback as "unavailable" rather than
// "invalid_response".
func markUnavailable(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyModelFailure(err) == failureUnavailable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func serverUnavailable(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
