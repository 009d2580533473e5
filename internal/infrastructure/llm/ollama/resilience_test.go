package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/sony/gobreaker/v2"

	"github.com/kmrl/docintel/internal/core/domain"
)

func TestClassifyModelFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want modelFailure
	}{
		{name: "deadline", err: fmt.Errorf("generate: %w", context.DeadlineExceeded), want: failureAbandoned},
		{name: "breaker open", err: gobreaker.ErrOpenState, want: failureUnavailable},
		{name: "overloaded", err: &HTTPStatusError{StatusCode: 503}, want: failureUnavailable},
		{name: "bad request", err: &HTTPStatusError{StatusCode: 400}, want: failureRejected},
		{name: "connection refused", err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}, want: failureUnavailable},
		{name: "other", err: errors.New("boom"), want: failureUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyModelFailure(tc.err); got != tc.want {
				t.Fatalf("classifyModelFailure(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestClassifyGenerateErrorNeverRetries(t *testing.T) {
	for _, err := range []error{&HTTPStatusError{StatusCode: 502}, errors.New("boom"), &HTTPStatusError{StatusCode: 404}, context.Canceled} {
		if class := classifyGenerateError(err); class.Retryable {
			t.Fatalf("%v must not be retried", err)
		}
	}
	if !classifyGenerateError(&HTTPStatusError{StatusCode: 502}).RecordFailure {
		t.Fatalf("bad gateway should count against the breaker")
	}
	if classifyGenerateError(&HTTPStatusError{StatusCode: 404}).RecordFailure {
		t.Fatalf("unknown model is not a server health problem")
	}
	if classifyGenerateError(context.Canceled).RecordFailure {
		t.Fatalf("cancellation must not count")
	}
}

func TestMarkUnavailable(t *testing.T) {
	err := markUnavailable("ollama generate", &HTTPStatusError{StatusCode: 429})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("rate limiting should be temporary: %v", err)
	}
	if err := markUnavailable("ollama generate", &HTTPStatusError{StatusCode: 400}); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("rejected request must stay permanent: %v", err)
	}
	if err := markUnavailable("ollama generate", context.DeadlineExceeded); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("deadline keeps its own kind: %v", err)
	}
	if markUnavailable("ollama generate", nil) != nil {
		t.Fatalf("nil stays nil")
	}
}
