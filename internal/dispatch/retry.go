package dispatch

import (
	"context"
	"time"

	"github.com/kryptobaseddev/cleo/internal/exitcode"
)

// retryDelays is the fixed client-side backoff schedule: 2s, 4s, 8s.
var retryDelays = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

// maxRetryAttempts bounds the retry helper at 3 attempts beyond the first call.
const maxRetryAttempts = 3

// RetryableFunc is one dispatch attempt, returning the response and the
// ErrorKind that should drive the retry decision (empty on success).
type RetryableFunc func(ctx context.Context) (DispatchResponse, exitcode.ErrorKind)

// WithRetry runs fn, retrying with the fixed 2s/4s/8s backoff schedule (max
// 3 retries) only while the returned ErrorKind is in exitcode.RetryableKinds
// and never when it is in exitcode.NeverRetryKinds. This is exposed to
// adapters, not invoked by the pipeline itself: the pipeline runs an
// operation exactly once per dispatch call.
func WithRetry(ctx context.Context, fn RetryableFunc) DispatchResponse {
	var resp DispatchResponse
	var kind exitcode.ErrorKind

	for attempt := 0; attempt <= maxRetryAttempts; attempt++ {
		resp, kind = fn(ctx)
		if kind == "" || !exitcode.RetryableKinds[kind] || exitcode.NeverRetryKinds[kind] {
			return resp
		}
		if attempt == maxRetryAttempts {
			return resp
		}
		select {
		case <-ctx.Done():
			return resp
		case <-time.After(retryDelays[attempt]):
		}
	}
	return resp
}
