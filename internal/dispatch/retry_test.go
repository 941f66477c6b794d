package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kryptobaseddev/cleo/internal/exitcode"
)

func TestWithRetryStopsOnNonRetryableKind(t *testing.T) {
	calls := 0
	resp := WithRetry(context.Background(), func(ctx context.Context) (DispatchResponse, exitcode.ErrorKind) {
		calls++
		return DispatchResponse{Success: false}, exitcode.KindFileError
	})
	require.False(t, resp.Success)
	require.Equal(t, 1, calls)
}

func TestWithRetryReturnsImmediatelyOnSuccess(t *testing.T) {
	calls := 0
	resp := WithRetry(context.Background(), func(ctx context.Context) (DispatchResponse, exitcode.ErrorKind) {
		calls++
		return DispatchResponse{Success: true}, ""
	})
	require.True(t, resp.Success)
	require.Equal(t, 1, calls)
}

func TestWithRetryRetriesRetryableKindThenSucceeds(t *testing.T) {
	calls := 0
	resp := WithRetry(context.Background(), func(ctx context.Context) (DispatchResponse, exitcode.ErrorKind) {
		calls++
		if calls < 2 {
			return DispatchResponse{Success: false}, exitcode.KindLockTimeout
		}
		return DispatchResponse{Success: true}, ""
	})
	require.True(t, resp.Success)
	require.Equal(t, 2, calls)
}
