package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kryptobaseddev/cleo/internal/dispatch"
	"github.com/kryptobaseddev/cleo/internal/verify"
)

func TestPipelineReleaseTagIsIdempotentOnSecondCall(t *testing.T) {
	deps := newTestDeps(t)
	id := addTask(t, deps, map[string]any{"title": "Ship it"})

	tag := pipelineReleaseStub("tag")
	req := dispatch.DispatchRequest{Domain: "pipeline", Operation: "release.tag", Params: map[string]any{"id": id}}

	first, err := tag(context.Background(), req, verify.OperationContext{}, deps)
	require.NoError(t, err)
	require.False(t, first.Partial)

	second, err := tag(context.Background(), req, verify.OperationContext{}, deps)
	require.NoError(t, err)
	require.True(t, second.Partial)
}

func TestPipelineReleaseStubRequiresID(t *testing.T) {
	deps := newTestDeps(t)
	prepare := pipelineReleaseStub("prepare")
	req := dispatch.DispatchRequest{Domain: "pipeline", Operation: "release.prepare", Params: map[string]any{}}
	_, err := prepare(context.Background(), req, verify.OperationContext{}, deps)
	require.Error(t, err)
}
