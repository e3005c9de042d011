package eino

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"ultra-prompt-ai-api/pkg/metrics"
)

func TestWorkflowProviderRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, WorkflowFromContext(ctx))
	assert.Empty(t, ProviderFromContext(ctx))

	ctx = WithWorkflowProvider(ctx, "refine", "gemini")
	assert.Equal(t, "refine", WorkflowFromContext(ctx))
	assert.Equal(t, "gemini", ProviderFromContext(ctx))
}

func TestRecordCall(t *testing.T) {
	ctx := WithWorkflowProvider(context.Background(), "record_test", "fake")

	RecordCall(ctx, "m1", 0.2, 10, 5, nil)
	RecordCall(ctx, "m1", 0.1, 0, 0, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("record_test", "fake", "m1", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("record_test", "fake", "m1", "error")))
	assert.Equal(t, 10.0, testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("record_test", "fake", "m1", "prompt")))
}
