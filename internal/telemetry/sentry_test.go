package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_EmptyDSNIsNoop(t *testing.T) {
	shutdown, err := Init(Config{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown()
}

func TestSampler(t *testing.T) {
	sample := sampler(0.25)

	health := &sentry.Span{Name: "GET /health"}
	assert.Equal(t, 0.0, sample(sentry.SamplingContext{Span: health}))

	root := &sentry.Span{Name: "POST /ask-question"}
	assert.Equal(t, 0.25, sample(sentry.SamplingContext{Span: root}))

	child := &sentry.Span{Name: "QueryService.Ask", ParentSpanID: sentry.SpanID{1}, Sampled: sentry.SampledTrue}
	assert.Equal(t, 1.0, sample(sentry.SamplingContext{Span: child}))

	child.Sampled = sentry.SampledFalse
	assert.Equal(t, 0.0, sample(sentry.SamplingContext{Span: child}))
}

func TestStartSpan_WithoutSentry(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "IngestionService.Ingest", SpanAttributes{
		UserID:        7,
		LibraryItemID: 3,
		ContentType:   "url",
		Operation:     "ingest",
	})
	require.NotNil(t, ctx)

	assert.NotPanics(t, func() {
		span.SetError(errors.New("boom"))
		span.SetError(nil)
		Breadcrumb(ctx, "ingest", "library item stored", map[string]any{"library_item_id": 3})
		span.End()
	})
}

func TestStartSpan_NestsUnderParent(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "parent", SpanAttributes{})
	defer parent.End()

	_, child := StartSpan(ctx, "child", SpanAttributes{UserID: 1})
	defer child.End()

	assert.Equal(t, parent.inner.SpanID, child.inner.ParentSpanID)
	assert.Equal(t, "1", child.inner.Tags["user_id"])
}

func TestSpan_NilInnerIsSafe(t *testing.T) {
	var span Span
	assert.NotPanics(t, func() {
		span.SetError(errors.New("boom"))
		span.End()
	})
}
