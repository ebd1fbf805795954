package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	require.NoError(t, Init(ctx, Options{Writer: &buf}))

	_, span := Tracer("").Start(ctx, "noop")
	span.End()
	assert.False(t, span.SpanContext().IsValid())

	Shutdown(ctx)
	assert.Empty(t, buf.String())
}

func TestInit_EnabledExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	require.NoError(t, Init(ctx, Options{Enabled: true, Writer: &buf, Version: "test"}))
	t.Cleanup(func() {
		_ = Init(ctx, Options{})
	})

	_, span := Tracer("issueflow/test").Start(ctx, "suite.finish")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	counter, err := Meter("issueflow/test").Int64Counter("issueflow.test.count")
	require.NoError(t, err)
	counter.Add(ctx, 1)

	Shutdown(ctx)
	out := buf.String()
	assert.Contains(t, out, "suite.finish")
	assert.Contains(t, out, "issueflow.test.count")
}
