package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	logger := zaptest.NewLogger(t)

	tp, err := NewTracerProvider(context.Background(), Config{Enabled: false}, logger)
	require.NoError(t, err)
	require.NotNil(t, tp)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(context.Background()))
	assert.NoError(t, tp.ForceFlush(context.Background()))
}

func TestTracerProvider_DisabledTracerStillStartsSpans(t *testing.T) {
	logger := zaptest.NewLogger(t)

	tp, err := NewTracerProvider(context.Background(), Config{Enabled: false}, logger)
	require.NoError(t, err)

	ctx, span := tp.Tracer("test").Start(context.Background(), "noop.operation")
	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
	span.End()
}
