// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package opentelemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSubSpanWithoutTracer(t *testing.T) {
	Tracer = nil
	ctx, span := SubSpanFromCtxWithName(context.Background(), "noop")
	defer span.End()
	require.NotNil(t, ctx)
	require.False(t, span.SpanContext().IsValid())
}

func TestSubSpanForGraph(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(&FilteringSpanProcessor{next: recorder}))
	Tracer = provider.Tracer("test")
	defer func() { Tracer = nil }()

	ctx, parent := SubSpanFromCtxWithName(context.Background(), "update")
	_, child := SubSpanForGraph(ctx, "publish", "https://example.org/ds")
	child.End()
	parent.End()

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	require.Equal(t, "publish", ended[0].Name())
	require.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())
	require.Equal(t, "https://example.org/ds", ended[0].Attributes()[0].Value.AsString())
}
