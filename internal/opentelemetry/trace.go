// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package opentelemetry

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace" // name this differently so it doesn't conflict with the tracer interface
	"go.opentelemetry.io/otel/trace"
)

const DefaultTracingEndpoint = "127.0.0.1:4317"

// the global tracer instance that keeps track of client spans
var Tracer trace.Tracer
var TracerProvider *sdktrace.TracerProvider

// SubSpanFromCtxWithName starts a span under the span in ctx.
// When tracing is disabled the returned span does nothing
func SubSpanFromCtxWithName(ctx context.Context, name string) (context.Context, trace.Span) {
	if Tracer == nil {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return Tracer.Start(ctx, name)
}

// SubSpanForGraph starts a span tagged with the graph it operates on
func SubSpanForGraph(ctx context.Context, name, graphName string) (context.Context, trace.Span) {
	ctx, span := SubSpanFromCtxWithName(ctx, name)
	span.SetAttributes(attribute.String("ldsync.graph", graphName))
	return ctx, span
}

// FilteringSpanProcessor filters out Testcontainers spans
type FilteringSpanProcessor struct {
	next sdktrace.SpanProcessor
}

func (f *FilteringSpanProcessor) OnStart(parent context.Context, span sdktrace.ReadWriteSpan) {
	f.next.OnStart(parent, span)
}

func (f *FilteringSpanProcessor) OnEnd(span sdktrace.ReadOnlySpan) {
	if shouldFilterOutSpan(span) {
		return
	}
	f.next.OnEnd(span)
}

func (f *FilteringSpanProcessor) Shutdown(ctx context.Context) error {
	return f.next.Shutdown(ctx)
}

func (f *FilteringSpanProcessor) ForceFlush(ctx context.Context) error {
	return f.next.ForceFlush(ctx)
}

func shouldFilterOutSpan(span sdktrace.ReadOnlySpan) bool {
	for _, attr := range span.Attributes() {
		if attr.Key == "http.url" && strings.Contains(attr.Value.AsString(), "/containers/") {
			return true
		}
		if attr.Key == "user_agent.original" && strings.Contains(attr.Value.AsString(), "tc-go") {
			return true
		}
	}
	return false
}

// InitTracer exports spans over grpc to the collector at endpoint
func InitTracer(serviceName string, endpoint string) error {
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return fmt.Errorf("creating otel resource: %w", err)
	}

	client := otlptracegrpc.NewClient(
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	otlpTraceExporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return fmt.Errorf("creating otlp trace exporter: %w", err)
	}

	batchSpanProcessor := sdktrace.NewBatchSpanProcessor(otlpTraceExporter)
	TracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(&FilteringSpanProcessor{next: batchSpanProcessor}),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(TracerProvider)
	Tracer = TracerProvider.Tracer(serviceName)

	log.Infof("OpenTelemetry Tracer initialized, sending traces to %s", endpoint)
	return nil
}
