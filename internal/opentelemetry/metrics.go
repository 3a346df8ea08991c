// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package opentelemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	metricInterfaces "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

const DefaultMetricCollectorEndpoint = "localhost:4317"

const meterName = "ldsync"

var MeterProvider *metric.MeterProvider
var DatasetCounter metricInterfaces.Int64Counter
var ValidationFailureCounter metricInterfaces.Int64Counter
var SparqlHistogram metricInterfaces.Float64Histogram

// InitMetrics exports metrics over grpc to the collector at endpoint
func InitMetrics(endpoint string) error {
	metricExporter, err := otlpmetricgrpc.New(
		context.Background(),
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return fmt.Errorf("creating otlp metric exporter: %w", err)
	}
	return initMetricsWithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(10*time.Second)))
}

func initMetricsWithReader(reader metric.Reader) error {
	MeterProvider = metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(MeterProvider)

	meter := MeterProvider.Meter(meterName)
	var err error
	DatasetCounter, err = meter.Int64Counter("datasets_reconciled",
		metricInterfaces.WithDescription("Datasets processed by an update, by change kind"),
	)
	if err != nil {
		return err
	}
	ValidationFailureCounter, err = meter.Int64Counter("datasets_failing_validation",
		metricInterfaces.WithDescription("Datasets that did not conform to the profile"),
	)
	if err != nil {
		return err
	}
	SparqlHistogram, err = meter.Float64Histogram("sparql_request_seconds",
		metricInterfaces.WithDescription("Time taken by a SPARQL query or update"),
	)
	return err
}

// RecordDatasetChange counts a reconciled dataset by its change kind
func RecordDatasetChange(change string) {
	if MeterProvider == nil {
		return
	}
	DatasetCounter.Add(context.Background(), 1,
		metricInterfaces.WithAttributes(attribute.String("change", change)),
	)
}

// RecordValidationFailure counts a dataset that failed validation
func RecordValidationFailure(file string) {
	if MeterProvider == nil {
		return
	}
	ValidationFailureCounter.Add(context.Background(), 1,
		metricInterfaces.WithAttributes(attribute.String("file", file)),
	)
}

// RecordSparqlDuration records how long a request of the given kind (query or update) took
func RecordSparqlDuration(kind string, seconds float64) {
	if MeterProvider == nil {
		return
	}
	SparqlHistogram.Record(context.Background(), seconds,
		metricInterfaces.WithAttributes(attribute.String("kind", kind)),
	)
}
