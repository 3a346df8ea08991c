// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package opentelemetry

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Shutdown flushes and stops any providers that were started.
// This should be called when the top level application is shutting down
func Shutdown(ctx context.Context) {
	if TracerProvider != nil {
		if err := TracerProvider.ForceFlush(ctx); err != nil {
			log.Errorf("Error flushing traces; is the collector for traces running?; %v", err)
		}
		if err := TracerProvider.Shutdown(ctx); err != nil {
			log.Errorf("Error shutting down tracer provider: %v", err)
		}
		TracerProvider = nil
		Tracer = nil
	}

	if MeterProvider != nil {
		if err := MeterProvider.ForceFlush(ctx); err != nil {
			log.Errorf("Error flushing metrics; Is the collector for metrics running?; %v", err)
		}
		if err := MeterProvider.Shutdown(ctx); err != nil {
			log.Errorf("Error shutting down meter provider: %v", err)
		}
		MeterProvider = nil
	}
}
