// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package kerntrace instruments the scheduler and donation protocol
// with OpenTelemetry counters and histograms, generalizing the
// actionCount/actionLatency/buildLatency style of otel instruments
// bound to a process-wide otel.Meter to scheduling events instead.
package kerntrace

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
)

// Recorder records scheduler-level metrics for one simulated kernel
// boot. Its zero value is not usable; construct with NewRecorder. A
// nil *Recorder is safe to call methods on and is simply a no-op, so
// instrumentation is optional wherever a *Kernel is constructed.
type Recorder struct {
	runID  string
	reader *sdkmetric.ManualReader

	switches   metric.Int64Counter
	donations  metric.Int64Counter
	readyLen   metric.Int64Histogram
	donateWalk metric.Int64Histogram
}

// NewRecorder creates a Recorder tagged with a fresh UUID run ID,
// attached as a resource attribute so metrics from concurrent
// simulation runs in the same test binary do not collide.
func NewRecorder() (*Recorder, error) {
	runID := uuid.NewString()
	reader := sdkmetric.NewManualReader()
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName("pintos-kernel-sim"),
			attribute.String("run_id", runID),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("kerntrace: build resource: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	meter := provider.Meter("go.pintos.dev/kernel/sched")

	switches, err := meter.Int64Counter("kernel.context_switches",
		metric.WithDescription("number of times schedule() selected a different thread"))
	if err != nil {
		return nil, err
	}
	donations, err := meter.Int64Counter("kernel.donations",
		metric.WithDescription("number of nested-donation walks performed"))
	if err != nil {
		return nil, err
	}
	readyLen, err := meter.Int64Histogram("kernel.ready_len",
		metric.WithDescription("length of the ready list observed at schedule time"))
	if err != nil {
		return nil, err
	}
	donateWalk, err := meter.Int64Histogram("kernel.donation_walk_depth",
		metric.WithDescription("depth reached by a nested-donation walk"))
	if err != nil {
		return nil, err
	}

	return &Recorder{
		runID:      runID,
		reader:     reader,
		switches:   switches,
		donations:  donations,
		readyLen:   readyLen,
		donateWalk: donateWalk,
	}, nil
}

// RunID returns the UUID tagging this recorder's metrics.
func (r *Recorder) RunID() string {
	if r == nil {
		return ""
	}
	return r.runID
}

// OnSwitch records a context switch away from prevName (empty if none)
// to nextName, along with the ready-list length observed at the time.
func (r *Recorder) OnSwitch(ctx context.Context, prevName, nextName string, readyLen int) {
	if r == nil {
		return
	}
	r.switches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", prevName),
		attribute.String("to", nextName),
	))
	r.readyLen.Record(ctx, int64(readyLen))
}

// OnDonation records one nested-donation walk, along with its depth:
// the number of locks the walk visited, including a final one whose
// ceiling it found already high enough.
func (r *Recorder) OnDonation(ctx context.Context, depth int) {
	if r == nil {
		return
	}
	r.donations.Add(ctx, 1)
	r.donateWalk.Record(ctx, int64(depth))
}

// Collect returns the current aggregation of every recorded metric,
// for tests and the status UI that want to print a summary.
func (r *Recorder) Collect(ctx context.Context) (metricdata.ResourceMetrics, error) {
	if r == nil {
		return metricdata.ResourceMetrics{}, nil
	}
	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(ctx, &rm); err != nil {
		return metricdata.ResourceMetrics{}, fmt.Errorf("kerntrace: collect: %w", err)
	}
	return rm, nil
}
