// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otjob

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/jobforge/jobforge"
)

// MetricsJob adds count and duration metrics to a [jobforge.RunFunc], named
// metricName+".count" and metricName+".duration".
func MetricsJob(metricName string, run jobforge.RunFunc) jobforge.RunFunc {
	return func(ctx context.Context) {
		meter := otel.GetMeterProvider().Meter("otjob")
		counter, _ := meter.Int64Counter(metricName + ".count")
		duration, _ := meter.Float64Histogram(metricName + ".duration")

		counter.Add(ctx, 1)
		startTime := time.Now()
		run(ctx)
		duration.Record(ctx, time.Since(startTime).Seconds())
	}
}

// MetricsAsyncJob is the [jobforge.AsyncFunc] counterpart of MetricsJob. The
// recorded duration spans every suspension inside run, not just CPU time on
// a single worker claim.
func MetricsAsyncJob(metricName string, run jobforge.AsyncFunc) jobforge.AsyncFunc {
	return func(self *jobforge.AsyncSelf) {
		meter := otel.GetMeterProvider().Meter("otjob")
		counter, _ := meter.Int64Counter(metricName + ".count")
		duration, _ := meter.Float64Histogram(metricName + ".duration")

		counter.Add(self.Context(), 1)
		startTime := time.Now()
		run(self)
		duration.Record(self.Context(), time.Since(startTime).Seconds())
	}
}
