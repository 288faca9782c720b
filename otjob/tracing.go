// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otjob

import (
	"context"

	"go.opentelemetry.io/otel"

	"github.com/jobforge/jobforge"
)

// TracedJob wraps a [jobforge.RunFunc] in an otel span named operationName.
// A job has no return value, so the span is purely a side effect of running
// the job; there is no typed result to propagate a trace context through.
func TracedJob(operationName string, run jobforge.RunFunc) jobforge.RunFunc {
	return func(ctx context.Context) {
		tracer := otel.Tracer("otjob")
		ctx, span := tracer.Start(ctx, operationName)
		defer span.End()
		run(ctx)
	}
}

// TracedAsyncJob is the [jobforge.AsyncFunc] counterpart of TracedJob. The
// span covers the job's full suspend/resume lifetime, since it is started
// before run is called and ended only once run returns for good.
func TracedAsyncJob(operationName string, run jobforge.AsyncFunc) jobforge.AsyncFunc {
	return func(self *jobforge.AsyncSelf) {
		_, span := otel.Tracer("otjob").Start(self.Context(), operationName)
		defer span.End()
		run(self)
	}
}
