// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package otjob provides optional instrumentation wrappers for job and
// async-job run bodies: structured logging, otel metrics, and otel tracing.
// None of it is required by [jobforge.System]; a host application opts in by
// wrapping its own run functions before submitting them.
package otjob

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jobforge/jobforge"
)

// LoggedJob adds structured start/completion logging to a [jobforge.RunFunc].
func LoggedJob(operationName string, run jobforge.RunFunc) jobforge.RunFunc {
	return func(ctx context.Context) {
		logger := zap.L()
		logger.Debug("starting job",
			zap.String("operation", operationName),
			zap.String("component", "otjob"))

		startTime := time.Now()
		run(ctx)
		duration := time.Since(startTime)

		logger.Debug("job completed",
			zap.String("operation", operationName),
			zap.String("component", "otjob"),
			zap.Duration("duration", duration))
	}
}

// LoggedAsyncJob is the [jobforge.AsyncFunc] counterpart of LoggedJob. It
// only brackets the call: Yield and Await suspensions happen inside run and
// are not separately logged.
func LoggedAsyncJob(operationName string, run jobforge.AsyncFunc) jobforge.AsyncFunc {
	return func(self *jobforge.AsyncSelf) {
		logger := zap.L()
		logger.Debug("starting async job",
			zap.String("operation", operationName),
			zap.String("component", "otjob"))

		startTime := time.Now()
		run(self)
		duration := time.Since(startTime)

		logger.Debug("async job completed",
			zap.String("operation", operationName),
			zap.String("component", "otjob"),
			zap.Duration("duration", duration))
	}
}
