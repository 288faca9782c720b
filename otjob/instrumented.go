// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otjob

import "github.com/jobforge/jobforge"

// InstrumentedJob combines logging, metrics, and tracing into a single
// wrapper, applied inside-out: logging innermost, then metrics, then the
// trace span outermost so it covers the other two.
func InstrumentedJob(operationName string, run jobforge.RunFunc) jobforge.RunFunc {
	logged := LoggedJob(operationName, run)
	measured := MetricsJob(operationName, logged)
	return TracedJob(operationName, measured)
}

// InstrumentedAsyncJob is the [jobforge.AsyncFunc] counterpart of
// InstrumentedJob.
func InstrumentedAsyncJob(operationName string, run jobforge.AsyncFunc) jobforge.AsyncFunc {
	logged := LoggedAsyncJob(operationName, run)
	measured := MetricsAsyncJob(operationName, logged)
	return TracedAsyncJob(operationName, measured)
}
