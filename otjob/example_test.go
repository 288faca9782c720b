// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otjob_test

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/jobforge/jobforge"
	"github.com/jobforge/jobforge/otjob"
)

// Example demonstrating tracing and metrics on a plain job.
func Example_instrumentedJob() {
	exporter, _ := stdouttrace.New(stdouttrace.WithPrettyPrint(), stdouttrace.WithWriter(io.Discard))
	tp := trace.NewTracerProvider(
		trace.WithSampler(trace.AlwaysSample()),
		trace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	sys := jobforge.NewSystem(2)
	defer sys.Shutdown()

	done := make(chan struct{})
	job := otjob.InstrumentedJob("compute-sum", func(ctx context.Context) {
		sum := 0
		for i := 1; i <= 10; i++ {
			sum += i
		}
		fmt.Println("sum:", sum)
		close(done)
	})

	if err := sys.SubmitJob(jobforge.NewJob("compute-sum", jobforge.DefaultDefinition(), job)); err != nil {
		fmt.Println("error:", err)
	}
	<-done

	// Output:
	// sum: 55
}
