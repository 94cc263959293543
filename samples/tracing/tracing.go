package main

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/simple-workflow/swf/core"
	"github.com/simple-workflow/swf/model"
	"github.com/simple-workflow/swf/provider"
	"github.com/simple-workflow/swf/provider/sqlite"
)

func main() {
	ctx := context.Background()

	r := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String("swf sample"),
		semconv.ServiceVersionKey.String("v0.1.0"),
		attribute.String("environment", "sample"),
	)

	stdoutexp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		panic(err)
	}

	tp := trace.NewTracerProvider(
		trace.WithSyncer(stdoutexp),
		trace.WithResource(r),
	)

	otel.SetTracerProvider(tp)

	sp := sqlite.NewInMemoryProvider(provider.WithTracerProvider(tp))
	defer sp.Close()

	if err := sp.CreateDomain(ctx, "samples"); err != nil {
		panic(err)
	}

	wt, err := model.NewWorkflowType(sp, "samples", "ProcessOrder", "1.0")
	if err != nil {
		panic(err)
	}

	// Every remote round trip below produces a span on the stdout exporter
	if err := wt.Save(ctx); err != nil {
		panic(err)
	}

	changes, err := wt.Changes(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Println("changes after save:", changes)

	we, err := wt.StartExecution(ctx, model.StartExecutionOptions{
		Input: "hello",
	})
	if err != nil {
		panic(err)
	}

	if err := sp.CompleteWorkflowExecution(ctx, we.Domain, we.RunID, we.WorkflowID, core.CloseStatusCompleted); err != nil {
		panic(err)
	}

	if err := we.WaitForClose(ctx, time.Second*10); err != nil {
		panic(err)
	}

	if _, err := we.History(ctx); err != nil {
		panic(err)
	}

	tp.Shutdown(context.Background())
}
