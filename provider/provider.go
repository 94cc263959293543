package provider

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/simple-workflow/swf/converter"
	"github.com/simple-workflow/swf/core"
	"github.com/simple-workflow/swf/history"
	"github.com/simple-workflow/swf/metrics"
)

const TracerName = "swf"

// WorkflowTypeInfo is the identity and lifecycle part of a remote workflow
// type description.
type WorkflowTypeInfo struct {
	Name            string
	Version         string
	Status          core.RegistrationStatus
	CreationDate    float64
	DeprecationDate float64
	Description     string
}

// WorkflowTypeConfiguration holds the scheduling defaults registered with a
// workflow type.
type WorkflowTypeConfiguration struct {
	DefaultTaskList             string
	DefaultChildPolicy          core.ChildPolicy
	DefaultExecutionTimeout     string
	DefaultDecisionTasksTimeout string
}

type WorkflowTypeDescription struct {
	Info          WorkflowTypeInfo
	Configuration WorkflowTypeConfiguration
}

// WorkflowTypeRegistration carries the values a workflow type is registered
// with remote-side.
type WorkflowTypeRegistration struct {
	Domain  string
	Name    string
	Version string

	TaskList             string
	ChildPolicy          core.ChildPolicy
	ExecutionTimeout     string
	DecisionTasksTimeout string
	Description          string
}

// WorkflowExecutionInfo is the identity and lifecycle part of a remote
// workflow execution description.
type WorkflowExecutionInfo struct {
	WorkflowID string
	RunID      string
	Status     core.ExecutionStatus
	// CloseStatus is only set once Status is CLOSED.
	CloseStatus core.CloseStatus
	TagList     []string
}

// WorkflowExecutionConfiguration holds the effective scheduling settings of
// a workflow execution.
type WorkflowExecutionConfiguration struct {
	TaskList             string
	ChildPolicy          core.ChildPolicy
	ExecutionTimeout     string
	DecisionTasksTimeout string
}

type WorkflowExecutionDescription struct {
	Info          WorkflowExecutionInfo
	Configuration WorkflowExecutionConfiguration
}

// ExecutionStart carries the effective values a workflow execution is
// started with.
type ExecutionStart struct {
	Domain     string
	WorkflowID string

	TypeName    string
	TypeVersion string

	TaskList             string
	ChildPolicy          core.ChildPolicy
	ExecutionTimeout     string
	Input                converter.Payload
	TagList              []string
	DecisionTasksTimeout string
}

// ConnectionProvider performs the remote round trips the entity model
// needs. Implementations signal remote faults as *Fault so callers can
// translate them without inspecting message strings.
//
//go:generate mockery --name=ConnectionProvider --inpackage
type ConnectionProvider interface {
	// DescribeWorkflowType returns the remote description of a workflow type
	DescribeWorkflowType(ctx context.Context, domain, name, version string) (*WorkflowTypeDescription, error)

	// RegisterWorkflowType registers a new workflow type version
	RegisterWorkflowType(ctx context.Context, reg *WorkflowTypeRegistration) error

	// DeprecateWorkflowType deprecates a workflow type. Deprecated types
	// remain describable.
	DeprecateWorkflowType(ctx context.Context, domain, name, version string) error

	// StartWorkflowExecution starts a new workflow execution and returns the
	// assigned run id
	StartWorkflowExecution(ctx context.Context, start *ExecutionStart) (string, error)

	// DescribeWorkflowExecution returns the remote description of a workflow
	// execution
	DescribeWorkflowExecution(ctx context.Context, domain, runID, workflowID string) (*WorkflowExecutionDescription, error)

	// GetWorkflowExecutionHistory returns the execution's event records in
	// remote order, oldest first
	GetWorkflowExecutionHistory(ctx context.Context, domain, runID, workflowID string, opts ...HistoryOption) ([]*history.Event, error)

	// Logger returns the configured logger for the provider
	Logger() *slog.Logger

	// Metrics returns the configured metrics client for the provider
	Metrics() metrics.Client

	// Tracer returns the configured trace provider for the provider
	Tracer() trace.Tracer

	// Converter returns the configured payload converter for the provider
	Converter() converter.Converter

	// Options returns the configured options for the provider
	Options() *Options

	// Close closes any underlying resources
	Close() error
}
