package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/simple-workflow/swf/converter"
	"github.com/simple-workflow/swf/core"
	"github.com/simple-workflow/swf/diff"
	"github.com/simple-workflow/swf/history"
	"github.com/simple-workflow/swf/internal/log"
	"github.com/simple-workflow/swf/internal/metrickeys"
	"github.com/simple-workflow/swf/metrics"
	"github.com/simple-workflow/swf/provider"
)

// WorkflowExecution is one run of a workflow type, identified by the
// user-chosen workflow id plus the remote-assigned run id. The run id is
// empty until the execution has been started.
//
// The execution references its type by domain, name and version; the type
// is not embedded. The OPEN to CLOSED transition happens remote-side, this
// model only observes it through Diff or Exists.
type WorkflowExecution struct {
	Domain     string
	WorkflowID string
	RunID      string

	Status core.ExecutionStatus

	TaskList             string
	ExecutionTimeout     string
	Input                converter.Payload
	TagList              []string
	DecisionTasksTimeout string

	childPolicy core.ChildPolicy

	cp    provider.ConnectionProvider
	clock clock.Clock
}

var _ Syncable = (*WorkflowExecution)(nil)

type WorkflowExecutionOption func(*WorkflowExecution)

func WithExecutionRunID(runID string) WorkflowExecutionOption {
	return func(e *WorkflowExecution) {
		e.RunID = runID
	}
}

func WithExecutionStatus(status core.ExecutionStatus) WorkflowExecutionOption {
	return func(e *WorkflowExecution) {
		e.Status = status
	}
}

func WithExecutionTaskList(taskList string) WorkflowExecutionOption {
	return func(e *WorkflowExecution) {
		e.TaskList = taskList
	}
}

func WithExecutionChildPolicy(policy core.ChildPolicy) WorkflowExecutionOption {
	return func(e *WorkflowExecution) {
		e.childPolicy = policy
	}
}

func WithExecutionTimeout(timeout string) WorkflowExecutionOption {
	return func(e *WorkflowExecution) {
		e.ExecutionTimeout = timeout
	}
}

func WithExecutionTagList(tags []string) WorkflowExecutionOption {
	return func(e *WorkflowExecution) {
		e.TagList = tags
	}
}

func WithExecutionDecisionTasksTimeout(timeout string) WorkflowExecutionOption {
	return func(e *WorkflowExecution) {
		e.DecisionTasksTimeout = timeout
	}
}

// WithExecutionClock replaces the wall clock used when polling.
func WithExecutionClock(c clock.Clock) WorkflowExecutionOption {
	return func(e *WorkflowExecution) {
		e.clock = c
	}
}

// NewWorkflowExecution creates a local handle to a workflow execution,
// either one not yet started or one already running remote-side. A set
// child policy is validated, the zero value means unset.
func NewWorkflowExecution(cp provider.ConnectionProvider, domain, workflowID string, opts ...WorkflowExecutionOption) (*WorkflowExecution, error) {
	e := &WorkflowExecution{
		Domain:     domain,
		WorkflowID: workflowID,

		Status: core.ExecutionStatusOpen,

		cp:    cp,
		clock: clock.New(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.childPolicy != "" {
		if err := e.childPolicy.Validate(); err != nil {
			return nil, err
		}
	}

	return e, nil
}

func (e *WorkflowExecution) ChildPolicy() core.ChildPolicy {
	return e.childPolicy
}

// SetChildPolicy validates and assigns the child policy.
func (e *WorkflowExecution) SetChildPolicy(policy core.ChildPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	e.childPolicy = policy

	return nil
}

// Diff compares this execution against its remote description and returns
// the attributes that differ.
func (e *WorkflowExecution) Diff(ctx context.Context) ([]diff.Change, error) {
	ctx, span := e.cp.Tracer().Start(ctx, fmt.Sprintf("DiffWorkflowExecution: %s", e.WorkflowID), trace.WithAttributes(
		attribute.String(log.DomainKey, e.Domain),
		attribute.String(log.WorkflowIDKey, e.WorkflowID),
		attribute.String(log.RunIDKey, e.RunID),
	))
	defer span.End()

	desc, err := e.cp.DescribeWorkflowExecution(ctx, e.Domain, e.RunID, e.WorkflowID)
	if err != nil {
		return nil, translateFault(err)
	}

	return diff.Compare([]diff.Field{
		{Name: "workflow_id", Local: e.WorkflowID, Remote: desc.Info.WorkflowID},
		{Name: "run_id", Local: e.RunID, Remote: desc.Info.RunID},
		{Name: "status", Local: e.Status, Remote: desc.Info.Status},
		{Name: "task_list", Local: e.TaskList, Remote: desc.Configuration.TaskList},
		{Name: "child_policy", Local: e.childPolicy, Remote: desc.Configuration.ChildPolicy},
		{Name: "execution_timeout", Local: e.ExecutionTimeout, Remote: desc.Configuration.ExecutionTimeout},
		{Name: "tag_list", Local: e.TagList, Remote: desc.Info.TagList},
		{Name: "decision_tasks_timeout", Local: e.DecisionTasksTimeout, Remote: desc.Configuration.DecisionTasksTimeout},
	}), nil
}

// Exists reports whether the execution exists remote-side.
func (e *WorkflowExecution) Exists(ctx context.Context) (bool, error) {
	_, err := e.cp.DescribeWorkflowExecution(ctx, e.Domain, e.RunID, e.WorkflowID)
	if err != nil {
		if isUnknownResource(err) {
			return false, nil
		}

		return false, translateFault(err)
	}

	return true, nil
}

// IsSynced reports whether the execution matches its remote description.
func (e *WorkflowExecution) IsSynced(ctx context.Context) (bool, error) {
	changes, err := e.Diff(ctx)
	if err != nil {
		return false, err
	}

	return len(changes) == 0, nil
}

// Changes returns the changeset between the execution and its remote
// description.
func (e *WorkflowExecution) Changes(ctx context.Context) ([]diff.Change, error) {
	return e.Diff(ctx)
}

// History fetches the execution's complete event log and assembles it into
// an ordered report. This is the only way to learn a closed execution's
// detailed outcome. Paging options are forwarded to the provider untouched.
func (e *WorkflowExecution) History(ctx context.Context, opts ...provider.HistoryOption) (*history.History, error) {
	ctx, span := e.cp.Tracer().Start(ctx, fmt.Sprintf("GetWorkflowExecutionHistory: %s", e.WorkflowID), trace.WithAttributes(
		attribute.String(log.DomainKey, e.Domain),
		attribute.String(log.WorkflowIDKey, e.WorkflowID),
		attribute.String(log.RunIDKey, e.RunID),
	))
	defer span.End()

	timer := metrics.Timer(e.cp.Metrics(), metrickeys.HistoryFetchLatency, metrics.Tags{})

	events, err := e.cp.GetWorkflowExecutionHistory(ctx, e.Domain, e.RunID, e.WorkflowID, opts...)
	if err != nil {
		span.RecordError(err)
		return nil, translateFault(err)
	}

	e.cp.Logger().Debug(
		"Fetched workflow execution history",
		log.DomainKey, e.Domain,
		log.WorkflowIDKey, e.WorkflowID,
		log.RunIDKey, e.RunID,
		log.EventCountKey, len(events),
	)

	timer.Stop()
	e.cp.Metrics().Counter(metrickeys.HistoryFetched, metrics.Tags{}, 1)

	return history.New(events), nil
}

// WaitForClose polls the remote description until the execution is closed
// or the given timeout has expired.
func (e *WorkflowExecution) WaitForClose(ctx context.Context, timeout time.Duration) error {
	if timeout == 0 {
		timeout = time.Second * 20
	}

	ctx, span := e.cp.Tracer().Start(ctx, fmt.Sprintf("WaitForClose: %s", e.WorkflowID), trace.WithAttributes(
		attribute.String(log.DomainKey, e.Domain),
		attribute.String(log.WorkflowIDKey, e.WorkflowID),
		attribute.String(log.RunIDKey, e.RunID),
	))
	defer span.End()

	b := backoff.ExponentialBackOff{
		InitialInterval:     time.Millisecond * 1,
		MaxInterval:         time.Second * 1,
		Multiplier:          1.5,
		RandomizationFactor: 0.5,
		MaxElapsedTime:      timeout,
		Stop:                backoff.Stop,
		Clock:               e.clock,
	}
	b.Reset()

	ticker := backoff.NewTicker(&b)
	defer ticker.Stop()

	for range ticker.C {
		desc, err := e.cp.DescribeWorkflowExecution(ctx, e.Domain, e.RunID, e.WorkflowID)
		if err != nil {
			return translateFault(err)
		}

		if desc.Info.Status == core.ExecutionStatusClosed {
			return nil
		}
	}

	return errors.New("workflow execution did not close in specified timeout")
}

func (e *WorkflowExecution) String() string {
	return fmt.Sprintf("<WorkflowExecution domain=%s workflow_id=%s run_id=%s status=%s>",
		e.Domain, e.WorkflowID, e.RunID, e.Status)
}
