package model

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/simple-workflow/swf/core"
	"github.com/simple-workflow/swf/diff"
	"github.com/simple-workflow/swf/internal/log"
	"github.com/simple-workflow/swf/internal/metrickeys"
	"github.com/simple-workflow/swf/metrics"
	"github.com/simple-workflow/swf/provider"
)

// DefaultTimeout is the default execution and decision tasks timeout of a
// workflow type, in stringified seconds.
const DefaultTimeout = "300"

// WorkflowType is a versioned, named template defining default scheduling
// and timeout behavior for workflow executions. The (domain, name, version)
// identity is immutable once registered remote-side.
type WorkflowType struct {
	Domain  string
	Name    string
	Version string

	Status core.RegistrationStatus

	// CreationDate and DeprecationDate are epoch seconds, 0 when unset.
	CreationDate    float64
	DeprecationDate float64

	TaskList             string
	ExecutionTimeout     string
	DecisionTasksTimeout string
	Description          string

	childPolicy core.ChildPolicy

	cp    provider.ConnectionProvider
	clock clock.Clock
}

var _ Syncable = (*WorkflowType)(nil)

type WorkflowTypeOption func(*WorkflowType)

func WithTypeStatus(status core.RegistrationStatus) WorkflowTypeOption {
	return func(t *WorkflowType) {
		t.Status = status
	}
}

func WithTypeTaskList(taskList string) WorkflowTypeOption {
	return func(t *WorkflowType) {
		t.TaskList = taskList
	}
}

func WithTypeChildPolicy(policy core.ChildPolicy) WorkflowTypeOption {
	return func(t *WorkflowType) {
		t.childPolicy = policy
	}
}

func WithTypeExecutionTimeout(timeout string) WorkflowTypeOption {
	return func(t *WorkflowType) {
		t.ExecutionTimeout = timeout
	}
}

func WithTypeDecisionTasksTimeout(timeout string) WorkflowTypeOption {
	return func(t *WorkflowType) {
		t.DecisionTasksTimeout = timeout
	}
}

func WithTypeDescription(description string) WorkflowTypeOption {
	return func(t *WorkflowType) {
		t.Description = description
	}
}

// WithTypeClock replaces the wall clock used for synthesized workflow ids.
func WithTypeClock(c clock.Clock) WorkflowTypeOption {
	return func(t *WorkflowType) {
		t.clock = c
	}
}

// NewWorkflowType creates a local workflow type. This has no remote effect,
// call Save to register it. The child policy is validated here and on every
// later assignment, an out-of-enum value fails with
// *core.InvalidChildPolicyError before any remote call.
func NewWorkflowType(cp provider.ConnectionProvider, domain, name, version string, opts ...WorkflowTypeOption) (*WorkflowType, error) {
	t := &WorkflowType{
		Domain:  domain,
		Name:    name,
		Version: version,

		Status:               core.RegistrationStatusRegistered,
		ExecutionTimeout:     DefaultTimeout,
		DecisionTasksTimeout: DefaultTimeout,

		childPolicy: core.ChildPolicyTerminate,

		cp:    cp,
		clock: clock.New(),
	}

	for _, opt := range opts {
		opt(t)
	}

	if err := t.childPolicy.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *WorkflowType) ChildPolicy() core.ChildPolicy {
	return t.childPolicy
}

// SetChildPolicy validates and assigns the child policy.
func (t *WorkflowType) SetChildPolicy(policy core.ChildPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	t.childPolicy = policy

	return nil
}

// Diff compares this workflow type against its remote description and
// returns the attributes that differ.
func (t *WorkflowType) Diff(ctx context.Context) ([]diff.Change, error) {
	ctx, span := t.cp.Tracer().Start(ctx, fmt.Sprintf("DiffWorkflowType: %s", t.Name), trace.WithAttributes(
		attribute.String(log.DomainKey, t.Domain),
		attribute.String(log.WorkflowNameKey, t.Name),
		attribute.String(log.WorkflowVersionKey, t.Version),
	))
	defer span.End()

	desc, err := t.cp.DescribeWorkflowType(ctx, t.Domain, t.Name, t.Version)
	if err != nil {
		return nil, translateFault(err)
	}

	return diff.Compare([]diff.Field{
		{Name: "name", Local: t.Name, Remote: desc.Info.Name},
		{Name: "version", Local: t.Version, Remote: desc.Info.Version},
		{Name: "status", Local: t.Status, Remote: desc.Info.Status},
		{Name: "creation_date", Local: t.CreationDate, Remote: desc.Info.CreationDate},
		{Name: "deprecation_date", Local: t.DeprecationDate, Remote: desc.Info.DeprecationDate},
		{Name: "task_list", Local: t.TaskList, Remote: desc.Configuration.DefaultTaskList},
		{Name: "child_policy", Local: t.childPolicy, Remote: desc.Configuration.DefaultChildPolicy},
		{Name: "execution_timeout", Local: t.ExecutionTimeout, Remote: desc.Configuration.DefaultExecutionTimeout},
		{Name: "decision_tasks_timeout", Local: t.DecisionTasksTimeout, Remote: desc.Configuration.DefaultDecisionTasksTimeout},
		{Name: "description", Local: t.Description, Remote: desc.Info.Description},
	}), nil
}

// Exists reports whether the workflow type exists remote-side.
func (t *WorkflowType) Exists(ctx context.Context) (bool, error) {
	_, err := t.cp.DescribeWorkflowType(ctx, t.Domain, t.Name, t.Version)
	if err != nil {
		if isUnknownResource(err) {
			return false, nil
		}

		return false, translateFault(err)
	}

	return true, nil
}

// IsSynced reports whether the workflow type matches its remote description.
func (t *WorkflowType) IsSynced(ctx context.Context) (bool, error) {
	changes, err := t.Diff(ctx)
	if err != nil {
		return false, err
	}

	return len(changes) == 0, nil
}

// Changes returns the changeset between the workflow type and its remote
// description.
func (t *WorkflowType) Changes(ctx context.Context) ([]diff.Change, error) {
	return t.Diff(ctx)
}

// Save registers the workflow type remote-side with the current local
// values. Fails with *core.AlreadyExistsError when the same name and
// version is already registered, and with *core.NotFoundError when the
// domain does not exist. Local state is not re-synced after a successful
// registration.
func (t *WorkflowType) Save(ctx context.Context) error {
	ctx, span := t.cp.Tracer().Start(ctx, fmt.Sprintf("SaveWorkflowType: %s", t.Name), trace.WithAttributes(
		attribute.String(log.DomainKey, t.Domain),
		attribute.String(log.WorkflowNameKey, t.Name),
		attribute.String(log.WorkflowVersionKey, t.Version),
	))
	defer span.End()

	err := t.cp.RegisterWorkflowType(ctx, &provider.WorkflowTypeRegistration{
		Domain:  t.Domain,
		Name:    t.Name,
		Version: t.Version,

		TaskList:             t.TaskList,
		ChildPolicy:          t.childPolicy,
		ExecutionTimeout:     t.ExecutionTimeout,
		DecisionTasksTimeout: t.DecisionTasksTimeout,
		Description:          t.Description,
	})
	if err != nil {
		span.RecordError(err)
		return translateFault(err)
	}

	t.cp.Logger().Debug(
		"Registered workflow type",
		log.DomainKey, t.Domain,
		log.WorkflowNameKey, t.Name,
		log.WorkflowVersionKey, t.Version,
	)

	t.cp.Metrics().Counter(metrickeys.WorkflowTypeRegistered, metrics.Tags{}, 1)

	return nil
}

// Delete deprecates the workflow type remote-side. There is no hard delete,
// deprecated types remain queryable. Deprecating twice fails with
// *core.NotFoundError. Local status is not touched, re-sync to observe
// DEPRECATED.
func (t *WorkflowType) Delete(ctx context.Context) error {
	ctx, span := t.cp.Tracer().Start(ctx, fmt.Sprintf("DeleteWorkflowType: %s", t.Name), trace.WithAttributes(
		attribute.String(log.DomainKey, t.Domain),
		attribute.String(log.WorkflowNameKey, t.Name),
		attribute.String(log.WorkflowVersionKey, t.Version),
	))
	defer span.End()

	if err := t.cp.DeprecateWorkflowType(ctx, t.Domain, t.Name, t.Version); err != nil {
		span.RecordError(err)
		return translateFault(err)
	}

	t.cp.Logger().Debug(
		"Deprecated workflow type",
		log.DomainKey, t.Domain,
		log.WorkflowNameKey, t.Name,
		log.WorkflowVersionKey, t.Version,
	)

	t.cp.Metrics().Counter(metrickeys.WorkflowTypeDeprecated, metrics.Tags{}, 1)

	return nil
}

// StartExecutionOptions are caller overrides for StartExecution. TaskList
// and ChildPolicy fall back to the workflow type's values when unset, the
// remaining fields pass through as given.
type StartExecutionOptions struct {
	// WorkflowID is the user-chosen execution id. When empty, an id of the
	// form "{name}-{version}-{unix}" is synthesized. The synthesized id has
	// second granularity and is not unique under concurrent starts, callers
	// needing dedup must supply their own.
	WorkflowID string

	TaskList    string
	ChildPolicy core.ChildPolicy

	ExecutionTimeout string

	// Input is serialized with the provider's converter.
	Input any

	TagList []string

	DecisionTasksTimeout string
}

// StartExecution starts a new workflow execution of this type. This is the
// only operation that brings a remote execution into existence. It returns
// a WorkflowExecution populated with the remote-assigned run id and the
// effective field values.
func (t *WorkflowType) StartExecution(ctx context.Context, options StartExecutionOptions) (*WorkflowExecution, error) {
	if options.ChildPolicy != "" {
		if err := options.ChildPolicy.Validate(); err != nil {
			return nil, err
		}
	}

	workflowID := options.WorkflowID
	if workflowID == "" {
		workflowID = fmt.Sprintf("%s-%s-%d", t.Name, t.Version, t.clock.Now().Unix())
	}

	taskList := options.TaskList
	if taskList == "" {
		taskList = t.TaskList
	}

	childPolicy := options.ChildPolicy
	if childPolicy == "" {
		childPolicy = t.childPolicy
	}

	ctx, span := t.cp.Tracer().Start(ctx, fmt.Sprintf("StartWorkflowExecution: %s", t.Name), trace.WithAttributes(
		attribute.String(log.DomainKey, t.Domain),
		attribute.String(log.WorkflowNameKey, t.Name),
		attribute.String(log.WorkflowIDKey, workflowID),
	))
	defer span.End()

	var input []byte
	if options.Input != nil {
		var err error
		input, err = t.cp.Converter().To(options.Input)
		if err != nil {
			return nil, fmt.Errorf("converting input: %w", err)
		}
	}

	runID, err := t.cp.StartWorkflowExecution(ctx, &provider.ExecutionStart{
		Domain:     t.Domain,
		WorkflowID: workflowID,

		TypeName:    t.Name,
		TypeVersion: t.Version,

		TaskList:             taskList,
		ChildPolicy:          childPolicy,
		ExecutionTimeout:     options.ExecutionTimeout,
		Input:                input,
		TagList:              options.TagList,
		DecisionTasksTimeout: options.DecisionTasksTimeout,
	})
	if err != nil {
		span.RecordError(err)
		return nil, translateFault(err)
	}

	t.cp.Logger().Debug(
		"Started workflow execution",
		log.DomainKey, t.Domain,
		log.WorkflowIDKey, workflowID,
		log.RunIDKey, runID,
	)

	t.cp.Metrics().Counter(metrickeys.WorkflowExecutionStarted, metrics.Tags{}, 1)

	return &WorkflowExecution{
		Domain:     t.Domain,
		WorkflowID: workflowID,
		RunID:      runID,

		Status:               core.ExecutionStatusOpen,
		TaskList:             taskList,
		ExecutionTimeout:     options.ExecutionTimeout,
		Input:                input,
		TagList:              options.TagList,
		DecisionTasksTimeout: options.DecisionTasksTimeout,

		childPolicy: childPolicy,

		cp:    t.cp,
		clock: t.clock,
	}, nil
}

func (t *WorkflowType) String() string {
	return fmt.Sprintf("<WorkflowType domain=%s name=%s version=%s status=%s>",
		t.Domain, t.Name, t.Version, t.Status)
}
