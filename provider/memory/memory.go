// Package memory provides an in-process connection provider backed by
// go-memdb. It simulates the remote workflow service for development and
// tests, including its fault semantics.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	memdb "github.com/hashicorp/go-memdb"
	"go.opentelemetry.io/otel/trace"

	"github.com/simple-workflow/swf/converter"
	"github.com/simple-workflow/swf/core"
	"github.com/simple-workflow/swf/history"
	"github.com/simple-workflow/swf/metrics"
	"github.com/simple-workflow/swf/provider"
)

type memoryProvider struct {
	db      *memdb.MemDB
	clock   clock.Clock
	options provider.Options
}

// NewMemoryProvider creates an empty in-process provider. Domains must be
// created with CreateDomain before types can be registered in them.
func NewMemoryProvider(opts ...provider.Option) *memoryProvider {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		panic(err)
	}

	return &memoryProvider{
		db:      db,
		clock:   clock.New(),
		options: provider.ApplyOptions(opts...),
	}
}

var _ provider.ConnectionProvider = (*memoryProvider)(nil)

// CreateDomain registers a domain. Creating the same domain twice is an
// error, mirroring the remote service.
func (mp *memoryProvider) CreateDomain(ctx context.Context, name string) error {
	txn := mp.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(tableDomains, "id", name)
	if err != nil {
		return fmt.Errorf("reading domain: %w", err)
	}

	if existing != nil {
		return provider.NewFault(provider.FaultGeneric, "domain %s already exists", name)
	}

	if err := txn.Insert(tableDomains, &domainRecord{Name: name}); err != nil {
		return fmt.Errorf("inserting domain: %w", err)
	}

	txn.Commit()

	return nil
}

// CompleteWorkflowExecution closes an open execution out of band, appending
// the matching terminal history event. Tests use this to observe the
// OPEN to CLOSED transition.
func (mp *memoryProvider) CompleteWorkflowExecution(ctx context.Context, domain, runID, workflowID string, closeStatus core.CloseStatus) error {
	if err := closeStatus.Validate(); err != nil {
		return err
	}

	txn := mp.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableExecutions, "id", domain, workflowID, runID)
	if err != nil {
		return fmt.Errorf("reading execution: %w", err)
	}

	if raw == nil {
		return provider.NewFault(provider.FaultUnknownResource, "workflow execution %s does not exist", workflowID)
	}

	record := clone(raw.(*workflowExecutionRecord))
	record.Status = core.ExecutionStatusClosed
	record.CloseStatus = closeStatus
	record.Events = append(record.Events, history.NewHistoryEvent(
		int64(len(record.Events)+1),
		mp.clock.Now(),
		terminalEventType(closeStatus),
		nil,
	))

	if err := txn.Insert(tableExecutions, record); err != nil {
		return fmt.Errorf("updating execution: %w", err)
	}

	txn.Commit()

	return nil
}

func (mp *memoryProvider) DescribeWorkflowType(ctx context.Context, domain, name, version string) (*provider.WorkflowTypeDescription, error) {
	txn := mp.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableTypes, "id", domain, name, version)
	if err != nil {
		return nil, fmt.Errorf("reading workflow type: %w", err)
	}

	if raw == nil {
		return nil, provider.NewFault(provider.FaultUnknownResource, "workflow type %s/%s does not exist in domain %s", name, version, domain)
	}

	record := raw.(*workflowTypeRecord)

	return &provider.WorkflowTypeDescription{
		Info: provider.WorkflowTypeInfo{
			Name:            record.Name,
			Version:         record.Version,
			Status:          record.Status,
			CreationDate:    record.CreationDate,
			DeprecationDate: record.DeprecationDate,
			Description:     record.Description,
		},
		Configuration: provider.WorkflowTypeConfiguration{
			DefaultTaskList:             record.TaskList,
			DefaultChildPolicy:          record.ChildPolicy,
			DefaultExecutionTimeout:     record.ExecutionTimeout,
			DefaultDecisionTasksTimeout: record.DecisionTasksTimeout,
		},
	}, nil
}

func (mp *memoryProvider) RegisterWorkflowType(ctx context.Context, reg *provider.WorkflowTypeRegistration) error {
	txn := mp.db.Txn(true)
	defer txn.Abort()

	if err := mp.requireDomain(txn, reg.Domain); err != nil {
		return err
	}

	existing, err := txn.First(tableTypes, "id", reg.Domain, reg.Name, reg.Version)
	if err != nil {
		return fmt.Errorf("reading workflow type: %w", err)
	}

	if existing != nil {
		return provider.NewFault(provider.FaultTypeAlreadyExists, "workflow type %s/%s already exists in domain %s", reg.Name, reg.Version, reg.Domain)
	}

	record := &workflowTypeRecord{
		Domain:  reg.Domain,
		Name:    reg.Name,
		Version: reg.Version,

		Status:       core.RegistrationStatusRegistered,
		CreationDate: float64(mp.clock.Now().Unix()),

		TaskList:             reg.TaskList,
		ChildPolicy:          reg.ChildPolicy,
		ExecutionTimeout:     reg.ExecutionTimeout,
		DecisionTasksTimeout: reg.DecisionTasksTimeout,
		Description:          reg.Description,
	}

	if err := txn.Insert(tableTypes, record); err != nil {
		return fmt.Errorf("inserting workflow type: %w", err)
	}

	txn.Commit()

	mp.options.Logger.Debug("Registered workflow type", "domain", reg.Domain, "name", reg.Name, "version", reg.Version)

	return nil
}

func (mp *memoryProvider) DeprecateWorkflowType(ctx context.Context, domain, name, version string) error {
	txn := mp.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableTypes, "id", domain, name, version)
	if err != nil {
		return fmt.Errorf("reading workflow type: %w", err)
	}

	if raw == nil {
		return provider.NewFault(provider.FaultUnknownResource, "workflow type %s/%s does not exist in domain %s", name, version, domain)
	}

	record := raw.(*workflowTypeRecord)
	if record.Status == core.RegistrationStatusDeprecated {
		return provider.NewFault(provider.FaultTypeDeprecated, "workflow type %s/%s is already deprecated", name, version)
	}

	updated := *record
	updated.Status = core.RegistrationStatusDeprecated
	updated.DeprecationDate = float64(mp.clock.Now().Unix())

	if err := txn.Insert(tableTypes, &updated); err != nil {
		return fmt.Errorf("updating workflow type: %w", err)
	}

	txn.Commit()

	return nil
}

func (mp *memoryProvider) StartWorkflowExecution(ctx context.Context, start *provider.ExecutionStart) (string, error) {
	txn := mp.db.Txn(true)
	defer txn.Abort()

	if err := mp.requireDomain(txn, start.Domain); err != nil {
		return "", err
	}

	rawType, err := txn.First(tableTypes, "id", start.Domain, start.TypeName, start.TypeVersion)
	if err != nil {
		return "", fmt.Errorf("reading workflow type: %w", err)
	}

	if rawType == nil {
		return "", provider.NewFault(provider.FaultUnknownResource, "workflow type %s/%s does not exist in domain %s", start.TypeName, start.TypeVersion, start.Domain)
	}

	typeRecord := rawType.(*workflowTypeRecord)
	if typeRecord.Status == core.RegistrationStatusDeprecated {
		return "", provider.NewFault(provider.FaultUnknownResource, "workflow type %s/%s is deprecated", start.TypeName, start.TypeVersion)
	}

	open, err := txn.First(tableExecutions, "open_by_workflow_id", start.Domain, start.WorkflowID, string(core.ExecutionStatusOpen))
	if err != nil {
		return "", fmt.Errorf("reading executions: %w", err)
	}

	if open != nil {
		return "", provider.NewFault(provider.FaultGeneric, "workflow execution %s is already started", start.WorkflowID)
	}

	runID := uuid.NewString()

	record := &workflowExecutionRecord{
		Domain:     start.Domain,
		WorkflowID: start.WorkflowID,
		RunID:      runID,

		Status: core.ExecutionStatusOpen,

		TaskList:             fallback(start.TaskList, typeRecord.TaskList),
		ChildPolicy:          start.ChildPolicy,
		ExecutionTimeout:     fallback(start.ExecutionTimeout, typeRecord.ExecutionTimeout),
		DecisionTasksTimeout: fallback(start.DecisionTasksTimeout, typeRecord.DecisionTasksTimeout),
		TagList:              start.TagList,
	}

	if record.ChildPolicy == "" {
		record.ChildPolicy = typeRecord.ChildPolicy
	}

	record.Events = []*history.Event{startedEvent(mp.clock.Now(), start)}

	if err := txn.Insert(tableExecutions, record); err != nil {
		return "", fmt.Errorf("inserting execution: %w", err)
	}

	txn.Commit()

	mp.options.Logger.Debug("Started workflow execution", "domain", start.Domain, "workflow_id", start.WorkflowID, "run_id", runID)

	return runID, nil
}

func (mp *memoryProvider) DescribeWorkflowExecution(ctx context.Context, domain, runID, workflowID string) (*provider.WorkflowExecutionDescription, error) {
	txn := mp.db.Txn(false)
	defer txn.Abort()

	record, err := mp.readExecution(txn, domain, runID, workflowID)
	if err != nil {
		return nil, err
	}

	return &provider.WorkflowExecutionDescription{
		Info: provider.WorkflowExecutionInfo{
			WorkflowID:  record.WorkflowID,
			RunID:       record.RunID,
			Status:      record.Status,
			CloseStatus: record.CloseStatus,
			TagList:     record.TagList,
		},
		Configuration: provider.WorkflowExecutionConfiguration{
			TaskList:             record.TaskList,
			ChildPolicy:          record.ChildPolicy,
			ExecutionTimeout:     record.ExecutionTimeout,
			DecisionTasksTimeout: record.DecisionTasksTimeout,
		},
	}, nil
}

func (mp *memoryProvider) GetWorkflowExecutionHistory(ctx context.Context, domain, runID, workflowID string, opts ...provider.HistoryOption) ([]*history.Event, error) {
	options := provider.ApplyHistoryOptions(opts...)

	txn := mp.db.Txn(false)
	defer txn.Abort()

	record, err := mp.readExecution(txn, domain, runID, workflowID)
	if err != nil {
		return nil, err
	}

	events := make([]*history.Event, len(record.Events))
	copy(events, record.Events)

	if options.ReverseOrder {
		for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
			events[i], events[j] = events[j], events[i]
		}
	}

	offset := 0
	if options.PageToken != "" {
		offset, err = strconv.Atoi(options.PageToken)
		if err != nil || offset < 0 || offset > len(events) {
			return nil, provider.NewFault(provider.FaultGeneric, "invalid page token %q", options.PageToken)
		}
	}

	events = events[offset:]

	nextToken := ""
	if options.PageSize > 0 && len(events) > options.PageSize {
		events = events[:options.PageSize]
		nextToken = strconv.Itoa(offset + options.PageSize)
	}

	if options.NextPageToken != nil {
		*options.NextPageToken = nextToken
	}

	return events, nil
}

func (mp *memoryProvider) Logger() *slog.Logger {
	return mp.options.Logger
}

func (mp *memoryProvider) Metrics() metrics.Client {
	return mp.options.Metrics
}

func (mp *memoryProvider) Tracer() trace.Tracer {
	return mp.options.TracerProvider.Tracer(provider.TracerName)
}

func (mp *memoryProvider) Converter() converter.Converter {
	return mp.options.Converter
}

func (mp *memoryProvider) Options() *provider.Options {
	return &mp.options
}

func (mp *memoryProvider) Close() error {
	return nil
}

func (mp *memoryProvider) requireDomain(txn *memdb.Txn, domain string) error {
	raw, err := txn.First(tableDomains, "id", domain)
	if err != nil {
		return fmt.Errorf("reading domain: %w", err)
	}

	if raw == nil {
		return provider.NewFault(provider.FaultDomainNotFound, "domain %s does not exist", domain)
	}

	return nil
}

func (mp *memoryProvider) readExecution(txn *memdb.Txn, domain, runID, workflowID string) (*workflowExecutionRecord, error) {
	raw, err := txn.First(tableExecutions, "id", domain, workflowID, runID)
	if err != nil {
		return nil, fmt.Errorf("reading execution: %w", err)
	}

	if raw == nil {
		return nil, provider.NewFault(provider.FaultUnknownResource, "workflow execution %s does not exist in domain %s", workflowID, domain)
	}

	return raw.(*workflowExecutionRecord), nil
}

// clone copies a record before mutation, memdb requires stored objects to be
// treated as immutable.
func clone(record *workflowExecutionRecord) *workflowExecutionRecord {
	copied := *record

	copied.TagList = append([]string(nil), record.TagList...)
	copied.Events = append([]*history.Event(nil), record.Events...)

	return &copied
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}

	return value
}

func startedEvent(now time.Time, start *provider.ExecutionStart) *history.Event {
	attrs, _ := json.Marshal(map[string]any{
		"workflowType": map[string]string{
			"name":    start.TypeName,
			"version": start.TypeVersion,
		},
		"taskList": start.TaskList,
		"input":    string(start.Input),
		"tagList":  start.TagList,
	})

	return history.NewHistoryEvent(1, now, history.EventType_WorkflowExecutionStarted, attrs)
}

func terminalEventType(closeStatus core.CloseStatus) history.EventType {
	switch closeStatus {
	case core.CloseStatusFailed:
		return history.EventType_WorkflowExecutionFailed
	case core.CloseStatusCanceled:
		return history.EventType_WorkflowExecutionCanceled
	case core.CloseStatusTerminated:
		return history.EventType_WorkflowExecutionTerminated
	case core.CloseStatusContinuedAsNew:
		return history.EventType_WorkflowExecutionContinuedAsNew
	case core.CloseStatusTimedOut:
		return history.EventType_WorkflowExecutionTimedOut
	default:
		return history.EventType_WorkflowExecutionCompleted
	}
}
