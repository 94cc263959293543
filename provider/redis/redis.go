// Package redis provides a connection provider backed by a redis instance.
// Workflow types and executions are stored as hashes under prefix-scoped
// keys, execution histories as one stream per execution.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/simple-workflow/swf/converter"
	"github.com/simple-workflow/swf/core"
	"github.com/simple-workflow/swf/history"
	"github.com/simple-workflow/swf/metrics"
	"github.com/simple-workflow/swf/provider"
)

type RedisOptions struct {
	provider.Options

	// KeyPrefix is prepended to every key the provider writes.
	KeyPrefix string
}

type RedisProviderOption func(*RedisOptions)

func WithKeyPrefix(prefix string) RedisProviderOption {
	return func(o *RedisOptions) {
		o.KeyPrefix = prefix
	}
}

func WithProviderOptions(opts ...provider.Option) RedisProviderOption {
	return func(o *RedisOptions) {
		o.Options = provider.ApplyOptions(opts...)
	}
}

type redisProvider struct {
	client  redis.UniversalClient
	clock   clock.Clock
	options *RedisOptions
}

var _ provider.ConnectionProvider = (*redisProvider)(nil)

func NewRedisProvider(client redis.UniversalClient, opts ...RedisProviderOption) (*redisProvider, error) {
	options := &RedisOptions{
		Options:   provider.ApplyOptions(),
		KeyPrefix: "swf:",
	}

	for _, opt := range opts {
		opt(options)
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &redisProvider{
		client:  client,
		clock:   clock.New(),
		options: options,
	}, nil
}

type workflowTypeRecord struct {
	Name    string `json:"name"`
	Version string `json:"version"`

	Status          core.RegistrationStatus `json:"status"`
	CreationDate    float64                 `json:"creation_date"`
	DeprecationDate float64                 `json:"deprecation_date,omitempty"`

	TaskList             string           `json:"task_list"`
	ChildPolicy          core.ChildPolicy `json:"child_policy"`
	ExecutionTimeout     string           `json:"execution_timeout"`
	DecisionTasksTimeout string           `json:"decision_tasks_timeout"`
	Description          string           `json:"description,omitempty"`
}

type workflowExecutionRecord struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`

	Status      core.ExecutionStatus `json:"status"`
	CloseStatus core.CloseStatus     `json:"close_status,omitempty"`

	TaskList             string           `json:"task_list"`
	ChildPolicy          core.ChildPolicy `json:"child_policy"`
	ExecutionTimeout     string           `json:"execution_timeout"`
	DecisionTasksTimeout string           `json:"decision_tasks_timeout"`
	TagList              []string         `json:"tag_list,omitempty"`
}

// payloadField is the stream entry field holding the marshaled event.
const payloadField = "event"

// CreateDomain registers a domain. Creating the same domain twice is an
// error, mirroring the remote service.
func (rp *redisProvider) CreateDomain(ctx context.Context, name string) error {
	added, err := rp.client.SAdd(ctx, domainsKey(rp.options.KeyPrefix), name).Result()
	if err != nil {
		return fmt.Errorf("adding domain: %w", err)
	}

	if added != 1 {
		return provider.NewFault(provider.FaultGeneric, "domain %s already exists", name)
	}

	return nil
}

// CompleteWorkflowExecution closes an open execution out of band, appending
// the matching terminal history event.
func (rp *redisProvider) CompleteWorkflowExecution(ctx context.Context, domain, runID, workflowID string, closeStatus core.CloseStatus) error {
	if err := closeStatus.Validate(); err != nil {
		return err
	}

	record, err := rp.readExecution(ctx, domain, runID, workflowID)
	if err != nil {
		return err
	}

	record.Status = core.ExecutionStatusClosed
	record.CloseStatus = closeStatus

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling execution: %w", err)
	}

	streamKey := historyKey(rp.options.KeyPrefix, domain, workflowID, runID)
	lastEventID, err := rp.client.XLen(ctx, streamKey).Result()
	if err != nil {
		return fmt.Errorf("reading history length: %w", err)
	}

	event := history.NewHistoryEvent(lastEventID+1, rp.clock.Now(), terminalEventType(closeStatus), nil)
	eventPayload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	_, err = rp.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, executionsKey(rp.options.KeyPrefix, domain), executionSegment(workflowID, runID), string(payload))
		pipe.HDel(ctx, openExecutionsKey(rp.options.KeyPrefix, domain), workflowID)
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: streamKey,
			ID:     historyID(event.EventID),
			Values: map[string]any{payloadField: string(eventPayload)},
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("closing execution: %w", err)
	}

	return nil
}

func (rp *redisProvider) DescribeWorkflowType(ctx context.Context, domain, name, version string) (*provider.WorkflowTypeDescription, error) {
	record, err := rp.readType(ctx, domain, name, version)
	if err != nil {
		return nil, err
	}

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

func (rp *redisProvider) RegisterWorkflowType(ctx context.Context, reg *provider.WorkflowTypeRegistration) error {
	if err := rp.requireDomain(ctx, reg.Domain); err != nil {
		return err
	}

	record := &workflowTypeRecord{
		Name:    reg.Name,
		Version: reg.Version,

		Status:       core.RegistrationStatusRegistered,
		CreationDate: float64(rp.clock.Now().Unix()),

		TaskList:             reg.TaskList,
		ChildPolicy:          reg.ChildPolicy,
		ExecutionTimeout:     reg.ExecutionTimeout,
		DecisionTasksTimeout: reg.DecisionTasksTimeout,
		Description:          reg.Description,
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling workflow type: %w", err)
	}

	created, err := rp.client.HSetNX(ctx, workflowTypesKey(rp.options.KeyPrefix, reg.Domain), typeSegment(reg.Name, reg.Version), string(payload)).Result()
	if err != nil {
		return fmt.Errorf("storing workflow type: %w", err)
	}

	if !created {
		return provider.NewFault(provider.FaultTypeAlreadyExists, "workflow type %s/%s already exists in domain %s", reg.Name, reg.Version, reg.Domain)
	}

	rp.options.Logger.Debug("Registered workflow type", "domain", reg.Domain, "name", reg.Name, "version", reg.Version)

	return nil
}

func (rp *redisProvider) DeprecateWorkflowType(ctx context.Context, domain, name, version string) error {
	record, err := rp.readType(ctx, domain, name, version)
	if err != nil {
		return err
	}

	if record.Status == core.RegistrationStatusDeprecated {
		return provider.NewFault(provider.FaultTypeDeprecated, "workflow type %s/%s is already deprecated", name, version)
	}

	record.Status = core.RegistrationStatusDeprecated
	record.DeprecationDate = float64(rp.clock.Now().Unix())

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling workflow type: %w", err)
	}

	if err := rp.client.HSet(ctx, workflowTypesKey(rp.options.KeyPrefix, domain), typeSegment(name, version), string(payload)).Err(); err != nil {
		return fmt.Errorf("storing workflow type: %w", err)
	}

	return nil
}

func (rp *redisProvider) StartWorkflowExecution(ctx context.Context, start *provider.ExecutionStart) (string, error) {
	if err := rp.requireDomain(ctx, start.Domain); err != nil {
		return "", err
	}

	typeRecord, err := rp.readType(ctx, start.Domain, start.TypeName, start.TypeVersion)
	if err != nil {
		return "", err
	}

	if typeRecord.Status == core.RegistrationStatusDeprecated {
		return "", provider.NewFault(provider.FaultUnknownResource, "workflow type %s/%s is deprecated", start.TypeName, start.TypeVersion)
	}

	runID := uuid.NewString()

	// The open marker doubles as the duplicate-start guard
	created, err := rp.client.HSetNX(ctx, openExecutionsKey(rp.options.KeyPrefix, start.Domain), start.WorkflowID, runID).Result()
	if err != nil {
		return "", fmt.Errorf("marking execution open: %w", err)
	}

	if !created {
		return "", provider.NewFault(provider.FaultGeneric, "workflow execution %s is already started", start.WorkflowID)
	}

	record := &workflowExecutionRecord{
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

	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshaling execution: %w", err)
	}

	event := startedEvent(rp.clock.Now(), start)
	eventPayload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshaling event: %w", err)
	}

	_, err = rp.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, executionsKey(rp.options.KeyPrefix, start.Domain), executionSegment(start.WorkflowID, runID), string(payload))
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: historyKey(rp.options.KeyPrefix, start.Domain, start.WorkflowID, runID),
			ID:     historyID(event.EventID),
			Values: map[string]any{payloadField: string(eventPayload)},
		})

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("storing execution: %w", err)
	}

	rp.options.Logger.Debug("Started workflow execution", "domain", start.Domain, "workflow_id", start.WorkflowID, "run_id", runID)

	return runID, nil
}

func (rp *redisProvider) DescribeWorkflowExecution(ctx context.Context, domain, runID, workflowID string) (*provider.WorkflowExecutionDescription, error) {
	record, err := rp.readExecution(ctx, domain, runID, workflowID)
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

func (rp *redisProvider) GetWorkflowExecutionHistory(ctx context.Context, domain, runID, workflowID string, opts ...provider.HistoryOption) ([]*history.Event, error) {
	options := provider.ApplyHistoryOptions(opts...)

	if _, err := rp.readExecution(ctx, domain, runID, workflowID); err != nil {
		return nil, err
	}

	streamKey := historyKey(rp.options.KeyPrefix, domain, workflowID, runID)

	var msgs []redis.XMessage
	var err error

	// Fetch one entry past the page to detect whether more remain
	count := int64(-1)
	if options.PageSize > 0 {
		count = int64(options.PageSize) + 1
	}

	if options.ReverseOrder {
		start := "+"
		if options.PageToken != "" {
			start = "(" + options.PageToken
		}

		if count > 0 {
			msgs, err = rp.client.XRevRangeN(ctx, streamKey, start, "-", count).Result()
		} else {
			msgs, err = rp.client.XRevRange(ctx, streamKey, start, "-").Result()
		}
	} else {
		start := "-"
		if options.PageToken != "" {
			start = "(" + options.PageToken
		}

		if count > 0 {
			msgs, err = rp.client.XRangeN(ctx, streamKey, start, "+", count).Result()
		} else {
			msgs, err = rp.client.XRange(ctx, streamKey, start, "+").Result()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	nextToken := ""
	if options.PageSize > 0 && len(msgs) > options.PageSize {
		msgs = msgs[:options.PageSize]
		nextToken = msgs[len(msgs)-1].ID
	}

	if options.NextPageToken != nil {
		*options.NextPageToken = nextToken
	}

	events := make([]*history.Event, 0, len(msgs))
	for _, msg := range msgs {
		payload, ok := msg.Values[payloadField].(string)
		if !ok {
			return nil, fmt.Errorf("history entry %s has no event payload", msg.ID)
		}

		var event history.Event
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, fmt.Errorf("unmarshaling event %s: %w", msg.ID, err)
		}

		events = append(events, &event)
	}

	return events, nil
}

func (rp *redisProvider) Logger() *slog.Logger {
	return rp.options.Logger
}

func (rp *redisProvider) Metrics() metrics.Client {
	return rp.options.Metrics
}

func (rp *redisProvider) Tracer() trace.Tracer {
	return rp.options.TracerProvider.Tracer(provider.TracerName)
}

func (rp *redisProvider) Converter() converter.Converter {
	return rp.options.Converter
}

func (rp *redisProvider) Options() *provider.Options {
	return &rp.options.Options
}

func (rp *redisProvider) Close() error {
	return rp.client.Close()
}

func (rp *redisProvider) requireDomain(ctx context.Context, domain string) error {
	exists, err := rp.client.SIsMember(ctx, domainsKey(rp.options.KeyPrefix), domain).Result()
	if err != nil {
		return fmt.Errorf("reading domain: %w", err)
	}

	if !exists {
		return provider.NewFault(provider.FaultDomainNotFound, "domain %s does not exist", domain)
	}

	return nil
}

func (rp *redisProvider) readType(ctx context.Context, domain, name, version string) (*workflowTypeRecord, error) {
	payload, err := rp.client.HGet(ctx, workflowTypesKey(rp.options.KeyPrefix, domain), typeSegment(name, version)).Result()
	if err == redis.Nil {
		return nil, provider.NewFault(provider.FaultUnknownResource, "workflow type %s/%s does not exist in domain %s", name, version, domain)
	} else if err != nil {
		return nil, fmt.Errorf("reading workflow type: %w", err)
	}

	var record workflowTypeRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("unmarshaling workflow type: %w", err)
	}

	return &record, nil
}

func (rp *redisProvider) readExecution(ctx context.Context, domain, runID, workflowID string) (*workflowExecutionRecord, error) {
	payload, err := rp.client.HGet(ctx, executionsKey(rp.options.KeyPrefix, domain), executionSegment(workflowID, runID)).Result()
	if err == redis.Nil {
		return nil, provider.NewFault(provider.FaultUnknownResource, "workflow execution %s does not exist in domain %s", workflowID, domain)
	} else if err != nil {
		return nil, fmt.Errorf("reading execution: %w", err)
	}

	var record workflowExecutionRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("unmarshaling execution: %w", err)
	}

	return &record, nil
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
