// Package sqlite provides a connection provider backed by a local sqlite
// database. It simulates the remote workflow service, including its fault
// semantics, and persists across restarts when given a file path.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"go.opentelemetry.io/otel/trace"

	_ "modernc.org/sqlite"

	"github.com/simple-workflow/swf/converter"
	"github.com/simple-workflow/swf/core"
	"github.com/simple-workflow/swf/history"
	"github.com/simple-workflow/swf/metrics"
	"github.com/simple-workflow/swf/provider"
)

//go:embed db/migrations/*.sql
var migrationsFS embed.FS

// pageTokenTTL bounds how long a history page token stays resumable.
const pageTokenTTL = 5 * time.Minute

type sqliteProvider struct {
	db      *sql.DB
	clock   clock.Clock
	tokens  *ttlcache.Cache[string, int]
	options provider.Options
}

var _ provider.ConnectionProvider = (*sqliteProvider)(nil)

// NewInMemoryProvider creates a provider backed by an in-memory sqlite
// database. State is lost when the provider is closed.
func NewInMemoryProvider(opts ...provider.Option) *sqliteProvider {
	return newSqliteProvider("file::memory:", 1, opts...)
}

// NewSqliteProvider creates a provider backed by the sqlite database at the
// given path, creating it if necessary.
func NewSqliteProvider(path string, opts ...provider.Option) *sqliteProvider {
	return newSqliteProvider(fmt.Sprintf("file:%v", path), 0, opts...)
}

func newSqliteProvider(dsn string, maxOpenConns int, opts ...provider.Option) *sqliteProvider {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		panic(err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	if err := migrateSchema(db); err != nil {
		panic(err)
	}

	tokens := ttlcache.New(
		ttlcache.WithTTL[string, int](pageTokenTTL),
	)
	go tokens.Start()

	return &sqliteProvider{
		db:      db,
		clock:   clock.New(),
		tokens:  tokens,
		options: provider.ApplyOptions(opts...),
	}
}

func migrateSchema(db *sql.DB) error {
	migrations, err := iofs.New(migrationsFS, "db/migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	dbi, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("creating migration instance: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", migrations, "sqlite3", dbi)
	if err != nil {
		return fmt.Errorf("creating migration: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// CreateDomain registers a domain. Creating the same domain twice is an
// error, mirroring the remote service.
func (sp *sqliteProvider) CreateDomain(ctx context.Context, name string) error {
	res, err := sp.db.ExecContext(ctx, "INSERT OR IGNORE INTO `domains` (name) VALUES (?)", name)
	if err != nil {
		return fmt.Errorf("inserting domain: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows != 1 {
		return provider.NewFault(provider.FaultGeneric, "domain %s already exists", name)
	}

	return nil
}

// CompleteWorkflowExecution closes an open execution out of band, appending
// the matching terminal history event.
func (sp *sqliteProvider) CompleteWorkflowExecution(ctx context.Context, domain, runID, workflowID string, closeStatus core.CloseStatus) error {
	if err := closeStatus.Validate(); err != nil {
		return err
	}

	tx, err := sp.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		"UPDATE `workflow_executions` SET status = ?, close_status = ? WHERE domain = ? AND workflow_id = ? AND run_id = ?",
		string(core.ExecutionStatusClosed),
		string(closeStatus),
		domain, workflowID, runID,
	)
	if err != nil {
		return fmt.Errorf("updating execution: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows != 1 {
		return provider.NewFault(provider.FaultUnknownResource, "workflow execution %s does not exist", workflowID)
	}

	var lastEventID int64
	if err := tx.QueryRowContext(
		ctx,
		"SELECT COALESCE(MAX(event_id), 0) FROM `history_events` WHERE domain = ? AND workflow_id = ? AND run_id = ?",
		domain, workflowID, runID,
	).Scan(&lastEventID); err != nil {
		return fmt.Errorf("reading last event id: %w", err)
	}

	if err := insertEvent(ctx, tx, domain, workflowID, runID, history.NewHistoryEvent(
		lastEventID+1,
		sp.clock.Now(),
		terminalEventType(closeStatus),
		nil,
	)); err != nil {
		return err
	}

	return tx.Commit()
}

func (sp *sqliteProvider) DescribeWorkflowType(ctx context.Context, domain, name, version string) (*provider.WorkflowTypeDescription, error) {
	row := sp.db.QueryRowContext(
		ctx,
		"SELECT status, creation_date, deprecation_date, task_list, child_policy, execution_timeout, decision_tasks_timeout, description FROM `workflow_types` WHERE domain = ? AND name = ? AND version = ?",
		domain, name, version,
	)

	desc := &provider.WorkflowTypeDescription{
		Info: provider.WorkflowTypeInfo{
			Name:    name,
			Version: version,
		},
	}

	if err := row.Scan(
		&desc.Info.Status,
		&desc.Info.CreationDate,
		&desc.Info.DeprecationDate,
		&desc.Configuration.DefaultTaskList,
		&desc.Configuration.DefaultChildPolicy,
		&desc.Configuration.DefaultExecutionTimeout,
		&desc.Configuration.DefaultDecisionTasksTimeout,
		&desc.Info.Description,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, provider.NewFault(provider.FaultUnknownResource, "workflow type %s/%s does not exist in domain %s", name, version, domain)
		}

		return nil, fmt.Errorf("reading workflow type: %w", err)
	}

	return desc, nil
}

func (sp *sqliteProvider) RegisterWorkflowType(ctx context.Context, reg *provider.WorkflowTypeRegistration) error {
	tx, err := sp.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireDomain(ctx, tx, reg.Domain); err != nil {
		return err
	}

	res, err := tx.ExecContext(
		ctx,
		"INSERT OR IGNORE INTO `workflow_types` (domain, name, version, status, creation_date, task_list, child_policy, execution_timeout, decision_tasks_timeout, description) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		reg.Domain,
		reg.Name,
		reg.Version,
		string(core.RegistrationStatusRegistered),
		float64(sp.clock.Now().Unix()),
		reg.TaskList,
		string(reg.ChildPolicy),
		reg.ExecutionTimeout,
		reg.DecisionTasksTimeout,
		reg.Description,
	)
	if err != nil {
		return fmt.Errorf("inserting workflow type: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows != 1 {
		return provider.NewFault(provider.FaultTypeAlreadyExists, "workflow type %s/%s already exists in domain %s", reg.Name, reg.Version, reg.Domain)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	sp.options.Logger.Debug("Registered workflow type", "domain", reg.Domain, "name", reg.Name, "version", reg.Version)

	return nil
}

func (sp *sqliteProvider) DeprecateWorkflowType(ctx context.Context, domain, name, version string) error {
	tx, err := sp.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	if err := tx.QueryRowContext(
		ctx,
		"SELECT status FROM `workflow_types` WHERE domain = ? AND name = ? AND version = ?",
		domain, name, version,
	).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return provider.NewFault(provider.FaultUnknownResource, "workflow type %s/%s does not exist in domain %s", name, version, domain)
		}

		return fmt.Errorf("reading workflow type: %w", err)
	}

	if status == string(core.RegistrationStatusDeprecated) {
		return provider.NewFault(provider.FaultTypeDeprecated, "workflow type %s/%s is already deprecated", name, version)
	}

	if _, err := tx.ExecContext(
		ctx,
		"UPDATE `workflow_types` SET status = ?, deprecation_date = ? WHERE domain = ? AND name = ? AND version = ?",
		string(core.RegistrationStatusDeprecated),
		float64(sp.clock.Now().Unix()),
		domain, name, version,
	); err != nil {
		return fmt.Errorf("updating workflow type: %w", err)
	}

	return tx.Commit()
}

func (sp *sqliteProvider) StartWorkflowExecution(ctx context.Context, start *provider.ExecutionStart) (string, error) {
	tx, err := sp.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireDomain(ctx, tx, start.Domain); err != nil {
		return "", err
	}

	var typeStatus, typeTaskList, typeChildPolicy, typeExecutionTimeout, typeDecisionTasksTimeout string
	if err := tx.QueryRowContext(
		ctx,
		"SELECT status, task_list, child_policy, execution_timeout, decision_tasks_timeout FROM `workflow_types` WHERE domain = ? AND name = ? AND version = ?",
		start.Domain, start.TypeName, start.TypeVersion,
	).Scan(&typeStatus, &typeTaskList, &typeChildPolicy, &typeExecutionTimeout, &typeDecisionTasksTimeout); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", provider.NewFault(provider.FaultUnknownResource, "workflow type %s/%s does not exist in domain %s", start.TypeName, start.TypeVersion, start.Domain)
		}

		return "", fmt.Errorf("reading workflow type: %w", err)
	}

	if typeStatus == string(core.RegistrationStatusDeprecated) {
		return "", provider.NewFault(provider.FaultUnknownResource, "workflow type %s/%s is deprecated", start.TypeName, start.TypeVersion)
	}

	var open int
	if err := tx.QueryRowContext(
		ctx,
		"SELECT COUNT(*) FROM `workflow_executions` WHERE domain = ? AND workflow_id = ? AND status = ?",
		start.Domain, start.WorkflowID, string(core.ExecutionStatusOpen),
	).Scan(&open); err != nil {
		return "", fmt.Errorf("reading executions: %w", err)
	}

	if open > 0 {
		return "", provider.NewFault(provider.FaultGeneric, "workflow execution %s is already started", start.WorkflowID)
	}

	runID := uuid.NewString()

	childPolicy := string(start.ChildPolicy)
	if childPolicy == "" {
		childPolicy = typeChildPolicy
	}

	tagList, err := json.Marshal(start.TagList)
	if err != nil {
		return "", fmt.Errorf("marshaling tag list: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		"INSERT INTO `workflow_executions` (domain, workflow_id, run_id, status, task_list, child_policy, execution_timeout, decision_tasks_timeout, tag_list) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		start.Domain,
		start.WorkflowID,
		runID,
		string(core.ExecutionStatusOpen),
		fallback(start.TaskList, typeTaskList),
		childPolicy,
		fallback(start.ExecutionTimeout, typeExecutionTimeout),
		fallback(start.DecisionTasksTimeout, typeDecisionTasksTimeout),
		string(tagList),
	); err != nil {
		return "", fmt.Errorf("inserting execution: %w", err)
	}

	if err := insertEvent(ctx, tx, start.Domain, start.WorkflowID, runID, startedEvent(sp.clock.Now(), start)); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	sp.options.Logger.Debug("Started workflow execution", "domain", start.Domain, "workflow_id", start.WorkflowID, "run_id", runID)

	return runID, nil
}

func (sp *sqliteProvider) DescribeWorkflowExecution(ctx context.Context, domain, runID, workflowID string) (*provider.WorkflowExecutionDescription, error) {
	row := sp.db.QueryRowContext(
		ctx,
		"SELECT status, close_status, task_list, child_policy, execution_timeout, decision_tasks_timeout, tag_list FROM `workflow_executions` WHERE domain = ? AND workflow_id = ? AND run_id = ?",
		domain, workflowID, runID,
	)

	desc := &provider.WorkflowExecutionDescription{
		Info: provider.WorkflowExecutionInfo{
			WorkflowID: workflowID,
			RunID:      runID,
		},
	}

	var tagList string
	if err := row.Scan(
		&desc.Info.Status,
		&desc.Info.CloseStatus,
		&desc.Configuration.TaskList,
		&desc.Configuration.ChildPolicy,
		&desc.Configuration.ExecutionTimeout,
		&desc.Configuration.DecisionTasksTimeout,
		&tagList,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, provider.NewFault(provider.FaultUnknownResource, "workflow execution %s does not exist in domain %s", workflowID, domain)
		}

		return nil, fmt.Errorf("reading execution: %w", err)
	}

	if err := json.Unmarshal([]byte(tagList), &desc.Info.TagList); err != nil {
		return nil, fmt.Errorf("unmarshaling tag list: %w", err)
	}

	return desc, nil
}

func (sp *sqliteProvider) GetWorkflowExecutionHistory(ctx context.Context, domain, runID, workflowID string, opts ...provider.HistoryOption) ([]*history.Event, error) {
	options := provider.ApplyHistoryOptions(opts...)

	var total int
	if err := sp.db.QueryRowContext(
		ctx,
		"SELECT COUNT(*) FROM `history_events` WHERE domain = ? AND workflow_id = ? AND run_id = ?",
		domain, workflowID, runID,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting events: %w", err)
	}

	if total == 0 {
		return nil, provider.NewFault(provider.FaultUnknownResource, "workflow execution %s does not exist in domain %s", workflowID, domain)
	}

	offset := 0
	if options.PageToken != "" {
		item := sp.tokens.Get(options.PageToken)
		if item == nil {
			return nil, provider.NewFault(provider.FaultGeneric, "invalid page token %q", options.PageToken)
		}

		offset = item.Value()
	}

	order := "ASC"
	if options.ReverseOrder {
		order = "DESC"
	}

	limit := -1
	if options.PageSize > 0 {
		limit = options.PageSize
	}

	rows, err := sp.db.QueryContext(
		ctx,
		fmt.Sprintf("SELECT event_id, event_type, timestamp, attributes FROM `history_events` WHERE domain = ? AND workflow_id = ? AND run_id = ? ORDER BY event_id %s LIMIT ? OFFSET ?", order),
		domain, workflowID, runID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	defer rows.Close()

	var events []*history.Event
	for rows.Next() {
		var (
			eventID    int64
			eventType  string
			timestamp  int64
			attributes []byte
		)

		if err := rows.Scan(&eventID, &eventType, &timestamp, &attributes); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}

		events = append(events, history.NewHistoryEvent(
			eventID,
			time.Unix(0, timestamp).UTC(),
			history.EventType(eventType),
			attributes,
		))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}

	nextToken := ""
	if options.PageSize > 0 && offset+len(events) < total {
		nextToken = uuid.NewString()
		sp.tokens.Set(nextToken, offset+len(events), ttlcache.DefaultTTL)
	}

	if options.NextPageToken != nil {
		*options.NextPageToken = nextToken
	}

	return events, nil
}

func (sp *sqliteProvider) Logger() *slog.Logger {
	return sp.options.Logger
}

func (sp *sqliteProvider) Metrics() metrics.Client {
	return sp.options.Metrics
}

func (sp *sqliteProvider) Tracer() trace.Tracer {
	return sp.options.TracerProvider.Tracer(provider.TracerName)
}

func (sp *sqliteProvider) Converter() converter.Converter {
	return sp.options.Converter
}

func (sp *sqliteProvider) Options() *provider.Options {
	return &sp.options
}

func (sp *sqliteProvider) Close() error {
	sp.tokens.Stop()

	return sp.db.Close()
}

func requireDomain(ctx context.Context, tx *sql.Tx, domain string) error {
	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM `domains` WHERE name = ?", domain).Scan(&count); err != nil {
		return fmt.Errorf("reading domain: %w", err)
	}

	if count == 0 {
		return provider.NewFault(provider.FaultDomainNotFound, "domain %s does not exist", domain)
	}

	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, domain, workflowID, runID string, event *history.Event) error {
	if _, err := tx.ExecContext(
		ctx,
		"INSERT INTO `history_events` (domain, workflow_id, run_id, event_id, event_type, timestamp, attributes) VALUES (?, ?, ?, ?, ?, ?, ?)",
		domain,
		workflowID,
		runID,
		event.EventID,
		string(event.Type),
		event.Timestamp.UnixNano(),
		[]byte(event.Attributes),
	); err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	return nil
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
