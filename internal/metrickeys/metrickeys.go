package metrickeys

const (
	Prefix = "swf."

	// Workflow types
	WorkflowTypeRegistered = Prefix + "workflow_type.registered"
	WorkflowTypeDeprecated = Prefix + "workflow_type.deprecated"

	// Workflow executions
	WorkflowExecutionStarted = Prefix + "workflow_execution.started"
	HistoryFetched           = Prefix + "workflow_execution.history_fetched"
	HistoryFetchLatency      = Prefix + "workflow_execution.history_fetch_latency"
)
