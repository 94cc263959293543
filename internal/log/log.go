package log

const (
	DomainKey          = "swf.domain"
	WorkflowNameKey    = "swf.workflow_name"
	WorkflowVersionKey = "swf.workflow_version"
	WorkflowIDKey      = "swf.workflow_id"
	RunIDKey           = "swf.run_id"
	TaskListKey        = "swf.task_list"
	EventCountKey      = "swf.event_count"
)
