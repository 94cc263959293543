package memory

import (
	memdb "github.com/hashicorp/go-memdb"

	"github.com/simple-workflow/swf/core"
	"github.com/simple-workflow/swf/history"
)

const (
	tableDomains    = "domains"
	tableTypes      = "workflow_types"
	tableExecutions = "workflow_executions"
)

type domainRecord struct {
	Name string
}

type workflowTypeRecord struct {
	Domain  string
	Name    string
	Version string

	Status          core.RegistrationStatus
	CreationDate    float64
	DeprecationDate float64

	TaskList             string
	ChildPolicy          core.ChildPolicy
	ExecutionTimeout     string
	DecisionTasksTimeout string
	Description          string
}

type workflowExecutionRecord struct {
	Domain     string
	WorkflowID string
	RunID      string

	Status      core.ExecutionStatus
	CloseStatus core.CloseStatus

	TaskList             string
	ChildPolicy          core.ChildPolicy
	ExecutionTimeout     string
	DecisionTasksTimeout string
	TagList              []string

	Events []*history.Event
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableDomains: {
				Name: tableDomains,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Name"},
					},
				},
			},
			tableTypes: {
				Name: tableTypes,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:   "id",
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "Domain"},
								&memdb.StringFieldIndex{Field: "Name"},
								&memdb.StringFieldIndex{Field: "Version"},
							},
						},
					},
				},
			},
			tableExecutions: {
				Name: tableExecutions,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:   "id",
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "Domain"},
								&memdb.StringFieldIndex{Field: "WorkflowID"},
								&memdb.StringFieldIndex{Field: "RunID"},
							},
						},
					},
					"open_by_workflow_id": {
						Name:         "open_by_workflow_id",
						AllowMissing: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "Domain"},
								&memdb.StringFieldIndex{Field: "WorkflowID"},
								&memdb.StringFieldIndex{Field: "Status"},
							},
						},
					},
				},
			},
		},
	}
}
