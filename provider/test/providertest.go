package test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/simple-workflow/swf/core"
	"github.com/simple-workflow/swf/history"
	"github.com/simple-workflow/swf/provider"
)

// TestProvider is the surface local provider implementations expose on top
// of the ConnectionProvider contract so this suite can drive remote-side
// transitions that are otherwise outside the core's control.
type TestProvider interface {
	provider.ConnectionProvider

	// CreateDomain makes a domain available for registrations.
	CreateDomain(ctx context.Context, name string) error

	// CompleteWorkflowExecution closes an open execution out of band with
	// the given close status.
	CompleteWorkflowExecution(ctx context.Context, domain, runID, workflowID string, closeStatus core.CloseStatus) error
}

const domain = "conformance"

func registration(name, version string) *provider.WorkflowTypeRegistration {
	return &provider.WorkflowTypeRegistration{
		Domain:  domain,
		Name:    name,
		Version: version,

		TaskList:             "default",
		ChildPolicy:          core.ChildPolicyTerminate,
		ExecutionTimeout:     "300",
		DecisionTasksTimeout: "300",
		Description:          "conformance type",
	}
}

func start(name, version, workflowID string) *provider.ExecutionStart {
	return &provider.ExecutionStart{
		Domain:     domain,
		WorkflowID: workflowID,

		TypeName:    name,
		TypeVersion: version,

		TaskList:    "default",
		ChildPolicy: core.ChildPolicyTerminate,
		TagList:     []string{"conformance"},
	}
}

func requireFaultKind(t *testing.T, err error, kind provider.FaultKind) {
	t.Helper()

	var fault *provider.Fault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, kind, fault.Kind)
}

// ProviderTest runs the conformance suite every connection provider
// implementation has to pass.
func ProviderTest(t *testing.T, setup func() TestProvider, teardown func(p TestProvider)) {
	tests := []struct {
		name string
		f    func(t *testing.T, ctx context.Context, p TestProvider)
	}{
		{
			name: "DescribeWorkflowType_UnknownResource",
			f: func(t *testing.T, ctx context.Context, p TestProvider) {
				_, err := p.DescribeWorkflowType(ctx, domain, "Missing", "1.0")
				requireFaultKind(t, err, provider.FaultUnknownResource)
			},
		},
		{
			name: "RegisterWorkflowType_Roundtrip",
			f: func(t *testing.T, ctx context.Context, p TestProvider) {
				require.NoError(t, p.RegisterWorkflowType(ctx, registration("ProcessOrder", "1.0")))

				desc, err := p.DescribeWorkflowType(ctx, domain, "ProcessOrder", "1.0")
				require.NoError(t, err)
				require.Equal(t, "ProcessOrder", desc.Info.Name)
				require.Equal(t, "1.0", desc.Info.Version)
				require.Equal(t, core.RegistrationStatusRegistered, desc.Info.Status)
				require.NotZero(t, desc.Info.CreationDate)
				require.Zero(t, desc.Info.DeprecationDate)
				require.Equal(t, "default", desc.Configuration.DefaultTaskList)
				require.Equal(t, core.ChildPolicyTerminate, desc.Configuration.DefaultChildPolicy)
				require.Equal(t, "300", desc.Configuration.DefaultExecutionTimeout)
				require.Equal(t, "300", desc.Configuration.DefaultDecisionTasksTimeout)
				require.Equal(t, "conformance type", desc.Info.Description)
			},
		},
		{
			name: "RegisterWorkflowType_DuplicateFails",
			f: func(t *testing.T, ctx context.Context, p TestProvider) {
				require.NoError(t, p.RegisterWorkflowType(ctx, registration("ProcessOrder", "1.0")))

				err := p.RegisterWorkflowType(ctx, registration("ProcessOrder", "1.0"))
				requireFaultKind(t, err, provider.FaultTypeAlreadyExists)

				// A new version of the same name is a distinct type
				require.NoError(t, p.RegisterWorkflowType(ctx, registration("ProcessOrder", "2.0")))
			},
		},
		{
			name: "RegisterWorkflowType_DomainNotFound",
			f: func(t *testing.T, ctx context.Context, p TestProvider) {
				reg := registration("ProcessOrder", "1.0")
				reg.Domain = "missing-domain"

				err := p.RegisterWorkflowType(ctx, reg)
				requireFaultKind(t, err, provider.FaultDomainNotFound)
			},
		},
		{
			name: "DeprecateWorkflowType",
			f: func(t *testing.T, ctx context.Context, p TestProvider) {
				require.NoError(t, p.RegisterWorkflowType(ctx, registration("ProcessOrder", "1.0")))
				require.NoError(t, p.DeprecateWorkflowType(ctx, domain, "ProcessOrder", "1.0"))

				// Deprecated types remain describable
				desc, err := p.DescribeWorkflowType(ctx, domain, "ProcessOrder", "1.0")
				require.NoError(t, err)
				require.Equal(t, core.RegistrationStatusDeprecated, desc.Info.Status)
				require.NotZero(t, desc.Info.DeprecationDate)

				err = p.DeprecateWorkflowType(ctx, domain, "ProcessOrder", "1.0")
				requireFaultKind(t, err, provider.FaultTypeDeprecated)
			},
		},
		{
			name: "DeprecateWorkflowType_UnknownResource",
			f: func(t *testing.T, ctx context.Context, p TestProvider) {
				err := p.DeprecateWorkflowType(ctx, domain, "Missing", "1.0")
				requireFaultKind(t, err, provider.FaultUnknownResource)
			},
		},
		{
			name: "StartWorkflowExecution_Roundtrip",
			f: func(t *testing.T, ctx context.Context, p TestProvider) {
				require.NoError(t, p.RegisterWorkflowType(ctx, registration("ProcessOrder", "1.0")))

				workflowID := uuid.NewString()
				runID, err := p.StartWorkflowExecution(ctx, start("ProcessOrder", "1.0", workflowID))
				require.NoError(t, err)
				require.NotEmpty(t, runID)

				desc, err := p.DescribeWorkflowExecution(ctx, domain, runID, workflowID)
				require.NoError(t, err)
				require.Equal(t, workflowID, desc.Info.WorkflowID)
				require.Equal(t, runID, desc.Info.RunID)
				require.Equal(t, core.ExecutionStatusOpen, desc.Info.Status)
				require.Equal(t, []string{"conformance"}, desc.Info.TagList)
				require.Equal(t, "default", desc.Configuration.TaskList)
				require.Equal(t, core.ChildPolicyTerminate, desc.Configuration.ChildPolicy)
			},
		},
		{
			name: "StartWorkflowExecution_AppliesTypeDefaults",
			f: func(t *testing.T, ctx context.Context, p TestProvider) {
				require.NoError(t, p.RegisterWorkflowType(ctx, registration("ProcessOrder", "1.0")))

				workflowID := uuid.NewString()
				s := start("ProcessOrder", "1.0", workflowID)
				s.ExecutionTimeout = ""
				s.DecisionTasksTimeout = ""

				runID, err := p.StartWorkflowExecution(ctx, s)
				require.NoError(t, err)

				desc, err := p.DescribeWorkflowExecution(ctx, domain, runID, workflowID)
				require.NoError(t, err)
				require.Equal(t, "300", desc.Configuration.ExecutionTimeout)
				require.Equal(t, "300", desc.Configuration.DecisionTasksTimeout)
			},
		},
		{
			name: "StartWorkflowExecution_TypeNotFound",
			f: func(t *testing.T, ctx context.Context, p TestProvider) {
				_, err := p.StartWorkflowExecution(ctx, start("Missing", "1.0", uuid.NewString()))
				requireFaultKind(t, err, provider.FaultUnknownResource)
			},
		},
		{
			name: "StartWorkflowExecution_DomainNotFound",
			f: func(t *testing.T, ctx context.Context, p TestProvider) {
				s := start("ProcessOrder", "1.0", uuid.NewString())
				s.Domain = "missing-domain"

				_, err := p.StartWorkflowExecution(ctx, s)
				requireFaultKind(t, err, provider.FaultDomainNotFound)
			},
		},
		{
			name: "StartWorkflowExecution_AlreadyStartedFails",
			f: func(t *testing.T, ctx context.Context, p TestProvider) {
				require.NoError(t, p.RegisterWorkflowType(ctx, registration("ProcessOrder", "1.0")))

				workflowID := uuid.NewString()
				_, err := p.StartWorkflowExecution(ctx, start("ProcessOrder", "1.0", workflowID))
				require.NoError(t, err)

				_, err = p.StartWorkflowExecution(ctx, start("ProcessOrder", "1.0", workflowID))
				require.Error(t, err)
			},
		},
		{
			name: "DescribeWorkflowExecution_UnknownResource",
			f: func(t *testing.T, ctx context.Context, p TestProvider) {
				_, err := p.DescribeWorkflowExecution(ctx, domain, uuid.NewString(), uuid.NewString())
				requireFaultKind(t, err, provider.FaultUnknownResource)
			},
		},
		{
			name: "CompleteWorkflowExecution_ObservableViaDescribe",
			f: func(t *testing.T, ctx context.Context, p TestProvider) {
				require.NoError(t, p.RegisterWorkflowType(ctx, registration("ProcessOrder", "1.0")))

				workflowID := uuid.NewString()
				runID, err := p.StartWorkflowExecution(ctx, start("ProcessOrder", "1.0", workflowID))
				require.NoError(t, err)

				require.NoError(t, p.CompleteWorkflowExecution(ctx, domain, runID, workflowID, core.CloseStatusFailed))

				desc, err := p.DescribeWorkflowExecution(ctx, domain, runID, workflowID)
				require.NoError(t, err)
				require.Equal(t, core.ExecutionStatusClosed, desc.Info.Status)
				require.Equal(t, core.CloseStatusFailed, desc.Info.CloseStatus)
			},
		},
		{
			name: "GetWorkflowExecutionHistory_OrderedOldestFirst",
			f: func(t *testing.T, ctx context.Context, p TestProvider) {
				require.NoError(t, p.RegisterWorkflowType(ctx, registration("ProcessOrder", "1.0")))

				workflowID := uuid.NewString()
				runID, err := p.StartWorkflowExecution(ctx, start("ProcessOrder", "1.0", workflowID))
				require.NoError(t, err)

				require.NoError(t, p.CompleteWorkflowExecution(ctx, domain, runID, workflowID, core.CloseStatusCompleted))

				events, err := p.GetWorkflowExecutionHistory(ctx, domain, runID, workflowID)
				require.NoError(t, err)
				require.NotEmpty(t, events)
				require.Equal(t, history.EventType_WorkflowExecutionStarted, events[0].Type)
				require.Equal(t, history.EventType_WorkflowExecutionCompleted, events[len(events)-1].Type)

				for i := 1; i < len(events); i++ {
					require.Greater(t, events[i].EventID, events[i-1].EventID)
				}
			},
		},
		{
			name: "GetWorkflowExecutionHistory_Paging",
			f: func(t *testing.T, ctx context.Context, p TestProvider) {
				require.NoError(t, p.RegisterWorkflowType(ctx, registration("ProcessOrder", "1.0")))

				workflowID := uuid.NewString()
				runID, err := p.StartWorkflowExecution(ctx, start("ProcessOrder", "1.0", workflowID))
				require.NoError(t, err)

				require.NoError(t, p.CompleteWorkflowExecution(ctx, domain, runID, workflowID, core.CloseStatusCompleted))

				page, err := p.GetWorkflowExecutionHistory(ctx, domain, runID, workflowID, provider.WithPageSize(1))
				require.NoError(t, err)
				require.Len(t, page, 1)
				require.Equal(t, history.EventType_WorkflowExecutionStarted, page[0].Type)

				reversed, err := p.GetWorkflowExecutionHistory(ctx, domain, runID, workflowID, provider.WithReverseOrder())
				require.NoError(t, err)
				require.Equal(t, history.EventType_WorkflowExecutionStarted, reversed[len(reversed)-1].Type)
			},
		},
		{
			name: "GetWorkflowExecutionHistory_PageTokens",
			f: func(t *testing.T, ctx context.Context, p TestProvider) {
				require.NoError(t, p.RegisterWorkflowType(ctx, registration("ProcessOrder", "1.0")))

				workflowID := uuid.NewString()
				runID, err := p.StartWorkflowExecution(ctx, start("ProcessOrder", "1.0", workflowID))
				require.NoError(t, err)

				require.NoError(t, p.CompleteWorkflowExecution(ctx, domain, runID, workflowID, core.CloseStatusCompleted))

				all, err := p.GetWorkflowExecutionHistory(ctx, domain, runID, workflowID)
				require.NoError(t, err)

				var paged []*history.Event
				token := ""
				for {
					var next string
					page, err := p.GetWorkflowExecutionHistory(ctx, domain, runID, workflowID,
						provider.WithPageSize(1),
						provider.WithPageToken(token),
						provider.WithNextPageToken(&next))
					require.NoError(t, err)
					require.Len(t, page, 1)

					paged = append(paged, page...)

					if next == "" {
						break
					}
					token = next
				}

				require.Equal(t, all, paged)
			},
		},
		{
			name: "GetWorkflowExecutionHistory_UnknownResource",
			f: func(t *testing.T, ctx context.Context, p TestProvider) {
				_, err := p.GetWorkflowExecutionHistory(ctx, domain, uuid.NewString(), uuid.NewString())

				var fault *provider.Fault
				require.True(t, errors.As(err, &fault))
				require.Equal(t, provider.FaultUnknownResource, fault.Kind)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := setup()
			ctx := context.Background()

			require.NoError(t, p.CreateDomain(ctx, domain))

			t.Cleanup(func() {
				if teardown != nil {
					teardown(p)
				} else {
					require.NoError(t, p.Close())
				}
			})

			tt.f(t, ctx, p)
		})
	}
}
