package model

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/simple-workflow/swf/converter"
	"github.com/simple-workflow/swf/core"
	im "github.com/simple-workflow/swf/internal/metrics"
	"github.com/simple-workflow/swf/provider"
)

func typeDescription(t *WorkflowType) *provider.WorkflowTypeDescription {
	return &provider.WorkflowTypeDescription{
		Info: provider.WorkflowTypeInfo{
			Name:            t.Name,
			Version:         t.Version,
			Status:          t.Status,
			CreationDate:    t.CreationDate,
			DeprecationDate: t.DeprecationDate,
			Description:     t.Description,
		},
		Configuration: provider.WorkflowTypeConfiguration{
			DefaultTaskList:             t.TaskList,
			DefaultChildPolicy:          t.ChildPolicy(),
			DefaultExecutionTimeout:     t.ExecutionTimeout,
			DefaultDecisionTasksTimeout: t.DecisionTasksTimeout,
		},
	}
}

func Test_WorkflowType_ChildPolicyValidation(t *testing.T) {
	cp := &provider.MockConnectionProvider{}

	for _, policy := range []core.ChildPolicy{
		core.ChildPolicyTerminate, core.ChildPolicyRequestCancel, core.ChildPolicyAbandon,
	} {
		wt, err := NewWorkflowType(cp, "orders", "ProcessOrder", "1.0", WithTypeChildPolicy(policy))
		require.NoError(t, err)
		require.Equal(t, policy, wt.ChildPolicy())
	}

	_, err := NewWorkflowType(cp, "orders", "ProcessOrder", "1.0", WithTypeChildPolicy("RETAIN"))
	var invalid *core.InvalidChildPolicyError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, core.ChildPolicy("RETAIN"), invalid.Policy)

	wt, err := NewWorkflowType(cp, "orders", "ProcessOrder", "1.0")
	require.NoError(t, err)
	require.Equal(t, core.ChildPolicyTerminate, wt.ChildPolicy())

	require.NoError(t, wt.SetChildPolicy(core.ChildPolicyAbandon))
	require.Equal(t, core.ChildPolicyAbandon, wt.ChildPolicy())

	err = wt.SetChildPolicy("")
	require.ErrorAs(t, err, &invalid)
	// Failed assignment leaves the previous value in place
	require.Equal(t, core.ChildPolicyAbandon, wt.ChildPolicy())
}

func Test_WorkflowType_Diff_Synced(t *testing.T) {
	ctx := context.Background()

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))

	wt, err := NewWorkflowType(cp, "orders", "ProcessOrder", "1.0",
		WithTypeTaskList("default"),
		WithTypeDescription("order processing"))
	require.NoError(t, err)

	cp.On("DescribeWorkflowType", mock.Anything, "orders", "ProcessOrder", "1.0").
		Return(typeDescription(wt), nil)

	changes, err := wt.Diff(ctx)
	require.NoError(t, err)
	require.Empty(t, changes)

	synced, err := wt.IsSynced(ctx)
	require.NoError(t, err)
	require.True(t, synced)

	cp.AssertExpectations(t)
}

func Test_WorkflowType_Diff_SingleChange(t *testing.T) {
	ctx := context.Background()

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))

	wt, err := NewWorkflowType(cp, "orders", "ProcessOrder", "1.0",
		WithTypeTaskList("default"))
	require.NoError(t, err)

	desc := typeDescription(wt)
	desc.Configuration.DefaultTaskList = "high-priority"

	cp.On("DescribeWorkflowType", mock.Anything, "orders", "ProcessOrder", "1.0").
		Return(desc, nil)

	changes, err := wt.Diff(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, "task_list", changes[0].Field)
	require.Equal(t, "default", changes[0].Local)
	require.Equal(t, "high-priority", changes[0].Remote)

	synced, err := wt.IsSynced(ctx)
	require.NoError(t, err)
	require.False(t, synced)

	changes2, err := wt.Changes(ctx)
	require.NoError(t, err)
	require.Equal(t, changes, changes2)

	cp.AssertExpectations(t)
}

func Test_WorkflowType_Diff_NotFound(t *testing.T) {
	ctx := context.Background()

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))
	cp.On("DescribeWorkflowType", mock.Anything, "orders", "ProcessOrder", "1.0").
		Return(nil, provider.NewFault(provider.FaultUnknownResource, "workflow type ProcessOrder/1.0 does not exist"))

	wt, err := NewWorkflowType(cp, "orders", "ProcessOrder", "1.0")
	require.NoError(t, err)

	changes, err := wt.Diff(ctx)
	require.Nil(t, changes)

	var notFound *core.NotFoundError
	require.ErrorAs(t, err, &notFound)

	cp.AssertExpectations(t)
}

func Test_WorkflowType_Exists(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		fault   error
		exists  bool
		wantErr bool
	}{
		{name: "found", fault: nil, exists: true},
		{name: "unknown resource", fault: provider.NewFault(provider.FaultUnknownResource, "no such type"), exists: false},
		{name: "other fault", fault: provider.NewFault(provider.FaultGeneric, "throttled"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp := &provider.MockConnectionProvider{}

			wt, err := NewWorkflowType(cp, "orders", "ProcessOrder", "1.0")
			require.NoError(t, err)

			if tt.fault == nil {
				cp.On("DescribeWorkflowType", mock.Anything, "orders", "ProcessOrder", "1.0").
					Return(typeDescription(wt), nil)
			} else {
				cp.On("DescribeWorkflowType", mock.Anything, "orders", "ProcessOrder", "1.0").
					Return(nil, tt.fault)
			}

			exists, err := wt.Exists(ctx)
			if tt.wantErr {
				var respErr *core.ResponseError
				require.ErrorAs(t, err, &respErr)
				require.Equal(t, "throttled", respErr.Message)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.exists, exists)
			}

			cp.AssertExpectations(t)
		})
	}
}

func Test_WorkflowType_Save(t *testing.T) {
	ctx := context.Background()

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))
	cp.On("Logger").Return(slog.Default())
	cp.On("Metrics").Return(im.NewNoopMetricsClient())

	wt, err := NewWorkflowType(cp, "orders", "ProcessOrder", "1.0",
		WithTypeTaskList("default"),
		WithTypeDescription("order processing"))
	require.NoError(t, err)

	cp.On("RegisterWorkflowType", mock.Anything, &provider.WorkflowTypeRegistration{
		Domain:  "orders",
		Name:    "ProcessOrder",
		Version: "1.0",

		TaskList:             "default",
		ChildPolicy:          core.ChildPolicyTerminate,
		ExecutionTimeout:     DefaultTimeout,
		DecisionTasksTimeout: DefaultTimeout,
		Description:          "order processing",
	}).Return(nil)

	require.NoError(t, wt.Save(ctx))
	cp.AssertExpectations(t)
}

func Test_WorkflowType_Save_AlreadyExists(t *testing.T) {
	ctx := context.Background()

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))
	cp.On("RegisterWorkflowType", mock.Anything, mock.Anything).
		Return(provider.NewFault(provider.FaultTypeAlreadyExists, "workflow type ProcessOrder/1.0 already exists"))

	wt, err := NewWorkflowType(cp, "orders", "ProcessOrder", "1.0")
	require.NoError(t, err)

	err = wt.Save(ctx)

	var alreadyExists *core.AlreadyExistsError
	require.ErrorAs(t, err, &alreadyExists)

	cp.AssertExpectations(t)
}

func Test_WorkflowType_Save_DomainNotFound(t *testing.T) {
	ctx := context.Background()

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))
	cp.On("RegisterWorkflowType", mock.Anything, mock.Anything).
		Return(provider.NewFault(provider.FaultDomainNotFound, "domain orders does not exist"))

	wt, err := NewWorkflowType(cp, "orders", "ProcessOrder", "1.0")
	require.NoError(t, err)

	err = wt.Save(ctx)

	var notFound *core.NotFoundError
	require.ErrorAs(t, err, &notFound)

	cp.AssertExpectations(t)
}

func Test_WorkflowType_Delete_AlreadyDeprecated(t *testing.T) {
	ctx := context.Background()

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))
	cp.On("DeprecateWorkflowType", mock.Anything, "orders", "ProcessOrder", "1.0").
		Return(provider.NewFault(provider.FaultTypeDeprecated, "workflow type ProcessOrder/1.0 is deprecated"))

	wt, err := NewWorkflowType(cp, "orders", "ProcessOrder", "1.0")
	require.NoError(t, err)

	err = wt.Delete(ctx)

	var notFound *core.NotFoundError
	require.ErrorAs(t, err, &notFound)

	cp.AssertExpectations(t)
}

func Test_WorkflowType_Delete_DoesNotMutateLocalStatus(t *testing.T) {
	ctx := context.Background()

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))
	cp.On("Logger").Return(slog.Default())
	cp.On("Metrics").Return(im.NewNoopMetricsClient())
	cp.On("DeprecateWorkflowType", mock.Anything, "orders", "ProcessOrder", "1.0").Return(nil)

	wt, err := NewWorkflowType(cp, "orders", "ProcessOrder", "1.0")
	require.NoError(t, err)

	require.NoError(t, wt.Delete(ctx))
	require.Equal(t, core.RegistrationStatusRegistered, wt.Status)

	cp.AssertExpectations(t)
}

func Test_WorkflowType_StartExecution_TypeDefaults(t *testing.T) {
	ctx := context.Background()

	mockClock := clock.NewMock()
	mockClock.Set(time.Unix(1700000000, 0))

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))
	cp.On("Logger").Return(slog.Default())
	cp.On("Metrics").Return(im.NewNoopMetricsClient())

	wt, err := NewWorkflowType(cp, "orders", "ProcessOrder", "1.0",
		WithTypeTaskList("default"),
		WithTypeChildPolicy(core.ChildPolicyTerminate),
		WithTypeClock(mockClock))
	require.NoError(t, err)

	cp.On("StartWorkflowExecution", mock.Anything, mock.MatchedBy(func(start *provider.ExecutionStart) bool {
		return start.Domain == "orders" &&
			start.WorkflowID == "ProcessOrder-1.0-1700000000" &&
			start.TypeName == "ProcessOrder" &&
			start.TypeVersion == "1.0" &&
			start.TaskList == "default" &&
			start.ChildPolicy == core.ChildPolicyTerminate
	})).Return("run-1", nil)

	we, err := wt.StartExecution(ctx, StartExecutionOptions{})
	require.NoError(t, err)

	require.Equal(t, "orders", we.Domain)
	require.Equal(t, "ProcessOrder-1.0-1700000000", we.WorkflowID)
	require.Equal(t, "run-1", we.RunID)
	require.Equal(t, core.ExecutionStatusOpen, we.Status)
	require.Equal(t, "default", we.TaskList)
	require.Equal(t, core.ChildPolicyTerminate, we.ChildPolicy())

	cp.AssertExpectations(t)
}

func Test_WorkflowType_StartExecution_Overrides(t *testing.T) {
	ctx := context.Background()

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))
	cp.On("Logger").Return(slog.Default())
	cp.On("Metrics").Return(im.NewNoopMetricsClient())
	cp.On("Converter").Return(converter.DefaultConverter)

	wt, err := NewWorkflowType(cp, "orders", "ProcessOrder", "1.0",
		WithTypeTaskList("default"))
	require.NoError(t, err)

	cp.On("StartWorkflowExecution", mock.Anything, mock.MatchedBy(func(start *provider.ExecutionStart) bool {
		return start.WorkflowID == "order-42" &&
			start.TaskList == "high-priority" &&
			start.ChildPolicy == core.ChildPolicyAbandon &&
			start.ExecutionTimeout == "600" &&
			string(start.Input) == `{"order":42}` &&
			len(start.TagList) == 2 &&
			start.DecisionTasksTimeout == "60"
	})).Return("run-2", nil)

	we, err := wt.StartExecution(ctx, StartExecutionOptions{
		WorkflowID:           "order-42",
		TaskList:             "high-priority",
		ChildPolicy:          core.ChildPolicyAbandon,
		ExecutionTimeout:     "600",
		Input:                map[string]int{"order": 42},
		TagList:              []string{"orders", "priority"},
		DecisionTasksTimeout: "60",
	})
	require.NoError(t, err)

	require.Equal(t, "order-42", we.WorkflowID)
	require.Equal(t, "run-2", we.RunID)
	require.Equal(t, "high-priority", we.TaskList)
	require.Equal(t, core.ChildPolicyAbandon, we.ChildPolicy())
	require.Equal(t, []string{"orders", "priority"}, we.TagList)

	cp.AssertExpectations(t)
}

func Test_WorkflowType_StartExecution_InvalidChildPolicy(t *testing.T) {
	ctx := context.Background()

	cp := &provider.MockConnectionProvider{}

	wt, err := NewWorkflowType(cp, "orders", "ProcessOrder", "1.0")
	require.NoError(t, err)

	// Validation fails locally, no remote call happens
	_, err = wt.StartExecution(ctx, StartExecutionOptions{ChildPolicy: "RETAIN"})

	var invalid *core.InvalidChildPolicyError
	require.ErrorAs(t, err, &invalid)

	cp.AssertExpectations(t)
}

func Test_WorkflowType_StartExecution_Fault(t *testing.T) {
	ctx := context.Background()

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))
	cp.On("StartWorkflowExecution", mock.Anything, mock.Anything).
		Return("", provider.NewFault(provider.FaultGeneric, "rate exceeded"))

	wt, err := NewWorkflowType(cp, "orders", "ProcessOrder", "1.0")
	require.NoError(t, err)

	_, err = wt.StartExecution(ctx, StartExecutionOptions{WorkflowID: "order-42"})

	var respErr *core.ResponseError
	require.ErrorAs(t, err, &respErr)
	require.Equal(t, "rate exceeded", respErr.Message)

	cp.AssertExpectations(t)
}
