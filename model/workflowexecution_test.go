package model

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/simple-workflow/swf/core"
	"github.com/simple-workflow/swf/history"
	im "github.com/simple-workflow/swf/internal/metrics"
	"github.com/simple-workflow/swf/provider"
)

func executionDescription(e *WorkflowExecution) *provider.WorkflowExecutionDescription {
	return &provider.WorkflowExecutionDescription{
		Info: provider.WorkflowExecutionInfo{
			WorkflowID: e.WorkflowID,
			RunID:      e.RunID,
			Status:     e.Status,
			TagList:    e.TagList,
		},
		Configuration: provider.WorkflowExecutionConfiguration{
			TaskList:             e.TaskList,
			ChildPolicy:          e.ChildPolicy(),
			ExecutionTimeout:     e.ExecutionTimeout,
			DecisionTasksTimeout: e.DecisionTasksTimeout,
		},
	}
}

func Test_WorkflowExecution_ChildPolicyValidation(t *testing.T) {
	cp := &provider.MockConnectionProvider{}

	_, err := NewWorkflowExecution(cp, "orders", "order-42",
		WithExecutionChildPolicy("RETAIN"))

	var invalid *core.InvalidChildPolicyError
	require.ErrorAs(t, err, &invalid)

	we, err := NewWorkflowExecution(cp, "orders", "order-42")
	require.NoError(t, err)
	require.Equal(t, core.ExecutionStatusOpen, we.Status)
	require.Empty(t, we.ChildPolicy())

	require.NoError(t, we.SetChildPolicy(core.ChildPolicyRequestCancel))
	require.Equal(t, core.ChildPolicyRequestCancel, we.ChildPolicy())
}

func Test_WorkflowExecution_Diff_Synced(t *testing.T) {
	ctx := context.Background()

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))

	we, err := NewWorkflowExecution(cp, "orders", "order-42",
		WithExecutionRunID("run-1"),
		WithExecutionTaskList("default"),
		WithExecutionChildPolicy(core.ChildPolicyTerminate),
		WithExecutionTagList([]string{"orders"}))
	require.NoError(t, err)

	cp.On("DescribeWorkflowExecution", mock.Anything, "orders", "run-1", "order-42").
		Return(executionDescription(we), nil)

	changes, err := we.Diff(ctx)
	require.NoError(t, err)
	require.Empty(t, changes)

	synced, err := we.IsSynced(ctx)
	require.NoError(t, err)
	require.True(t, synced)

	cp.AssertExpectations(t)
}

func Test_WorkflowExecution_Diff_ObservesClose(t *testing.T) {
	ctx := context.Background()

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))

	we, err := NewWorkflowExecution(cp, "orders", "order-42",
		WithExecutionRunID("run-1"))
	require.NoError(t, err)

	desc := executionDescription(we)
	desc.Info.Status = core.ExecutionStatusClosed
	desc.Info.CloseStatus = core.CloseStatusCompleted

	cp.On("DescribeWorkflowExecution", mock.Anything, "orders", "run-1", "order-42").
		Return(desc, nil)

	changes, err := we.Diff(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, "status", changes[0].Field)
	require.Equal(t, core.ExecutionStatusOpen, changes[0].Local)
	require.Equal(t, core.ExecutionStatusClosed, changes[0].Remote)

	cp.AssertExpectations(t)
}

func Test_WorkflowExecution_Diff_TagListOrderMatters(t *testing.T) {
	ctx := context.Background()

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))

	we, err := NewWorkflowExecution(cp, "orders", "order-42",
		WithExecutionRunID("run-1"),
		WithExecutionTagList([]string{"a", "b"}))
	require.NoError(t, err)

	desc := executionDescription(we)
	desc.Info.TagList = []string{"b", "a"}

	cp.On("DescribeWorkflowExecution", mock.Anything, "orders", "run-1", "order-42").
		Return(desc, nil)

	changes, err := we.Diff(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, "tag_list", changes[0].Field)

	cp.AssertExpectations(t)
}

func Test_WorkflowExecution_Exists(t *testing.T) {
	ctx := context.Background()

	cp := &provider.MockConnectionProvider{}

	we, err := NewWorkflowExecution(cp, "orders", "order-42",
		WithExecutionRunID("run-1"))
	require.NoError(t, err)

	cp.On("DescribeWorkflowExecution", mock.Anything, "orders", "run-1", "order-42").
		Return(nil, provider.NewFault(provider.FaultUnknownResource, "execution order-42 does not exist")).Once()

	exists, err := we.Exists(ctx)
	require.NoError(t, err)
	require.False(t, exists)

	cp.On("DescribeWorkflowExecution", mock.Anything, "orders", "run-1", "order-42").
		Return(executionDescription(we), nil).Once()

	exists, err = we.Exists(ctx)
	require.NoError(t, err)
	require.True(t, exists)

	cp.On("DescribeWorkflowExecution", mock.Anything, "orders", "run-1", "order-42").
		Return(nil, provider.NewFault(provider.FaultGeneric, "internal failure")).Once()

	_, err = we.Exists(ctx)
	var respErr *core.ResponseError
	require.ErrorAs(t, err, &respErr)

	cp.AssertExpectations(t)
}

func Test_WorkflowExecution_History_PreservesOrder(t *testing.T) {
	ctx := context.Background()

	events := []*history.Event{
		history.NewHistoryEvent(1, time.Now(), history.EventType_WorkflowExecutionStarted, nil),
		history.NewHistoryEvent(2, time.Now(), history.EventType_DecisionTaskScheduled, nil),
		// Event types unknown to this module survive untouched
		history.NewHistoryEvent(3, time.Now(), "LambdaFunctionScheduled", json.RawMessage(`{"id":"l1"}`)),
		history.NewHistoryEvent(4, time.Now(), history.EventType_WorkflowExecutionCompleted, nil),
	}

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))
	cp.On("Logger").Return(slog.Default())
	cp.On("Metrics").Return(im.NewNoopMetricsClient())
	cp.On("GetWorkflowExecutionHistory", mock.Anything, "orders", "run-1", "order-42").
		Return(events, nil)

	we, err := NewWorkflowExecution(cp, "orders", "order-42",
		WithExecutionRunID("run-1"))
	require.NoError(t, err)

	h, err := we.History(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, h.Len())

	got := h.Events()
	for i, event := range events {
		require.Equal(t, event.EventID, got[i].EventID)
		require.Equal(t, event.Type, got[i].Type)
	}

	status, ok := h.CloseStatus()
	require.True(t, ok)
	require.Equal(t, core.CloseStatusCompleted, status)

	cp.AssertExpectations(t)
}

func Test_WorkflowExecution_History_ForwardsPagingOptions(t *testing.T) {
	ctx := context.Background()

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))
	cp.On("Logger").Return(slog.Default())
	cp.On("Metrics").Return(im.NewNoopMetricsClient())
	cp.On("GetWorkflowExecutionHistory", mock.Anything, "orders", "run-1", "order-42",
		mock.AnythingOfType("provider.HistoryOption"), mock.AnythingOfType("provider.HistoryOption")).
		Return([]*history.Event{}, nil)

	we, err := NewWorkflowExecution(cp, "orders", "order-42",
		WithExecutionRunID("run-1"))
	require.NoError(t, err)

	h, err := we.History(ctx, provider.WithPageSize(100), provider.WithReverseOrder())
	require.NoError(t, err)
	require.Zero(t, h.Len())
	require.Nil(t, h.LastEvent())

	cp.AssertExpectations(t)
}

func Test_WorkflowExecution_History_NotFound(t *testing.T) {
	ctx := context.Background()

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))
	cp.On("Metrics").Return(im.NewNoopMetricsClient())
	cp.On("GetWorkflowExecutionHistory", mock.Anything, "orders", "run-1", "order-42").
		Return(nil, provider.NewFault(provider.FaultUnknownResource, "execution order-42 does not exist"))

	we, err := NewWorkflowExecution(cp, "orders", "order-42",
		WithExecutionRunID("run-1"))
	require.NoError(t, err)

	_, err = we.History(ctx)

	var notFound *core.NotFoundError
	require.ErrorAs(t, err, &notFound)

	cp.AssertExpectations(t)
}

func Test_WorkflowExecution_WaitForClose(t *testing.T) {
	ctx := context.Background()

	mockClock := clock.NewMock()

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))

	we, err := NewWorkflowExecution(cp, "orders", "order-42",
		WithExecutionRunID("run-1"),
		WithExecutionClock(mockClock))
	require.NoError(t, err)

	open := executionDescription(we)

	closed := executionDescription(we)
	closed.Info.Status = core.ExecutionStatusClosed

	cp.On("DescribeWorkflowExecution", mock.Anything, "orders", "run-1", "order-42").
		Return(open, nil).Once().Run(func(args mock.Arguments) {
		// After the first poll, advance the clock to trigger the next one
		mockClock.Add(time.Second)
	})
	cp.On("DescribeWorkflowExecution", mock.Anything, "orders", "run-1", "order-42").
		Return(closed, nil)

	require.NoError(t, we.WaitForClose(ctx, 0))
	cp.AssertExpectations(t)
}

func Test_WorkflowExecution_WaitForClose_Timeout(t *testing.T) {
	ctx := context.Background()

	cp := &provider.MockConnectionProvider{}
	cp.On("Tracer").Return(trace.NewNoopTracerProvider().Tracer("test"))
	cp.On("DescribeWorkflowExecution", mock.Anything, "orders", "run-1", "order-42").
		Return(&provider.WorkflowExecutionDescription{
			Info: provider.WorkflowExecutionInfo{Status: core.ExecutionStatusOpen},
		}, nil).Maybe()

	we, err := NewWorkflowExecution(cp, "orders", "order-42",
		WithExecutionRunID("run-1"))
	require.NoError(t, err)

	err = we.WaitForClose(ctx, time.Microsecond)
	require.EqualError(t, err, "workflow execution did not close in specified timeout")
}
