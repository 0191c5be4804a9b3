package bossagent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbridge/bridge/internal/domain"
	"github.com/agentbridge/bridge/internal/runner"
	"github.com/agentbridge/bridge/internal/tracker"
)

type testRunner struct {
	taskID string
}

func (r *testRunner) CreateTask(context.Context, string, map[string]string) (runner.TaskResult, error) {
	return runner.TaskResult{TaskID: r.taskID}, nil
}

func (r *testRunner) CancelTask(context.Context, string) error { return nil }

func TestClassifyInfersBugFixFromTitle(t *testing.T) {
	issue := &domain.Issue{Title: "Fix crash on startup", Description: "short"}
	c := Classify(issue, nil)
	assert.Equal(t, TaskBugFix, c.TaskType)
}

func TestClassifyComplexityClampedAndScored(t *testing.T) {
	issue := &domain.Issue{
		Title:       "Refactor auth and migration for concurrency and security",
		Description: string(make([]byte, 600)),
		Labels:      []string{"a", "b", "c"},
	}
	c := Classify(issue, nil)
	assert.Equal(t, 10, c.Complexity) // clamped
}

func TestClassifyTrivialKeywordLowersComplexity(t *testing.T) {
	issue := &domain.Issue{Title: "Fix typo in comment"}
	c := Classify(issue, nil)
	assert.LessOrEqual(t, c.Complexity, 5)
}

func TestDecideDelegatesAboveThresholdAndInWhitelist(t *testing.T) {
	d := Decide(Classification{TaskType: TaskBugFix, Complexity: 7}, 6, nil)
	assert.True(t, d.Delegate)
	assert.Equal(t, StrategyCodegen, d.Strategy)
}

func TestDecideDoesNotDelegateBelowThreshold(t *testing.T) {
	d := Decide(Classification{TaskType: TaskBugFix, Complexity: 3}, 6, nil)
	assert.False(t, d.Delegate)
}

func TestDecideDoesNotDelegateOtherTaskType(t *testing.T) {
	d := Decide(Classification{TaskType: TaskOther, Complexity: 9}, 6, nil)
	assert.False(t, d.Delegate)
}

func TestHandleTaskReturnsNilWhenDecisionDeclines(t *testing.T) {
	a := New(6, time.Minute, &testRunner{}, tracker.Noop{})
	issue := &domain.Issue{Title: "Fix typo"}

	result, err := a.HandleTask(context.Background(), issue, nil)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestHandleTaskCompletesViaCallback(t *testing.T) {
	r := &testRunner{taskID: "task-1"}
	a := New(1, time.Minute, r, tracker.Noop{})
	issue := &domain.Issue{ID: "issue-1", Title: "Implement auth migration for concurrency"}

	done := make(chan *DelegationResult, 1)
	go func() {
		result, err := a.HandleTask(context.Background(), issue, nil)
		require.NoError(t, err)
		done <- result
	}()

	require.Eventually(t, func() bool {
		return a.HandleCallback(CallbackEvent{TaskID: "task-1", Kind: CallbackStarted}) == nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, a.HandleCallback(CallbackEvent{TaskID: "task-1", Kind: CallbackProgress, Progress: 50}))
	require.NoError(t, a.HandleCallback(CallbackEvent{TaskID: "task-1", Kind: CallbackCompleted, Success: true, Summary: "done"}))

	select {
	case result := <-done:
		require.NotNil(t, result)
		assert.True(t, result.Success)
		assert.Equal(t, "done", result.Summary)
	case <-time.After(2 * time.Second):
		t.Fatal("HandleTask did not return")
	}
}

func TestHandleCallbackUnknownTaskIsNotFound(t *testing.T) {
	a := New(6, time.Minute, &testRunner{}, tracker.Noop{})
	err := a.HandleCallback(CallbackEvent{TaskID: "nope", Kind: CallbackCompleted})
	require.Error(t, err)
}
