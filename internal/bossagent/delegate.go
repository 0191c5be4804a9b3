package bossagent

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentbridge/bridge/internal/domain"
)

// buildPrompt constructs the context-rich prompt handed to the external
// task runner: classification, issue identity, the triggering comment if
// any, and a constraint line naming the chosen strategy.
func buildPrompt(issue *domain.Issue, comment *domain.Comment, c Classification, strategy Strategy) string {
	prompt := fmt.Sprintf(
		"Task: %s (%s)\nPriority: %s\nComplexity: %d/10\nStrategy: %s\n\nIssue %s: %s\n%s\n",
		c.TaskType, c.Scope, c.Priority, c.Complexity, strategy, issue.Identifier, issue.Title, issue.Description,
	)
	if comment != nil {
		prompt += fmt.Sprintf("\nTriggering comment: %s\n", comment.Body)
	}
	return prompt
}

// delegate submits the task to the external runner and records the
// taskId<->issueId mapping the monitor step will need to route an inbound
// callback. The mapping is keyed by issue id rather than a session id,
// since handleTask's contract is not handed a session id directly; the
// at-most-one-active-session-per-issue invariant makes issue id a sufficient
// correlation key for reporting.
func (a *BossAgent) delegate(ctx context.Context, issue *domain.Issue, comment *domain.Comment, c Classification, strategy Strategy) (TaskHandle, error) {
	prompt := buildPrompt(issue, comment, c, strategy)

	result, err := a.runner.CreateTask(ctx, prompt, map[string]string{
		"issueId":    issue.ID,
		"taskType":   string(c.TaskType),
		"complexity": fmt.Sprintf("%d", c.Complexity),
	})
	if err != nil {
		return TaskHandle{}, fmt.Errorf("bossagent.BossAgent.delegate: %w", err)
	}

	handle := TaskHandle{
		TaskID:            result.TaskID,
		EstimatedDuration: time.Duration(result.EstimatedDuration) * time.Second,
	}

	a.recordMapping(ctx, handle.TaskID, issue.ID)
	return handle, nil
}

func (a *BossAgent) recordMapping(ctx context.Context, taskID, issueID string) {
	a.mappingMu.Lock()
	a.mapping[taskID] = issueID
	a.mappingMu.Unlock()

	if a.mirror != nil {
		if err := a.mirror.Set(ctx, taskID, issueID); err != nil {
			log.Warn().Err(err).Str("taskId", taskID).Msg("bossagent: failed to mirror task mapping")
		}
	}
}

func (a *BossAgent) lookupIssueID(taskID string) (string, bool) {
	a.mappingMu.RLock()
	defer a.mappingMu.RUnlock()
	issueID, ok := a.mapping[taskID]
	return issueID, ok
}

func (a *BossAgent) forgetMapping(taskID string) {
	a.mappingMu.Lock()
	delete(a.mapping, taskID)
	a.mappingMu.Unlock()
}
