package webhook

import (
	"regexp"
	"time"

	"github.com/agentbridge/bridge/internal/config"
	"github.com/agentbridge/bridge/internal/domain"
)

// triggerToken is one pattern checked, in order, against a comment body.
// The set and order are centralized here as the single source of truth for
// what counts as a mention, rather than scattered across call sites.
type triggerToken struct {
	label string
	re    *regexp.Regexp
}

func mustToken(label, pattern string) triggerToken {
	return triggerToken{label: label, re: regexp.MustCompile(pattern)}
}

// triggerTokens is the union of every token class named in the classification
// rules: explicit mentions, action verbs, help phrases, performance tokens.
// Checked in this order so the reported reason names the first class that
// matched.
var triggerTokens = []triggerToken{ //nolint:gochecknoglobals // precompiled pattern table
	mustToken("@claude", `(?i)@claude\b`),
	mustToken("@agent", `(?i)@agent\b`),
	mustToken("claude", `(?i)\bclaude\b`),

	mustToken("implement", `(?i)\bimplement\b`),
	mustToken("fix", `(?i)\bfix\b`),
	mustToken("analyze", `(?i)\banalyze\b`),
	mustToken("optimize", `(?i)\boptimize\b`),
	mustToken("test", `(?i)\btest\b`),
	mustToken("debug", `(?i)\bdebug\b`),
	mustToken("review", `(?i)\breview\b`),
	mustToken("refactor", `(?i)\brefactor\b`),

	mustToken("help with", `(?i)\bhelp with\b`),
	mustToken("work on", `(?i)\bwork on\b`),
	mustToken("check", `(?i)\bcheck\b`),
	mustToken("please", `(?i)\bplease\b`),

	mustToken("slow", `(?i)\bslow\b`),
	mustToken("memory", `(?i)\bmemory\b`),
	mustToken("cpu", `(?i)\bcpu\b`),
	mustToken("bottleneck", `(?i)\bbottleneck\b`),
}

// matchTriggerToken returns the label of the first trigger token found in
// body, or "" if none match.
func matchTriggerToken(body string) string {
	for _, tok := range triggerTokens {
		if tok.re.MatchString(body) {
			return tok.label
		}
	}
	return ""
}

// classify turns a parsed WebhookEvent into a ProcessedEvent, applying the
// tenant filter, type filter, bot filter, and trigger classification rules
// in that order. Signature verification and JSON parsing happen before this
// is called.
func classify(evt *domain.WebhookEvent, cfg *config.Config) *domain.ProcessedEvent {
	out := &domain.ProcessedEvent{
		Type:      evt.Type,
		Action:    evt.Action,
		Actor:     evt.Actor,
		Timestamp: time.Now(),
	}

	if evt.TenantID != cfg.TenantID {
		out.TriggerReason = "wrong tenant"
		return out
	}

	if evt.Type != domain.EventTypeIssue && evt.Type != domain.EventTypeComment {
		out.TriggerReason = "unsupported event type"
		return out
	}

	out.Issue, out.Comment = extractEntities(evt)

	if cfg.AgentUserID != "" && evt.Actor.ID == cfg.AgentUserID {
		out.TriggerReason = "actor is the agent"
		return out
	}

	switch evt.Type {
	case domain.EventTypeIssue:
		if evt.Data.Assignee != nil && cfg.AgentUserID != "" && evt.Data.Assignee.ID == cfg.AgentUserID {
			out.ShouldTrigger = true
			out.TriggerReason = "issue assigned to agent"
			return out
		}
		out.TriggerReason = "issue event did not match a trigger rule"

	case domain.EventTypeComment:
		if evt.Action == domain.ActionCreate {
			if token := matchTriggerToken(evt.Data.Body); token != "" {
				out.ShouldTrigger = true
				out.TriggerReason = "comment mention: " + token
				return out
			}
		}
		out.TriggerReason = "comment event did not match a trigger rule"
	}

	return out
}

// extractEntities normalizes the two wire shapes (Issue event: data IS the
// issue; Comment event: data IS the comment, nesting a reference to its
// issue) into domain.Issue / domain.Comment.
func extractEntities(evt *domain.WebhookEvent) (*domain.Issue, *domain.Comment) {
	switch evt.Type {
	case domain.EventTypeIssue:
		issue := &domain.Issue{
			ID:         evt.Data.ID,
			Identifier: evt.Data.Identifier,
			Title:      evt.Data.Title,
		}
		if evt.Data.Creator != nil {
			issue.CreatorID = evt.Data.Creator.ID
		}
		if evt.Data.Assignee != nil {
			issue.AssigneeID = evt.Data.Assignee.ID
		}
		return issue, nil

	case domain.EventTypeComment:
		var issue *domain.Issue
		if evt.Data.Issue != nil {
			issue = &domain.Issue{
				ID:         evt.Data.Issue.ID,
				Identifier: evt.Data.Issue.Identifier,
				Title:      evt.Data.Issue.Title,
			}
			if evt.Data.Issue.Creator != nil {
				issue.CreatorID = evt.Data.Issue.Creator.ID
			}
		}

		comment := &domain.Comment{
			ID:   evt.Data.ID,
			Body: evt.Data.Body,
		}
		if evt.Data.Creator != nil {
			comment.AuthorID = evt.Data.Creator.ID
		}
		if issue != nil {
			comment.IssueID = issue.ID
		}
		return issue, comment

	default:
		return nil, nil
	}
}
