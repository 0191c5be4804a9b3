package bossagent

import (
	"strings"

	"github.com/agentbridge/bridge/internal/domain"
)

var taskTypeKeywords = map[TaskType][]string{ //nolint:gochecknoglobals // classification rule table
	TaskBugFix:   {"bug", "fix", "broken", "crash", "error"},
	TaskFeature:  {"feature", "add", "implement", "support"},
	TaskRefactor: {"refactor", "cleanup", "restructure", "rewrite"},
	TaskTest:     {"test", "coverage", "flaky"},
	TaskDocs:     {"docs", "documentation", "readme"},
	TaskReview:   {"review", "pr feedback"},
	TaskPerf:     {"perf", "performance", "slow", "optimize", "bottleneck"},
}

var complexityClusters = map[string][]string{ //nolint:gochecknoglobals // classification rule table
	"auth":        {"auth", "authn", "authz", "oauth", "login"},
	"migration":   {"migration", "migrate", "schema change"},
	"concurrency": {"concurrency", "race", "deadlock", "goroutine"},
	"perf":        {"perf", "performance", "latency", "throughput"},
	"security":    {"security", "vulnerability", "cve", "exploit"},
}

var trivialKeywords = []string{"typo", "comment", "formatting", "whitespace"} //nolint:gochecknoglobals // classification rule table

var criticalKeywords = []string{"critical", "urgent", "blocker", "outage", "sev1"} //nolint:gochecknoglobals // classification rule table
var highKeywords = []string{"important", "high priority", "asap"}                 //nolint:gochecknoglobals // classification rule table
var lowKeywords = []string{"minor", "low priority", "nice to have"}               //nolint:gochecknoglobals // classification rule table

// Classify infers a task's type, complexity, priority, and scope from an
// issue and an optional triggering comment.
func Classify(issue *domain.Issue, comment *domain.Comment) Classification {
	text := classificationText(issue, comment)

	return Classification{
		TaskType:   inferTaskType(issue, text),
		Complexity: scoreComplexity(issue, text),
		Priority:   inferPriority(issue, text),
		Scope:      inferScope(issue),
	}
}

func classificationText(issue *domain.Issue, comment *domain.Comment) string {
	var b strings.Builder
	if issue != nil {
		b.WriteString(issue.Title)
		b.WriteByte(' ')
		b.WriteString(issue.Description)
	}
	if comment != nil {
		b.WriteByte(' ')
		b.WriteString(comment.Body)
	}
	return strings.ToLower(b.String())
}

func inferTaskType(issue *domain.Issue, text string) TaskType {
	if issue != nil {
		for _, label := range issue.Labels {
			for taskType, keywords := range taskTypeKeywords {
				if containsAny(strings.ToLower(label), keywords) {
					return taskType
				}
			}
		}
	}
	for taskType, keywords := range taskTypeKeywords {
		if containsAny(text, keywords) {
			return taskType
		}
	}
	return TaskOther
}

func scoreComplexity(issue *domain.Issue, text string) int {
	score := 5

	for _, keywords := range complexityClusters {
		if containsAny(text, keywords) {
			score++
		}
	}

	if issue != nil && len(issue.Description) > 500 {
		score++
	}
	if impliesMultipleModules(issue, text) {
		score++
	}
	if containsAny(text, trivialKeywords) {
		score--
	}

	return clamp(score, 1, 10)
}

func impliesMultipleModules(issue *domain.Issue, text string) bool {
	if issue != nil && len(issue.Labels) > 2 {
		return true
	}
	return strings.Count(text, ".go") > 1 || strings.Count(text, "module") > 1
}

func inferPriority(issue *domain.Issue, text string) Priority {
	labelPriority := PriorityNormal
	if issue != nil {
		for _, label := range issue.Labels {
			l := strings.ToLower(label)
			switch {
			case containsAny(l, criticalKeywords):
				labelPriority = PriorityCritical
			case containsAny(l, highKeywords) && labelPriority != PriorityCritical:
				labelPriority = PriorityHigh
			case containsAny(l, lowKeywords) && labelPriority == PriorityNormal:
				labelPriority = PriorityLow
			}
		}
	}

	keywordPriority := PriorityNormal
	switch {
	case containsAny(text, criticalKeywords):
		keywordPriority = PriorityCritical
	case containsAny(text, highKeywords):
		keywordPriority = PriorityHigh
	case containsAny(text, lowKeywords):
		keywordPriority = PriorityLow
	}

	return highestPriority(labelPriority, keywordPriority)
}

func inferScope(issue *domain.Issue) string {
	if issue == nil || len(issue.Labels) == 0 {
		return "unspecified"
	}
	return strings.Join(issue.Labels, ",")
}

var priorityRank = map[Priority]int{ //nolint:gochecknoglobals // ordering table
	PriorityLow:      0,
	PriorityNormal:   1,
	PriorityHigh:     2,
	PriorityCritical: 3,
}

func highestPriority(a, b Priority) Priority {
	if priorityRank[a] >= priorityRank[b] {
		return a
	}
	return b
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
