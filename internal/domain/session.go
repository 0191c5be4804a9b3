// Package domain holds the plain data types shared across the bridge:
// issues, webhook events, and the session entity that ties them together.
package domain

import "time"

// SessionStatus is the closed set of states a Session can occupy.
type SessionStatus string

const (
	SessionCreated   SessionStatus = "created"
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
)

// Terminal reports whether the status is one of the absorbing end states.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionCompleted, SessionFailed, SessionCancelled:
		return true
	default:
		return false
	}
}

// Active reports whether the status counts toward the per-issue
// at-most-one-active invariant.
func (s SessionStatus) Active() bool {
	return s == SessionCreated || s == SessionRunning
}

// SessionMetadata carries the context a session was created from.
type SessionMetadata struct {
	CreatorID         string `json:"creatorId"`
	TenantID          string `json:"tenantId"`
	TriggerCommentID  string `json:"triggerCommentId,omitempty"`
	IssueTitle        string `json:"issueTitle"`
	TriggerEventType  string `json:"triggerEventType"` // "issue" | "comment"
	// Extra holds ad hoc data instead of a loose dynamic map, per the
	// closed-struct redesign.
	Extra map[string]string `json:"extra,omitempty"`
}

// SecurityContext bounds what an executor is allowed to do on behalf of a
// session.
type SecurityContext struct {
	AllowedPaths        []string `json:"allowedPaths"`
	MaxMemoryMB         int      `json:"maxMemoryMB"`
	MaxExecutionTimeMs  int64    `json:"maxExecutionTimeMs"`
	IsolatedEnvironment bool     `json:"isolatedEnvironment"`
}

// Session is the central entity: one per unit of work for a single issue.
type Session struct {
	ID              string          `json:"id"`
	IssueID         string          `json:"issueId"`
	IssueIdentifier string          `json:"issueIdentifier"`
	Status          SessionStatus   `json:"status"`
	BranchName      string          `json:"branchName,omitempty"`
	WorkingDir      string          `json:"workingDir"`
	StartedAt       time.Time       `json:"startedAt"`
	LastActivityAt  time.Time       `json:"lastActivityAt"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	ProcessID       string          `json:"processId,omitempty"`
	Error           string          `json:"error,omitempty"`
	Metadata        SessionMetadata `json:"metadata"`
	SecurityContext SecurityContext `json:"securityContext"`
}

// Clone returns a deep-enough copy safe for handing to callers outside the
// store's lock.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		cp.CompletedAt = &t
	}
	if s.Metadata.Extra != nil {
		cp.Metadata.Extra = make(map[string]string, len(s.Metadata.Extra))
		for k, v := range s.Metadata.Extra {
			cp.Metadata.Extra[k] = v
		}
	}
	if s.SecurityContext.AllowedPaths != nil {
		cp.SecurityContext.AllowedPaths = append([]string(nil), s.SecurityContext.AllowedPaths...)
	}
	return &cp
}

// Stats aggregates session counts per status, the output of
// SessionManager.getStats().
type Stats struct {
	Total     int            `json:"total"`
	ByStatus  map[string]int `json:"byStatus"`
	Active    int            `json:"active"`
	Terminal  int            `json:"terminal"`
}
