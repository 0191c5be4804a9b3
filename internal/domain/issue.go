package domain

// Issue is the external tracker's issue, trimmed to what the bridge needs
// for context and branch naming.
type Issue struct {
	ID          string   `json:"id"`
	Identifier  string   `json:"identifier"` // e.g. "DEV-123"
	Title       string   `json:"title"`
	Description string   `json:"description"`
	CreatorID   string   `json:"creatorId"`
	AssigneeID  string   `json:"assigneeId,omitempty"`
	Labels      []string `json:"labels,omitempty"`
}

// Comment is an external tracker comment attached to an Issue.
type Comment struct {
	ID       string `json:"id"`
	Body     string `json:"body"`
	AuthorID string `json:"authorId"`
	IssueID  string `json:"issueId"`
}
