// Package tracker defines the outbound contract the bridge uses to talk
// back to the issue tracker. Implementations are external to this module;
// Noop is a reference implementation for wiring and tests.
package tracker

import (
	"context"

	"github.com/agentbridge/bridge/internal/domain"
)

// Tracker is the set of operations the bridge consumes from the issue
// tracker's own SDK. Failures from any of these are logged and never fail
// a session.
type Tracker interface {
	GetCurrentUser(ctx context.Context) (*domain.Actor, error)
	CreateComment(ctx context.Context, issueID, body string) (*domain.Comment, error)
	UpdateComment(ctx context.Context, commentID, body string) error
	GetIssue(ctx context.Context, issueID string) (*domain.Issue, error)
}

// Noop discards every call. It is useful when no tracker wrapper has been
// wired, or in tests that don't care about comment side effects.
type Noop struct{}

func (Noop) GetCurrentUser(context.Context) (*domain.Actor, error) { return &domain.Actor{}, nil }

func (Noop) CreateComment(_ context.Context, issueID, body string) (*domain.Comment, error) {
	return &domain.Comment{IssueID: issueID, Body: body}, nil
}

func (Noop) UpdateComment(context.Context, string, string) error { return nil }

func (Noop) GetIssue(_ context.Context, issueID string) (*domain.Issue, error) {
	return &domain.Issue{ID: issueID}, nil
}
