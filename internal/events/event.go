// Package events implements the typed session-event variant called for in
// place of a string-typed event emitter: subscribers type-switch on a
// closed Event interface instead of matching string event names.
package events

import (
	"time"

	"github.com/agentbridge/bridge/internal/domain"
	"github.com/agentbridge/bridge/internal/executor"
)

// Kind identifies which concrete Event a subscriber received, for
// subscribers that want to filter without a type switch.
type Kind string

const (
	KindCreated   Kind = "session:created"
	KindStarted   Kind = "session:started"
	KindCompleted Kind = "session:completed"
	KindFailed    Kind = "session:failed"
	KindCancelled Kind = "session:cancelled"
)

// Event is the interface every session lifecycle event implements.
type Event interface {
	Kind() Kind
	SessionID() string
	Timestamp() time.Time
}

type base struct {
	kind      Kind
	sessionID string
	at        time.Time
}

func (b base) Kind() Kind           { return b.kind }
func (b base) SessionID() string    { return b.sessionID }
func (b base) Timestamp() time.Time { return b.at }

// Created fires when the Session Manager creates a new session.
type Created struct {
	base
	Session *domain.Session
}

// Started fires when a session transitions to RUNNING.
type Started struct {
	base
	Session *domain.Session
}

// Completed fires exactly once when a session's executor or delegate
// succeeds.
type Completed struct {
	base
	Session *domain.Session
	Result  executor.ExecutionResult
}

// Failed fires exactly once when a session's executor or delegate fails.
type Failed struct {
	base
	Session *domain.Session
	Err     error
}

// Cancelled fires exactly once when a session is cancelled, explicitly or
// via timeout.
type Cancelled struct {
	base
	Session *domain.Session
}

func NewCreated(s *domain.Session, at time.Time) Created {
	return Created{base: base{KindCreated, s.ID, at}, Session: s}
}

func NewStarted(s *domain.Session, at time.Time) Started {
	return Started{base: base{KindStarted, s.ID, at}, Session: s}
}

func NewCompleted(s *domain.Session, result executor.ExecutionResult, at time.Time) Completed {
	return Completed{base: base{KindCompleted, s.ID, at}, Session: s, Result: result}
}

func NewFailed(s *domain.Session, err error, at time.Time) Failed {
	return Failed{base: base{KindFailed, s.ID, at}, Session: s, Err: err}
}

func NewCancelled(s *domain.Session, at time.Time) Cancelled {
	return Cancelled{base: base{KindCancelled, s.ID, at}, Session: s}
}
