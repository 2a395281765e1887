package degiro

import (
	"sync"

	"github.com/moznion/go-optional"
)

// Stage is the lifecycle stage of a client's session.
type Stage int

const (
	StageUnauthenticated Stage = iota
	StageAwaitingAccountBinding
	StageActive
)

func (s Stage) String() string {
	switch s {
	case StageUnauthenticated:
		return "unauthenticated"
	case StageAwaitingAccountBinding:
		return "awaiting_account_binding"
	case StageActive:
		return "active"
	default:
		return "unknown"
	}
}

// Session is an immutable snapshot of the session identifiers.
type Session struct {
	ID         optional.Option[string]
	IntAccount optional.Option[int64]
}

// Stage derives the lifecycle stage from which identifiers are present.
func (s Session) Stage() Stage {
	switch {
	case s.ID.IsNone():
		return StageUnauthenticated
	case s.IntAccount.IsNone():
		return StageAwaitingAccountBinding
	default:
		return StageActive
	}
}

// sessionState owns the mutable session. All writes go through begin, bind
// and reset so an account id can never exist without a session id.
type sessionState struct {
	mu      sync.RWMutex
	current Session
}

// begin records a fresh session id and drops any previous account binding.
func (s *sessionState) begin(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Session{ID: optional.Some(id)}
}

// bind attaches intAccount to the current session.
func (s *sessionState) bind(intAccount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.ID.IsNone() {
		return &NotAuthenticatedError{Missing: ErrMissingSessionID}
	}
	s.current.IntAccount = optional.Some(intAccount)
	return nil
}

func (s *sessionState) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Session{}
}

func (s *sessionState) snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
