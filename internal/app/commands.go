package app

import (
	"fmt"

	"live-quiz-service/internal/domain"
)

// CommandKind names a privileged quiz command.
type CommandKind string

const (
	CommandStart CommandKind = "start"
	CommandNext  CommandKind = "next"
	CommandEnd   CommandKind = "end"
	CommandReset CommandKind = "reset"
)

// Command is an admin request coming from a transport. Admin is set by the caller once
// the connection or request has been promoted through the Authenticator.
type Command struct {
	Kind      CommandKind
	SessionID int
	Admin     bool
}

// Dispatch runs cmd if the caller is an admin. Rejected commands return the current
// snapshot unchanged.
func (e *Engine) Dispatch(cmd Command) (domain.Snapshot, error) {
	if !cmd.Admin {
		return e.Snapshot(), domain.ErrAdminRequired
	}
	switch cmd.Kind {
	case CommandStart:
		return e.StartSession(cmd.SessionID)
	case CommandNext:
		return e.AdvanceQuestion()
	case CommandEnd:
		return e.EndSession()
	case CommandReset:
		return e.ResetQuiz(), nil
	default:
		return e.Snapshot(), fmt.Errorf("%w: unknown command %q", domain.ErrInvalidTransition, cmd.Kind)
	}
}
