package state

import "time"

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
	// StateAwaitingSection indicates the bot has shown the section menu and waits for a pick.
	StateAwaitingSection State = "awaiting_section"
)

// Valid reports whether st is one of the declared states.
func (st State) Valid() bool {
	switch st {
	case StateIdle, StateAwaitingSection:
		return true
	}
	return false
}

// Session stores conversation state and data for a user.
type Session struct {
	State State
	// LastSection is the label of the last section the user picked.
	LastSection string
	// ConversationID correlates log records of one /start..cancel cycle.
	ConversationID string
	UpdatedAt      time.Time
}

// Active reports whether the session has a prompt awaiting an answer.
func (s Session) Active() bool {
	return s.State != "" && s.State != StateIdle
}

// Store keeps user sessions. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the session for a user or an idle session when none exists.
	Get(userID int64) Session
	// Put replaces the session for a user.
	Put(userID int64, s Session)
	// Delete removes the session for a user.
	Delete(userID int64)
	// Len returns the number of stored sessions.
	Len() int
}
