package domain

// SessionStore keeps the bounded conversation window of every user seen by
// the process. Implementations must be safe for concurrent use.
type SessionStore interface {
	// Reset empties the user's history, creating it if needed.
	Reset(userID int64)
	// AppendUser records a user turn and returns a copy of the window.
	AppendUser(userID int64, text string) []Turn
	// AppendAssistant records an assistant turn. Unknown users are ignored.
	AppendAssistant(userID int64, text string)
}
