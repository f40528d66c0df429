package domain

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message attributed to a role. Turns are values and are never
// modified after they are stored.
type Turn struct {
	Role    string
	Content string
}
