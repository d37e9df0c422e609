package memory

import "strings"

// Role of a turn author
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// DefaultMaxTurns keeps the last three exchanges
const DefaultMaxTurns = 6

// Turn one role-tagged message
type Turn struct {
	Role    Role
	Content string
}

// Conversation is a bounded turn log. On overflow the oldest turns are
// dropped so that exactly the most recent maxTurns remain.
type Conversation struct {
	turns    []Turn
	maxTurns int
}

// NewConversation creates a conversation capped at maxTurns entries
func NewConversation(maxTurns int) *Conversation {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Conversation{maxTurns: maxTurns}
}

// Append adds a turn and evicts from the front when over capacity
func (c *Conversation) Append(role Role, content string) {
	c.turns = append(c.turns, Turn{Role: role, Content: content})
	if over := len(c.turns) - c.maxTurns; over > 0 {
		kept := make([]Turn, c.maxTurns)
		copy(kept, c.turns[over:])
		c.turns = kept
	}
}

// Turns returns a copy of the retained turns, oldest first
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len number of retained turns
func (c *Conversation) Len() int {
	return len(c.turns)
}

// Cap maximum number of retained turns
func (c *Conversation) Cap() int {
	return c.maxTurns
}

// Render formats the retained turns for inclusion in a prompt. It returns
// "" when nothing has been said yet.
func (c *Conversation) Render() string {
	if len(c.turns) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n\nRecent conversation:\n")
	for _, t := range c.turns {
		sb.WriteString(t.Role.Label())
		sb.WriteString(": ")
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Label display name used in prompts and exports
func (r Role) Label() string {
	if r == RoleUser {
		return "User"
	}
	return "Bot"
}
