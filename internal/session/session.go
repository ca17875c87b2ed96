package session

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Turn is one user utterance and the assistant's final reply to it.
type Turn struct {
	Turn      int
	User      string
	Timestamp time.Time
	Assistant string
}

// Context is the conversational memory of one assistant process. It is owned
// by a single dispatcher goroutine and is never persisted.
type Context struct {
	ID               uuid.UUID
	LastLocation     string
	LastDayIndex     int
	LastCreatedTitle string

	history []Turn
}

func New() *Context {
	return &Context{ID: uuid.New()}
}

// Append logs a new user turn, numbered from 1.
func (c *Context) Append(user string, at time.Time) Turn {
	t := Turn{
		Turn:      len(c.history) + 1,
		User:      user,
		Timestamp: at,
	}
	c.history = append(c.history, t)
	return t
}

// AttachResponse records text as the reply of the most recent turn,
// replacing any earlier reply. Without turns it does nothing.
func (c *Context) AttachResponse(text string) {
	if len(c.history) == 0 {
		return
	}
	c.history[len(c.history)-1].Assistant = text
}

func (c *Context) Len() int {
	return len(c.history)
}

// Last returns up to n of the most recent turns, oldest first.
func (c *Context) Last(n int) []Turn {
	if n <= 0 {
		return nil
	}
	start := max(len(c.history)-n, 0)
	return append([]Turn(nil), c.history[start:]...)
}

// History returns a copy of every turn.
func (c *Context) History() []Turn {
	return append([]Turn(nil), c.history...)
}

const (
	rule        = "============================================================"
	maxReplyLen = 100
)

// WriteDigest prints turns the way the history screen shows them. Replies
// longer than 100 characters are cut.
func WriteDigest(w io.Writer, turns []Turn) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nCONVERSATION HISTORY:\n%s\n", rule, rule)
	for _, t := range turns {
		fmt.Fprintf(&b, "\nTurn %d (%s):\n", t.Turn, t.Timestamp.Format(time.TimeOnly))
		fmt.Fprintf(&b, "  You: %s\n", t.User)
		if t.Assistant != "" {
			fmt.Fprintf(&b, "  Assistant: %s\n", truncate(t.Assistant, maxReplyLen))
		}
	}
	b.WriteString(rule + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
