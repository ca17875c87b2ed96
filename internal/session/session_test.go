package session

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewHasID(t *testing.T) {
	a, b := New(), New()
	require.NotEqual(t, uuid.Nil, a.ID)
	require.NotEqual(t, a.ID, b.ID)
	require.Zero(t, a.LastDayIndex)
}

func TestAppendNumbersTurnsFromOne(t *testing.T) {
	c := New()
	at := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

	require.Equal(t, 1, c.Append("hello", at).Turn)
	require.Equal(t, 2, c.Append("weather in paris", at).Turn)
	require.Equal(t, 2, c.Len())
}

func TestAttachResponseGoesToLastTurn(t *testing.T) {
	c := New()
	c.AttachResponse("ignored")
	require.Zero(t, c.Len())

	at := time.Now()
	c.Append("first", at)
	c.AttachResponse("one")
	c.Append("second", at)
	c.AttachResponse("two")
	c.AttachResponse("two, final")

	h := c.History()
	require.Equal(t, "one", h[0].Assistant)
	require.Equal(t, "two, final", h[1].Assistant)
}

func TestLast(t *testing.T) {
	c := New()
	for i := 0; i < 12; i++ {
		c.Append("turn", time.Now())
	}

	last := c.Last(10)
	require.Len(t, last, 10)
	require.Equal(t, 3, last[0].Turn)
	require.Equal(t, 12, last[9].Turn)

	require.Len(t, c.Last(50), 12)
	require.Nil(t, c.Last(0))
}

func TestWriteDigest(t *testing.T) {
	at := time.Date(2026, 10, 16, 14, 5, 9, 0, time.UTC)
	turns := []Turn{
		{Turn: 1, User: "list my appointments", Timestamp: at, Assistant: strings.Repeat("x", 120)},
		{Turn: 2, User: "stop", Timestamp: at},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDigest(&buf, turns))

	out := buf.String()
	require.Contains(t, out, "CONVERSATION HISTORY:")
	require.Contains(t, out, "Turn 1 (14:05:09):\n  You: list my appointments\n")
	require.Contains(t, out, "  Assistant: "+strings.Repeat("x", 100)+"...\n")
	require.Contains(t, out, "Turn 2 (14:05:09):\n  You: stop\n")
	require.Equal(t, 1, strings.Count(out, "Assistant:"))
}
