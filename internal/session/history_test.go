package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_AppendWithinCapacity(t *testing.T) {
	h := NewHistory(5)
	h.Append(Turn{Role: RoleUser, Text: "one"})
	h.Append(Turn{Role: RoleAssistant, Text: "two"})

	assert.Equal(t, 2, h.Len())
	turns := h.Recent()
	require.Len(t, turns, 2)
	assert.Equal(t, "one", turns[0].Text)
	assert.Equal(t, "two", turns[1].Text)
}

func TestHistory_EvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for i := 1; i <= 5; i++ {
		h.Append(Turn{Role: RoleUser, Text: fmt.Sprintf("msg-%d", i)})
	}

	assert.Equal(t, 3, h.Len())
	turns := h.Recent()
	require.Len(t, turns, 3)
	assert.Equal(t, "msg-3", turns[0].Text)
	assert.Equal(t, "msg-4", turns[1].Text)
	assert.Equal(t, "msg-5", turns[2].Text)
}

func TestHistory_MinimumCapacity(t *testing.T) {
	h := NewHistory(0)
	assert.Equal(t, 1, h.Cap())

	h.Append(Turn{Text: "a"})
	h.Append(Turn{Text: "b"})
	turns := h.Recent()
	require.Len(t, turns, 1)
	assert.Equal(t, "b", turns[0].Text)
}
