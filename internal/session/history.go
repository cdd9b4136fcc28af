// Bounded conversation history.
//
// DESIGN: Fixed-capacity ring buffer. Appending past capacity overwrites the
// oldest turn; nothing is summarized. This bounds prompt size no matter how
// long a conversation runs.
package session

// History is a fixed-capacity ring of turns.
type History struct {
	turns []Turn
	head  int // index of the oldest turn
	size  int
}

// NewHistory creates a history retaining at most capacity turns.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{turns: make([]Turn, capacity)}
}

// Append adds a turn, evicting the oldest when full.
func (h *History) Append(t Turn) {
	if h.size < len(h.turns) {
		h.turns[(h.head+h.size)%len(h.turns)] = t
		h.size++
		return
	}
	h.turns[h.head] = t
	h.head = (h.head + 1) % len(h.turns)
}

// Len returns the number of retained turns.
func (h *History) Len() int { return h.size }

// Cap returns the retention capacity.
func (h *History) Cap() int { return len(h.turns) }

// Recent returns the retained turns in chronological order.
func (h *History) Recent() []Turn {
	out := make([]Turn, 0, h.size)
	for i := 0; i < h.size; i++ {
		out = append(out, h.turns[(h.head+i)%len(h.turns)])
	}
	return out
}
