package notify

import "sync"

const defaultHistorySize = 300

// History keeps the most recent outcomes in memory for operators.
type History struct {
	mu    sync.Mutex
	max   int
	items []Outcome
}

func NewHistory(max int) *History {
	if max <= 0 {
		max = defaultHistorySize
	}
	return &History{max: max}
}

func (h *History) Append(o Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = append(h.items, o)
	if len(h.items) > h.max {
		h.items = h.items[len(h.items)-h.max:]
	}
}

// Snapshot returns a copy, oldest first.
func (h *History) Snapshot() []Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Outcome(nil), h.items...)
}
