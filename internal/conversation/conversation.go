package conversation

import "sync"

// Turn roles. The model layer maps these to its own role enum.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultCapacity is the sliding-window size: the number of turns a
// session retains before evicting the oldest.
const DefaultCapacity = 10

// Turn is one recorded chat message.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Session is a bounded rolling chat history. All methods are safe for
// concurrent use; appends on the same session serialize on its lock so
// racing requests cannot interleave or lose turns.
type Session struct {
	mu       sync.Mutex
	capacity int
	turns    []Turn
}

// NewSession creates an empty session. capacity <= 0 falls back to
// DefaultCapacity.
func NewSession(capacity int) *Session {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Session{capacity: capacity}
}

// Append records one turn. At capacity, the oldest turn is evicted
// first; the window slides one whole turn at a time.
func (s *Session) Append(role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.turns) >= s.capacity {
		drop := len(s.turns) - s.capacity + 1
		s.turns = append(s.turns[:0], s.turns[drop:]...)
	}
	s.turns = append(s.turns, Turn{Role: role, Text: text})
}

// Turns returns a copy of the recorded turns in chronological order.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of recorded turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// drain empties the session and returns what it held.
func (s *Session) drain() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.turns
	s.turns = nil
	return out
}
