package game

import "sync"

// recordingSender captures every ServerMessage sent to it, for assertions.
type recordingSender struct {
	mu       sync.Mutex
	messages []ServerMessage
}

func (s *recordingSender) Send(msg ServerMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *recordingSender) all() []ServerMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ServerMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *recordingSender) has(want ServerMessage) bool {
	for _, m := range s.all() {
		if m == want {
			return true
		}
	}
	return false
}

func newTestUser(id UserID, name string) (*User, *recordingSender) {
	u := NewUser(id, name)
	s := &recordingSender{}
	u.SetSend(s)
	return u, s
}
