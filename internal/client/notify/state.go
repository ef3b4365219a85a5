package notify

import "sync"

// State is what the user is looking at right now. It is created once at
// startup and shared by the UI, which writes it, and the gate, which
// reads it.
type State struct {
	mu            sync.RWMutex
	activeChatID  string
	chatTabActive bool
}

func NewState() *State {
	return &State{}
}

// SetActiveChatID records the partner of the open conversation; an empty
// id means no conversation is open.
func (s *State) SetActiveChatID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeChatID = id
}

func (s *State) ActiveChatID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeChatID
}

func (s *State) SetChatTabActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatTabActive = active
}

func (s *State) ChatTabActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatTabActive
}
