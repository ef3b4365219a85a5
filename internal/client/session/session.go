// Package session holds the authenticated identity of the running client
// and fans sign-in, sign-out and token-refresh events out to listeners.
package session

import (
	"slices"
	"sync"
)

type Kind int

const (
	SignedIn Kind = iota + 1
	SignedOut
	TokenRefreshed
)

func (k Kind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case TokenRefreshed:
		return "token_refreshed"
	default:
		return "unknown"
	}
}

// Event describes a session transition. AccessToken is the token valid at
// the time of the event; for SignedOut it is the last token the session
// held, so listeners can still make one authenticated call.
type Event struct {
	Kind        Kind
	UserID      string
	AccessToken string
}

type Listener func(Event)

type Session struct {
	mu           sync.RWMutex
	userID       string
	accessToken  string
	refreshToken string

	lmu       sync.Mutex
	nextID    int
	listeners []subscription
}

type subscription struct {
	id int
	l  Listener
}

func New() *Session {
	return &Session{}
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

func (s *Session) SignedIn() bool {
	return s.UserID() != ""
}

// Subscribe registers l and returns a function that removes it.
func (s *Session) Subscribe(l Listener) func() {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, subscription{id: id, l: l})
	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		s.listeners = slices.DeleteFunc(s.listeners, func(sub subscription) bool { return sub.id == id })
	}
}

func (s *Session) SignIn(userID, accessToken, refreshToken string) {
	s.mu.Lock()
	s.userID = userID
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.mu.Unlock()

	s.emit(Event{Kind: SignedIn, UserID: userID, AccessToken: accessToken})
}

// Refresh replaces the token pair of a signed-in session. It is a no-op
// when nobody is signed in.
func (s *Session) Refresh(accessToken, refreshToken string) {
	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return
	}
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	userID := s.userID
	s.mu.Unlock()

	s.emit(Event{Kind: TokenRefreshed, UserID: userID, AccessToken: accessToken})
}

// SignOut clears the session. Signing out twice emits one event.
func (s *Session) SignOut() {
	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return
	}
	ev := Event{Kind: SignedOut, UserID: s.userID, AccessToken: s.accessToken}
	s.userID, s.accessToken, s.refreshToken = "", "", ""
	s.mu.Unlock()

	s.emit(ev)
}

// emit calls listeners synchronously, outside any session lock, in
// registration order.
func (s *Session) emit(ev Event) {
	s.lmu.Lock()
	subs := slices.Clone(s.listeners)
	s.lmu.Unlock()

	for _, sub := range subs {
		sub.l(ev)
	}
}
