package auth

import (
	"context"
	"sync"

	"github.com/erazemk/opname/internal/model"
)

// Listener is called with the new principal after every sign-in and with
// ok=false after sign-out.
type Listener func(p model.Principal, ok bool)

// State is the signed-in state of a single interactive process, such as the
// terminal stocktake client. Create it once and Close it on exit.
type State struct {
	mu        sync.Mutex
	principal model.Principal
	signedIn  bool
	closed    bool
	nextID    int
	listeners map[int]Listener
}

// NewState returns a signed-out state.
func NewState() *State {
	return &State{listeners: make(map[int]Listener)}
}

// Principal implements Provider. The context is ignored.
func (s *State) Principal(context.Context) (model.Principal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.principal, s.signedIn
}

// SignIn sets the current principal and notifies listeners.
func (s *State) SignIn(p model.Principal) {
	s.set(p, true)
}

// SignOut clears the current principal and notifies listeners.
func (s *State) SignOut() {
	s.set(model.Principal{}, false)
}

func (s *State) set(p model.Principal, ok bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.principal, s.signedIn = p, ok
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(p, ok)
	}
}

// Subscribe registers l and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (s *State) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close signs out and drops all listeners without notifying them. Later
// sign-ins are ignored.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.signedIn = false
	s.principal = model.Principal{}
	s.listeners = map[int]Listener{}
}
