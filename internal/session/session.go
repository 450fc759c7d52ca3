// Package session supplies the current authenticated identity to the parts
// of the app that scope their queries by it.
package session

import "sync"

// Identity is the authenticated user as the auth service reports it.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Provider exposes the current identity and change notifications. Current
// returns nil while signed out.
type Provider interface {
	Current() *Identity
	OnChange(fn func(*Identity)) (release func())
	SignIn(id Identity)
	SignOut()
}

// Static is an in-process Provider: one identity slot plus change callbacks.
// It backs tests and per-request scopes (an SSE stream holds one for the
// authenticated requester).
type Static struct {
	mu       sync.Mutex
	current  *Identity
	nextKey  int
	watchers map[int]func(*Identity)
}

// NewStatic returns a provider holding the given identity; pass nil to start
// signed out.
func NewStatic(id *Identity) *Static {
	return &Static{current: id, watchers: make(map[int]func(*Identity))}
}

func (s *Static) Current() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	id := *s.current
	return &id
}

func (s *Static) OnChange(fn func(*Identity)) func() {
	s.mu.Lock()
	key := s.nextKey
	s.nextKey++
	s.watchers[key] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, key)
			s.mu.Unlock()
		})
	}
}

func (s *Static) SignIn(id Identity) {
	s.set(&id)
}

func (s *Static) SignOut() {
	s.set(nil)
}

func (s *Static) set(id *Identity) {
	s.mu.Lock()
	s.current = id
	fns := make([]func(*Identity), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		var copied *Identity
		if id != nil {
			c := *id
			copied = &c
		}
		fn(copied)
	}
}
