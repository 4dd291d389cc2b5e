package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Registry hosts the live sessions of this process, keyed by UUID.
// Sessions are memory-resident only; nothing survives process teardown.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	build    func(id string) (*Session, error)
}

func NewRegistry(build func(id string) (*Session, error)) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		build:    build,
	}
}

func (r *Registry) Create() (*Session, error) {
	id := uuid.NewString()
	s, err := r.build(id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return s, nil
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
