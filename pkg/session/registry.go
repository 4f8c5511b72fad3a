package session

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// DefaultTTL is how long an idle session is kept by a [Registry].
const DefaultTTL = 10 * time.Minute

// Registry keeps live sessions by id. Sessions idle for longer than the
// TTL are closed by [Registry.Cleanup] and reported as expired by Get.
type Registry struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
	now      func() time.Time
}

// NewRegistry creates a registry. A non-positive ttl means [DefaultTTL].
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{ttl: ttl, sessions: make(map[string]*Session), now: time.Now}
}

// Add registers s.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Get returns the session with the given id. An expired session is closed,
// removed and reported with [ErrExpired].
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok && r.expired(s) {
		delete(r.sessions, id)
		r.mu.Unlock()
		_ = s.Close()
		return nil, ErrExpired
	}
	r.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete closes and removes a session. Deleting an unknown id is a no-op.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		_ = s.Close()
	}
}

// IDs returns the ids of all registered sessions in ascending order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.sessions))
}

// Cleanup closes and removes expired sessions. It returns how many were
// removed.
func (r *Registry) Cleanup() int {
	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if r.expired(s) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, s := range stale {
		_ = s.Close()
	}
	return len(stale)
}

// Janitor runs Cleanup every interval until ctx is done.
func (r *Registry) Janitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Cleanup()
		}
	}
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range sessions {
		_ = s.Close()
	}
}

func (r *Registry) expired(s *Session) bool {
	return r.now().Sub(s.idleSince()) > r.ttl
}
