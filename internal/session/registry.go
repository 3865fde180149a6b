package session

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Registry keeps at most one active Loop per user.
type Registry struct {
	mu    sync.Mutex
	loops map[primitive.ObjectID]*Loop
	opts  []LoopOption
}

// NewRegistry creates a registry whose loops are built with opts.
func NewRegistry(opts ...LoopOption) *Registry {
	return &Registry{
		loops: make(map[primitive.ObjectID]*Loop),
		opts:  opts,
	}
}

// Start makes s the user's active session. A previous session of the same user is stopped,
// so results still in flight for it are discarded.
func (r *Registry) Start(s *Session) *Loop {
	loop := NewLoop(s, r.opts...)

	r.mu.Lock()
	prev := r.loops[s.OwnerID]
	r.loops[s.OwnerID] = loop
	r.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	return loop
}

// Get returns the user's active loop.
func (r *Registry) Get(ownerID primitive.ObjectID) (*Loop, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loops[ownerID]
	return l, ok
}

// End stops loop and forgets it, unless the user has already moved on to another session.
func (r *Registry) End(ownerID primitive.ObjectID, loop *Loop) {
	r.mu.Lock()
	if r.loops[ownerID] == loop {
		delete(r.loops, ownerID)
	}
	r.mu.Unlock()
	loop.Stop()
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.loops)
}

// StopAll stops every active loop.
func (r *Registry) StopAll() {
	r.mu.Lock()
	loops := r.loops
	r.loops = make(map[primitive.ObjectID]*Loop)
	r.mu.Unlock()

	for _, l := range loops {
		l.Stop()
	}
}
