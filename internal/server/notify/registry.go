package notify

import "sync"

// Registry maps a user to the set of their live connections. It is owned by
// one Bus; tests may build as many as they need.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*Conn
	closed bool
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]map[string]*Conn)}
}

func (r *Registry) add(c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	set, ok := r.byUser[c.UserID]
	if !ok {
		set = make(map[string]*Conn)
		r.byUser[c.UserID] = set
	}
	set[c.ID] = c
	return true
}

// remove reports whether c was registered.
func (r *Registry) remove(c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.byUser[c.UserID]
	if !ok {
		return false
	}
	if _, ok := set[c.ID]; !ok {
		return false
	}
	delete(set, c.ID)
	if len(set) == 0 {
		delete(r.byUser, c.UserID)
	}
	return true
}

func (r *Registry) forUser(userID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byUser[userID]
	out := make([]*Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

func (r *Registry) all() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Conn
	for _, set := range r.byUser {
		for _, c := range set {
			out = append(out, c)
		}
	}
	return out
}

// drain marks the registry closed and returns every connection it held.
func (r *Registry) drain() []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	var out []*Conn
	for _, set := range r.byUser {
		for _, c := range set {
			out = append(out, c)
		}
	}
	r.byUser = make(map[string]map[string]*Conn)
	return out
}

// Count returns the number of live connections, or of userID's connections
// when userID is non-empty.
func (r *Registry) Count(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if userID != "" {
		return len(r.byUser[userID])
	}
	n := 0
	for _, set := range r.byUser {
		n += len(set)
	}
	return n
}
