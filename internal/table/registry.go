package table

import "sync"

// Registry maps table ids to tables. It guards only the map; each table
// carries its own lock for round state.
type Registry[T any] struct {
	mu     sync.RWMutex
	tables map[string]*T
	order  []string
}

// NewRegistry constructs an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{tables: make(map[string]*T)}
}

// Add registers t under id. It returns false and leaves the registry
// untouched if id is taken.
func (r *Registry[T]) Add(id string, t *T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[id]; ok {
		return false
	}
	r.tables[id] = t
	r.order = append(r.order, id)
	return true
}

// Get retrieves a table by id.
func (r *Registry[T]) Get(id string) (*T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[id]
	return t, ok
}

// Lookup is Get returning ErrNotFound for unknown ids.
func (r *Registry[T]) Lookup(id string) (*T, error) {
	t, ok := r.Get(id)
	if !ok {
		return nil, NotFound("table %s", id)
	}
	return t, nil
}

// All returns the tables in creation order.
func (r *Registry[T]) All() []*T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*T, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tables[id])
	}
	return out
}

// Len returns the number of registered tables.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}

// SeatIndex records which table each participant sits at. A participant
// holds at most one seat per engine. Its lock is always taken last.
type SeatIndex struct {
	mu    sync.Mutex
	seats map[string]string
}

// NewSeatIndex constructs an empty index.
func NewSeatIndex() *SeatIndex {
	return &SeatIndex{seats: make(map[string]string)}
}

// Claim seats participantID at tableID, failing if they sit anywhere.
func (s *SeatIndex) Claim(participantID, tableID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.seats[participantID]; ok {
		return Illegal("participant %s already seated at table %s", participantID, current)
	}
	s.seats[participantID] = tableID
	return nil
}

// Release frees participantID's seat.
func (s *SeatIndex) Release(participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seats, participantID)
}

// TableOf returns the table participantID sits at.
func (s *SeatIndex) TableOf(participantID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.seats[participantID]
	return id, ok
}

// Len returns the number of seated participants.
func (s *SeatIndex) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seats)
}

// Resolve finds the table participantID is seated at.
func Resolve[T any](r *Registry[T], s *SeatIndex, participantID string) (*T, error) {
	id, ok := s.TableOf(participantID)
	if !ok {
		return nil, NotFound("participant %s is not seated", participantID)
	}
	return r.Lookup(id)
}
