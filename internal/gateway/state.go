package gateway

import (
	"sync"
	"time"

	"github.com/alfredjeanlab/formflow/internal/model"
)

// StateStore holds the subscription sets and the pending-event table. The
// Broadcaster owns every read and write; nothing else should touch it.
//
// Implementations must be safe for concurrent use. Each method is atomic on
// its own; callers never rely on ordering between two calls.
type StateStore interface {
	// AddConnection creates an empty subscription set for connID.
	AddConnection(connID string)
	// RemoveConnection discards connID and its subscription set.
	RemoveConnection(connID string)
	// AddSubscription adds g to connID's set. It reports false when connID
	// is unknown.
	AddSubscription(connID string, g model.ResourceGroup) bool
	// RemoveSubscription removes g from connID's set. It reports false when
	// connID is unknown.
	RemoveSubscription(connID string, g model.ResourceGroup) bool
	// Subscribers returns the ids of connections subscribed to g.
	Subscribers(g model.ResourceGroup) []string
	// Subscriptions returns the groups connID is subscribed to.
	Subscriptions(connID string) []model.ResourceGroup

	// PutPending records ev at insertedAt. It reports false, leaving the
	// existing entry untouched, when ev.ID is already pending.
	PutPending(ev model.Event, insertedAt time.Time) bool
	// GetPending returns the pending entry for id.
	GetPending(id string) (PendingEvent, bool)
	// DeletePending removes id if present.
	DeletePending(id string)
	// PendingCount returns the size of the pending table.
	PendingCount() int
	// SweepPending removes entries inserted before cutoff and returns how
	// many were removed.
	SweepPending(cutoff time.Time) int
}

// PendingEvent is an entry of the pending-event table.
type PendingEvent struct {
	Event      model.Event
	InsertedAt time.Time
}

// MemoryState is the process-local StateStore.
type MemoryState struct {
	mu      sync.RWMutex
	conns   map[string]map[model.ResourceGroup]struct{}
	groups  map[model.ResourceGroup]map[string]struct{}
	pending map[string]PendingEvent
}

var _ StateStore = (*MemoryState)(nil)

// NewMemoryState returns an empty MemoryState.
func NewMemoryState() *MemoryState {
	return &MemoryState{
		conns:   make(map[string]map[model.ResourceGroup]struct{}),
		groups:  make(map[model.ResourceGroup]map[string]struct{}),
		pending: make(map[string]PendingEvent),
	}
}

func (s *MemoryState) AddConnection(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[connID]; !ok {
		s.conns[connID] = make(map[model.ResourceGroup]struct{})
	}
}

func (s *MemoryState) RemoveConnection(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for g := range s.conns[connID] {
		s.unindex(connID, g)
	}
	delete(s.conns, connID)
}

func (s *MemoryState) AddSubscription(connID string, g model.ResourceGroup) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.conns[connID]
	if !ok {
		return false
	}
	set[g] = struct{}{}
	members, ok := s.groups[g]
	if !ok {
		members = make(map[string]struct{})
		s.groups[g] = members
	}
	members[connID] = struct{}{}
	return true
}

func (s *MemoryState) RemoveSubscription(connID string, g model.ResourceGroup) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.conns[connID]
	if !ok {
		return false
	}
	delete(set, g)
	s.unindex(connID, g)
	return true
}

// unindex drops connID from the group index. Caller holds s.mu.
func (s *MemoryState) unindex(connID string, g model.ResourceGroup) {
	members := s.groups[g]
	delete(members, connID)
	if len(members) == 0 {
		delete(s.groups, g)
	}
}

func (s *MemoryState) Subscribers(g model.ResourceGroup) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.groups[g]))
	for id := range s.groups[g] {
		ids = append(ids, id)
	}
	return ids
}

func (s *MemoryState) Subscriptions(connID string) []model.ResourceGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ResourceGroup, 0, len(s.conns[connID]))
	for g := range s.conns[connID] {
		out = append(out, g)
	}
	return out
}

func (s *MemoryState) PutPending(ev model.Event, insertedAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[ev.ID]; ok {
		return false
	}
	s.pending[ev.ID] = PendingEvent{Event: ev, InsertedAt: insertedAt}
	return true
}

func (s *MemoryState) GetPending(id string) (PendingEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pending[id]
	return p, ok
}

func (s *MemoryState) DeletePending(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

func (s *MemoryState) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

func (s *MemoryState) SweepPending(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, p := range s.pending {
		if p.InsertedAt.Before(cutoff) {
			delete(s.pending, id)
			removed++
		}
	}
	return removed
}
