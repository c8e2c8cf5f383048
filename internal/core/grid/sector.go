package grid

import (
	"sync"

	"github.com/zeusync/worldgrid/internal/core/geometry"
)

// Sector is one fixed-size bucket of the tiled coordinate space. It holds
// membership only; entity lifetimes belong to the caller. Membership
// mutation is idempotent: re-adding a present entity or removing an absent
// one leaves the set unchanged.
type Sector struct {
	index  int
	origin geometry.Vec2
	span   float64

	mu      sync.RWMutex
	members map[string]Entity
}

func newSector(index int, origin geometry.Vec2, span float64) *Sector {
	return &Sector{
		index:   index,
		origin:  origin,
		span:    span,
		members: make(map[string]Entity),
	}
}

// emptySector stands in whenever index resolution lands outside the grid,
// so callers never receive a nil sector.
var emptySector = newSector(-1, geometry.Vec2{}, 0)

func (s *Sector) Index() int {
	return s.index
}

func (s *Sector) Origin() geometry.Vec2 {
	return s.origin
}

func (s *Sector) Span() float64 {
	return s.span
}

func (s *Sector) addTo(e Entity) {
	s.mu.Lock()
	s.members[e.ID()] = e
	s.mu.Unlock()
}

func (s *Sector) removeFrom(e Entity) {
	s.mu.Lock()
	delete(s.members, e.ID())
	s.mu.Unlock()
}

func (s *Sector) contains(id string) bool {
	s.mu.RLock()
	_, ok := s.members[id]
	s.mu.RUnlock()
	return ok
}

// Entities returns a snapshot of the sector's current membership.
func (s *Sector) Entities() []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entity, 0, len(s.members))
	for _, e := range s.members {
		out = append(out, e)
	}
	return out
}

func (s *Sector) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}
