package world

import (
	"sync"

	"github.com/zeusync/worldgrid/internal/core/grid"
)

// Roster tracks the live entities of a world instance. It is bookkeeping
// only; spatial placement belongs to the grid.
type Roster struct {
	mu       sync.RWMutex
	entities map[string]grid.Entity
}

func NewRoster() *Roster {
	return &Roster{entities: make(map[string]grid.Entity)}
}

func (r *Roster) Add(e grid.Entity) {
	r.mu.Lock()
	r.entities[e.ID()] = e
	r.mu.Unlock()
}

func (r *Roster) Remove(id string) {
	r.mu.Lock()
	delete(r.entities, id)
	r.mu.Unlock()
}

func (r *Roster) Get(id string) (grid.Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	return e, ok
}

func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// All returns a snapshot of the current entities.
func (r *Roster) All() []grid.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]grid.Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	return out
}
