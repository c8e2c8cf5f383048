package world

import (
	"sync"

	"github.com/google/uuid"

	"github.com/zeusync/worldgrid/internal/core/geometry"
	"github.com/zeusync/worldgrid/internal/core/grid"
)

// baseEntity carries what every world object needs to be grid-trackable:
// a stable identity, a mutable position, and the entry slot the grid
// writes back into.
type baseEntity struct {
	id string

	mu    sync.RWMutex
	pos   geometry.Vec2
	entry *grid.Entry
}

func newBaseEntity(pos geometry.Vec2) baseEntity {
	return baseEntity{id: uuid.NewString(), pos: pos}
}

func (b *baseEntity) ID() string {
	return b.id
}

func (b *baseEntity) Position() geometry.Vec2 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pos
}

func (b *baseEntity) SetPosition(p geometry.Vec2) {
	b.mu.Lock()
	b.pos = p
	b.mu.Unlock()
}

func (b *baseEntity) GridEntry() *grid.Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.entry
}

func (b *baseEntity) SetGridEntry(e *grid.Entry) {
	b.mu.Lock()
	b.entry = e
	b.mu.Unlock()
}

// Structure is a fixed installation with a sphere of influence, e.g. a
// tower projecting proximity effects.
type Structure struct {
	baseEntity
	Name string
	SOI  float64
}

var _ grid.Influencer = (*Structure)(nil)

func NewStructure(name string, pos geometry.Vec2, soi float64) *Structure {
	return &Structure{baseEntity: newBaseEntity(pos), Name: name, SOI: soi}
}

func (s *Structure) InfluenceRadius() float64 {
	return s.SOI
}

// Mobile is a simulated object with explicit boundary geometry, the kind
// that moves every tick.
type Mobile struct {
	baseEntity
	boundary []geometry.Vec2
}

var _ grid.Shaped = (*Mobile)(nil)

func NewMobile(pos geometry.Vec2, boundary []geometry.Vec2) *Mobile {
	return &Mobile{baseEntity: newBaseEntity(pos), boundary: boundary}
}

// BoundaryPoints returns the boundary translated to the mobile's current
// position.
func (m *Mobile) BoundaryPoints() []geometry.Vec2 {
	pos := m.Position()
	points := make([]geometry.Vec2, len(m.boundary))
	for i, p := range m.boundary {
		points[i] = pos.Add(p)
	}
	return points
}

// Doodad is a static environment piece: a rock, a tree, a ruin. Its grid
// range is half its bounding box.
type Doodad struct {
	baseEntity
	bounds geometry.Rect
}

var _ grid.Bounded = (*Doodad)(nil)

func NewDoodad(bounds geometry.Rect) *Doodad {
	return &Doodad{baseEntity: newBaseEntity(bounds.Center()), bounds: bounds}
}

func (d *Doodad) Bounds() geometry.Rect {
	return d.bounds
}

// Marker is an entity with no geometry at all; the grid falls back to the
// caller-supplied or default range for it.
type Marker struct {
	baseEntity
}

func NewMarker(pos geometry.Vec2) *Marker {
	return &Marker{baseEntity: newBaseEntity(pos)}
}
