package grid

import "github.com/zeusync/worldgrid/internal/core/geometry"

// Entry records an entity's last-known allocation: the grid it belongs to,
// the query rectangle that placed it, and the sector indices it occupies.
// An entry is replaced wholesale on every move and cleared on removal; a
// nil entry means the entity is not currently tracked. The entity owns its
// entry, the grid only reads it back.
type Entry struct {
	grid    *BlockMap
	center  geometry.Vec2
	rangeX  float64
	rangeY  float64
	sectors []int
}

func (e *Entry) Grid() *BlockMap {
	return e.grid
}

func (e *Entry) Center() geometry.Vec2 {
	return e.center
}

func (e *Entry) Range() (rangeX, rangeY float64) {
	return e.rangeX, e.rangeY
}

// Sectors returns the occupied sector indices. Callers must not modify the
// returned slice.
func (e *Entry) Sectors() []int {
	return e.sectors
}
