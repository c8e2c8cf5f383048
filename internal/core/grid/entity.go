package grid

import (
	"math"

	"github.com/zeusync/worldgrid/internal/core/geometry"
)

// Entity is anything the grid can track. The grid never owns an entity's
// lifetime; it only records membership. The entry slot is the entity's
// back-reference to its current allocation and is written exclusively by
// the BlockMap that tracks it.
type Entity interface {
	ID() string
	Position() geometry.Vec2
	GridEntry() *Entry
	SetGridEntry(*Entry)
}

// Influencer is implemented by entities with a sphere of influence,
// typically structures. The radius is used for both axes.
type Influencer interface {
	InfluenceRadius() float64
}

// Shaped is implemented by entities with explicit boundary geometry. The
// per-axis range is the maximum distance from the entity's position to the
// extremal boundary points along that axis.
type Shaped interface {
	BoundaryPoints() []geometry.Vec2
}

// Bounded is implemented by static environment pieces with an axis-aligned
// bounding box. The per-axis range is half the box's width/height.
type Bounded interface {
	Bounds() geometry.Rect
}

// DefaultRange is the per-axis range used when an entity exposes no
// geometry and the caller supplies none.
const DefaultRange = 1.0

// RangeFor derives the per-axis query range for an entity. Capability
// variants are checked in order: influence radius, boundary geometry,
// bounding box. Entities with none of them get the caller's fallback, or
// DefaultRange when the fallback is not positive.
func RangeFor(e Entity, fallbackX, fallbackY float64) (rangeX, rangeY float64) {
	switch t := e.(type) {
	case Influencer:
		r := t.InfluenceRadius()
		return r, r
	case Shaped:
		return boundaryExtents(e.Position(), t.BoundaryPoints())
	case Bounded:
		return t.Bounds().HalfExtents()
	}
	if fallbackX <= 0 {
		fallbackX = DefaultRange
	}
	if fallbackY <= 0 {
		fallbackY = DefaultRange
	}
	return fallbackX, fallbackY
}

func boundaryExtents(pos geometry.Vec2, points []geometry.Vec2) (rangeX, rangeY float64) {
	if len(points) == 0 {
		return DefaultRange, DefaultRange
	}
	for _, p := range points {
		rangeX = math.Max(rangeX, math.Abs(p.X-pos.X))
		rangeY = math.Max(rangeY, math.Abs(p.Y-pos.Y))
	}
	return rangeX, rangeY
}
