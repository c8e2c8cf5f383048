package grid

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/worldgrid/internal/core/geometry"
	"github.com/zeusync/worldgrid/internal/core/observability/log"
)

var (
	ErrZeroArea    = errors.New("grid: map width and height must be positive")
	ErrInvalidSpan = errors.New("grid: span size must be positive")
)

const (
	// MinSpan is the lower clamp bound for the sector side length.
	MinSpan = 10

	entryStripes = 64
)

// BlockMap tiles a bounded 2D coordinate space into fixed-size sectors and
// tracks which sectors every allocated entity occupies. Geometry is fixed
// at construction; only membership mutates.
//
// Membership of each sector is guarded by the sector's own lock. Entry
// mutation is serialized per entity through a striped lock keyed by the
// entity ID, so concurrent writers for different entities may interleave
// freely while two calls for the same entity never race on its entry.
type BlockMap struct {
	width  float64
	height float64
	span   float64
	perRow int
	rows   int

	sectors []*Sector

	entryMu [entryStripes]sync.Mutex

	tracked   atomic.Int64
	mutations atomic.Uint64

	logger log.Log
}

// Option configures a BlockMap.
type Option func(*BlockMap)

func WithLogger(l log.Log) Option {
	return func(m *BlockMap) {
		m.logger = l
	}
}

// New builds the sector tiling for a width x height map. The span size is
// clamped to [MinSpan, width]. Construction is the only operation that can
// fail: a zero-sized map or a degenerate span is a programming error in
// the caller, not a runtime data condition.
func New(width, height, desiredSpan float64, opts ...Option) (*BlockMap, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrZeroArea
	}
	span := math.Min(math.Max(desiredSpan, MinSpan), width)
	if math.IsNaN(span) || span <= 0 {
		return nil, ErrInvalidSpan
	}

	m := &BlockMap{
		width:  width,
		height: height,
		span:   span,
		perRow: int(math.Ceil(width / span)),
		logger: log.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	// Row-major tiling. The far row/column may overhang the nominal
	// bounds; coordinates beyond them are clamped at query time.
	for y := 0.0; y < height; y += span {
		for x := 0.0; x < width; x += span {
			m.sectors = append(m.sectors, newSector(len(m.sectors), geometry.V(x, y), span))
		}
	}
	m.rows = len(m.sectors) / m.perRow

	m.logger.Info("block map constructed",
		log.Float64("width", width),
		log.Float64("height", height),
		log.Float64("span", span),
		log.Int("sectors", len(m.sectors)),
	)
	return m, nil
}

func (m *BlockMap) Width() float64     { return m.width }
func (m *BlockMap) Height() float64    { return m.height }
func (m *BlockMap) Span() float64      { return m.span }
func (m *BlockMap) SectorsPerRow() int { return m.perRow }
func (m *BlockMap) SectorCount() int   { return len(m.sectors) }

// AddTo allocates an entity at its own position, inferring the range from
// the entity's capability (see RangeFor).
func (m *BlockMap) AddTo(e Entity) SectorPopulation {
	rangeX, rangeY := RangeFor(e, 0, 0)
	return m.allocate(e, e.Position(), rangeX, rangeY)
}

// AddToWithRange allocates an entity at its own position with an explicit
// per-axis range.
func (m *BlockMap) AddToWithRange(e Entity, rangeX, rangeY float64) SectorPopulation {
	return m.allocate(e, e.Position(), rangeX, rangeY)
}

// AddToAt allocates an entity at an explicit position with an explicit
// range, the general form the other AddTo variants delegate to.
func (m *BlockMap) AddToAt(e Entity, center geometry.Vec2, rangeX, rangeY float64) SectorPopulation {
	return m.allocate(e, center, rangeX, rangeY)
}

// RemoveFrom vacates every sector the entity's entry names and clears the
// entry. Removing an untracked entity is a no-op returning an empty view.
func (m *BlockMap) RemoveFrom(e Entity) SectorPopulation {
	mu := m.stripe(e.ID())
	mu.Lock()
	defer mu.Unlock()

	entry := e.GridEntry()
	if entry == nil || entry.grid != m {
		return newView(nil, 0, 0)
	}

	sectors := m.sectorsFor(entry.sectors)
	for _, s := range sectors {
		s.removeFrom(e)
		m.mutations.Add(1)
	}
	e.SetGridEntry(nil)
	m.tracked.Add(-1)

	m.logger.Debug("entity removed from grid",
		log.String("entity", e.ID()),
		log.Int("sectors", len(sectors)),
	)
	return newView(sectors, entry.rangeX, entry.rangeY)
}

// Move re-buckets a tracked entity at a new center, keeping the range
// stored in its entry. Only the sectors that differ between the old and
// new index sets are touched; moving within the current sector set costs
// zero sector mutations. Moving an untracked entity is a no-op.
func (m *BlockMap) Move(e Entity, to geometry.Vec2) SectorPopulation {
	return m.relocate(e, to, 0, 0, true)
}

// MoveWithRange is Move with the sticky range overridden.
func (m *BlockMap) MoveWithRange(e Entity, to geometry.Vec2, rangeX, rangeY float64) SectorPopulation {
	return m.relocate(e, to, rangeX, rangeY, false)
}

// SectorOf resolves the view for a tracked entity from its stored entry,
// with no index recomputation. Untracked entities get an empty view.
func (m *BlockMap) SectorOf(e Entity) SectorPopulation {
	entry := e.GridEntry()
	if entry == nil || entry.grid != m {
		return newView(nil, 0, 0)
	}
	return newView(m.sectorsFor(entry.sectors), entry.rangeX, entry.rangeY)
}

// SectorAt resolves the view for an arbitrary point and range. Queries
// never mutate membership.
func (m *BlockMap) SectorAt(center geometry.Vec2, rangeX, rangeY float64) SectorPopulation {
	indices := m.findSectorIndices(center, rangeX, rangeY)
	return newView(m.sectorsFor(indices), rangeX, rangeY)
}

func (m *BlockMap) allocate(e Entity, center geometry.Vec2, rangeX, rangeY float64) SectorPopulation {
	mu := m.stripe(e.ID())
	mu.Lock()
	defer mu.Unlock()

	// A re-add replaces the previous allocation so sector membership
	// always mirrors the entry's index set.
	if prev := e.GridEntry(); prev != nil && prev.grid == m {
		for _, s := range m.sectorsFor(prev.sectors) {
			s.removeFrom(e)
			m.mutations.Add(1)
		}
	} else {
		m.tracked.Add(1)
	}

	indices := m.findSectorIndices(center, rangeX, rangeY)
	sectors := m.sectorsFor(indices)
	if sectors == nil {
		indices = nil
	}
	for _, s := range sectors {
		s.addTo(e)
		m.mutations.Add(1)
	}
	e.SetGridEntry(&Entry{grid: m, center: center, rangeX: rangeX, rangeY: rangeY, sectors: indices})

	m.logger.Debug("entity allocated",
		log.String("entity", e.ID()),
		log.Int("sectors", len(sectors)),
	)
	return newView(sectors, rangeX, rangeY)
}

func (m *BlockMap) relocate(e Entity, to geometry.Vec2, rangeX, rangeY float64, sticky bool) SectorPopulation {
	mu := m.stripe(e.ID())
	mu.Lock()
	defer mu.Unlock()

	entry := e.GridEntry()
	if entry == nil || entry.grid != m {
		return newView(nil, 0, 0)
	}
	if sticky {
		rangeX, rangeY = entry.rangeX, entry.rangeY
	}

	indices := m.findSectorIndices(to, rangeX, rangeY)
	sectors := m.sectorsFor(indices)
	if sectors == nil {
		indices = nil
	}

	oldSet := make(map[int]struct{}, len(entry.sectors))
	for _, idx := range entry.sectors {
		oldSet[idx] = struct{}{}
	}
	newSet := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		newSet[idx] = struct{}{}
	}

	for _, idx := range entry.sectors {
		if _, keep := newSet[idx]; !keep {
			m.sectors[idx].removeFrom(e)
			m.mutations.Add(1)
		}
	}
	for _, idx := range indices {
		if _, had := oldSet[idx]; !had {
			m.sectors[idx].addTo(e)
			m.mutations.Add(1)
		}
	}
	e.SetGridEntry(&Entry{grid: m, center: to, rangeX: rangeX, rangeY: rangeY, sectors: indices})

	return newView(sectors, rangeX, rangeY)
}

// findSectorIndices maps a center and per-axis half-extent to flat sector
// indices. A region disjoint from the map resolves to no indices.
// Otherwise corner coordinates are clamped into the tiled area and three
// cases apply in priority order:
//
//  1. all four corners share one sector: that single index;
//  2. the corner index gaps exceed one column or one row step: every
//     index in the sector bounding rectangle, row by row, so interior
//     sectors between far-apart corners are not skipped;
//  3. otherwise the distinct corner indices (the 1x1..2x2 overlap cases).
//
// The arithmetic is index-based, not geometry-exact; see the tests that
// pin its boundary behavior.
func (m *BlockMap) findSectorIndices(center geometry.Vec2, rangeX, rangeY float64) []int {
	// A region disjoint from [0,width) x [0,height) maps to no sectors.
	// Checked before clamping: clamping a fully-outside corner would wrap
	// the region onto the opposite map edge.
	if center.X+rangeX < 0 || center.X-rangeX >= m.width ||
		center.Y+rangeY < 0 || center.Y-rangeY >= m.height {
		return nil
	}

	maxX := float64(m.perRow)*m.span - 1
	maxY := float64(m.rows)*m.span - 1

	left := math.Max(0, center.X-rangeX)
	top := math.Max(0, center.Y-rangeY)
	right := math.Min(center.X+rangeX, maxX)
	bottom := math.Min(center.Y+rangeY, maxY)

	topLeft := m.flatIndex(left, top)
	topRight := m.flatIndex(right, top)
	bottomLeft := m.flatIndex(left, bottom)
	bottomRight := m.flatIndex(right, bottom)

	if topLeft == bottomRight {
		return []int{topLeft}
	}

	if topRight-topLeft > 1 || bottomLeft-topLeft > m.perRow {
		cols := topRight - topLeft
		var indices []int
		for row := topLeft; row <= bottomLeft; row += m.perRow {
			for idx := row; idx <= row+cols; idx++ {
				indices = append(indices, idx)
			}
		}
		return indices
	}

	return distinctIndices(topLeft, topRight, bottomLeft, bottomRight)
}

func (m *BlockMap) flatIndex(x, y float64) int {
	return int(math.Floor(y/m.span))*m.perRow + int(math.Floor(x/m.span))
}

// sectorsFor resolves indices to sectors. An index set reaching outside
// the grid is treated as "no sectors": near the map edge a generous range
// can legitimately produce one, and it must degrade to an empty view
// rather than an error.
func (m *BlockMap) sectorsFor(indices []int) []*Sector {
	if len(indices) == 0 {
		return nil
	}
	for _, idx := range indices {
		if idx < 0 || idx >= len(m.sectors) {
			return nil
		}
	}
	sectors := make([]*Sector, len(indices))
	for i, idx := range indices {
		sectors[i] = m.sectors[idx]
	}
	return sectors
}

func (m *BlockMap) stripe(id string) *sync.Mutex {
	return &m.entryMu[xxhash.Sum64String(id)%entryStripes]
}

func distinctIndices(indices ...int) []int {
	out := indices[:0:0]
	for _, idx := range indices {
		dup := false
		for _, seen := range out {
			if seen == idx {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, idx)
		}
	}
	return out
}
