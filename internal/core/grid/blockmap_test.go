package grid

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/worldgrid/internal/core/geometry"
)

type stubEntity struct {
	id    string
	pos   geometry.Vec2
	entry *Entry
}

func newStub(id string, x, y float64) *stubEntity {
	return &stubEntity{id: id, pos: geometry.V(x, y)}
}

func (e *stubEntity) ID() string                { return e.id }
func (e *stubEntity) Position() geometry.Vec2   { return e.pos }
func (e *stubEntity) GridEntry() *Entry         { return e.entry }
func (e *stubEntity) SetGridEntry(entry *Entry) { e.entry = entry }

func mustGrid(t *testing.T, width, height, span float64) *BlockMap {
	t.Helper()
	m, err := New(width, height, span)
	require.NoError(t, err)
	return m
}

func TestNew(t *testing.T) {
	m := mustGrid(t, 100, 100, 10)
	require.Equal(t, 10, m.SectorsPerRow())
	require.Equal(t, 100, m.SectorCount())
	require.Equal(t, 10.0, m.Span())
}

func TestNewClampsSpan(t *testing.T) {
	m := mustGrid(t, 100, 100, 3)
	require.Equal(t, 10.0, m.Span(), "span below the minimum clamps up")

	m = mustGrid(t, 100, 100, 500)
	require.Equal(t, 100.0, m.Span(), "span above the map width clamps down")
	require.Equal(t, 1, m.SectorsPerRow())
	require.Equal(t, 1, m.SectorCount())
}

func TestNewRejectsZeroArea(t *testing.T) {
	_, err := New(0, 100, 10)
	require.ErrorIs(t, err, ErrZeroArea)

	_, err = New(100, -1, 10)
	require.ErrorIs(t, err, ErrZeroArea)
}

func TestFindSectorIndices(t *testing.T) {
	m := mustGrid(t, 100, 100, 10)

	tests := []struct {
		name           string
		center         geometry.Vec2
		rangeX, rangeY float64
		want           []int
	}{
		{"inside one sector", geometry.V(5, 5), 3, 3, []int{0}},
		{"corner crossing four sectors", geometry.V(9, 9), 2, 2, []int{0, 1, 10, 11}},
		{"central in row 5 column 5", geometry.V(55, 55), 2, 2, []int{55}},
		{"horizontal crossing two sectors", geometry.V(19, 5), 2, 2, []int{1, 2}},
		{"vertical crossing two sectors", geometry.V(5, 19), 2, 2, []int{10, 20}},
		{
			"wide region fills the row interval",
			geometry.V(50, 5), 25, 3,
			[]int{2, 3, 4, 5, 6, 7},
		},
		{
			"tall region fills the column interval",
			geometry.V(5, 50), 3, 25,
			[]int{20, 30, 40, 50, 60, 70},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, m.findSectorIndices(tt.center, tt.rangeX, tt.rangeY))
		})
	}
}

func TestFindSectorIndicesFullMap(t *testing.T) {
	m := mustGrid(t, 100, 100, 10)
	indices := m.findSectorIndices(geometry.V(50, 50), 100, 100)
	require.Len(t, indices, 100)

	seen := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 100)
		_, dup := seen[idx]
		require.False(t, dup, "index %d returned twice", idx)
		seen[idx] = struct{}{}
	}
}

func TestAddToAndSectorOf(t *testing.T) {
	m := mustGrid(t, 100, 100, 10)
	e := newStub("a", 5, 5)

	view := m.AddToWithRange(e, 3, 3)
	require.Equal(t, 1, view.Len())
	require.True(t, view.Contains("a"))

	require.NotNil(t, e.GridEntry())
	require.Equal(t, []int{0}, e.GridEntry().Sectors())
	require.Same(t, m, e.GridEntry().Grid())

	require.True(t, m.SectorOf(e).Contains("a"))
}

func TestAddToIsIdempotent(t *testing.T) {
	m := mustGrid(t, 100, 100, 10)
	e := newStub("a", 5, 5)

	m.AddToWithRange(e, 3, 3)
	m.AddToWithRange(e, 3, 3)

	require.Equal(t, 1, m.SectorOf(e).Len())
	require.Equal(t, int64(1), m.Stats().Tracked)
}

func TestRemoveFrom(t *testing.T) {
	m := mustGrid(t, 100, 100, 10)
	e := newStub("a", 5, 5)

	m.AddToWithRange(e, 3, 3)
	vacated := m.RemoveFrom(e)
	require.False(t, vacated.Contains("a"), "the returned view reflects the vacated sectors")
	require.Nil(t, e.GridEntry())
	require.False(t, m.SectorAt(geometry.V(5, 5), 3, 3).Contains("a"))

	before := m.Stats().Mutations
	again := m.RemoveFrom(e)
	require.Equal(t, 0, again.Len(), "second removal is a no-op")
	require.Equal(t, before, m.Stats().Mutations, "no-op removal touches no sectors")
}

func TestMoveAcrossSectors(t *testing.T) {
	m := mustGrid(t, 100, 100, 10)
	e := newStub("a", 9, 9)

	m.AddToWithRange(e, 2, 2)
	require.Equal(t, []int{0, 1, 10, 11}, e.GridEntry().Sectors())

	e.pos = geometry.V(55, 55)
	view := m.Move(e, geometry.V(55, 55))

	require.Equal(t, []int{55}, e.GridEntry().Sectors())
	require.True(t, view.Contains("a"))
	for _, idx := range []int{0, 1, 10, 11} {
		require.False(t, m.sectors[idx].contains("a"), "sector %d still holds the entity", idx)
	}
	require.True(t, m.sectors[55].contains("a"))
}

func TestMoveKeepsRangeSticky(t *testing.T) {
	m := mustGrid(t, 100, 100, 10)
	e := newStub("a", 5, 5)

	m.AddToWithRange(e, 2, 2)
	m.Move(e, geometry.V(9, 9))

	rangeX, rangeY := e.GridEntry().Range()
	require.Equal(t, 2.0, rangeX)
	require.Equal(t, 2.0, rangeY)
	require.Equal(t, []int{0, 1, 10, 11}, e.GridEntry().Sectors(), "the stored range re-applies on move")

	m.MoveWithRange(e, geometry.V(9, 9), 0.5, 0.5)
	rangeX, rangeY = e.GridEntry().Range()
	require.Equal(t, 0.5, rangeX)
	require.Equal(t, 0.5, rangeY)
	require.Equal(t, []int{0}, e.GridEntry().Sectors())
}

func TestMoveWithinSectorTouchesNothing(t *testing.T) {
	m := mustGrid(t, 100, 100, 10)
	e := newStub("a", 25, 25)

	m.AddToWithRange(e, 2, 2)
	before := m.Stats().Mutations

	m.Move(e, geometry.V(26, 26))
	m.Move(e, geometry.V(24, 27))
	m.Move(e, geometry.V(24, 27))

	require.Equal(t, before, m.Stats().Mutations, "interior moves must not mutate any sector")
	require.True(t, m.SectorOf(e).Contains("a"))
}

func TestMoveUntrackedIsNoOp(t *testing.T) {
	m := mustGrid(t, 100, 100, 10)
	e := newStub("a", 5, 5)

	view := m.Move(e, geometry.V(50, 50))
	require.Equal(t, 0, view.Len())
	require.Nil(t, e.GridEntry())
	require.Equal(t, uint64(0), m.Stats().Mutations)
}

func TestQueryOutsideMapIsEmpty(t *testing.T) {
	m := mustGrid(t, 100, 100, 10)
	e := newStub("a", 5, 5)
	m.AddToWithRange(e, 3, 3)

	require.Equal(t, 0, m.SectorAt(geometry.V(200, 200), 3, 3).Len())
	require.Equal(t, 0, m.SectorAt(geometry.V(-50, -50), 3, 3).Len())

	// A wide region entirely below the map trips the row-fill branch with
	// inverted corner rows; it must degrade to empty, not fault.
	require.Equal(t, 0, m.SectorAt(geometry.V(50, 200), 25, 3).Len())
}

func TestQueryOutsideOneAxisIsEmpty(t *testing.T) {
	m := mustGrid(t, 100, 100, 10)

	// Entities in the edge sectors a wrapped clamp would land in.
	right := newStub("right-edge", 95, 55)
	m.AddToWithRange(right, 2, 2)
	require.Equal(t, []int{59}, right.GridEntry().Sectors())
	bottom := newStub("bottom-edge", 55, 95)
	m.AddToWithRange(bottom, 2, 2)
	require.Equal(t, []int{95}, bottom.GridEntry().Sectors())

	// Outside the map on one axis only, inside on the other. Without the
	// disjoint-region check the right-of-map query flattens onto column 19
	// and wraps into sector 59 of the next row.
	require.Equal(t, 0, m.SectorAt(geometry.V(200, 50), 2, 2).Len())
	require.Equal(t, 0, m.SectorAt(geometry.V(-50, 50), 2, 2).Len())
	require.Equal(t, 0, m.SectorAt(geometry.V(50, 200), 2, 2).Len())
	require.Equal(t, 0, m.SectorAt(geometry.V(50, -50), 2, 2).Len())
}

func TestAllocateOutsideMapTracksWithoutSectors(t *testing.T) {
	m := mustGrid(t, 100, 100, 10)
	e := newStub("a", 250, 250)

	view := m.AddToWithRange(e, 3, 3)
	require.Equal(t, 0, view.Len())
	require.NotNil(t, e.GridEntry())
	require.Empty(t, e.GridEntry().Sectors())
	require.Equal(t, 0, m.SectorOf(e).Len())

	m.RemoveFrom(e)
	require.Nil(t, e.GridEntry())
}

func TestEntryFromAnotherGridIsIgnored(t *testing.T) {
	m1 := mustGrid(t, 100, 100, 10)
	m2 := mustGrid(t, 100, 100, 10)
	e := newStub("a", 5, 5)

	m1.AddToWithRange(e, 3, 3)
	require.Equal(t, 0, m2.SectorOf(e).Len())
	require.Equal(t, 0, m2.Move(e, geometry.V(50, 50)).Len())
	require.Equal(t, 0, m2.RemoveFrom(e).Len())
	require.NotNil(t, e.GridEntry(), "a foreign grid must not clear the entry")
}

func TestStats(t *testing.T) {
	m := mustGrid(t, 100, 100, 10)
	a := newStub("a", 5, 5)
	b := newStub("b", 6, 6)
	c := newStub("c", 55, 55)

	m.AddToWithRange(a, 1, 1)
	m.AddToWithRange(b, 1, 1)
	m.AddToWithRange(c, 1, 1)

	stats := m.Stats()
	require.Equal(t, 100, stats.Sectors)
	require.Equal(t, int64(3), stats.Tracked)
	require.Equal(t, 2, stats.Occupied)
	require.Equal(t, 2, stats.MaxPopulation)
	require.Equal(t, uint64(3), stats.Mutations)
}

func TestConcurrentMovesAndQueries(t *testing.T) {
	m := mustGrid(t, 1000, 1000, 25)

	const entities = 64
	stubs := make([]*stubEntity, entities)
	for i := range stubs {
		stubs[i] = newStub(fmt.Sprintf("e-%d", i), float64(i*7%1000), float64(i*13%1000))
		m.AddToWithRange(stubs[i], 5, 5)
	}

	var group errgroup.Group
	for i, e := range stubs {
		group.Go(func() error {
			rng := rand.New(rand.NewPCG(uint64(i), uint64(i)+1))
			for n := 0; n < 200; n++ {
				to := geometry.V(rng.Float64()*999, rng.Float64()*999)
				e.pos = to
				m.Move(e, to)
			}
			return nil
		})
	}
	for i := 0; i < 8; i++ {
		group.Go(func() error {
			rng := rand.New(rand.NewPCG(uint64(i)+1000, 1))
			for n := 0; n < 200; n++ {
				center := geometry.V(rng.Float64()*999, rng.Float64()*999)
				m.SectorAt(center, 25, 25).Each(func(Entity) bool { return true })
			}
			return nil
		})
	}
	require.NoError(t, group.Wait())

	// Every entity's entry and the sector membership must still agree.
	for _, e := range stubs {
		require.NotNil(t, e.GridEntry())
		for _, idx := range e.GridEntry().Sectors() {
			require.True(t, m.sectors[idx].contains(e.id))
		}
		require.True(t, m.SectorOf(e).Contains(e.id))
	}
	require.Equal(t, int64(entities), m.Stats().Tracked)
}

func BenchmarkMove(b *testing.B) {
	m, err := New(1000, 1000, 25)
	if err != nil {
		b.Fatal(err)
	}
	e := newStub("bench", 500, 500)
	m.AddToWithRange(e, 5, 5)

	rng := rand.New(rand.NewPCG(1, 2))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		to := geometry.V(rng.Float64()*999, rng.Float64()*999)
		e.pos = to
		m.Move(e, to)
	}
}

func BenchmarkSectorAt(b *testing.B) {
	m, err := New(1000, 1000, 25)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		m.AddToWithRange(newStub(fmt.Sprintf("e-%d", i), float64(i%1000), float64(i*3%1000)), 5, 5)
	}

	b.RunParallel(func(pb *testing.PB) {
		rng := rand.New(rand.NewPCG(3, 4))
		for pb.Next() {
			m.SectorAt(geometry.V(rng.Float64()*999, rng.Float64()*999), 25, 25)
		}
	})
}
