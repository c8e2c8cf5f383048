package grid

// SectorPopulation is a read-only aggregated view over one or more
// sectors' entity membership. Views are transient values: computed per
// call, never stored by the grid, and immutable once built. The range
// accessors report the query extent that produced the view, so callers
// can do exact distance checks after the coarse bucket match.
type SectorPopulation interface {
	Entities() []Entity
	Each(fn func(Entity) bool)
	Contains(id string) bool
	Len() int
	RangeX() float64
	RangeY() float64
}

var (
	_ SectorPopulation = sectorView{}
	_ SectorPopulation = (*SectorGroup)(nil)
)

// sectorView is the single-sector aggregate: a thin forwarder to the one
// underlying sector.
type sectorView struct {
	sector *Sector
	rangeX float64
	rangeY float64
}

func (v sectorView) Entities() []Entity {
	return v.sector.Entities()
}

func (v sectorView) Each(fn func(Entity) bool) {
	for _, e := range v.sector.Entities() {
		if !fn(e) {
			return
		}
	}
}

func (v sectorView) Contains(id string) bool {
	return v.sector.contains(id)
}

func (v sectorView) Len() int {
	return v.sector.Len()
}

func (v sectorView) RangeX() float64 {
	return v.rangeX
}

func (v sectorView) RangeY() float64 {
	return v.rangeY
}

// SectorGroup aggregates several sectors. Enumeration is the union of the
// member sets, de-duplicated by entity ID, recomputed on demand.
type SectorGroup struct {
	sectors []*Sector
	rangeX  float64
	rangeY  float64
}

func (g *SectorGroup) Entities() []Entity {
	seen := make(map[string]struct{})
	var out []Entity
	for _, s := range g.sectors {
		for _, e := range s.Entities() {
			if _, ok := seen[e.ID()]; ok {
				continue
			}
			seen[e.ID()] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

func (g *SectorGroup) Each(fn func(Entity) bool) {
	seen := make(map[string]struct{})
	for _, s := range g.sectors {
		for _, e := range s.Entities() {
			if _, ok := seen[e.ID()]; ok {
				continue
			}
			seen[e.ID()] = struct{}{}
			if !fn(e) {
				return
			}
		}
	}
}

func (g *SectorGroup) Contains(id string) bool {
	for _, s := range g.sectors {
		if s.contains(id) {
			return true
		}
	}
	return false
}

func (g *SectorGroup) Len() int {
	return len(g.Entities())
}

func (g *SectorGroup) RangeX() float64 {
	return g.rangeX
}

func (g *SectorGroup) RangeY() float64 {
	return g.rangeY
}

// newView wraps resolved sectors in the right aggregate. Zero sectors map
// to a view over the shared empty sector.
func newView(sectors []*Sector, rangeX, rangeY float64) SectorPopulation {
	switch len(sectors) {
	case 0:
		return sectorView{sector: emptySector, rangeX: rangeX, rangeY: rangeY}
	case 1:
		return sectorView{sector: sectors[0], rangeX: rangeX, rangeY: rangeY}
	default:
		return &SectorGroup{sectors: sectors, rangeX: rangeX, rangeY: rangeY}
	}
}
