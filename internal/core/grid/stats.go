package grid

// Statistics is a point-in-time snapshot of grid occupancy. Mutations
// counts every sector membership add/remove since construction, which is
// how the re-bucketing diff is observable from outside.
type Statistics struct {
	Sectors       int    `json:"sectors"`
	SectorsPerRow int    `json:"sectorsPerRow"`
	Tracked       int64  `json:"tracked"`
	Occupied      int    `json:"occupied"`
	MaxPopulation int    `json:"maxPopulation"`
	Mutations     uint64 `json:"mutations"`
}

func (m *BlockMap) Stats() Statistics {
	stats := Statistics{
		Sectors:       len(m.sectors),
		SectorsPerRow: m.perRow,
		Tracked:       m.tracked.Load(),
		Mutations:     m.mutations.Load(),
	}
	for _, s := range m.sectors {
		n := s.Len()
		if n == 0 {
			continue
		}
		stats.Occupied++
		if n > stats.MaxPopulation {
			stats.MaxPopulation = n
		}
	}
	return stats
}
