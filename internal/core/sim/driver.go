package sim

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/zeusync/worldgrid/internal/config"
	"github.com/zeusync/worldgrid/internal/core/geometry"
	"github.com/zeusync/worldgrid/internal/core/grid"
	"github.com/zeusync/worldgrid/internal/core/observability/log"
	"github.com/zeusync/worldgrid/internal/core/world"
	"github.com/zeusync/worldgrid/pkg/concurrent"
	"github.com/zeusync/worldgrid/pkg/sequence"
)

// controllerBatch is how many mobiles one controller goroutine drives.
// Entities in a batch tick together, the way per-region controllers
// coalesce object updates in the full simulation.
const controllerBatch = 32

// A mobile despawns and respawns every blinkInterval ticks, exercising the
// untracked-entity path the grid must treat as a normal transient state.
const blinkInterval = 64

// Driver is the external collaborator of the grid: it spawns a world
// population, moves mobiles every tick, and issues proximity queries.
type Driver struct {
	cfg    config.Sim
	bounds geometry.Rect
	grid   *grid.BlockMap
	roster *world.Roster
	logger log.Log
}

func New(cfg config.Sim, bm *grid.BlockMap, logger log.Log) *Driver {
	return &Driver{
		cfg:    cfg,
		bounds: geometry.R(0, 0, bm.Width(), bm.Height()),
		grid:   bm,
		roster: world.NewRoster(),
		logger: logger.With(log.String("component", "sim")),
	}
}

func (d *Driver) Roster() *world.Roster {
	return d.roster
}

// Populate spawns the configured structures, doodads and mobiles and
// allocates them on the grid.
func (d *Driver) Populate() {
	rng := d.rng(0)

	for i := 0; i < d.cfg.Structures; i++ {
		s := world.NewStructure(fmt.Sprintf("structure-%d", i), d.randomPos(rng), d.grid.Span()/2)
		d.roster.Add(s)
		d.grid.AddTo(s)
	}
	for i := 0; i < d.cfg.Doodads; i++ {
		pos := d.randomPos(rng)
		doodad := world.NewDoodad(geometry.R(pos.X, pos.Y, 2+rng.Float64()*6, 2+rng.Float64()*6))
		d.roster.Add(doodad)
		d.grid.AddTo(doodad)
	}
	for i := 0; i < d.cfg.Mobiles; i++ {
		m := world.NewMobile(d.randomPos(rng), []geometry.Vec2{
			{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1},
		})
		d.roster.Add(m)
		d.grid.AddTo(m)
	}

	d.logger.Info("world populated",
		log.Int("structures", d.cfg.Structures),
		log.Int("doodads", d.cfg.Doodads),
		log.Int("mobiles", d.cfg.Mobiles),
	)
}

// Run drives the mobiles until the context is cancelled. Mobiles are split
// into batches, one controller goroutine per batch; every controller owns
// the positions of its own entities, so entry mutations for a given entity
// come from a single writer while the shared grid sees many.
func (d *Driver) Run(ctx context.Context) error {
	mobiles := sequence.From(d.roster.All()).
		Filter(func(e grid.Entity) bool {
			_, ok := e.(*world.Mobile)
			return ok
		})

	type controller struct {
		id    int
		batch []grid.Entity
	}
	controllers := make([]controller, 0)
	for id, batch := range sequence.Chunk(mobiles, controllerBatch) {
		controllers = append(controllers, controller{id: id, batch: batch})
	}
	d.logger.Info("simulation started", log.Int("controllers", len(controllers)))

	err := concurrent.ForEach(ctx, sequence.From(controllers), func(ctx context.Context, c controller) error {
		return d.runController(ctx, c.id, c.batch)
	})

	d.logger.Info("simulation stopped")
	return err
}

func (d *Driver) runController(ctx context.Context, id int, batch []grid.Entity) error {
	rng := d.rng(int64(id) + 1)
	ticker := time.NewTicker(d.cfg.TickRate.Std())
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		tick++
		for _, e := range batch {
			mobile := e.(*world.Mobile)
			if tick%blinkInterval == 0 {
				d.blink(mobile)
				continue
			}
			d.step(mobile, rng)
		}
		if tick%8 == 0 {
			d.probe(rng)
		}
	}
}

// step random-walks one mobile and re-buckets it.
func (d *Driver) step(m *world.Mobile, rng *rand.Rand) {
	to := m.Position().Add(geometry.V(
		(rng.Float64()*2-1)*d.cfg.StepSize,
		(rng.Float64()*2-1)*d.cfg.StepSize,
	))
	to = d.clamp(to)
	m.SetPosition(to)
	d.grid.Move(m, to)
}

// blink despawns the mobile for one tick; the follow-up Move before the
// re-add must be a no-op.
func (d *Driver) blink(m *world.Mobile) {
	d.grid.RemoveFrom(m)
	d.grid.Move(m, m.Position())
	d.grid.AddTo(m)
}

// probe runs an area query at a random point, the shape of an
// area-of-effect lookup.
func (d *Driver) probe(rng *rand.Rand) {
	center := d.randomPos(rng)
	population := d.grid.SectorAt(center, d.grid.Span(), d.grid.Span())

	hits := 0
	population.Each(func(grid.Entity) bool {
		hits++
		return true
	})
	d.logger.Debug("probe",
		log.Float64("x", center.X),
		log.Float64("y", center.Y),
		log.Int("hits", hits),
	)
}

func (d *Driver) rng(salt int64) *rand.Rand {
	seed := uint64(d.cfg.Seed + salt)
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func (d *Driver) randomPos(rng *rand.Rand) geometry.Vec2 {
	return geometry.V(rng.Float64()*d.bounds.Width, rng.Float64()*d.bounds.Height)
}

func (d *Driver) clamp(p geometry.Vec2) geometry.Vec2 {
	if p.X < 0 {
		p.X = 0
	}
	if p.Y < 0 {
		p.Y = 0
	}
	if p.X >= d.bounds.Width {
		p.X = d.bounds.Width - 1
	}
	if p.Y >= d.bounds.Height {
		p.Y = d.bounds.Height - 1
	}
	return p
}
