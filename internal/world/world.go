// Package world owns the authoritative game state: the loaded chunks, the
// connected entities, and the movement rules. Every write happens inside
// one exclusive lock and is announced on the hub before the lock is
// released, so subscribers observe mutations in the order they were
// applied. Critical sections stay short and never touch the network; the
// one disk access under the lock is persisting a dirty chunk as it is
// evicted.
package world

import (
	"log"
	"sync"
	"time"

	"github.com/WiredSound/gemgame/internal/world/coords"
	"github.com/WiredSound/gemgame/internal/world/hub"
	"github.com/WiredSound/gemgame/internal/world/model"
	"github.com/WiredSound/gemgame/internal/world/store"
)

// DefaultMoveInterval is the server-side movement speed cap: no entity
// moves twice within this window no matter how fast requests arrive.
const DefaultMoveInterval = 150 * time.Millisecond

type Config struct {
	MoveInterval time.Duration
	HubBuffer    int

	// Clock is overridable in tests. Nil means time.Now.
	Clock func() time.Time
}

type World struct {
	mu sync.Mutex

	chunks   *store.ChunkStore
	entities map[model.EntityID]*model.Entity
	byPos    map[coords.TileCoords]model.EntityID
	interest map[coords.ChunkCoords]int
	queued   map[model.EntityID]*queuedMove

	// gens numbers attachments so a stale connection's detach cannot tear
	// down a newer attachment of the same entity.
	gens    map[model.EntityID]uint64
	nextGen uint64

	hub          *hub.Hub
	moveInterval time.Duration
	clock        func() time.Time
	logger       *log.Logger
}

func New(chunks *store.ChunkStore, cfg Config, logger *log.Logger) *World {
	if cfg.MoveInterval <= 0 {
		cfg.MoveInterval = DefaultMoveInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &World{
		chunks:       chunks,
		entities:     map[model.EntityID]*model.Entity{},
		byPos:        map[coords.TileCoords]model.EntityID{},
		interest:     map[coords.ChunkCoords]int{},
		queued:       map[model.EntityID]*queuedMove{},
		gens:         map[model.EntityID]uint64{},
		hub:          hub.New(cfg.HubBuffer),
		moveInterval: cfg.MoveInterval,
		clock:        cfg.Clock,
		logger:       logger,
	}
}

// Subscribe registers a new hub consumer. The caller must Close it.
func (w *World) Subscribe() *hub.Subscriber { return w.hub.Subscribe() }

// AttachEntity brings an entity into the world at its stored position,
// nudged to the nearest walkable unoccupied tile when that position is not
// usable. If the entity is already attached (the same client connecting
// again), the newer attachment wins and the old one is evicted first. The
// returned generation must be presented to DetachEntity; a detach carrying
// a superseded generation is a no-op.
func (w *World) AttachEntity(ent model.Entity) (model.Entity, uint64) {
	w.mu.Lock()

	if old, ok := w.entities[ent.ID]; ok {
		w.detachLocked(old)
	}

	pos := w.nearestFreeLocked(ent.Pos)
	ent.Pos = pos
	e := ent
	w.entities[ent.ID] = &e
	w.byPos[pos] = ent.ID
	w.nextGen++
	gen := w.nextGen
	w.gens[ent.ID] = gen

	w.hub.Publish(hub.Event{
		Kind:     hub.KindEntityAdded,
		Chunks:   []coords.ChunkCoords{pos.ToChunkCoords()},
		EntityID: ent.ID,
		Entity:   e,
		Pos:      pos,
	})
	w.mu.Unlock()
	return e, gen
}

// DetachEntity removes an entity, cancelling any queued move. The returned
// copy is what the caller should persist. gen must be the generation the
// matching AttachEntity returned: when a newer attachment has taken the
// entity over, the stale detach does nothing and reports false.
func (w *World) DetachEntity(id model.EntityID, gen uint64) (model.Entity, bool) {
	w.mu.Lock()
	e, ok := w.entities[id]
	if !ok || w.gens[id] != gen {
		w.mu.Unlock()
		return model.Entity{}, false
	}
	snap := *e
	w.detachLocked(e)
	w.mu.Unlock()
	return snap, true
}

func (w *World) detachLocked(e *model.Entity) {
	if q, ok := w.queued[e.ID]; ok {
		q.timer.Stop()
		delete(w.queued, e.ID)
	}
	snap := *e
	delete(w.entities, e.ID)
	delete(w.byPos, e.Pos)
	delete(w.gens, e.ID)

	w.hub.Publish(hub.Event{
		Kind:     hub.KindEntityRemoved,
		Chunks:   []coords.ChunkCoords{snap.Pos.ToChunkCoords()},
		EntityID: snap.ID,
		Entity:   snap,
		Pos:      snap.Pos,
	})
}

// LookupEntity returns a detached copy of an attached entity.
func (w *World) LookupEntity(id model.EntityID) (model.Entity, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	if !ok {
		return model.Entity{}, false
	}
	return *e, true
}

// EntitiesInChunk lists detached copies of every entity standing inside the
// given chunk. Used to introduce existing entities when a client loads it.
func (w *World) EntitiesInChunk(cc coords.ChunkCoords) []model.Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []model.Entity
	for _, e := range w.entities {
		if e.Pos.ToChunkCoords() == cc {
			out = append(out, *e)
		}
	}
	return out
}

// AddInterest records a connection's interest in a chunk, loading it as
// needed, and returns a snapshot of its tiles.
func (w *World) AddInterest(cc coords.ChunkCoords) []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.interest[cc]++
	return w.snapshotLocked(cc)
}

// DropInterest releases one connection's interest in a chunk. The chunk is
// unloaded (persisting pending mutations) when nobody is left watching it.
func (w *World) DropInterest(cc coords.ChunkCoords) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.interest[cc]
	if !ok {
		return
	}
	if n > 1 {
		w.interest[cc] = n - 1
		return
	}
	delete(w.interest, cc)
	w.chunks.Unload(cc)
}

// SnapshotChunk copies a chunk's tiles without touching interest counts.
// Used to resynchronize a consumer that lagged behind the hub.
func (w *World) SnapshotChunk(cc coords.ChunkCoords) []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked(cc)
}

func (w *World) snapshotLocked(cc coords.ChunkCoords) []byte {
	ch := w.chunks.GetOrLoad(cc)
	out := make([]byte, coords.ChunkTileCount)
	for i, t := range ch.Tiles {
		out[i] = byte(t)
	}
	return out
}

// SetTile mutates one tile and announces the change.
func (w *World) SetTile(tc coords.TileCoords, t store.Tile) {
	w.mu.Lock()
	w.chunks.MutateTile(tc, t)
	w.hub.Publish(hub.Event{
		Kind:   hub.KindTileChanged,
		Chunks: []coords.ChunkCoords{tc.ToChunkCoords()},
		Pos:    tc,
		Tile:   t,
	})
	w.mu.Unlock()
}

// LoadedChunks reports how many chunks are resident. Exposed for metrics.
func (w *World) LoadedChunks() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chunks.LoadedCount()
}

// EntityCount reports how many entities are attached. Exposed for metrics.
func (w *World) EntityCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entities)
}

func (w *World) nearestFreeLocked(from coords.TileCoords) coords.TileCoords {
	if w.freeLocked(from) {
		return from
	}
	// Ring scan outward. The generator keeps a clear area around spawn so
	// this stays tiny in practice.
	for r := int32(1); r <= 32; r++ {
		for dx := -r; dx <= r; dx++ {
			for dy := -r; dy <= r; dy++ {
				if dx > -r && dx < r && dy > -r && dy < r {
					continue
				}
				tc := from.Translated(dx, dy)
				if w.freeLocked(tc) {
					return tc
				}
			}
		}
	}
	w.logger.Printf("no free tile near %v, stacking", from)
	return from
}

func (w *World) freeLocked(tc coords.TileCoords) bool {
	if w.chunks.TileAt(tc).Blocking() {
		return false
	}
	_, occupied := w.byPos[tc]
	return !occupied
}
