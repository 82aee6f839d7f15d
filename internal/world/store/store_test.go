package store

import (
	"io"
	"log"
	"testing"

	"github.com/WiredSound/gemgame/internal/world/coords"
)

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

// checkerboard is deterministic and easy to assert against.
var checkerboard = GeneratorFunc(func(cc coords.ChunkCoords) *Chunk {
	var ch Chunk
	for i := range ch.Tiles {
		if (i+int(cc.X)+int(cc.Y))%2 == 0 {
			ch.Tiles[i] = TileGrass
		} else {
			ch.Tiles[i] = TileDirt
		}
	}
	return &ch
})

func TestGetOrLoadIsIdempotent(t *testing.T) {
	s := NewChunkStore(checkerboard, "", testLogger())

	cc := coords.ChunkCoords{X: -2, Y: 3}
	first := s.GetOrLoad(cc)
	second := s.GetOrLoad(cc)
	if first != second {
		t.Fatalf("same position produced two chunk values")
	}

	s.Unload(cc)
	regenerated := s.GetOrLoad(cc)
	if regenerated.Tiles != first.Tiles {
		t.Fatalf("regeneration was not deterministic")
	}
}

func TestMutateTileMarksDirty(t *testing.T) {
	s := NewChunkStore(checkerboard, "", testLogger())

	tc := coords.TileCoords{X: 5, Y: 5}
	s.MutateTile(tc, TileRock)
	ch := s.GetOrLoad(tc.ToChunkCoords())
	if !ch.Dirty() {
		t.Fatalf("mutation did not mark chunk dirty")
	}
	if got := s.TileAt(tc); got != TileRock {
		t.Fatalf("tile after mutation: got %v", got)
	}
}

func TestUnloadPersistsMutations(t *testing.T) {
	dir := t.TempDir()
	s := NewChunkStore(checkerboard, dir, testLogger())

	tc := coords.TileCoords{X: -1, Y: -1}
	s.MutateTile(tc, TileWater)
	cc := tc.ToChunkCoords()
	s.Unload(cc)
	if s.IsLoaded(cc) {
		t.Fatalf("chunk still loaded after unload")
	}

	// Reload must come from disk, not the generator.
	if got := s.TileAt(tc); got != TileWater {
		t.Fatalf("mutation lost across unload: got %v", got)
	}
	if s.GetOrLoad(cc).Dirty() {
		t.Fatalf("freshly loaded chunk should not be dirty")
	}
}

func TestUnloadWithoutPersistenceKeepsDirtyChunks(t *testing.T) {
	s := NewChunkStore(checkerboard, "", testLogger())

	tc := coords.TileCoords{X: 0, Y: 0}
	s.MutateTile(tc, TileShrub)
	cc := tc.ToChunkCoords()
	s.Unload(cc)
	if !s.IsLoaded(cc) {
		t.Fatalf("dirty chunk was evicted with nowhere to persist it")
	}
}

func TestUnloadUnknownChunkIsHarmless(t *testing.T) {
	s := NewChunkStore(checkerboard, "", testLogger())
	s.Unload(coords.ChunkCoords{X: 99, Y: 99})
}
