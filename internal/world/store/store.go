package store

import (
	"log"

	"github.com/WiredSound/gemgame/internal/world/coords"
)

// ChunkStore owns the loaded portion of the infinite map. It performs no
// locking of its own: the world's exclusive lock guards all access.
type ChunkStore struct {
	gen    Generator
	dir    string // chunk persistence directory; empty disables persistence
	chunks map[coords.ChunkCoords]*Chunk
	logger *log.Logger
}

func NewChunkStore(gen Generator, dir string, logger *log.Logger) *ChunkStore {
	return &ChunkStore{
		gen:    gen,
		dir:    dir,
		chunks: map[coords.ChunkCoords]*Chunk{},
		logger: logger,
	}
}

func (s *ChunkStore) LoadedCount() int { return len(s.chunks) }

func (s *ChunkStore) IsLoaded(cc coords.ChunkCoords) bool {
	_, ok := s.chunks[cc]
	return ok
}

// GetOrLoad returns the chunk at cc, reading it from disk if previously
// persisted and generating it otherwise. A given position maps to exactly
// one in-memory chunk at a time.
func (s *ChunkStore) GetOrLoad(cc coords.ChunkCoords) *Chunk {
	if ch, ok := s.chunks[cc]; ok {
		return ch
	}
	if ch := s.readChunkFile(cc); ch != nil {
		s.chunks[cc] = ch
		return ch
	}
	ch := s.gen.Generate(cc)
	s.chunks[cc] = ch
	s.logger.Printf("generated %v", cc)
	return ch
}

// TileAt resolves a single tile, loading its chunk as needed.
func (s *ChunkStore) TileAt(tc coords.TileCoords) Tile {
	return s.GetOrLoad(tc.ToChunkCoords()).At(tc.ToOffsetCoords())
}

// MutateTile updates one tile within its owning chunk.
func (s *ChunkStore) MutateTile(tc coords.TileCoords, t Tile) {
	s.GetOrLoad(tc.ToChunkCoords()).Set(tc.ToOffsetCoords(), t)
}

// Unload evicts the chunk at cc, persisting it first if it was mutated.
// Safe to call for chunks that are not loaded.
func (s *ChunkStore) Unload(cc coords.ChunkCoords) {
	ch, ok := s.chunks[cc]
	if !ok {
		return
	}
	if ch.dirty {
		if err := s.writeChunkFile(cc, ch); err != nil {
			// Keep the chunk resident rather than lose player edits.
			s.logger.Printf("unload %v: persist failed, keeping loaded: %v", cc, err)
			return
		}
		ch.dirty = false
	}
	delete(s.chunks, cc)
}
