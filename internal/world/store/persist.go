package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/WiredSound/gemgame/internal/world/coords"
)

// Chunk files hold the raw 256-byte tile array, zstd compressed, one file
// per chunk. A missing file just means the chunk was never mutated.

func chunkFileName(cc coords.ChunkCoords) string {
	return fmt.Sprintf("%d_%d.chunk.zst", cc.X, cc.Y)
}

func (s *ChunkStore) readChunkFile(cc coords.ChunkCoords) *Chunk {
	if s.dir == "" {
		return nil
	}
	path := filepath.Join(s.dir, chunkFileName(cc))
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		s.logger.Printf("chunk %s: %v", path, err)
		return nil
	}
	defer dec.Close()

	raw, err := io.ReadAll(io.LimitReader(dec, coords.ChunkTileCount+1))
	if err != nil || len(raw) != coords.ChunkTileCount {
		s.logger.Printf("chunk %s: bad contents (%d bytes, err=%v)", path, len(raw), err)
		return nil
	}

	var ch Chunk
	for i, b := range raw {
		t := Tile(b)
		if !t.Valid() {
			t = TileGrass
		}
		ch.Tiles[i] = t
	}
	return &ch
}

func (s *ChunkStore) writeChunkFile(cc coords.ChunkCoords, ch *Chunk) error {
	if s.dir == "" {
		return fmt.Errorf("chunk persistence disabled")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(s.dir, chunkFileName(cc))
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}

	raw := make([]byte, coords.ChunkTileCount)
	for i, t := range ch.Tiles {
		raw[i] = byte(t)
	}
	if _, err := enc.Write(raw); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
