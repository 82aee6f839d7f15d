package store

import "github.com/WiredSound/gemgame/internal/world/coords"

// Tile identifies a terrain/material type within the fixed tile table.
type Tile uint8

const (
	TileGrass Tile = iota
	TileDirt
	TileWater
	TileRock
	TileFlower
	TileShrub

	tileCount
)

func (t Tile) Valid() bool { return t < tileCount }

// Blocking reports whether entities may not occupy this tile.
func (t Tile) Blocking() bool {
	switch t {
	case TileWater, TileRock, TileFlower, TileShrub:
		return true
	}
	return false
}

func (t Tile) String() string {
	switch t {
	case TileGrass:
		return "grass"
	case TileDirt:
		return "dirt"
	case TileWater:
		return "water"
	case TileRock:
		return "rock"
	case TileFlower:
		return "flower"
	case TileShrub:
		return "shrub"
	}
	return "tile(?)"
}

// Chunk is a 16x16 block of tiles, the unit of map loading and unloading.
type Chunk struct {
	Tiles [coords.ChunkTileCount]Tile

	// dirty marks a chunk mutated since generation/load; it must be
	// persisted before eviction or its edits would regenerate away.
	dirty bool
}

func (c *Chunk) At(oc coords.OffsetCoords) Tile {
	return c.Tiles[oc.Index()]
}

func (c *Chunk) Set(oc coords.OffsetCoords, t Tile) {
	i := oc.Index()
	if c.Tiles[i] == t {
		return
	}
	c.Tiles[i] = t
	c.dirty = true
}

func (c *Chunk) Dirty() bool { return c.dirty }

// Generator produces the tile layout for a chunk that has never been
// persisted. Implementations must be pure: the same coordinates always
// yield the same chunk.
type Generator interface {
	Generate(cc coords.ChunkCoords) *Chunk
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(cc coords.ChunkCoords) *Chunk

func (f GeneratorFunc) Generate(cc coords.ChunkCoords) *Chunk { return f(cc) }
