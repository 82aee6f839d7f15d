// Package terrain provides the procedural chunk generator: a pure function
// from chunk coordinates to tile layout, driven entirely by a seed so that
// any chunk regenerates identically on every server that shares it.
package terrain

import (
	"github.com/WiredSound/gemgame/internal/world/coords"
	"github.com/WiredSound/gemgame/internal/world/store"
)

// Overworld generates the surface map: grass plains with water pools, dirt
// patches, and blocking decoration scattered over the grass.
type Overworld struct {
	Seed int64

	WaterGrid        int
	WaterRadius      int
	WaterPermille    uint64
	DirtGrid         int
	DirtRadius       int
	DirtPermille     uint64
	SpawnClearRadius int
	RockPermille     uint64
	FlowerPermille   uint64
	ShrubPermille    uint64
}

func NewOverworld(seed int64) *Overworld {
	return &Overworld{
		Seed:             seed,
		WaterGrid:        48,
		WaterRadius:      5,
		WaterPermille:    350,
		DirtGrid:         32,
		DirtRadius:       4,
		DirtPermille:     500,
		SpawnClearRadius: 6,
		RockPermille:     12,
		FlowerPermille:   20,
		ShrubPermille:    15,
	}
}

func (g *Overworld) categoryAt(x, y int) category {
	if g.withinSpawnClear(x, y) {
		return categoryGrass
	}
	switch {
	case inCluster(g.Seed+1, x, y, g.WaterGrid, g.WaterRadius, g.WaterPermille):
		return categoryWater
	case inCluster(g.Seed+2, x, y, g.DirtGrid, g.DirtRadius, g.DirtPermille):
		return categoryDirt
	}
	return categoryGrass
}

// withinSpawnClear keeps the area around the origin walkable so new players
// never spawn inside water or decoration.
func (g *Overworld) withinSpawnClear(x, y int) bool {
	if g.SpawnClearRadius <= 0 {
		return false
	}
	r := g.SpawnClearRadius
	return x*x+y*y <= r*r
}

func (g *Overworld) Generate(cc coords.ChunkCoords) *store.Chunk {
	p := newPlan()
	for oy := 0; oy < coords.ChunkHeight; oy++ {
		for ox := 0; ox < coords.ChunkWidth; ox++ {
			wx := int(cc.X)*coords.ChunkWidth + ox
			wy := int(cc.Y)*coords.ChunkHeight + oy
			p.set(ox, oy, g.categoryAt(wx, wy))
		}
	}
	p.cleanup()

	var ch store.Chunk
	for oy := 0; oy < coords.ChunkHeight; oy++ {
		for ox := 0; ox < coords.ChunkWidth; ox++ {
			wx := int(cc.X)*coords.ChunkWidth + ox
			wy := int(cc.Y)*coords.ChunkHeight + oy

			var t store.Tile
			switch p.at(ox, oy) {
			case categoryWater:
				t = store.TileWater
			case categoryDirt:
				t = store.TileDirt
			default:
				t = store.TileGrass
				if !g.withinSpawnClear(wx, wy) {
					roll := hash2(g.Seed+3, wx, wy) % 1000
					switch {
					case roll < g.RockPermille:
						t = store.TileRock
					case roll < g.RockPermille+g.FlowerPermille:
						t = store.TileFlower
					case roll < g.RockPermille+g.FlowerPermille+g.ShrubPermille:
						t = store.TileShrub
					}
				}
			}
			ch.Tiles[oy*coords.ChunkWidth+ox] = t
		}
	}
	return &ch
}
