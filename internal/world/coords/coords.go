package coords

import "fmt"

// Chunks are fixed 16x16 squares of tiles.
const (
	ChunkWidth     = 16
	ChunkHeight    = 16
	ChunkTileCount = ChunkWidth * ChunkHeight
)

// TileCoords address a single tile on the (unbounded) map.
type TileCoords struct {
	X int32 `msgpack:"x"`
	Y int32 `msgpack:"y"`
}

func (tc TileCoords) String() string {
	return fmt.Sprintf("tile (%d, %d)", tc.X, tc.Y)
}

// ToChunkCoords identifies the chunk containing this tile. Division floors
// toward negative infinity so negative coordinates land in the right chunk.
func (tc TileCoords) ToChunkCoords() ChunkCoords {
	return ChunkCoords{
		X: int32(floorDiv(int(tc.X), ChunkWidth)),
		Y: int32(floorDiv(int(tc.Y), ChunkHeight)),
	}
}

// ToOffsetCoords identifies where within its chunk this tile sits.
func (tc TileCoords) ToOffsetCoords() OffsetCoords {
	return OffsetCoords{
		X: uint8(mod(int(tc.X), ChunkWidth)),
		Y: uint8(mod(int(tc.Y), ChunkHeight)),
	}
}

// Translated returns the tile dx/dy away from this one.
func (tc TileCoords) Translated(dx, dy int32) TileCoords {
	return TileCoords{X: tc.X + dx, Y: tc.Y + dy}
}

// ChunkCoords address a whole chunk.
type ChunkCoords struct {
	X int32 `msgpack:"x"`
	Y int32 `msgpack:"y"`
}

func (cc ChunkCoords) String() string {
	return fmt.Sprintf("chunk (%d, %d)", cc.X, cc.Y)
}

// OffsetCoords address a tile within a chunk. Always in [0, 16).
type OffsetCoords struct {
	X uint8
	Y uint8
}

// Index maps offset coordinates into a chunk's flat tile array. Clamped so
// that out-of-range offsets cannot index past the end.
func (oc OffsetCoords) Index() int {
	i := int(oc.Y)*ChunkWidth + int(oc.X)
	if i >= ChunkTileCount {
		return ChunkTileCount - 1
	}
	return i
}

func floorDiv(a, b int) int {
	// b > 0
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

func mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
