package protocol

import (
	"github.com/WiredSound/gemgame/internal/world/coords"
	"github.com/WiredSound/gemgame/internal/world/model"
)

// Hello opens the handshake. ClientID carries the identity assigned by a
// previous welcome, if the client kept one.
type Hello struct {
	ClientID *string `msgpack:"cid"`
}

func (*Hello) Kind() Kind { return KindHello }

// MoveMyEntity asks the server to move the client's own entity one tile.
// RequestNumber is echoed in the response so the client can reconcile its
// local prediction.
type MoveMyEntity struct {
	RequestNumber uint32 `msgpack:"n"`
	Direction     uint8  `msgpack:"d"`
}

func (*MoveMyEntity) Kind() Kind { return KindMoveMyEntity }

// RequestChunk asks for a chunk entering the client's view. The server
// answers with ProvideChunk and adds the chunk to this connection's
// interest set.
type RequestChunk struct {
	Coords coords.ChunkCoords `msgpack:"c"`
}

func (*RequestChunk) Kind() Kind { return KindRequestChunk }

// UnloadedChunk tells the server a chunk left the client's view.
type UnloadedChunk struct {
	Coords coords.ChunkCoords `msgpack:"c"`
}

func (*UnloadedChunk) Kind() Kind { return KindUnloadedChunk }

// EntityData is the wire shape of an entity.
type EntityData struct {
	ID             string            `msgpack:"id"`
	Pos            coords.TileCoords `msgpack:"p"`
	Direction      uint8             `msgpack:"d"`
	HairStyle      uint8             `msgpack:"hs"`
	SkinColour     uint8             `msgpack:"sc"`
	HairColour     uint8             `msgpack:"hc"`
	ClothingColour uint8             `msgpack:"cc"`
}

func EntityPayload(e model.Entity) EntityData {
	return EntityData{
		ID:             e.ID.String(),
		Pos:            e.Pos,
		Direction:      uint8(e.Direction),
		HairStyle:      uint8(e.HairStyle),
		SkinColour:     uint8(e.SkinColour),
		HairColour:     uint8(e.HairColour),
		ClothingColour: uint8(e.ClothingColour),
	}
}

// Welcome completes the handshake: it confirms (or assigns) the client's
// identity and delivers its entity's current state.
type Welcome struct {
	Version  string     `msgpack:"v"`
	ClientID string     `msgpack:"cid"`
	Entity   EntityData `msgpack:"e"`
}

func (*Welcome) Kind() Kind { return KindWelcome }

// YourEntityMoved answers a MoveMyEntity request. NewPosition is the
// entity's authoritative position afterwards, which equals the old position
// when the move was illegal.
type YourEntityMoved struct {
	RequestNumber uint32            `msgpack:"n"`
	NewPosition   coords.TileCoords `msgpack:"p"`
}

func (*YourEntityMoved) Kind() Kind { return KindYourEntityMoved }

// EntityMoved reports another entity's movement inside the client's
// interest set.
type EntityMoved struct {
	EntityID    string            `msgpack:"id"`
	NewPosition coords.TileCoords `msgpack:"p"`
	Direction   uint8             `msgpack:"d"`
}

func (*EntityMoved) Kind() Kind { return KindEntityMoved }

// ProvideChunk delivers a full chunk snapshot: 256 tile ids in row-major
// order.
type ProvideChunk struct {
	Coords coords.ChunkCoords `msgpack:"c"`
	Tiles  []byte             `msgpack:"t"`
}

func (*ProvideChunk) Kind() Kind { return KindProvideChunk }

// ChangeTile reports a single tile mutation inside the interest set.
type ChangeTile struct {
	Pos  coords.TileCoords `msgpack:"p"`
	Tile uint8             `msgpack:"t"`
}

func (*ChangeTile) Kind() Kind { return KindChangeTile }

// ProvideEntity introduces an entity that entered the client's interest
// set.
type ProvideEntity struct {
	Entity EntityData `msgpack:"e"`
}

func (*ProvideEntity) Kind() Kind { return KindProvideEntity }

// ShouldUnloadEntity tells the client an entity left its interest set.
type ShouldUnloadEntity struct {
	EntityID string `msgpack:"id"`
}

func (*ShouldUnloadEntity) Kind() Kind { return KindShouldUnloadEntity }
