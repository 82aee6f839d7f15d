package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/WiredSound/gemgame/internal/world/coords"
)

// EntityID uniquely identifies a player avatar for the lifetime of its
// session record. Immutable once assigned.
type EntityID = uuid.UUID

// ClientID identifies a client across reconnects. Immutable once assigned.
type ClientID = uuid.UUID

type Direction uint8

const (
	DirectionDown Direction = iota
	DirectionUp
	DirectionLeft
	DirectionRight
)

func (d Direction) Valid() bool { return d <= DirectionRight }

// Offset is the single-tile translation this direction represents.
func (d Direction) Offset() (dx, dy int32) {
	switch d {
	case DirectionUp:
		return 0, 1
	case DirectionDown:
		return 0, -1
	case DirectionLeft:
		return -1, 0
	case DirectionRight:
		return 1, 0
	}
	return 0, 0
}

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	case DirectionLeft:
		return "left"
	case DirectionRight:
		return "right"
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

type HairStyle uint8

const (
	HairQuiff HairStyle = iota
	HairMohawk
	HairFringe
)

const HairStyleCount = 3

// Colour indexes into the client's palette for the attribute it describes.
type Colour uint8

const ColourCount = 8

// Entity is a player's in-world avatar. All fields except LastMoved persist
// across reconnects through the session store.
type Entity struct {
	ID  EntityID
	Pos coords.TileCoords

	Direction      Direction
	HairStyle      HairStyle
	SkinColour     Colour
	HairColour     Colour
	ClothingColour Colour

	// LastMoved drives the server-side movement speed cap.
	LastMoved time.Time
}

func (e *Entity) String() string {
	return fmt.Sprintf("entity %s at %v facing %v", e.ID, e.Pos, e.Direction)
}
