package protocol

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/WiredSound/gemgame/internal/world/coords"
	"github.com/WiredSound/gemgame/internal/world/model"
)

func TestClientRoundTrip(t *testing.T) {
	cid := uuid.NewString()
	msgs := []Message{
		&Hello{},
		&Hello{ClientID: &cid},
		&MoveMyEntity{RequestNumber: 7, Direction: uint8(model.DirectionLeft)},
		&RequestChunk{Coords: coords.ChunkCoords{X: -3, Y: 12}},
		&UnloadedChunk{Coords: coords.ChunkCoords{X: 0, Y: -1}},
	}
	for _, in := range msgs {
		b, err := Encode(in)
		if err != nil {
			t.Fatalf("encode %T: %v", in, err)
		}
		out, err := DecodeClient(b)
		if err != nil {
			t.Fatalf("decode %T: %v", in, err)
		}
		if out.Kind() != in.Kind() {
			t.Fatalf("kind mismatch: sent %d, got %d", in.Kind(), out.Kind())
		}
	}
}

func TestMoveRequestNumberSurvivesEncoding(t *testing.T) {
	b, err := Encode(&MoveMyEntity{RequestNumber: 0xDEADBEEF, Direction: uint8(model.DirectionUp)})
	if err != nil {
		t.Fatal(err)
	}
	out, err := DecodeClient(b)
	if err != nil {
		t.Fatal(err)
	}
	mv := out.(*MoveMyEntity)
	if mv.RequestNumber != 0xDEADBEEF {
		t.Fatalf("request number: got %d", mv.RequestNumber)
	}
}

func TestServerRejectsServerKindsFromClients(t *testing.T) {
	b, err := Encode(&Welcome{Version: Version, ClientID: uuid.NewString()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeClient(b); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := DecodeClient([]byte{0xc1, 0xff, 0x00}); !errors.Is(err, ErrBadEnvelope) {
		t.Fatalf("expected ErrBadEnvelope, got %v", err)
	}
}

func TestEntityPayload(t *testing.T) {
	id := uuid.New()
	e := model.Entity{
		ID:             id,
		Pos:            coords.TileCoords{X: 4, Y: -9},
		Direction:      model.DirectionRight,
		HairStyle:      model.HairMohawk,
		SkinColour:     3,
		HairColour:     1,
		ClothingColour: 5,
	}
	p := EntityPayload(e)
	if p.ID != id.String() || p.Pos != e.Pos || p.Direction != uint8(model.DirectionRight) {
		t.Fatalf("unexpected payload: %+v", p)
	}

	b, err := Encode(&ProvideEntity{Entity: p})
	if err != nil {
		t.Fatal(err)
	}
	out, err := DecodeServer(b)
	if err != nil {
		t.Fatal(err)
	}
	got := out.(*ProvideEntity).Entity
	if got != p {
		t.Fatalf("entity payload changed across the wire: %+v != %+v", got, p)
	}
}
