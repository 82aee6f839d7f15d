package session

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/WiredSound/gemgame/internal/world/coords"
	"github.com/WiredSound/gemgame/internal/world/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUnknownClientGetsFreshEntity(t *testing.T) {
	s := openTestStore(t)

	cid, ent, isNew, err := s.LookupOrCreate(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !isNew {
		t.Fatal("expected a new entity")
	}
	if cid == uuid.Nil || ent.ID == uuid.Nil {
		t.Fatal("ids not assigned")
	}
	if ent.Pos != (coords.TileCoords{}) {
		t.Fatalf("new entity should spawn at origin, got %v", ent.Pos)
	}
	if uint8(ent.HairStyle) >= model.HairStyleCount {
		t.Fatalf("hair style out of range: %d", ent.HairStyle)
	}
}

func TestReturningClientGetsSameEntity(t *testing.T) {
	s := openTestStore(t)

	cid, ent, _, err := s.LookupOrCreate(nil)
	if err != nil {
		t.Fatal(err)
	}

	ent.Pos = coords.TileCoords{X: 42, Y: -7}
	ent.Direction = model.DirectionLeft
	if err := s.Save(cid, ent); err != nil {
		t.Fatal(err)
	}

	presented := cid.String()
	cid2, ent2, isNew, err := s.LookupOrCreate(&presented)
	if err != nil {
		t.Fatal(err)
	}
	if isNew {
		t.Fatal("returning client should not get a new entity")
	}
	if cid2 != cid {
		t.Fatalf("client id changed: %s != %s", cid2, cid)
	}
	if ent2.ID != ent.ID || ent2.Pos != ent.Pos || ent2.Direction != ent.Direction {
		t.Fatalf("entity state not restored: %+v", ent2)
	}
	if ent2.HairStyle != ent.HairStyle || ent2.SkinColour != ent.SkinColour {
		t.Fatalf("appearance not restored: %+v", ent2)
	}
}

func TestGarbageClientIDFallsBackToNewSession(t *testing.T) {
	s := openTestStore(t)

	garbage := "not-a-uuid"
	_, _, isNew, err := s.LookupOrCreate(&garbage)
	if err != nil {
		t.Fatal(err)
	}
	if !isNew {
		t.Fatal("garbage id should be treated as a first visit")
	}

	// Well formed but unknown ids also fall through to a fresh record.
	unknown := uuid.NewString()
	_, _, isNew, err = s.LookupOrCreate(&unknown)
	if err != nil {
		t.Fatal(err)
	}
	if !isNew {
		t.Fatal("unknown id should be treated as a first visit")
	}
}
