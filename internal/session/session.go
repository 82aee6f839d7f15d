// Package session maps client identities to their persistent entities. A
// returning client presents the id it was given in an earlier welcome and
// gets its entity back where it left it; an unknown or absent id gets a
// freshly rolled entity.
package session

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/WiredSound/gemgame/internal/world/coords"
	"github.com/WiredSound/gemgame/internal/world/model"
)

// Store persists client/entity records in sqlite. Safe for concurrent use;
// the database is capped at a single connection so writers serialize there.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

func Open(path string, logger *log.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, logger: logger}, nil
}

func initPragmas(db *sql.DB) error {
	// WAL keeps lookups cheap while saves stream in on disconnects.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS client_entities (
			client_id TEXT PRIMARY KEY,
			entity_id TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			direction INTEGER NOT NULL,
			hair_style INTEGER NOT NULL,
			skin_colour INTEGER NOT NULL,
			hair_colour INTEGER NOT NULL,
			clothing_colour INTEGER NOT NULL,
			last_seen TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_client_entities_entity ON client_entities(entity_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LookupOrCreate resolves a handshake. A nil or unparseable presented id,
// or one with no record, yields a brand new client and entity. isNew
// reports whether the entity was created rather than restored.
func (s *Store) LookupOrCreate(presented *string) (cid model.ClientID, ent model.Entity, isNew bool, err error) {
	if presented != nil {
		parsed, perr := uuid.Parse(*presented)
		if perr == nil {
			ent, err = s.lookup(parsed)
			switch {
			case err == nil:
				return parsed, ent, false, nil
			case !errors.Is(err, sql.ErrNoRows):
				return uuid.Nil, model.Entity{}, false, err
			}
		}
	}

	cid = uuid.New()
	ent = NewEntity()
	if err := s.insert(cid, ent); err != nil {
		return uuid.Nil, model.Entity{}, false, err
	}
	return cid, ent, true, nil
}

func (s *Store) lookup(cid model.ClientID) (model.Entity, error) {
	row := s.db.QueryRow(
		`SELECT entity_id, x, y, direction, hair_style, skin_colour, hair_colour, clothing_colour
		 FROM client_entities WHERE client_id = ?`, cid.String())

	var (
		rawEntity                       string
		x, y                            int32
		dir, hair, skinC, hairC, clothC uint8
	)
	if err := row.Scan(&rawEntity, &x, &y, &dir, &hair, &skinC, &hairC, &clothC); err != nil {
		return model.Entity{}, err
	}
	eid, err := uuid.Parse(rawEntity)
	if err != nil {
		return model.Entity{}, fmt.Errorf("corrupt entity id for client %s: %w", cid, err)
	}
	return model.Entity{
		ID:             eid,
		Pos:            coords.TileCoords{X: x, Y: y},
		Direction:      model.Direction(dir),
		HairStyle:      model.HairStyle(hair),
		SkinColour:     model.Colour(skinC),
		HairColour:     model.Colour(hairC),
		ClothingColour: model.Colour(clothC),
	}, nil
}

func (s *Store) insert(cid model.ClientID, ent model.Entity) error {
	_, err := s.db.Exec(
		`INSERT INTO client_entities
		 (client_id, entity_id, x, y, direction, hair_style, skin_colour, hair_colour, clothing_colour, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cid.String(), ent.ID.String(), ent.Pos.X, ent.Pos.Y,
		uint8(ent.Direction), uint8(ent.HairStyle),
		uint8(ent.SkinColour), uint8(ent.HairColour), uint8(ent.ClothingColour),
		time.Now().UTC().Format(time.RFC3339))
	return err
}

// Save writes an entity's mutable state back to its client record. Called
// on disconnect, so failures are logged rather than surfaced to the
// connection.
func (s *Store) Save(cid model.ClientID, ent model.Entity) error {
	_, err := s.db.Exec(
		`UPDATE client_entities SET x = ?, y = ?, direction = ?, last_seen = ?
		 WHERE client_id = ?`,
		ent.Pos.X, ent.Pos.Y, uint8(ent.Direction),
		time.Now().UTC().Format(time.RFC3339), cid.String())
	if err != nil && s.logger != nil {
		s.logger.Printf("session save failed for client %s: %v", cid, err)
	}
	return err
}

// Touch refreshes a client's last-seen timestamp without changing its
// entity.
func (s *Store) Touch(cid model.ClientID) error {
	_, err := s.db.Exec(
		`UPDATE client_entities SET last_seen = ? WHERE client_id = ?`,
		time.Now().UTC().Format(time.RFC3339), cid.String())
	return err
}

// NewEntity rolls a fresh entity at the spawn point with a random
// appearance.
func NewEntity() model.Entity {
	return model.Entity{
		ID:             uuid.New(),
		Pos:            coords.TileCoords{},
		Direction:      model.DirectionDown,
		HairStyle:      model.HairStyle(rand.N(uint8(model.HairStyleCount))),
		SkinColour:     model.Colour(rand.N(uint8(model.ColourCount))),
		HairColour:     model.Colour(rand.N(uint8(model.ColourCount))),
		ClothingColour: model.Colour(rand.N(uint8(model.ColourCount))),
	}
}
