package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/WiredSound/gemgame/internal/config"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := config.Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("move_interval_ms: 90\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tun, err := config.Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if tun.MoveInterval() != 90*time.Millisecond {
		t.Fatalf("move interval %v", tun.MoveInterval())
	}
	// Unset keys keep their defaults.
	if tun.HubBuffer != config.Defaults().HubBuffer {
		t.Fatalf("hub buffer %d", tun.HubBuffer)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("move_interval_ms: -5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(p); err == nil {
		t.Fatal("negative interval accepted")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	tun, err := config.LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if tun != config.Defaults() {
		t.Fatalf("got %+v", tun)
	}
}

// The shipped tuning.yaml must satisfy its schema and the loader.
func TestShippedTuningMatchesSchema(t *testing.T) {
	schema, err := jsonschema.Compile(filepath.Join("..", "..", "configs", "tuning.schema.json"))
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join("..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	// Round-trip through JSON so numbers take the types the validator
	// expects.
	j, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	var v any
	if err := json.Unmarshal(j, &v); err != nil {
		t.Fatal(err)
	}
	if err := schema.Validate(v); err != nil {
		t.Fatalf("shipped tuning.yaml violates schema: %v", err)
	}

	if _, err := config.Load(filepath.Join("..", "..", "configs", "tuning.yaml")); err != nil {
		t.Fatalf("shipped tuning.yaml fails to load: %v", err)
	}
}
