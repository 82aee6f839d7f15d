// Package config loads gameplay tuning from tuning.yaml. Operational
// settings (addresses, paths, seed) stay on the command line; this file
// holds the numbers a game designer rather than an operator would touch.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	// MoveIntervalMs is the minimum time between two accepted moves of one
	// entity, the server-side speed cap.
	MoveIntervalMs int `yaml:"move_interval_ms" json:"move_interval_ms"`

	// HubBuffer is each connection's pending event capacity before old
	// events are dropped and the connection resyncs.
	HubBuffer int `yaml:"hub_buffer" json:"hub_buffer"`

	// FrameRatePerSec / FrameBurst bound inbound websocket frames per
	// connection.
	FrameRatePerSec float64 `yaml:"frame_rate_per_sec" json:"frame_rate_per_sec"`
	FrameBurst      int     `yaml:"frame_burst" json:"frame_burst"`

	// PersistChunks toggles writing mutated chunks to disk on unload.
	PersistChunks bool `yaml:"persist_chunks" json:"persist_chunks"`
}

func Defaults() Tuning {
	return Tuning{
		MoveIntervalMs:  150,
		HubBuffer:       64,
		FrameRatePerSec: 20,
		FrameBurst:      40,
		PersistChunks:   true,
	}
}

func (t Tuning) MoveInterval() time.Duration {
	return time.Duration(t.MoveIntervalMs) * time.Millisecond
}

func (t Tuning) Validate() error {
	if t.MoveIntervalMs <= 0 {
		return fmt.Errorf("move_interval_ms must be positive, got %d", t.MoveIntervalMs)
	}
	if t.HubBuffer <= 0 {
		return fmt.Errorf("hub_buffer must be positive, got %d", t.HubBuffer)
	}
	if t.FrameRatePerSec <= 0 || t.FrameBurst <= 0 {
		return fmt.Errorf("frame rate limits must be positive")
	}
	return nil
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// LoadOrDefault reads the tuning file if it exists and falls back to the
// defaults when it does not. Other errors still fail startup.
func LoadOrDefault(path string) (Tuning, error) {
	t, err := Load(path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	return t, err
}
