package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Config holds world and server settings shared by the binaries.
type Config struct {
	Seed        int64   `json:"seed"`
	ChunkSizeX  int     `json:"chunk_size_x"`
	ChunkSizeZ  int     `json:"chunk_size_z"`
	WorldHeight int     `json:"world_height"`
	BaseHeight  int     `json:"base_height"`
	Amplitude   float64 `json:"amplitude"`
	Workers     int     `json:"workers"`    // generation workers (0 = one per CPU)
	QueueSize   int     `json:"queue_size"` // pending generation jobs
	LoadRadius  int     `json:"load_radius"`
	DBPath      string  `json:"db_path"` // empty disables persistence
	ListenAddr  string  `json:"listen_addr"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Seed:        1337,
		ChunkSizeX:  16,
		ChunkSizeZ:  16,
		WorldHeight: 256,
		BaseHeight:  32,
		Amplitude:   32,
		QueueSize:   4096,
		LoadRadius:  4,
		ListenAddr:  ":8765",
	}
}

// Load reads a JSON config file. Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["seed"] {
		cfg.Seed = fromFile.Seed
	}
	if !explicitFlags["chunk-size-x"] {
		cfg.ChunkSizeX = fromFile.ChunkSizeX
	}
	if !explicitFlags["chunk-size-z"] {
		cfg.ChunkSizeZ = fromFile.ChunkSizeZ
	}
	if !explicitFlags["world-height"] {
		cfg.WorldHeight = fromFile.WorldHeight
	}
	if !explicitFlags["base-height"] {
		cfg.BaseHeight = fromFile.BaseHeight
	}
	if !explicitFlags["amplitude"] {
		cfg.Amplitude = fromFile.Amplitude
	}
	if !explicitFlags["workers"] {
		cfg.Workers = fromFile.Workers
	}
	if !explicitFlags["queue-size"] {
		cfg.QueueSize = fromFile.QueueSize
	}
	if !explicitFlags["load-radius"] {
		cfg.LoadRadius = fromFile.LoadRadius
	}
	if !explicitFlags["db"] {
		cfg.DBPath = fromFile.DBPath
	}
	if !explicitFlags["listen"] {
		cfg.ListenAddr = fromFile.ListenAddr
	}
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Validate checks the values a world cannot run without.
func (c *Config) Validate() error {
	switch {
	case c.ChunkSizeX < 1 || c.ChunkSizeZ < 1:
		return fmt.Errorf("%w: chunk size %dx%d", ErrInvalid, c.ChunkSizeX, c.ChunkSizeZ)
	case c.WorldHeight < 1:
		return fmt.Errorf("%w: world height %d", ErrInvalid, c.WorldHeight)
	case c.BaseHeight < 0 || c.BaseHeight >= c.WorldHeight:
		return fmt.Errorf("%w: base height %d outside [0,%d)", ErrInvalid, c.BaseHeight, c.WorldHeight)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers %d", ErrInvalid, c.Workers)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue size %d", ErrInvalid, c.QueueSize)
	case c.LoadRadius < 0:
		return fmt.Errorf("%w: load radius %d", ErrInvalid, c.LoadRadius)
	}
	return nil
}
