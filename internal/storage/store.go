// Package storage persists chunk snapshots in a SQLite database.
package storage

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"voxelmesh/internal/world"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// FormatVersion is bumped whenever the encoded snapshot layout changes.
const FormatVersion = 1

var (
	// ErrSeedMismatch is returned by Open when the database was written for another seed.
	ErrSeedMismatch = errors.New("storage: world seed mismatch")
	// ErrFormat is returned by Open for databases written by an incompatible version.
	ErrFormat = errors.New("storage: unsupported format version")
)

// ChunkModel is the database row of one chunk.
type ChunkModel struct {
	ID        string `gorm:"primaryKey"` // "X_Z"
	X, Z      int32  `gorm:"index:idx_pos"`
	Data      []byte // gob-encoded world.ChunkSnapshot
	Records   int
	UpdatedAt time.Time
}

// WorldMetadata stores global key/value facts about the world.
type WorldMetadata struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

// Store implements world.Persister on top of gorm.
type Store struct {
	DB   *gorm.DB
	path string
}

var _ world.Persister = (*Store)(nil)

// Open opens (or creates) the database at path, migrates it and binds it to seed.
func Open(path string, seed int64) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&ChunkModel{}, &WorldMetadata{}); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	s := &Store{DB: db, path: path}
	if err := s.bind(seed); err != nil {
		s.Close()
		return nil, err
	}
	log.Printf("[Persistence] SQLite database opened: %s", path)
	return s, nil
}

func (s *Store) bind(seed int64) error {
	// The format is checked first: a seed stored by another format is meaningless.
	want := []WorldMetadata{
		{Key: "FormatVersion", Value: strconv.Itoa(FormatVersion)},
		{Key: "Seed", Value: strconv.FormatInt(seed, 10)},
	}
	for _, kv := range want {
		key, value := kv.Key, kv.Value
		var meta WorldMetadata
		err := s.DB.First(&meta, "key = ?", key).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := s.DB.Save(&WorldMetadata{Key: key, Value: value}).Error; err != nil {
				return fmt.Errorf("write %s: %w", key, err)
			}
		case err != nil:
			return fmt.Errorf("read %s: %w", key, err)
		case meta.Value != value && key == "Seed":
			return fmt.Errorf("%w: database has %s, want %s", ErrSeedMismatch, meta.Value, value)
		case meta.Value != value:
			return fmt.Errorf("%w: %s", ErrFormat, meta.Value)
		}
	}
	return nil
}

func chunkID(coord world.ChunkCoord) string {
	return fmt.Sprintf("%d_%d", coord.X, coord.Z)
}

// SaveChunk upserts the snapshot of one chunk.
func (s *Store) SaveChunk(snap *world.ChunkSnapshot) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		log.Printf("[Persistence] ERROR encoding chunk %v: %v", snap.Coord, err)
		return err
	}
	model := ChunkModel{
		ID:      chunkID(snap.Coord),
		X:       int32(snap.Coord.X),
		Z:       int32(snap.Coord.Z),
		Data:    buf.Bytes(),
		Records: len(snap.Cells),
	}
	if err := s.DB.Save(&model).Error; err != nil {
		log.Printf("[Persistence] ERROR saving chunk %s: %v", model.ID, err)
		return err
	}
	return nil
}

// LoadChunk returns the stored snapshot for coord. The boolean is false when none was saved.
func (s *Store) LoadChunk(coord world.ChunkCoord) (*world.ChunkSnapshot, bool, error) {
	var model ChunkModel
	err := s.DB.First(&model, "id = ?", chunkID(coord)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load chunk %v: %w", coord, err)
	}
	snap := &world.ChunkSnapshot{}
	if err := gob.NewDecoder(bytes.NewReader(model.Data)).Decode(snap); err != nil {
		return nil, false, fmt.Errorf("decode chunk %v: %w", coord, err)
	}
	return snap, true, nil
}

// SavedCoords lists every stored chunk coordinate.
func (s *Store) SavedCoords() ([]world.ChunkCoord, error) {
	var models []ChunkModel
	if err := s.DB.Select("x", "z").Order("x, z").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]world.ChunkCoord, len(models))
	for i, m := range models {
		out[i] = world.ChunkCoord{X: int(m.X), Z: int(m.Z)}
	}
	return out, nil
}

// Delete drops the stored snapshot of coord, if any.
func (s *Store) Delete(coord world.ChunkCoord) error {
	return s.DB.Delete(&ChunkModel{}, "id = ?", chunkID(coord)).Error
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
