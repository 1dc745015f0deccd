package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheCorrupted is returned when a stored entry cannot be decoded.
	ErrCacheCorrupted = errors.New("cache data corrupted")
)

// Level identifies a cache tier.
type Level int

const (
	LevelMemory Level = iota
	LevelDisk
)

func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "memory"
	case LevelDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Stats holds counters for one tier.
type Stats struct {
	Capacity  int64
	Size      int64
	ItemCount int64
	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64
	LastEvict time.Time
}

func (s *Stats) updateHitRate() {
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
}

// Config configures a Manager.
type Config struct {
	Enabled          bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir              string        `yaml:"dir" mapstructure:"dir"`
	MemoryCapacity   int64         `yaml:"memory_capacity" mapstructure:"memory_capacity"`
	DiskCapacity     int64         `yaml:"disk_capacity" mapstructure:"disk_capacity"`
	CompressionLevel int           `yaml:"compression_level" mapstructure:"compression_level"`
	TTL              time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// DefaultConfig returns the cache defaults. Dir is filled in by the caller.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		MemoryCapacity:   64 * 1024 * 1024,
		DiskCapacity:     1024 * 1024 * 1024,
		CompressionLevel: 3,
		TTL:              30 * 24 * time.Hour,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MemoryCapacity <= 0 {
		return fmt.Errorf("memory capacity must be positive, got %d", c.MemoryCapacity)
	}
	if c.DiskCapacity < 0 {
		return fmt.Errorf("disk capacity must not be negative, got %d", c.DiskCapacity)
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 22 {
		return fmt.Errorf("compression level must be between 0 and 22, got %d", c.CompressionLevel)
	}
	if c.TTL < 0 {
		return fmt.Errorf("ttl must not be negative, got %s", c.TTL)
	}
	return nil
}

// Key identifies one synthesized chunk.
type Key struct {
	Text  string
	Voice string
	Model string
	Speed float64
}

// String returns a stable hex digest of the key. Voice and model are
// case-insensitive; surrounding whitespace in the text is ignored.
func (k Key) String() string {
	data := fmt.Sprintf("%s|%s|%.2f|%s",
		strings.ToLower(k.Voice), strings.ToLower(k.Model), k.Speed, strings.TrimSpace(k.Text))
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}

// Cache is the byte store used by the synthesizer.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Delete(key string) error
	Clear() error
	Size() int64
}
