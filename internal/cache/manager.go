package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Manager layers a MemoryCache over an optional DiskCache. Disk hits are
// promoted to memory.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache

	mu    sync.Mutex
	stats ManagerStats
}

// ManagerStats aggregates both tiers.
type ManagerStats struct {
	Hits       int64
	Misses     int64
	MemoryHits int64
	DiskHits   int64
	Memory     Stats
	Disk       Stats
}

// NewManager builds a cache from cfg. An empty Dir or zero DiskCapacity
// gives a memory-only cache. Entries older than TTL are pruned on open.
func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	m := &Manager{memory: NewMemoryCache(cfg.MemoryCapacity)}
	if cfg.Dir != "" && cfg.DiskCapacity > 0 {
		disk, err := NewDiskCache(cfg.Dir, cfg.DiskCapacity, cfg.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk cache: %w", err)
		}
		if cfg.TTL > 0 {
			if n := disk.Prune(time.Now().Add(-cfg.TTL)); n > 0 {
				log.Debug("Pruned expired cache entries", "count", n, "dir", cfg.Dir)
			}
		}
		m.disk = disk
	}
	return m, nil
}

func (m *Manager) Get(key string) ([]byte, bool) {
	if data, ok := m.memory.Get(key); ok {
		m.record(LevelMemory, true)
		return data, true
	}
	if m.disk != nil {
		if data, ok := m.disk.Get(key); ok {
			m.record(LevelDisk, true)
			_ = m.memory.Put(key, data)
			return data, true
		}
	}
	m.record(LevelMemory, false)
	return nil, false
}

// Put stores value in every tier that can hold it.
func (m *Manager) Put(key string, value []byte) error {
	memErr := m.memory.Put(key, value)
	if memErr != nil && memErr != ErrItemTooLarge {
		return fmt.Errorf("memory cache: %w", memErr)
	}
	if m.disk == nil {
		return memErr
	}
	if err := m.disk.Put(key, value); err != nil {
		if err == ErrItemTooLarge && memErr == nil {
			return nil
		}
		return fmt.Errorf("disk cache: %w", err)
	}
	return nil
}

func (m *Manager) Delete(key string) error {
	_ = m.memory.Delete(key)
	if m.disk != nil {
		return m.disk.Delete(key)
	}
	return nil
}

func (m *Manager) Clear() error {
	_ = m.memory.Clear()
	if m.disk != nil {
		return m.disk.Clear()
	}
	return nil
}

// Size returns the bytes held on disk, or in memory for a memory-only cache.
func (m *Manager) Size() int64 {
	if m.disk != nil {
		return m.disk.Size()
	}
	return m.memory.Size()
}

func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	s := m.stats
	m.mu.Unlock()

	s.Memory = m.memory.Stats()
	if m.disk != nil {
		s.Disk = m.disk.Stats()
	}
	return s
}

// Close flushes the disk index.
func (m *Manager) Close() error {
	if m.disk == nil {
		return nil
	}
	if err := m.disk.Close(); err != nil {
		return fmt.Errorf("failed to close disk cache: %w", err)
	}
	return nil
}

func (m *Manager) record(level Level, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !hit {
		m.stats.Misses++
		return
	}
	m.stats.Hits++
	if level == LevelDisk {
		m.stats.DiskHits++
	} else {
		m.stats.MemoryHits++
	}
}
