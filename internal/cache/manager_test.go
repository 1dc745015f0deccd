package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testConfig(dir string) Config {
	cfg := DefaultConfig()
	cfg.Dir = dir
	cfg.MemoryCapacity = 1 << 20
	cfg.DiskCapacity = 4 << 20
	return cfg
}

// speech returns compressible sample-like data.
func speech(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i % 16)
	}
	return out
}

func TestManagerPersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	key := Key{Text: "The court finds.", Voice: "Tara", Model: "orpheus-tts", Speed: 1}.String()
	value := speech(8192)

	m, err := NewManager(testConfig(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.Put(key, value); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, indexFile)); err != nil {
		t.Fatalf("index not written: %v", err)
	}

	m2, err := NewManager(testConfig(dir))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer m2.Close()

	got, ok := m2.Get(key)
	if !ok {
		t.Fatal("expected disk hit after restart")
	}
	if !bytes.Equal(got, value) {
		t.Error("round-tripped value differs")
	}

	stats := m2.Stats()
	if stats.DiskHits != 1 {
		t.Errorf("DiskHits = %d, want 1", stats.DiskHits)
	}

	// Promoted to memory.
	if _, ok := m2.Get(key); !ok {
		t.Fatal("expected hit")
	}
	if stats := m2.Stats(); stats.MemoryHits != 1 {
		t.Errorf("MemoryHits = %d, want 1", stats.MemoryHits)
	}
}

func TestDiskCacheCompresses(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}
	defer dc.Close()

	if err := dc.Put("k", speech(64*1024)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if dc.Size() >= 64*1024 {
		t.Errorf("stored size %d not smaller than input", dc.Size())
	}

	if err := dc.Put("small", []byte("tiny")); err != nil {
		t.Fatalf("Put small: %v", err)
	}
	if dc.index["small"].Compressed {
		t.Error("small entries should be stored uncompressed")
	}
}

func TestDiskCacheEviction(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 300, 0)
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}
	defer dc.Close()

	_ = dc.Put("old", make([]byte, 100))
	time.Sleep(5 * time.Millisecond)
	_ = dc.Put("mid", make([]byte, 100))
	time.Sleep(5 * time.Millisecond)
	_ = dc.Put("new", make([]byte, 100))
	_ = dc.Put("newest", make([]byte, 100))

	if _, ok := dc.Get("old"); ok {
		t.Error("expected oldest entry to be evicted")
	}
	if _, ok := dc.Get("newest"); !ok {
		t.Error("expected newest entry present")
	}
	if dc.Stats().Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", dc.Stats().Evictions)
	}
}

func TestDiskCacheCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}
	defer dc.Close()

	_ = dc.Put("k", speech(4096))
	if err := os.WriteFile(filepath.Join(dir, "k.cache"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := dc.Get("k"); ok {
		t.Error("expected corrupt entry to miss")
	}
	if dc.Size() != 0 {
		t.Errorf("Size after dropping corrupt entry = %d, want 0", dc.Size())
	}
}

func TestDiskCachePrune(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, 0)
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}
	defer dc.Close()

	_ = dc.Put("a", []byte("a"))
	_ = dc.Put("b", []byte("b"))
	if n := dc.Prune(time.Now().Add(time.Minute)); n != 2 {
		t.Errorf("Prune removed %d, want 2", n)
	}
	if n := dc.Prune(time.Now()); n != 0 {
		t.Errorf("second Prune removed %d, want 0", n)
	}
}

func TestManagerMemoryOnly(t *testing.T) {
	cfg := testConfig("")
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	if err := m.Put("k", []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok := m.Get("k"); !ok {
		t.Error("expected memory hit")
	}
	if m.Size() != 1 {
		t.Errorf("Size = %d, want 1", m.Size())
	}
}

func TestKeyString(t *testing.T) {
	a := Key{Text: "The court finds.", Voice: "Tara", Model: "orpheus-tts", Speed: 1}
	b := Key{Text: "  The court finds.\n", Voice: "tara", Model: "Orpheus-TTS", Speed: 1.001}
	if a.String() != b.String() {
		t.Error("expected keys differing only in case, whitespace and speed rounding to match")
	}

	c := a
	c.Voice = "Leo"
	if a.String() == c.String() {
		t.Error("expected different voices to produce different keys")
	}
	if len(a.String()) != 32 {
		t.Errorf("key length = %d, want 32 hex chars", len(a.String()))
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"disabled ignores limits", func(c *Config) { c.Enabled = false; c.MemoryCapacity = 0 }, false},
		{"zero memory", func(c *Config) { c.MemoryCapacity = 0 }, true},
		{"compression too high", func(c *Config) { c.CompressionLevel = 23 }, true},
		{"negative ttl", func(c *Config) { c.TTL = -time.Hour }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
