// Package httpcache keeps successful GET responses in an otter cache that can be
// persisted to disk between runs.
package httpcache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maypok86/otter/v2"
)

const cacheFile = "freetime-cache.gob"

// Entry is one cached response body.
type Entry struct {
	ExpiresAt time.Time
	ETag      string
	Data      []byte
}

// Store is an expiring response store. An empty dir keeps it in memory only.
type Store struct {
	cache  *otter.Cache[string, Entry]
	logger *slog.Logger
	dir    string
	ttl    time.Duration
	mu     sync.Mutex
}

// New creates a Store, loading any entries previously saved under dir.
func New(dir string, ttl time.Duration, logger *slog.Logger) (*Store, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl %v must be positive", ttl)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	s := &Store{
		cache: otter.Must(&otter.Options[string, Entry]{
			MaximumSize:      10_000,
			InitialCapacity:  64,
			ExpiryCalculator: otter.ExpiryWriting[string, Entry](ttl),
		}),
		dir:    dir,
		ttl:    ttl,
		logger: logger,
	}

	if dir != "" {
		if err := s.load(); err != nil {
			logger.Warn("failed to load cache from disk", "error", err)
		}
	}
	logger.Debug("cache initialized", "dir", dir, "entries_loaded", s.cache.EstimatedSize())
	return s, nil
}

func key(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])
}

// Get returns the cached body and ETag for url.
func (s *Store) Get(url string) (data []byte, etag string, ok bool) {
	k := key(url)
	entry, found := s.cache.GetIfPresent(k)
	if !found {
		s.logger.Debug("cache miss", "url", url)
		return nil, "", false
	}
	if time.Now().After(entry.ExpiresAt) {
		s.logger.Debug("cache miss", "url", url, "reason", "expired", "expired_at", entry.ExpiresAt)
		s.cache.Invalidate(k)
		return nil, "", false
	}
	return entry.Data, entry.ETag, true
}

// Set stores data for url until the store's ttl elapses.
func (s *Store) Set(url string, data []byte, etag string) {
	entry := Entry{Data: data, ETag: etag, ExpiresAt: time.Now().Add(s.ttl)}
	s.cache.Set(key(url), entry)
	s.logger.Debug("cache set", "url", url, "expires_at", entry.ExpiresAt, "size", len(data))
}

// Len returns the approximate number of cached entries.
func (s *Store) Len() int {
	return s.cache.EstimatedSize()
}

// Close writes the unexpired entries to disk. It is a no-op for memory-only stores.
func (s *Store) Close() error {
	if s.dir == "" {
		return nil
	}
	return s.save()
}

func (s *Store) load() error {
	path := filepath.Join(s.dir, cacheFile)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("opening cache file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Debug("failed to close cache file", "error", err)
		}
	}()

	var entries map[string]Entry
	if err := gob.NewDecoder(f).Decode(&entries); err != nil {
		return fmt.Errorf("decoding cache file: %w", err)
	}

	now := time.Now()
	valid := 0
	for k, e := range entries {
		if now.Before(e.ExpiresAt) {
			s.cache.Set(k, e)
			valid++
		}
	}
	s.logger.Debug("loaded cache from disk", "path", path, "total_entries", len(entries), "valid_entries", valid)
	return nil
}

func (s *Store) save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, cacheFile)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	defer func() {
		if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("failed to remove temp file", "error", err)
		}
	}()

	entries := make(map[string]Entry)
	now := time.Now()
	for k, e := range s.cache.All() {
		if now.Before(e.ExpiresAt) {
			entries[k] = e
		}
	}

	if err := gob.NewEncoder(f).Encode(entries); err != nil {
		_ = f.Close() //nolint:errcheck // the encode error is the one worth reporting
		return fmt.Errorf("encoding cache file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}

	s.logger.Debug("cache saved to disk", "entries", len(entries), "path", path)
	return nil
}
