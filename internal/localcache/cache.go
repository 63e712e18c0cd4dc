package localcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"artcache/internal/logging"
	"artcache/internal/remote"
)

const (
	// DefaultCapacity is the number of artworks kept when none is configured.
	DefaultCapacity = 20
	// DefaultTTL is how long an entry is served when none is configured.
	DefaultTTL = 24 * time.Hour
)

// ErrNotFound is returned by Remove for an unknown hash.
var ErrNotFound = errors.New("localcache: entry not found")

// Entry is a cached artwork snapshot keyed by its fingerprint hash.
type Entry struct {
	Hash     string               `json:"hash"`
	Record   remote.ArtworkRecord `json:"record"`
	CachedAt time.Time            `json:"cached_at"`
}

// Cache is a bounded, TTL-limited recent-artwork cache.
type Cache struct {
	path     string
	capacity int
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
	fileLock *flock.Flock

	mu      sync.Mutex
	entries []Entry // most recent first
	loaded  fileStamp
}

// fileStamp identifies the version of the backing file last seen.
type fileStamp struct {
	modTime time.Time
	size    int64
}

func stampOf(info fs.FileInfo) fileStamp {
	if info == nil {
		return fileStamp{}
	}
	return fileStamp{modTime: info.ModTime(), size: info.Size()}
}

// Option configures a Cache.
type Option func(*Cache)

// WithCapacity overrides the maximum number of entries.
func WithCapacity(capacity int) Option {
	return func(c *Cache) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// WithTTL overrides how long entries are served.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a cache. An empty path keeps entries in memory only; a
// non-empty path is loaded immediately and created lazily on first write.
func New(path string, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		path:     strings.TrimSpace(path),
		capacity: DefaultCapacity,
		ttl:      DefaultTTL,
		now:      time.Now,
		logger:   logging.NewComponentLogger(logger, "localcache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.path == "" {
		return c
	}
	c.fileLock = flock.New(c.path + ".lock")

	entries, stamp, err := c.readLocked()
	c.loaded = stamp
	if err != nil {
		logging.WarnWithContext(c.logger, "failed to load local cache", "localcache_load_failed",
			logging.Error(err),
			logging.String("path", c.path),
			logging.String(logging.FieldErrorHint, "cache will start empty"),
			logging.String(logging.FieldImpact, "recently viewed artworks will be fetched again"),
		)
		return c
	}
	c.entries = c.bounded(entries)
	return c
}

// Path returns the backing file, or "" for a memory-only cache.
func (c *Cache) Path() string {
	return c.path
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Expired reports whether entry is past its TTL.
func (c *Cache) Expired(entry Entry) bool {
	return !c.now().Before(entry.CachedAt.Add(c.ttl))
}

// Lookup returns the entry for hash when present and not expired. Entries
// written by other processes are picked up once the file changes.
func (c *Cache) Lookup(hash string) (Entry, bool) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return Entry{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresh()

	for _, entry := range c.entries {
		if entry.Hash != hash {
			continue
		}
		if c.Expired(entry) {
			return Entry{}, false
		}
		return entry, true
	}
	return Entry{}, false
}

// Store records rec under hash as the most recent entry, evicting the oldest
// entries beyond capacity.
func (c *Cache) Store(hash string, rec remote.ArtworkRecord) error {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return errors.New("cache hash cannot be empty")
	}
	entry := Entry{Hash: hash, Record: rec, CachedAt: c.now().UTC()}

	err := c.mutate(func(entries []Entry) ([]Entry, error) {
		next := make([]Entry, 0, len(entries)+1)
		next = append(next, entry)
		for _, existing := range entries {
			if existing.Hash != hash {
				next = append(next, existing)
			}
		}
		return next, nil
	})
	if err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	c.logger.Debug("cached artwork",
		logging.String(logging.FieldCombinedHash, shortHash(hash)),
		logging.String(logging.FieldTitle, rec.Title),
		logging.String(logging.FieldArtist, rec.Artist),
	)
	return nil
}

// Remove deletes the entry for hash.
func (c *Cache) Remove(hash string) error {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return errors.New("cache hash cannot be empty")
	}
	return c.mutate(func(entries []Entry) ([]Entry, error) {
		next := make([]Entry, 0, len(entries))
		for _, existing := range entries {
			if existing.Hash != hash {
				next = append(next, existing)
			}
		}
		if len(next) == len(entries) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
		}
		return next, nil
	})
}

// Prune drops expired entries and returns how many were removed.
func (c *Cache) Prune() (int, error) {
	removed := 0
	err := c.mutate(func(entries []Entry) ([]Entry, error) {
		next := make([]Entry, 0, len(entries))
		for _, existing := range entries {
			if c.Expired(existing) {
				removed++
				continue
			}
			next = append(next, existing)
		}
		return next, nil
	})
	return removed, err
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	return c.mutate(func([]Entry) ([]Entry, error) {
		return nil, nil
	})
}

// List returns all entries, expired ones included, most recent first.
func (c *Cache) List() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresh()
	return append([]Entry(nil), c.entries...)
}

// Count returns the number of entries, expired ones included.
func (c *Cache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresh()
	return len(c.entries)
}

// mutate applies fn to the current entries and persists the result. With a
// backing file the on-disk state is re-read under the file lock first, so
// writes from other processes are kept.
func (c *Cache) mutate(fn func([]Entry) ([]Entry, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == "" {
		next, err := fn(c.entries)
		if err != nil {
			return err
		}
		c.entries = c.bounded(next)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	if err := c.fileLock.Lock(); err != nil {
		return fmt.Errorf("lock cache file: %w", err)
	}
	defer func() { _ = c.fileLock.Unlock() }()

	current, err := c.read()
	if err != nil {
		logging.WarnWithContext(c.logger, "discarding unreadable local cache", "localcache_load_failed",
			logging.Error(err),
			logging.String("path", c.path),
			logging.String(logging.FieldImpact, "cached entries written by other processes are dropped"),
		)
		current = c.entries
	}
	next, err := fn(c.bounded(current))
	if err != nil {
		return err
	}
	next = c.bounded(next)
	if err := c.write(next); err != nil {
		return err
	}
	c.entries = next
	if info, err := os.Stat(c.path); err == nil {
		c.loaded = stampOf(info)
	}
	return nil
}

// refresh reloads the entries when the backing file no longer matches the
// version last loaded or written. Callers hold c.mu.
func (c *Cache) refresh() {
	if c.path == "" {
		return
	}
	info, err := os.Stat(c.path)
	if err != nil || stampOf(info) == c.loaded {
		return
	}
	entries, stamp, err := c.readLocked()
	c.loaded = stamp
	if err != nil {
		c.logger.Debug("keeping in-memory cache; reload failed",
			logging.Error(err),
			logging.String("path", c.path),
		)
		return
	}
	c.entries = c.bounded(entries)
}

// readLocked loads the file under a shared lock and reports the version read.
func (c *Cache) readLocked() ([]Entry, fileStamp, error) {
	if _, err := os.Stat(filepath.Dir(c.path)); errors.Is(err, fs.ErrNotExist) {
		return nil, fileStamp{}, nil
	}
	if err := c.fileLock.RLock(); err != nil {
		return nil, fileStamp{}, fmt.Errorf("lock cache file: %w", err)
	}
	defer func() { _ = c.fileLock.Unlock() }()
	info, err := os.Stat(c.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fileStamp{}, fmt.Errorf("stat cache file: %w", err)
	}
	entries, err := c.read()
	return entries, stampOf(info), err
}

func (c *Cache) read() ([]Entry, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse cache file: %w", err)
	}
	return entries, nil
}

// write replaces the cache file atomically via a temp file.
func (c *Cache) write(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// bounded drops blank and duplicate hashes, keeping the first (most recent)
// occurrence, and truncates to capacity.
func (c *Cache) bounded(entries []Entry) []Entry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]Entry, 0, min(len(entries), c.capacity))
	for _, entry := range entries {
		hash := strings.TrimSpace(entry.Hash)
		if hash == "" {
			continue
		}
		if _, dup := seen[hash]; dup {
			continue
		}
		seen[hash] = struct{}{}
		out = append(out, entry)
		if len(out) == c.capacity {
			break
		}
	}
	return out
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
