// Package analysiscache persists per-file measurement records keyed by a
// content fingerprint, so unchanged files skip re-analysis on later runs.
package analysiscache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"audioqc/internal/logging"
	"audioqc/internal/metrics"
	"audioqc/internal/safeio"
)

// Version is bumped whenever the record layout or the extraction semantics
// change; a stored document with any other version is discarded wholesale.
const Version = 1

const lockTimeout = 10 * time.Second

// Entry pairs the fingerprint that validated a record with the record.
type Entry struct {
	Fingerprint Fingerprint         `json:"fingerprint"`
	Metrics     metrics.FileMetrics `json:"metrics"`
}

// Cache is the on-disk analysis cache document.
type Cache struct {
	Version int              `json:"version"`
	Entries map[string]Entry `json:"entries"`
}

// New returns an empty cache at the current version.
func New() *Cache {
	return &Cache{Version: Version, Entries: make(map[string]Entry)}
}

// Load reads the cache document at path. Every failure mode degrades to an
// empty cache: a missing file silently, unreadable or corrupt storage and
// version mismatches with a warning. A cache problem must never abort a run.
func Load(path string, log *slog.Logger) *Cache {
	if log == nil {
		log = logging.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("cache unreadable, starting empty",
				logging.String("path", path), logging.Error(err))
		}
		return New()
	}

	var cache Cache
	if err := json.Unmarshal(data, &cache); err != nil {
		log.Warn("cache corrupt, starting empty",
			logging.String("path", path), logging.Error(err))
		return New()
	}
	if cache.Version != Version {
		log.Warn("cache version mismatch, discarding",
			logging.String("path", path),
			logging.Int("found", cache.Version),
			logging.Int("want", Version))
		return New()
	}
	if cache.Entries == nil {
		cache.Entries = make(map[string]Entry)
	}
	return &cache
}

// Save persists the document atomically.
func (c *Cache) Save(path string, safeMode bool) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := safeio.AtomicWriteFile(path, data, safeMode); err != nil {
		return fmt.Errorf("write cache %s: %w", path, err)
	}
	return nil
}

// Lookup returns the cached record for path if all three fingerprint
// components match. The returned copy is flagged as a hit and its
// processing time zeroed, since no work was done for it this run.
func (c *Cache) Lookup(path string, fp Fingerprint) (metrics.FileMetrics, bool) {
	entry, ok := c.Entries[cacheKey(path)]
	if !ok {
		return metrics.FileMetrics{}, false
	}
	if entry.Fingerprint.MtimeUnixSecs != fp.MtimeUnixSecs ||
		entry.Fingerprint.FileSizeBytes != fp.FileSizeBytes ||
		entry.Fingerprint.ContentSha256 != fp.ContentSha256 {
		return metrics.FileMetrics{}, false
	}
	record := entry.Metrics
	record.CacheHit = true
	record.ProcessingTimeMs = 0
	return record, true
}

// Upsert stores or replaces the record for path.
func (c *Cache) Upsert(path string, fp Fingerprint, record metrics.FileMetrics) {
	c.Entries[cacheKey(path)] = Entry{Fingerprint: fp, Metrics: record}
}

// Len reports the number of stored records.
func (c *Cache) Len() int { return len(c.Entries) }

// cacheKey canonicalizes path so the same file reached through different
// spellings shares one entry.
func cacheKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// AcquireLock takes an exclusive advisory lock guarding the cache file, so
// two concurrent runs cannot interleave load/merge/save cycles. The caller
// must invoke the returned release function.
func AcquireLock(cachePath string) (release func(), err error) {
	lockPath := cachePath + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("prepare cache directory: %w", err)
	}

	lock := flock.New(lockPath)
	deadline := time.Now().Add(lockTimeout)
	for {
		ok, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("lock cache %s: %w", lockPath, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("cache %s is locked by another run", cachePath)
		}
		time.Sleep(100 * time.Millisecond)
	}
	return func() { _ = lock.Unlock() }, nil
}
