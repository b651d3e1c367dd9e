package doccache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultBudgetBytes bounds total cache size when no budget is configured
	DefaultBudgetBytes int64 = 20 * 1024 * 1024

	// recordExt marks completed cache records; temp files use a
	// different suffix so a crashed write is never served or counted
	recordExt = ".json"

	// maxKeyFileLength is the longest encoded key kept verbatim.
	// Longer keys are truncated and suffixed with a hash of the
	// original to stay unique and filesystem-safe.
	maxKeyFileLength = 200
)

// Source identifies where a cached documentation page came from
type Source string

const (
	SourceMan  Source = "man"
	SourceTldr Source = "tldr"
)

// record is the JSON envelope written per cached page
type record struct {
	Key     string `json:"key"`
	Content string `json:"content"`
	Source  Source `json:"source"`
}

// Cache is a disk-backed documentation cache bounded by a byte budget.
// Each record is one file; the file's mtime doubles as its last-access
// time, so LRU ordering survives process restarts. Eviction runs
// asynchronously after Set and at most one pass at a time.
type Cache struct {
	dir    string
	budget int64
	logger *log.Logger
	lock   evictionLock
	wg     sync.WaitGroup
}

// New creates or opens a documentation cache rooted at dir. A budget of
// zero or less falls back to DefaultBudgetBytes.
func New(dir string, budgetBytes int64, logger *log.Logger) (*Cache, error) {
	if budgetBytes <= 0 {
		budgetBytes = DefaultBudgetBytes
	}
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{
		dir:    dir,
		budget: budgetBytes,
		logger: logger,
	}, nil
}

// Get returns the cached content and source for key. A hit refreshes the
// record's last-access time. Corrupt records are deleted and reported as
// a miss rather than an error.
func (c *Cache) Get(key string) (string, Source, bool) {
	path := c.recordPath(key)

	data, err := os.ReadFile(path)
	if err != nil {
		// An unreadable record would otherwise count against the budget
		// forever; treat it like a corrupt one
		if !os.IsNotExist(err) {
			c.logger.Printf("doccache: removing unreadable record %s: %v", filepath.Base(path), err)
			_ = os.Remove(path)
		}
		return "", "", false
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		c.logger.Printf("doccache: removing corrupt record %s: %v", filepath.Base(path), err)
		_ = os.Remove(path)
		return "", "", false
	}

	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		c.logger.Printf("doccache: touch %s: %v", filepath.Base(path), err)
	}

	return rec.Content, rec.Source, true
}

// Set writes the record atomically and triggers a best-effort eviction
// pass in the background. Set returns as soon as the record is durable;
// it never waits for eviction, and it skips triggering a pass when one
// is already running.
func (c *Cache) Set(key, content string, source Source) error {
	data, err := json.Marshal(record{Key: key, Content: content, Source: source})
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, "write-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close record: %w", err)
	}

	if err := os.Rename(tmpName, c.recordPath(key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("commit record: %w", err)
	}

	if c.lock.TryAcquire() {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			defer c.lock.Release()
			if err := c.enforceBudget(); err != nil {
				c.logger.Printf("doccache: eviction pass: %v", err)
			}
		}()
	}

	return nil
}

// enforceBudget deletes least-recently-accessed records until total
// stored bytes fit the budget. Records that vanish mid-pass were removed
// by someone else and are skipped.
func (c *Cache) enforceBudget() error {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}

	type fileInfo struct {
		path    string
		size    int64
		lastUse time.Time
	}

	var files []fileInfo
	var total int64
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), recordExt) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{
			path:    filepath.Join(c.dir, de.Name()),
			size:    info.Size(),
			lastUse: info.ModTime(),
		})
		total += info.Size()
	}

	if total <= c.budget {
		return nil
	}

	// Oldest-accessed first
	sort.Slice(files, func(i, j int) bool {
		return files[i].lastUse.Before(files[j].lastUse)
	})

	for _, f := range files {
		if total <= c.budget {
			break
		}
		if err := os.Remove(f.path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			c.logger.Printf("doccache: evict %s: %v", filepath.Base(f.path), err)
			continue
		}
		total -= f.size
	}

	return nil
}

// WaitForEviction blocks until any in-flight eviction pass finishes.
// Intended for shutdown and tests; normal callers never need it.
func (c *Cache) WaitForEviction() {
	c.wg.Wait()
}

// TotalBytes reports the bytes currently held by completed records
func (c *Cache) TotalBytes() (int64, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("read cache dir: %w", err)
	}

	var total int64
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), recordExt) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

func (c *Cache) recordPath(key string) string {
	return filepath.Join(c.dir, encodeKey(key)+recordExt)
}

// encodeKey turns an arbitrary command string into a filesystem-safe
// name. The encoding is reversible (URL path escaping) until the key
// would exceed maxKeyFileLength, at which point the tail is replaced by
// a hash of the original key to preserve uniqueness.
func encodeKey(key string) string {
	escaped := url.PathEscape(key)
	if len(escaped) <= maxKeyFileLength {
		return escaped
	}
	sum := sha256.Sum256([]byte(key))
	hash := hex.EncodeToString(sum[:])
	keep := maxKeyFileLength - len(hash) - 1
	return escaped[:keep] + "-" + hash
}
