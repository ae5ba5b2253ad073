package synth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"dubber/internal/audio"
	"dubber/internal/fileutil"
	"dubber/internal/logging"
)

const (
	lockFileName   = ".lock"
	indexFileName  = "index.db"
	clipExtension  = ".wav"
	lockRetryDelay = 50 * time.Millisecond
)

// ErrCacheLocked is returned when another process holds the maintenance lock.
var ErrCacheLocked = errors.New("synthesis cache is locked by another process")

// FileCache stores clips as content-addressed WAV files under root, sharded
// by the first two characters of the key. An optional Index tracks hits.
type FileCache struct {
	root   string
	index  *Index
	logger *slog.Logger
}

// FileStats describes file cache usage.
type FileStats struct {
	Root       string    `json:"root"`
	Entries    int       `json:"entries"`
	TotalBytes int64     `json:"total_bytes"`
	Hits       int64     `json:"hits"`
	Indexed    bool      `json:"indexed"`
	Oldest     time.Time `json:"oldest,omitempty"`
	Newest     time.Time `json:"newest,omitempty"`
}

// PruneResult reports what a prune removed.
type PruneResult struct {
	Removed    int   `json:"removed"`
	FreedBytes int64 `json:"freed_bytes"`
	Remaining  int64 `json:"remaining_bytes"`
}

// NewFileCache creates root when missing. index may be nil.
func NewFileCache(root string, index *Index, logger *slog.Logger) (*FileCache, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("file cache: empty root")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("file cache: create root: %w", err)
	}
	return &FileCache{root: root, index: index, logger: logging.NewComponentLogger(logger, "tts-cache")}, nil
}

// OpenFileCache opens the cache at root together with its SQLite index when
// withIndex is set. The caller owns Close.
func OpenFileCache(ctx context.Context, root string, withIndex bool, logger *slog.Logger) (*FileCache, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("file cache: create root: %w", err)
	}
	var idx *Index
	if withIndex {
		var err error
		idx, err = OpenIndex(ctx, filepath.Join(root, indexFileName))
		if err != nil {
			return nil, err
		}
	}
	return NewFileCache(root, idx, logger)
}

// Root returns the cache directory.
func (c *FileCache) Root() string { return c.root }

// Close releases the index.
func (c *FileCache) Close() error {
	return c.index.Close()
}

func (c *FileCache) path(key Key) (string, error) {
	k := string(key)
	if len(k) < 3 || strings.ContainsAny(k, `/\.`) {
		return "", fmt.Errorf("file cache: invalid key %q", k)
	}
	return filepath.Join(c.root, k[:2], k+clipExtension), nil
}

// Get loads the clip for key. Unreadable files count as misses and are removed.
func (c *FileCache) Get(ctx context.Context, key Key) (audio.Clip, bool, error) {
	path, err := c.path(key)
	if err != nil {
		return audio.Clip{}, false, err
	}
	clip, err := audio.ReadWAVFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return audio.Clip{}, false, nil
		}
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "discarding unreadable cache entry", "tts_cache_corrupt",
			logging.String("cache_key", string(key)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the clip will be synthesized again"),
		)
		_ = fileutil.RemoveIfExists(path)
		c.unindex(ctx, key)
		return audio.Clip{}, false, nil
	}
	now := time.Now()
	_ = os.Chtimes(path, now, now)
	if c.index != nil {
		if err := c.index.Touch(ctx, key); err != nil {
			c.logger.Debug("cache index touch failed", logging.Error(err))
		}
	}
	return clip, true, nil
}

// Put writes clip under key, replacing any previous file atomically.
func (c *FileCache) Put(ctx context.Context, key Key, clip audio.Clip) error {
	path, err := c.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("file cache: create shard: %w", err)
	}
	err = fileutil.WriteAtomic(path, 0o644, func(f *os.File) error {
		return audio.WriteWAV(f, clip)
	})
	if err != nil {
		return fmt.Errorf("file cache: write %s: %w", key, err)
	}
	if c.index != nil {
		var size int64
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
		if err := c.index.Record(ctx, key, size, clip.Seconds(), clip.SampleRate); err != nil {
			c.logger.Debug("cache index record failed", logging.Error(err))
		}
	}
	return nil
}

type fileEntry struct {
	key     Key
	path    string
	size    int64
	modTime time.Time
}

func (c *FileCache) scan() ([]fileEntry, int64, error) {
	var (
		entries []fileEntry
		total   int64
	)
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != clipExtension || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		entries = append(entries, fileEntry{
			key:     Key(strings.TrimSuffix(d.Name(), clipExtension)),
			path:    path,
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		total += info.Size()
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("file cache: scan: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].modTime.Equal(entries[j].modTime) {
			return entries[i].key < entries[j].key
		}
		return entries[i].modTime.Before(entries[j].modTime)
	})
	return entries, total, nil
}

// Stats scans the cache directory.
func (c *FileCache) Stats(ctx context.Context) (FileStats, error) {
	entries, total, err := c.scan()
	if err != nil {
		return FileStats{}, err
	}
	stats := FileStats{Root: c.root, Entries: len(entries), TotalBytes: total, Indexed: c.index != nil}
	if len(entries) > 0 {
		stats.Oldest = entries[0].modTime
		stats.Newest = entries[len(entries)-1].modTime
	}
	if c.index != nil {
		hits, err := c.index.TotalHits(ctx)
		if err != nil {
			return FileStats{}, err
		}
		stats.Hits = hits
	}
	return stats, nil
}

// Prune removes least recently used clips until the cache fits in maxBytes.
func (c *FileCache) Prune(ctx context.Context, maxBytes int64) (PruneResult, error) {
	unlock, err := c.lock(ctx)
	if err != nil {
		return PruneResult{}, err
	}
	defer unlock()

	entries, total, err := c.scan()
	if err != nil {
		return PruneResult{}, err
	}
	var result PruneResult
	for _, entry := range entries {
		if total <= maxBytes {
			break
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := fileutil.RemoveIfExists(entry.path); err != nil {
			return result, fmt.Errorf("file cache: remove %s: %w", entry.key, err)
		}
		c.unindex(ctx, entry.key)
		total -= entry.size
		result.Removed++
		result.FreedBytes += entry.size
	}
	result.Remaining = total
	if result.Removed > 0 {
		c.logger.InfoContext(ctx, "pruned synthesis cache",
			logging.Int("removed", result.Removed),
			logging.Int64("freed_bytes", result.FreedBytes),
			logging.Int64("remaining_bytes", total),
		)
	}
	return result, nil
}

// Clear removes every cached clip and returns how many were deleted.
func (c *FileCache) Clear(ctx context.Context) (int, error) {
	unlock, err := c.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	entries, _, err := c.scan()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		if err := fileutil.RemoveIfExists(entry.path); err != nil {
			return removed, fmt.Errorf("file cache: remove %s: %w", entry.key, err)
		}
		removed++
	}
	if c.index != nil {
		if err := c.index.Clear(ctx); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func (c *FileCache) unindex(ctx context.Context, key Key) {
	if c.index == nil {
		return
	}
	if err := c.index.Remove(ctx, key); err != nil {
		c.logger.Debug("cache index remove failed", logging.Error(err))
	}
}

// lock takes the maintenance lock, waiting until ctx expires.
func (c *FileCache) lock(ctx context.Context) (func(), error) {
	fl := flock.New(filepath.Join(c.root, lockFileName))
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrCacheLocked, ctxErr)
		}
		return nil, fmt.Errorf("file cache: acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrCacheLocked
	}
	return func() { _ = fl.Unlock() }, nil
}
