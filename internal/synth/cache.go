package synth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"dubber/internal/audio"
)

// Key is the content address of a synthesized clip.
type Key string

// KeyFor derives the cache key for text rendered by voiceID.
func KeyFor(voiceID, text string) Key {
	h := sha256.New()
	h.Write([]byte(voiceID))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return Key(hex.EncodeToString(h.Sum(nil)))
}

// Cache stores synthesized clips. Get returns an independent copy so callers
// may modify it. Writes are idempotent per key, so concurrent Puts of the same
// key need no coordination.
type Cache interface {
	Get(ctx context.Context, key Key) (audio.Clip, bool, error)
	Put(ctx context.Context, key Key, clip audio.Clip) error
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, Key) (audio.Clip, bool, error) { return audio.Clip{}, false, nil }

func (NoopCache) Put(context.Context, Key, audio.Clip) error { return nil }

// MemoryCache is an in-process cache, used for tests and one-shot runs.
type MemoryCache struct {
	mu    sync.Mutex
	clips map[Key]audio.Clip
}

// NewMemoryCache constructs an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{clips: make(map[Key]audio.Clip)}
}

func (m *MemoryCache) Get(_ context.Context, key Key) (audio.Clip, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clip, ok := m.clips[key]
	return clip.Clone(), ok, nil
}

func (m *MemoryCache) Put(_ context.Context, key Key, clip audio.Clip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clips[key] = clip.Clone()
	return nil
}

// Len returns the number of stored clips.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clips)
}
