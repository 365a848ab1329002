package services

import (
	"context"
	"sync"
)

// recordingCache is an in-memory ProfileCache that remembers invalidations
type recordingCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	generations map[string]int64
	invalidated []string
	skipped     int

	// beforeSet runs once, ahead of the next Set
	beforeSet func()
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: map[string][]byte{}, generations: map[string]int64{}}
}

func (c *recordingCache) Generation(_ context.Context, username string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[username]
}

func (c *recordingCache) Get(_ context.Context, username string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[username]
	return data, ok
}

func (c *recordingCache) Set(_ context.Context, username string, data []byte, generation int64) {
	if hook := c.beforeSet; hook != nil {
		c.beforeSet = nil
		hook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[username] != generation {
		c.skipped++
		return
	}
	c.entries[username] = data
}

func (c *recordingCache) Invalidate(_ context.Context, usernames ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range usernames {
		if u == "" {
			continue
		}
		c.generations[u]++
		delete(c.entries, u)
		c.invalidated = append(c.invalidated, u)
	}
}

// stubInspector marks the listed URLs premium
type stubInspector map[string]bool

func (s stubInspector) IsPremiumMedia(_ context.Context, mediaURL string) bool {
	return s[mediaURL]
}
