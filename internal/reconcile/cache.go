package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/service"
)

// labelsKeySep joins sorted labels into a cache key component. A control
// character keeps labels containing ordinary punctuation collision-free.
const labelsKeySep = "\x1f"

// LabelsKey canonicalizes a sorted distinct label set for cache keying.
func LabelsKey(labels []string) string {
	return strings.Join(labels, labelsKeySep)
}

type cacheKey struct {
	name      string
	labelsKey string
}

// matchCache memoizes AI and embedding tier results: in-memory first, with
// best-effort write-through to persistent storage. Cache failures only ever
// cost a recomputation, never a reconciliation error.
type matchCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]Match
	store   service.Storage
}

func newMatchCache(store service.Storage) *matchCache {
	return &matchCache{
		entries: make(map[cacheKey]Match),
		store:   store,
	}
}

func (c *matchCache) get(ctx context.Context, name, labelsKey string) (Match, bool) {
	key := cacheKey{name: name, labelsKey: labelsKey}

	c.mu.RLock()
	m, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return m, true
	}

	if c.store == nil {
		return Match{}, false
	}
	cached, err := c.store.GetCachedMatch(ctx, name, labelsKey)
	if err != nil {
		slog.Warn("match cache read failed", "name", name, "error", err)
		return Match{}, false
	}
	if cached == nil {
		return Match{}, false
	}
	m = Match{
		Label:      cached.Label,
		Method:     model.MatchMethod(cached.Method),
		Confidence: cached.Confidence,
	}
	c.mu.Lock()
	c.entries[key] = m
	c.mu.Unlock()
	return m, true
}

func (c *matchCache) put(ctx context.Context, name, labelsKey string, m Match) {
	c.mu.Lock()
	c.entries[cacheKey{name: name, labelsKey: labelsKey}] = m
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	err := c.store.SaveCachedMatch(ctx, &service.CachedMatch{
		CreatedAt:  time.Now(),
		Name:       name,
		LabelsKey:  labelsKey,
		Label:      m.Label,
		Method:     string(m.Method),
		Confidence: m.Confidence,
	})
	if err != nil {
		slog.Warn("match cache write failed", "name", name, "error", err)
	}
}
