package sink

import (
	"fmt"
	"strings"
	"sync"

	"stockwatch/internal/models"
	"stockwatch/internal/store"
)

// Router resolves notification-grouping tags to delivery target mentions.
// The cache is rebuilt from the repository on Reload and on every mutation
// through the command surface.
type Router struct {
	mu     sync.RWMutex
	routes store.TagRouteStore
	cache  map[string]int64
}

// NewRouter builds a router over the tag-route repository.
func NewRouter(routes store.TagRouteStore) *Router {
	return &Router{routes: routes, cache: make(map[string]int64)}
}

// Reload replaces the cache from the repository.
func (r *Router) Reload() error {
	mappings, err := r.routes.List()
	if err != nil {
		return err
	}
	cache := make(map[string]int64, len(mappings))
	for _, m := range mappings {
		cache[strings.ToLower(m.Tag)] = m.TargetID
	}
	r.mu.Lock()
	r.cache = cache
	r.mu.Unlock()
	return nil
}

// Set upserts one route and updates the cache.
func (r *Router) Set(tag string, targetID int64) error {
	tag = strings.ToLower(tag)
	if err := r.routes.Upsert(&models.TagRoute{Tag: tag, TargetID: targetID}); err != nil {
		return err
	}
	r.mu.Lock()
	r.cache[tag] = targetID
	r.mu.Unlock()
	return nil
}

// Remove deletes one route. Returns false when the tag was not mapped.
func (r *Router) Remove(tag string) (bool, error) {
	tag = strings.ToLower(tag)
	removed, err := r.routes.Remove(tag)
	if err != nil {
		return false, err
	}
	if removed {
		r.mu.Lock()
		delete(r.cache, tag)
		r.mu.Unlock()
	}
	return removed, nil
}

// List returns the persisted routes.
func (r *Router) List() ([]models.TagRoute, error) {
	return r.routes.List()
}

// Mentions renders the mention string for the given tags, or "" when none
// of them are mapped.
func (r *Router) Mentions(tags []string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var mentions []string
	for _, tag := range tags {
		if targetID, ok := r.cache[strings.ToLower(tag)]; ok {
			mentions = append(mentions, fmt.Sprintf("<@&%d>", targetID))
		}
	}
	return strings.Join(mentions, " ")
}
