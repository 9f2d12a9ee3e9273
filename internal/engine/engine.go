// Package engine holds the in-memory decision engine that matches inventory
// events against interest-list entries.
package engine

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"stockwatch/internal/models"
)

// DecisionEngine indexes interest entries by product key and evaluates
// incoming events against them. The index is owned exclusively by the
// engine; the mutex makes Register, Unregister and Reset atomic with
// respect to Evaluate, since mutations arrive from the command surface
// while the dispatch goroutine evaluates.
type DecisionEngine struct {
	mu      sync.RWMutex
	entries map[string][]models.InterestEntry
}

// New returns an empty decision engine.
func New() *DecisionEngine {
	return &DecisionEngine{entries: make(map[string][]models.InterestEntry)}
}

// Register upserts an entry, keyed by (owner, product). An existing entry
// for the same owner and product is replaced in place, preserving its
// position in insertion order.
func (e *DecisionEngine) Register(entry models.InterestEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registerLocked(entry)
}

func (e *DecisionEngine) registerLocked(entry models.InterestEntry) {
	key := entry.ProductID
	bucket := e.entries[key]
	for i, existing := range bucket {
		if existing.OwnerID == entry.OwnerID {
			bucket[i] = entry
			return
		}
	}
	e.entries[key] = append(bucket, entry)
}

// Unregister removes the (owner, product) entry. The bucket is dropped
// entirely once empty. Returns false when no such entry existed.
func (e *DecisionEngine) Unregister(ownerID int64, productID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	bucket, ok := e.entries[productID]
	if !ok {
		return false
	}
	kept := bucket[:0]
	removed := false
	for _, entry := range bucket {
		if entry.OwnerID == ownerID {
			removed = true
			continue
		}
		kept = append(kept, entry)
	}
	if len(kept) == 0 {
		delete(e.entries, productID)
	} else {
		e.entries[productID] = kept
	}
	return removed
}

// Reset atomically replaces the whole index, used at startup and on reload.
func (e *DecisionEngine) Reset(entries []models.InterestEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.entries = make(map[string][]models.InterestEntry)
	for _, entry := range entries {
		e.registerLocked(entry)
	}
}

// Size reports the number of indexed entries across all buckets.
func (e *DecisionEngine) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	total := 0
	for _, bucket := range e.entries {
		total += len(bucket)
	}
	return total
}

// Evaluate matches an event against the index. Every matching entry yields
// an independent decision (fan-out, no dedupe); entries are checked in
// insertion order. Vendor allow-lists and max-price thresholds filter
// matches; a missing threshold means no constraint, and the price boundary
// is inclusive.
func (e *DecisionEngine) Evaluate(event models.Event) []models.Decision {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := event.Snapshot
	bucket := e.entries[snap.Key.ID]
	if len(bucket) == 0 {
		return nil
	}

	var decisions []models.Decision
	for _, entry := range bucket {
		if vendors := entry.VendorList(); len(vendors) > 0 && !containsVendor(vendors, snap.Vendor) {
			continue
		}
		if entry.MaxPrice != nil && snap.Price > *entry.MaxPrice {
			continue
		}
		decisions = append(decisions, models.Decision{
			ID:        uuid.NewString(),
			Event:     event,
			Entry:     entry,
			Action:    entry.Action,
			Rationale: fmt.Sprintf("Price %.2f within threshold", snap.Price),
		})
	}
	return decisions
}

func containsVendor(vendors []models.Vendor, vendor models.Vendor) bool {
	for _, v := range vendors {
		if v == vendor {
			return true
		}
	}
	return false
}
