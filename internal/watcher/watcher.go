// Package watcher contains the per-source polling contract and the
// snapshot-diffing algorithm shared by every source variant.
package watcher

import (
	"context"
	"math"
	"time"

	"stockwatch/internal/models"
)

// PriceEpsilon is the minimum absolute price movement that counts as a
// price change.
const PriceEpsilon = 0.01

// epsilonSlack absorbs float64 representation error so an exact one-cent
// move (10.00 -> 10.01 is a hair under 0.01 in binary) still counts.
const epsilonSlack = 1e-9

// Watcher is the common contract for inventory sources. Poll returns the
// next interesting event, or nil when the source is idle. Implementations
// own a private snapshot cache and are polled on their declared interval.
type Watcher interface {
	Vendor() models.Vendor
	Interval() time.Duration
	Poll(ctx context.Context) (*models.Event, error)
}

// tracker holds one watcher's last-seen snapshots and the events buffered
// from the current cycle. Events drain one at a time in fetch order.
type tracker struct {
	cache   map[string]models.Snapshot
	pending []models.Event
}

func newTracker() *tracker {
	return &tracker{cache: make(map[string]models.Snapshot)}
}

// observe diffs one fresh snapshot against the cache and buffers the
// resulting event, if any. The cache entry is replaced unconditionally so
// the next cycle diffs against the latest truth.
func (t *tracker) observe(snap models.Snapshot) {
	key := snap.Key.ID
	previous, seen := t.cache[key]
	t.cache[key] = snap

	if !seen {
		t.pending = append(t.pending, models.Event{
			Snapshot: snap,
			Type:     models.EventNewListing,
		})
		return
	}

	// Exclusive priority: a restock must not also fire as a generic
	// availability change, and availability beats price.
	prev := previous
	switch {
	case snap.Available && !prev.Available:
		t.pending = append(t.pending, models.Event{
			Snapshot: snap,
			Previous: &prev,
			Type:     models.EventRestock,
		})
	case snap.Available != prev.Available:
		t.pending = append(t.pending, models.Event{
			Snapshot: snap,
			Previous: &prev,
			Type:     models.EventAvailabilityChange,
		})
	case math.Abs(snap.Price-prev.Price) >= PriceEpsilon-epsilonSlack:
		delta := snap.Price - prev.Price
		t.pending = append(t.pending, models.Event{
			Snapshot:   snap,
			Previous:   &prev,
			Type:       models.EventPriceChange,
			DeltaPrice: &delta,
		})
	}
}

// next pops the oldest buffered event, or nil when the buffer is empty.
func (t *tracker) next() *models.Event {
	if len(t.pending) == 0 {
		return nil
	}
	event := t.pending[0]
	t.pending = t.pending[1:]
	return &event
}
