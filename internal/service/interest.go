// Package service glues the command surface to the repositories and the
// decision engine.
package service

import (
	"strings"

	"stockwatch/internal/engine"
	"stockwatch/internal/models"
	"stockwatch/internal/store"
)

// InterestService keeps the durable interest list and the engine's
// in-memory index in step: every mutation hits the repository first, then
// the index.
type InterestService struct {
	store  store.InterestStore
	engine *engine.DecisionEngine
}

// NewInterestService builds the service.
func NewInterestService(st store.InterestStore, eng *engine.DecisionEngine) *InterestService {
	return &InterestService{store: st, engine: eng}
}

// Load replaces the engine index from the repository; called at startup.
func (s *InterestService) Load() error {
	entries, err := s.store.ListAll()
	if err != nil {
		return err
	}
	s.engine.Reset(entries)
	return nil
}

// AddOrUpdate upserts an entry for (owner, product), replacing any prior
// entry for the pair.
func (s *InterestService) AddOrUpdate(ownerID int64, productID string, maxPrice *float64, action models.ActionType, tags, vendors []string) (*models.InterestEntry, error) {
	entry := &models.InterestEntry{
		OwnerID:     ownerID,
		ProductID:   productID,
		ProductCode: productID,
		Finish:      "any",
		MaxPrice:    maxPrice,
		Action:      action,
		Tags:        models.JoinList(normalize(tags)),
		Vendors:     models.JoinList(normalize(vendors)),
	}
	if err := s.store.Upsert(entry); err != nil {
		return nil, err
	}
	s.engine.Register(*entry)
	return entry, nil
}

// Remove deletes the (owner, product) entry. Returns false, nil when no
// such entry existed; not-found is not an error.
func (s *InterestService) Remove(ownerID int64, productID string) (bool, error) {
	removed, err := s.store.Remove(ownerID, productID)
	if err != nil {
		return false, err
	}
	if removed {
		s.engine.Unregister(ownerID, productID)
	}
	return removed, nil
}

// ListFor returns one owner's entries.
func (s *InterestService) ListFor(ownerID int64) ([]models.InterestEntry, error) {
	return s.store.ListFor(ownerID)
}

func normalize(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
