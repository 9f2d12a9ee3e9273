package store

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stockwatch/internal/models"
)

// ReleaseStore persists tracked products and their milestone latches. Sync
// upserts never touch notification flags; MarkNotified flips exactly one.
type ReleaseStore interface {
	Upsert(product *models.TrackedProduct) error
	List() ([]models.TrackedProduct, error)
	MarkNotified(productID string, milestone models.Milestone) error
}

type releaseStore struct {
	db *gorm.DB
}

// NewReleaseStore returns the MySQL-backed tracked-product repository.
func NewReleaseStore(db *gorm.DB) ReleaseStore {
	return &releaseStore{db: db}
}

func (s *releaseStore) Upsert(product *models.TrackedProduct) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"code", "name", "category", "released_at",
			"detail_url", "icon_url", "observed_at", "updated_at",
		}),
	}).Create(product).Error
	if err != nil {
		return fmt.Errorf("failed to upsert tracked product: %w", err)
	}
	return nil
}

func (s *releaseStore) List() ([]models.TrackedProduct, error) {
	var products []models.TrackedProduct
	if err := s.db.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list tracked products: %w", err)
	}
	return products, nil
}

func (s *releaseStore) MarkNotified(productID string, milestone models.Milestone) error {
	column, ok := milestoneColumns[milestone]
	if !ok {
		return fmt.Errorf("unknown milestone %q", milestone)
	}
	err := s.db.Model(&models.TrackedProduct{}).
		Where("product_id = ?", productID).
		Update(column, true).Error
	if err != nil {
		return fmt.Errorf("failed to mark milestone %s: %w", milestone, err)
	}
	return nil
}

var milestoneColumns = map[models.Milestone]string{
	models.MilestoneAnnouncement: "notified_announcement",
	models.MilestoneTMinus30:     "notified_t_minus_30",
	models.MilestoneTMinus14:     "notified_t_minus_14",
	models.MilestoneTMinus7:      "notified_t_minus_7",
	models.MilestoneTMinus1:      "notified_t_minus_1",
	models.MilestoneReleaseDay:   "notified_release_day",
}
