package store

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stockwatch/internal/models"
)

// InterestStore is the durable home of interest-list entries, unique per
// (owner, product).
type InterestStore interface {
	Upsert(entry *models.InterestEntry) error
	Remove(ownerID int64, productID string) (bool, error)
	ListFor(ownerID int64) ([]models.InterestEntry, error)
	ListAll() ([]models.InterestEntry, error)
}

type interestStore struct {
	db *gorm.DB
}

// NewInterestStore returns the MySQL-backed interest repository.
func NewInterestStore(db *gorm.DB) InterestStore {
	return &interestStore{db: db}
}

func (s *interestStore) Upsert(entry *models.InterestEntry) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}, {Name: "product_id"}},
		// deleted_at is assigned too so re-adding a removed pair revives
		// the soft-deleted row instead of leaving it invisible.
		DoUpdates: clause.AssignmentColumns([]string{
			"product_code", "finish", "collector_num", "set_code", "vendor_sku",
			"max_price", "action", "tags", "vendors", "updated_at", "deleted_at",
		}),
	}).Create(entry).Error
	if err != nil {
		return fmt.Errorf("failed to upsert interest entry: %w", err)
	}
	return nil
}

func (s *interestStore) Remove(ownerID int64, productID string) (bool, error) {
	result := s.db.
		Where("owner_id = ? AND product_id = ?", ownerID, productID).
		Delete(&models.InterestEntry{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to remove interest entry: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *interestStore) ListFor(ownerID int64) ([]models.InterestEntry, error) {
	var entries []models.InterestEntry
	err := s.db.
		Where("owner_id = ?", ownerID).
		Order("product_id").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list interest entries: %w", err)
	}
	return entries, nil
}

func (s *interestStore) ListAll() ([]models.InterestEntry, error) {
	var entries []models.InterestEntry
	if err := s.db.Order("id").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list interest entries: %w", err)
	}
	return entries, nil
}
