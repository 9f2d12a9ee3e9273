package store

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stockwatch/internal/models"
)

// TagRouteStore persists tag to delivery-target mappings used when
// decorating decision batches.
type TagRouteStore interface {
	Upsert(route *models.TagRoute) error
	Remove(tag string) (bool, error)
	List() ([]models.TagRoute, error)
}

type tagRouteStore struct {
	db *gorm.DB
}

// NewTagRouteStore returns the MySQL-backed tag-route repository.
func NewTagRouteStore(db *gorm.DB) TagRouteStore {
	return &tagRouteStore{db: db}
}

func (s *tagRouteStore) Upsert(route *models.TagRoute) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tag"}},
		DoUpdates: clause.AssignmentColumns([]string{"target_id"}),
	}).Create(route).Error
	if err != nil {
		return fmt.Errorf("failed to upsert tag route: %w", err)
	}
	return nil
}

func (s *tagRouteStore) Remove(tag string) (bool, error) {
	result := s.db.Where("tag = ?", tag).Delete(&models.TagRoute{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to remove tag route: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *tagRouteStore) List() ([]models.TagRoute, error) {
	var routes []models.TagRoute
	if err := s.db.Order("tag").Find(&routes).Error; err != nil {
		return nil, fmt.Errorf("failed to list tag routes: %w", err)
	}
	return routes, nil
}
