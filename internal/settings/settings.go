// Package settings stores per-user theme preferences.
package settings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hugh/chronos/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Patch carries the fields a PUT may change. Nil fields keep their stored
// value, or the default on first write.
type Patch struct {
	ThemeNameLight *string
	ThemeNameDark  *string
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the user's settings, persisting the defaults on first access.
func (s *Store) Get(ctx context.Context, userID uuid.UUID) (*models.Settings, error) {
	db := s.db.WithContext(ctx)

	var row models.Settings
	err := db.Where("user_id = ?", userID).First(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	row = models.DefaultSettings(userID)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return nil, err
	}

	// A concurrent first access may have won the insert.
	if err := db.Where("user_id = ?", userID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Upsert creates or updates the user's settings in a single statement keyed
// by user id.
func (s *Store) Upsert(ctx context.Context, userID uuid.UUID, patch Patch) (*models.Settings, error) {
	db := s.db.WithContext(ctx)

	row := models.DefaultSettings(userID)
	var columns []string
	if patch.ThemeNameLight != nil {
		row.ThemeNameLight = *patch.ThemeNameLight
		columns = append(columns, "theme_name_light")
	}
	if patch.ThemeNameDark != nil {
		row.ThemeNameDark = *patch.ThemeNameDark
		columns = append(columns, "theme_name_dark")
	}

	conflict := clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}}
	if len(columns) == 0 {
		conflict.DoNothing = true
	} else {
		conflict.DoUpdates = clause.AssignmentColumns(append(columns, "updated_at"))
	}

	if err := db.Clauses(conflict).Create(&row).Error; err != nil {
		return nil, err
	}

	var stored models.Settings
	if err := db.Where("user_id = ?", userID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}
