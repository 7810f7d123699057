// Package settings provides database operations for persisted application state,
// such as when the last overdue scan ran.
//
// # Usage
//
//	repo := settings.NewRepository(db)
//	at, ok, err := repo.GetTime(entities.SettingKeyOverdueScanLastAt)
package settings

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/library/internal/entities"
)

// Repository handles all settings database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetSetting retrieves a setting by key.
func (r *Repository) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := r.db.Where("key = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// GetValue returns the stored value, or "" when the key has never been set.
func (r *Repository) GetValue(key string) (string, error) {
	setting, err := r.GetSetting(key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

// SetSetting creates or updates a setting in a single statement.
func (r *Repository) SetSetting(key, value string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entities.Setting{Key: key, Value: value}).Error
}

// SetTime stores a timestamp in RFC 3339 form.
func (r *Repository) SetTime(key string, t time.Time) error {
	return r.SetSetting(key, t.UTC().Format(time.RFC3339))
}

// GetTime reads a timestamp written by SetTime. ok is false when unset.
func (r *Repository) GetTime(key string) (t time.Time, ok bool, err error) {
	value, err := r.GetValue(key)
	if err != nil || value == "" {
		return time.Time{}, false, err
	}
	t, err = time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// DeleteSetting removes a setting by key.
func (r *Repository) DeleteSetting(key string) error {
	return r.db.Where("key = ?", key).Delete(&entities.Setting{}).Error
}
