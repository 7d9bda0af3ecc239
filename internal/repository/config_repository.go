package repository

import (
	"context"
	"errors"

	"bridge-backend/internal/models"

	"gorm.io/gorm"
)

// ConfigRepository is the persistent key→value store used for long-lived
// bridge configuration and the poll cursor. A missing key is a normal miss,
// never an error; each call is atomic only for its own key.
type ConfigRepository interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set upserts the key and returns the previous value, if any.
	Set(ctx context.Context, key, value string) (prev string, hadPrev bool, err error)
}

type configRepository struct {
	db *gorm.DB
}

// NewConfigRepository creates a new ConfigRepository instance
func NewConfigRepository(db *gorm.DB) ConfigRepository {
	return &configRepository{db: db}
}

func (r *configRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var row models.BridgeConfig
	err := r.db.WithContext(ctx).Where("config_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.ConfigValue, true, nil
}

func (r *configRepository) Set(ctx context.Context, key, value string) (string, bool, error) {
	var prev string
	var hadPrev bool

	// Single-key upsert inside one transaction so the returned previous value
	// matches the row that was actually replaced.
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.BridgeConfig
		err := tx.Where("config_key = ?", key).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&models.BridgeConfig{ConfigKey: key, ConfigValue: value}).Error
		case err != nil:
			return err
		default:
			prev = row.ConfigValue
			hadPrev = true
			return tx.Model(&models.BridgeConfig{}).
				Where("config_key = ?", key).
				Update("config_value", value).Error
		}
	})
	if err != nil {
		return "", false, err
	}
	return prev, hadPrev, nil
}
