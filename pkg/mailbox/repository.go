package mailbox

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNoConfig = errors.New("no delivery configuration")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Config{})
}

// Active returns the single configuration row.
func (r *Repository) Active(ctx context.Context) (*Config, error) {
	var cfg Config
	result := r.db.WithContext(ctx).Order("id ASC").First(&cfg)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNoConfig
	}
	return &cfg, result.Error
}

// Seed creates the configuration row when none exists, so the service
// always has something to edit.
func (r *Repository) Seed(ctx context.Context, defaults *Config) error {
	_, err := r.Active(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNoConfig) {
		return err
	}

	now := time.Now().UTC()
	defaults.CreatedAt = now
	defaults.UpdatedAt = now
	return r.db.WithContext(ctx).Create(defaults).Error
}

func (r *Repository) Save(ctx context.Context, cfg *Config) error {
	cfg.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(cfg).Error
}

func (r *Repository) TouchLastCheck(ctx context.Context, id uint) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&Config{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_check": now,
			"updated_at": now,
		}).Error
}
