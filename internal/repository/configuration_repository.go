package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/thpt-conduct-api/internal/models"
	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
)

// ConfigurationRepository persists typed settings rows.
type ConfigurationRepository struct {
	db *sqlx.DB
}

// NewConfigurationRepository constructs a new repository.
func NewConfigurationRepository(db *sqlx.DB) *ConfigurationRepository {
	return &ConfigurationRepository{db: db}
}

// Get returns a single configuration entry by key.
func (r *ConfigurationRepository) Get(ctx context.Context, key string) (*models.Configuration, error) {
	var cfg models.Configuration
	query := `SELECT key, value, type, updated_by, updated_at FROM configurations WHERE key = $1`
	if err := r.db.GetContext(ctx, &cfg, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("get configuration %s: %w", key, err)
	}
	return &cfg, nil
}

// Upsert writes or replaces a configuration entry.
func (r *ConfigurationRepository) Upsert(ctx context.Context, cfg *models.Configuration) error {
	cfg.UpdatedAt = time.Now().UTC()
	query := `INSERT INTO configurations (key, value, type, updated_by, updated_at)
VALUES (:key, :value, :type, :updated_by, :updated_at)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, type = EXCLUDED.type,
updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, cfg); err != nil {
		return fmt.Errorf("upsert configuration %s: %w", cfg.Key, err)
	}
	return nil
}
