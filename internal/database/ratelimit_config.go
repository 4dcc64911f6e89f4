package database

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/benvon/time-import/internal/models"
	"github.com/ulule/limiter/v3"
)

// RatelimitConfigRepository handles rate limit configuration in the database.
type RatelimitConfigRepository struct {
	db *DB
}

// NewRatelimitConfigRepository creates a new ratelimit config repository.
func NewRatelimitConfigRepository(db *DB) *RatelimitConfigRepository {
	return &RatelimitConfigRepository{db: db}
}

// Get retrieves the rate limit stored under key, or nil when none is stored.
func (r *RatelimitConfigRepository) Get(ctx context.Context, key string) (*models.RatelimitConfig, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT config_key, rate, created_at, updated_at
		FROM ratelimit_config WHERE config_key = $1
	`, key)
	c := &models.RatelimitConfig{}
	err := row.Scan(&c.ConfigKey, &c.Rate, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ratelimit config: %w", err)
	}
	return c, nil
}

// List returns every stored rate limit
func (r *RatelimitConfigRepository) List(ctx context.Context) ([]*models.RatelimitConfig, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT config_key, rate, created_at, updated_at
		FROM ratelimit_config ORDER BY config_key
	`)
	if err != nil {
		return nil, fmt.Errorf("list ratelimit config: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var configs []*models.RatelimitConfig
	for rows.Next() {
		c := &models.RatelimitConfig{}
		if err := rows.Scan(&c.ConfigKey, &c.Rate, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ratelimit config: %w", err)
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ratelimit config: %w", err)
	}
	return configs, nil
}

// Set upserts the rate limit for c.ConfigKey. Rate format: e.g. "5-S", "100-M".
func (r *RatelimitConfigRepository) Set(ctx context.Context, c *models.RatelimitConfig) error {
	key, rate, err := NormalizeRatelimit(c.ConfigKey, c.Rate)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO ratelimit_config (config_key, rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (config_key) DO UPDATE SET
			rate = EXCLUDED.rate,
			updated_at = EXCLUDED.updated_at
	`, key, rate, now, now)
	if err != nil {
		return fmt.Errorf("set ratelimit config: %w", err)
	}
	return nil
}

// NormalizeRatelimit trims and checks a key/rate pair before it is stored
func NormalizeRatelimit(key, rate string) (string, string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if !slices.Contains(models.RatelimitKeys, key) {
		return "", "", fmt.Errorf("unknown rate limit key %q (want one of %s)", key, strings.Join(models.RatelimitKeys, ", "))
	}
	rate = strings.ToUpper(strings.TrimSpace(rate))
	if rate == "" {
		return "", "", fmt.Errorf("rate cannot be empty")
	}
	if _, err := limiter.NewRateFromFormatted(rate); err != nil {
		return "", "", fmt.Errorf("invalid rate %q: %w", rate, err)
	}
	return key, rate, nil
}

// RatelimitGetter reads one stored rate limit
type RatelimitGetter interface {
	Get(ctx context.Context, key string) (*models.RatelimitConfig, error)
}

// ResolveRate returns the stored rate for key when one exists and parses, else fallback
func ResolveRate(ctx context.Context, repo RatelimitGetter, key, fallback string) string {
	if repo == nil {
		return fallback
	}
	cfg, err := repo.Get(ctx, key)
	if err != nil || cfg == nil || cfg.Rate == "" {
		return fallback
	}
	if _, err := limiter.NewRateFromFormatted(cfg.Rate); err != nil {
		return fallback
	}
	return cfg.Rate
}
