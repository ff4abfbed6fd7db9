package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsRepository stores the single admin settings document.
type SettingsRepository interface {
	// GetSettings returns the stored document, or the shipped defaults when
	// nothing has been saved yet.
	GetSettings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) error
}

type settingsRepo struct {
	pool *pgxpool.Pool
}

// NewSettingsRepo creates a new SettingsRepository.
func NewSettingsRepo(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepo{pool: pool}
}

func (r *settingsRepo) GetSettings(ctx context.Context) (model.Settings, error) {
	const q = `SELECT doc FROM system_settings WHERE id = 1`
	var doc []byte
	if err := r.pool.QueryRow(ctx, q).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.DefaultSettings(), nil
		}
		return model.Settings{}, fmt.Errorf("fetching settings: %w", err)
	}
	var s model.Settings
	if err := json.Unmarshal(doc, &s); err != nil {
		return model.Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	return s, nil
}

func (r *settingsRepo) SaveSettings(ctx context.Context, s model.Settings) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	const q = `
        INSERT INTO system_settings (id, doc) VALUES (1, $1)
        ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()
    `
	if _, err := r.pool.Exec(ctx, q, doc); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
