package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ppiankov/bsdetector/internal/model"
)

// ListModelConfigs returns a user's provider configs
func (s *Store) ListModelConfigs(ctx context.Context, userID string) (model.ProviderConfigs, error) {
	rows, err := s.db.Query(ctx, `
		SELECT provider, model_id, api_key, base_url, enabled, persona
		FROM model_configs
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list model configs: %w", err)
	}
	defer rows.Close()

	configs := model.ProviderConfigs{}
	for rows.Next() {
		var cfg model.ProviderConfig
		var provider string
		if err := rows.Scan(&provider, &cfg.ModelID, &cfg.APIKey, &cfg.BaseURL, &cfg.Enabled, &cfg.Persona); err != nil {
			return nil, fmt.Errorf("failed to scan model config: %w", err)
		}

		id, err := model.ParseProvider(provider)
		if err != nil {
			// rows written by a newer client; ignore rather than fail the whole read
			continue
		}
		cfg.Provider = id
		configs[id] = cfg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate model configs: %w", err)
	}

	return configs, nil
}

// UpsertModelConfig writes a provider config keyed by user and provider
func (s *Store) UpsertModelConfig(ctx context.Context, userID string, cfg model.ProviderConfig) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO model_configs (user_id, provider, model_id, api_key, base_url, enabled, persona, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (user_id, provider) DO UPDATE SET
			model_id = EXCLUDED.model_id,
			api_key = EXCLUDED.api_key,
			base_url = EXCLUDED.base_url,
			enabled = EXCLUDED.enabled,
			persona = EXCLUDED.persona,
			updated_at = now()
	`, userID, string(cfg.Provider), cfg.ModelID, cfg.APIKey, cfg.BaseURL, cfg.Enabled, cfg.Persona)
	if err != nil {
		return fmt.Errorf("failed to upsert %s model config: %w", cfg.Provider, err)
	}
	return nil
}

// SelectedModel returns the user's selected model id; ok is false when none is stored
func (s *Store) SelectedModel(ctx context.Context, userID string) (string, bool, error) {
	var modelID string
	err := s.db.QueryRow(ctx, `SELECT model_id FROM model_selection WHERE user_id = $1`, userID).Scan(&modelID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get model selection: %w", err)
	}
	return modelID, true, nil
}

// SetSelectedModel writes the user's single model selection
func (s *Store) SetSelectedModel(ctx context.Context, userID, modelID string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO model_selection (user_id, model_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET model_id = EXCLUDED.model_id, updated_at = now()
	`, userID, modelID)
	if err != nil {
		return fmt.Errorf("failed to set model selection: %w", err)
	}
	return nil
}
