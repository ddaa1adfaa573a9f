package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/storyreel/storyreel/internal/models"
)

// GetVoicePresetBySlug retrieves a voice preset by its slug (e.g. "narrator_calm").
func (db *DB) GetVoicePresetBySlug(ctx context.Context, slug string) (*models.VoicePreset, error) {
	query := `
		SELECT id, slug, display_name, provider, voice_id, created_at, updated_at
		FROM voice_presets
		WHERE slug = $1
	`

	preset := &models.VoicePreset{}
	err := db.QueryRowContext(ctx, query, slug).Scan(
		&preset.ID, &preset.Slug, &preset.DisplayName, &preset.Provider,
		&preset.VoiceID, &preset.CreatedAt, &preset.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("voice preset not found: %s", slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voice preset by slug: %w", err)
	}

	return preset, nil
}

// ListVoicePresets returns all voice presets ordered by display name.
func (db *DB) ListVoicePresets(ctx context.Context) ([]models.VoicePreset, error) {
	query := `
		SELECT id, slug, display_name, provider, voice_id, created_at, updated_at
		FROM voice_presets
		ORDER BY display_name
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list voice presets: %w", err)
	}
	defer rows.Close()

	var presets []models.VoicePreset
	for rows.Next() {
		var p models.VoicePreset
		if err := rows.Scan(
			&p.ID, &p.Slug, &p.DisplayName, &p.Provider,
			&p.VoiceID, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan voice preset: %w", err)
		}
		presets = append(presets, p)
	}

	return presets, nil
}
