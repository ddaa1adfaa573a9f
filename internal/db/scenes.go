package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/storyreel/storyreel/internal/models"
)

func (db *DB) CreateScene(ctx context.Context, scene *models.Scene) error {
	query := `
		INSERT INTO scenes (
			id, project_id, scene_index, scene_number, narration_text,
			stock_query, duration_estimate_sec, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		scene.ID, scene.ProjectID, scene.SceneIndex, scene.SceneNumber,
		scene.NarrationText, scene.StockQuery, scene.DurationEstimateSec,
		scene.Status,
	).Scan(&scene.CreatedAt, &scene.UpdatedAt)
}

func (db *DB) GetScene(ctx context.Context, id uuid.UUID) (*models.Scene, error) {
	query := `
		SELECT
			id, project_id, scene_index, scene_number, narration_text,
			stock_query, duration_estimate_sec, status,
			audio_asset_id, video_asset_id, audio_duration_ms,
			error_message, created_at, updated_at
		FROM scenes
		WHERE id = $1
	`

	scene := &models.Scene{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&scene.ID, &scene.ProjectID, &scene.SceneIndex, &scene.SceneNumber,
		&scene.NarrationText, &scene.StockQuery, &scene.DurationEstimateSec,
		&scene.Status, &scene.AudioAssetID, &scene.VideoAssetID,
		&scene.AudioDurationMs, &scene.ErrorMessage,
		&scene.CreatedAt, &scene.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("scene not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scene: %w", err)
	}

	return scene, nil
}

// GetProjectScenes returns a project's scenes in timeline order.
func (db *DB) GetProjectScenes(ctx context.Context, projectID uuid.UUID) ([]models.Scene, error) {
	query := `
		SELECT
			id, project_id, scene_index, scene_number, narration_text,
			stock_query, duration_estimate_sec, status,
			audio_asset_id, video_asset_id, audio_duration_ms,
			error_message, created_at, updated_at
		FROM scenes
		WHERE project_id = $1
		ORDER BY scene_index
	`

	rows, err := db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenes: %w", err)
	}
	defer rows.Close()

	var scenes []models.Scene
	for rows.Next() {
		var scene models.Scene
		err := rows.Scan(
			&scene.ID, &scene.ProjectID, &scene.SceneIndex, &scene.SceneNumber,
			&scene.NarrationText, &scene.StockQuery, &scene.DurationEstimateSec,
			&scene.Status, &scene.AudioAssetID, &scene.VideoAssetID,
			&scene.AudioDurationMs, &scene.ErrorMessage,
			&scene.CreatedAt, &scene.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scene: %w", err)
		}
		scenes = append(scenes, scene)
	}

	return scenes, nil
}

func (db *DB) UpdateSceneStatus(ctx context.Context, id uuid.UUID, status models.SceneStatus) error {
	query := `UPDATE scenes SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, status, id)
	return err
}

func (db *DB) UpdateSceneAudio(ctx context.Context, id, assetID uuid.UUID, durationMs int) error {
	query := `
		UPDATE scenes
		SET audio_asset_id = $1, audio_duration_ms = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := db.ExecContext(ctx, query, assetID, durationMs, id)
	return err
}

func (db *DB) UpdateSceneVideo(ctx context.Context, id, assetID uuid.UUID) error {
	query := `
		UPDATE scenes
		SET video_asset_id = $1, updated_at = NOW()
		WHERE id = $2
	`
	_, err := db.ExecContext(ctx, query, assetID, id)
	return err
}

func (db *DB) UpdateSceneError(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE scenes
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := db.ExecContext(ctx, query, models.SceneStatusFailed, errorMessage, id)
	return err
}

// GetProjectSceneCount returns the number of scenes for a project.
func (db *DB) GetProjectSceneCount(ctx context.Context, projectID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scenes WHERE project_id = $1`, projectID).Scan(&count)
	return count, err
}

// AreAllScenesSettled reports whether every scene in the project has left
// the pending state, successfully or not. Assembly waits on this.
func (db *DB) AreAllScenesSettled(ctx context.Context, projectID uuid.UUID) (bool, error) {
	query := `
		SELECT COUNT(*) = 0
		FROM scenes
		WHERE project_id = $1 AND status = $2
	`

	var settled bool
	err := db.QueryRowContext(ctx, query, projectID, models.SceneStatusPending).Scan(&settled)
	return settled, err
}
