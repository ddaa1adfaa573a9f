package models

import (
	"time"

	"github.com/google/uuid"
)

// Enums
type ProjectStatus string

const (
	ProjectStatusQueued    ProjectStatus = "queued"
	ProjectStatusScripting ProjectStatus = "scripting"
	ProjectStatusSourcing  ProjectStatus = "sourcing"
	ProjectStatusRendering ProjectStatus = "rendering"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusFailed    ProjectStatus = "failed"
)

type SceneStatus string

const (
	SceneStatusPending SceneStatus = "pending"
	SceneStatusReady   SceneStatus = "ready"
	SceneStatusFailed  SceneStatus = "failed"
)

type AssetType string

const (
	AssetTypeSourceDocument AssetType = "source_document"
	AssetTypeScriptJSON     AssetType = "script_json"
	AssetTypeAudio          AssetType = "audio"
	AssetTypeStockVideo     AssetType = "stock_video"
	AssetTypeFinalVideo     AssetType = "final_video"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Models

// Project is one document-to-video run: an uploaded source document, the
// script generated from it, and the final rendered artifact.
type Project struct {
	ID            uuid.UUID     `json:"id"`
	Title         string        `json:"title"`
	SourceName    string        `json:"source_name"` // original upload filename
	Status        ProjectStatus `json:"status"`
	VoiceID       *string       `json:"voice_id,omitempty"`
	Language      *string       `json:"language,omitempty"` // ISO 639-1: "en", "es", "fr", etc.
	BurnSubtitles bool          `json:"burn_subtitles"`
	// FallbackQuery is used for scenes whose script entry carries no
	// stock_video_query.
	FallbackQuery     string     `json:"fallback_query"`
	ScriptAssetID     *uuid.UUID `json:"script_asset_id,omitempty"`
	FinalVideoAssetID *uuid.UUID `json:"final_video_asset_id,omitempty"`
	ErrorCode         *string    `json:"error_code,omitempty"`
	ErrorMessage      *string    `json:"error_message,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Scene is one narrative beat of a project's script. SceneIndex is the
// timeline position (assembly order); SceneNumber is the script-assigned
// number used only for filenames and logging, never for reordering.
type Scene struct {
	ID            uuid.UUID `json:"id"`
	ProjectID     uuid.UUID `json:"project_id"`
	SceneIndex    int       `json:"scene_index"`
	SceneNumber   int       `json:"scene_number"`
	NarrationText string    `json:"narration_text"`
	StockQuery    string    `json:"stock_query"`
	// DurationEstimateSec is advisory only — actual scene duration always
	// comes from the realized audio file.
	DurationEstimateSec *int        `json:"duration_estimate_sec,omitempty"`
	Status              SceneStatus `json:"status"`
	AudioAssetID        *uuid.UUID  `json:"audio_asset_id,omitempty"`
	VideoAssetID        *uuid.UUID  `json:"video_asset_id,omitempty"` // nil = visual unavailable, placeholder used
	AudioDurationMs     *int        `json:"audio_duration_ms,omitempty"`
	ErrorMessage        *string     `json:"error_message,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

type Asset struct {
	ID            uuid.UUID  `json:"id"`
	ProjectID     uuid.UUID  `json:"project_id"`
	SceneID       *uuid.UUID `json:"scene_id,omitempty"`
	Type          AssetType  `json:"type"`
	StorageBucket string     `json:"storage_bucket"`
	StoragePath   string     `json:"storage_path"`
	ContentType   *string    `json:"content_type,omitempty"`
	ByteSize      *int64     `json:"byte_size,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Job struct {
	ID           uuid.UUID  `json:"id"`
	ProjectID    uuid.UUID  `json:"project_id"`
	SceneID      *uuid.UUID `json:"scene_id,omitempty"`
	Type         string     `json:"type"`
	Status       JobStatus  `json:"status"`
	Attempts     int        `json:"attempts"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// VoicePreset is an available narration voice exposed to clients.
type VoicePreset struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`         // Machine name, e.g. "narrator_calm"
	DisplayName string    `json:"display_name"` // Human-readable, e.g. "Calm Narrator"
	Provider    string    `json:"provider"`     // "openai" or "elevenlabs"
	VoiceID     string    `json:"voice_id"`     // Provider-specific voice identifier
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ---------------------------------------------------------------------------
// Script records
// ---------------------------------------------------------------------------

// DefaultStockQuery is used when a script scene carries no stock_video_query.
const DefaultStockQuery = "abstract background"

// ScriptScene is one entry of the LLM-generated script. Required fields are
// SceneID and Text; StockQuery and DurationEstimate are optional and get
// defaults from Normalize.
type ScriptScene struct {
	SceneID          int    `json:"scene_id"`
	Text             string `json:"text"`
	StockQuery       string `json:"stock_video_query,omitempty"`
	DurationEstimate int    `json:"duration_estimate,omitempty"`
}

// Normalize applies defaults for the optional script fields: a missing
// scene_id becomes the 1-based position, a missing stock query becomes the
// generic fallback.
func (s *ScriptScene) Normalize(position int) {
	if s.SceneID <= 0 {
		s.SceneID = position + 1
	}
	if s.StockQuery == "" {
		s.StockQuery = DefaultStockQuery
	}
}

// DTOs for API responses

type ProjectResponse struct {
	Project
	Scenes        []SceneResponse `json:"scenes,omitempty"`
	FinalVideoURL *string         `json:"final_video_url,omitempty"`
	ScriptURL     *string         `json:"script_url,omitempty"`
}

type SceneResponse struct {
	Scene
	AudioURL *string `json:"audio_url,omitempty"`
	VideoURL *string `json:"video_url,omitempty"`
}

// ProjectSummary is a lightweight DTO for the list endpoint — no scenes
// array, just core project fields.
type ProjectSummary struct {
	ID            uuid.UUID     `json:"id"`
	Title         string        `json:"title"`
	SourceName    string        `json:"source_name"`
	Status        ProjectStatus `json:"status"`
	SceneCount    int           `json:"scene_count"`
	FinalVideoURL *string       `json:"final_video_url,omitempty"`
	ErrorCode     *string       `json:"error_code,omitempty"`
	ErrorMessage  *string       `json:"error_message,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type ListProjectsResponse struct {
	Projects []ProjectSummary `json:"projects"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

type CreateProjectResponse struct {
	ProjectID uuid.UUID     `json:"project_id"`
	Status    ProjectStatus `json:"status"`
}
