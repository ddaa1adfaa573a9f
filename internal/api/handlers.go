package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storyreel/storyreel/internal/db"
	"github.com/storyreel/storyreel/internal/document"
	"github.com/storyreel/storyreel/internal/models"
	"github.com/storyreel/storyreel/internal/queue"
	"github.com/storyreel/storyreel/internal/storage"
)

// maxUploadBytes caps document uploads at 25MB.
const maxUploadBytes = 25 << 20

type Handler struct {
	db      *db.DB
	queue   *queue.Queue
	storage *storage.Storage

	// defaultBurnSubtitles applies when a create request doesn't set
	// burn_subtitles explicitly.
	defaultBurnSubtitles bool
}

func NewHandler(database *db.DB, q *queue.Queue, stor *storage.Storage, defaultBurnSubtitles bool) *Handler {
	return &Handler{
		db:                   database,
		queue:                q,
		storage:              stor,
		defaultBurnSubtitles: defaultBurnSubtitles,
	}
}

// CreateProject handles POST /v1/projects.
// Expects multipart/form-data with a "document" file part (PDF or plain
// text) and optional "title", "voice", "language", "burn_subtitles", and
// "fallback_query" fields. Text extraction happens synchronously so the
// client learns about unusable documents immediately; everything after that
// runs through the job queue.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form (is the upload too large?)")
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing document file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read document")
		return
	}

	sourceText, err := document.Extract(header.Filename, data)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Cannot use document: %v", err))
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = header.Filename
	}

	fallbackQuery := strings.TrimSpace(r.FormValue("fallback_query"))
	if fallbackQuery == "" {
		fallbackQuery = models.DefaultStockQuery
	}

	burnSubtitles := h.defaultBurnSubtitles
	if v := r.FormValue("burn_subtitles"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			burnSubtitles = parsed
		}
	}

	project := &models.Project{
		ID:            uuid.New(),
		Title:         title,
		SourceName:    header.Filename,
		Status:        models.ProjectStatusQueued,
		BurnSubtitles: burnSubtitles,
		FallbackQuery: fallbackQuery,
	}
	if voice := strings.TrimSpace(r.FormValue("voice")); voice != "" {
		// Voice may be a preset slug or a provider voice ID; presets win
		if preset, err := h.db.GetVoicePresetBySlug(r.Context(), voice); err == nil {
			project.VoiceID = &preset.VoiceID
		} else {
			project.VoiceID = &voice
		}
	}
	if lang := strings.TrimSpace(r.FormValue("language")); lang != "" {
		project.Language = &lang
	}

	if err := h.db.CreateProject(r.Context(), project); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create project")
		return
	}

	// Store both the original upload and the extracted text. The worker
	// only reads source.txt; the original is kept for reprocessing.
	sourcePath := h.storage.GenerateStoragePath(project.ID, "source.txt")
	if err := h.storage.Upload(r.Context(), sourcePath, []byte(sourceText), "text/plain; charset=utf-8"); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to store document text")
		return
	}

	originalPath := h.storage.GenerateStoragePath(project.ID, header.Filename)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := h.storage.Upload(r.Context(), originalPath, data, contentType); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to store document")
		return
	}

	sourceAsset := &models.Asset{
		ID:            uuid.New(),
		ProjectID:     project.ID,
		Type:          models.AssetTypeSourceDocument,
		StorageBucket: h.storage.Bucket,
		StoragePath:   originalPath,
		ContentType:   &contentType,
	}
	if err := h.db.CreateAsset(r.Context(), sourceAsset); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to save document asset")
		return
	}

	jobID := uuid.New()
	job := &models.Job{
		ID:        jobID,
		ProjectID: project.ID,
		Type:      "generate_script",
		Status:    models.JobStatusQueued,
	}

	if err := h.db.CreateJob(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	if err := h.queue.EnqueueGenerateScript(r.Context(), project.ID, jobID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusCreated, models.CreateProjectResponse{
		ProjectID: project.ID,
		Status:    project.Status,
	})
}

// ListProjects handles GET /v1/projects
// Query params:
//   - status: filter by project status (queued, scripting, sourcing, rendering, completed, failed)
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" {
		switch models.ProjectStatus(statusFilter) {
		case models.ProjectStatusQueued, models.ProjectStatusScripting,
			models.ProjectStatusSourcing, models.ProjectStatusRendering,
			models.ProjectStatusCompleted, models.ProjectStatusFailed:
			// valid
		default:
			respondError(w, http.StatusBadRequest, "Invalid status filter. Allowed: queued, scripting, sourcing, rendering, completed, failed")
			return
		}
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	total, err := h.db.CountProjects(r.Context(), statusFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count projects")
		return
	}

	projects, err := h.db.ListProjects(r.Context(), statusFilter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list projects")
		return
	}

	summaries := make([]models.ProjectSummary, 0, len(projects))
	for _, project := range projects {
		summary := models.ProjectSummary{
			ID:           project.ID,
			Title:        project.Title,
			SourceName:   project.SourceName,
			Status:       project.Status,
			ErrorCode:    project.ErrorCode,
			ErrorMessage: project.ErrorMessage,
			CreatedAt:    project.CreatedAt,
			UpdatedAt:    project.UpdatedAt,
		}

		if count, err := h.db.GetProjectSceneCount(r.Context(), project.ID); err == nil {
			summary.SceneCount = count
		}

		if project.FinalVideoAssetID != nil {
			if asset, err := h.db.GetAsset(r.Context(), *project.FinalVideoAssetID); err == nil {
				url := h.storage.GetPublicURL(asset.StoragePath)
				summary.FinalVideoURL = &url
			}
		}

		summaries = append(summaries, summary)
	}

	respondJSON(w, http.StatusOK, models.ListProjectsResponse{
		Projects: summaries,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

// GetProject handles GET /v1/projects/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	project, err := h.db.GetProject(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Project not found")
		return
	}

	scenes, err := h.db.GetProjectScenes(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get scenes")
		return
	}

	response := models.ProjectResponse{
		Project: *project,
		Scenes:  h.buildSceneResponses(r.Context(), scenes),
	}

	if project.FinalVideoAssetID != nil {
		if asset, err := h.db.GetAsset(r.Context(), *project.FinalVideoAssetID); err == nil {
			url := h.storage.GetPublicURL(asset.StoragePath)
			response.FinalVideoURL = &url
		}
	}
	if project.ScriptAssetID != nil {
		if asset, err := h.db.GetAsset(r.Context(), *project.ScriptAssetID); err == nil {
			url := h.storage.GetPublicURL(asset.StoragePath)
			response.ScriptURL = &url
		}
	}

	respondJSON(w, http.StatusOK, response)
}

// GetProjectScript handles GET /v1/projects/{id}/script — returns the
// generated scene script JSON for preview.
func (h *Handler) GetProjectScript(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	project, err := h.db.GetProject(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Project not found")
		return
	}

	if project.ScriptAssetID == nil {
		respondError(w, http.StatusNotFound, "Script not generated yet")
		return
	}

	asset, err := h.db.GetAsset(r.Context(), *project.ScriptAssetID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Asset not found")
		return
	}

	data, err := h.storage.Download(r.Context(), asset.StoragePath)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch script")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetProjectDownload handles GET /v1/projects/{id}/download
func (h *Handler) GetProjectDownload(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	project, err := h.db.GetProject(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Project not found")
		return
	}

	if project.FinalVideoAssetID == nil {
		respondError(w, http.StatusNotFound, "Video not ready")
		return
	}

	asset, err := h.db.GetAsset(r.Context(), *project.FinalVideoAssetID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Asset not found")
		return
	}

	// Get signed URL (valid for 1 hour)
	signedURL, err := h.storage.GetSignedURL(r.Context(), asset.StoragePath, 3600)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate download URL")
		return
	}

	http.Redirect(w, r, signedURL, http.StatusTemporaryRedirect)
}

// GetProjectJobs handles GET /v1/projects/{id}/debug/jobs
func (h *Handler) GetProjectJobs(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	jobs, err := h.db.GetProjectJobs(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get jobs")
		return
	}

	respondJSON(w, http.StatusOK, jobs)
}

// GetScene handles GET /v1/projects/{projectId}/scenes/{sceneId}
func (h *Handler) GetScene(w http.ResponseWriter, r *http.Request) {
	sceneID, err := uuid.Parse(chi.URLParam(r, "sceneId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid scene ID")
		return
	}

	scene, err := h.db.GetScene(r.Context(), sceneID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Scene not found")
		return
	}

	respondJSON(w, http.StatusOK, h.buildSceneResponse(r.Context(), *scene))
}

// ListVoices handles GET /v1/voices
func (h *Handler) ListVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := h.db.ListVoicePresets(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list voices")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"voices": voices})
}

// Helper methods
func (h *Handler) buildSceneResponses(ctx context.Context, scenes []models.Scene) []models.SceneResponse {
	responses := make([]models.SceneResponse, len(scenes))
	for i, scene := range scenes {
		responses[i] = h.buildSceneResponse(ctx, scene)
	}
	return responses
}

func (h *Handler) buildSceneResponse(ctx context.Context, scene models.Scene) models.SceneResponse {
	response := models.SceneResponse{
		Scene: scene,
	}

	if scene.AudioAssetID != nil {
		if asset, err := h.db.GetAsset(ctx, *scene.AudioAssetID); err == nil {
			url := h.storage.GetPublicURL(asset.StoragePath)
			response.AudioURL = &url
		}
	}

	if scene.VideoAssetID != nil {
		if asset, err := h.db.GetAsset(ctx, *scene.VideoAssetID); err == nil {
			url := h.storage.GetPublicURL(asset.StoragePath)
			response.VideoURL = &url
		}
	}

	return response
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
