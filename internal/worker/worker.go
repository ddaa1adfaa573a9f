package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/storyreel/storyreel/internal/compose"
	"github.com/storyreel/storyreel/internal/db"
	"github.com/storyreel/storyreel/internal/models"
	"github.com/storyreel/storyreel/internal/queue"
	"github.com/storyreel/storyreel/internal/services"
	"github.com/storyreel/storyreel/internal/storage"
)

type Worker struct {
	db      *db.DB
	queue   *queue.Queue
	storage *storage.Storage
	gemini  *services.GeminiService
	tts     services.TTSService // OpenAI preferred, ElevenLabs fallback
	pexels  *services.PexelsService
	ffmpeg  *compose.FFmpeg
	reuse   ReusePolicy

	workDir          string
	skipFailedScenes bool
	uploadSem        chan struct{} // Limits concurrent Supabase uploads to prevent congestion
}

func New(
	database *db.DB,
	q *queue.Queue,
	stor *storage.Storage,
	geminiSvc *services.GeminiService,
	ttsSvc services.TTSService,
	pexelsSvc *services.PexelsService,
	ffmpeg *compose.FFmpeg,
	reuse ReusePolicy,
	workDir string,
	skipFailedScenes bool,
) *Worker {
	return &Worker{
		db:               database,
		queue:            q,
		storage:          stor,
		gemini:           geminiSvc,
		tts:              ttsSvc,
		pexels:           pexelsSvc,
		ffmpeg:           ffmpeg,
		reuse:            reuse,
		workDir:          workDir,
		skipFailedScenes: skipFailedScenes,
		uploadSem:        make(chan struct{}, 4),
	}
}

// uploadWithLimit wraps an upload call with a semaphore to prevent Supabase congestion.
func (w *Worker) uploadWithLimit(ctx context.Context, label string, fn func() error) error {
	select {
	case w.uploadSem <- struct{}{}:
		// Acquired slot
	case <-ctx.Done():
		return fmt.Errorf("upload cancelled while waiting for slot: %w", ctx.Err())
	}
	defer func() { <-w.uploadSem }()

	log.Printf("[Upload] %s uploading...", label)
	return fn()
}

// Start begins processing jobs from all queues
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx, queue.QueueGenerateScript, w.handleGenerateScript)
		go w.processQueue(ctx, queue.QueueProcessScene, w.handleProcessScene)
		go w.processQueue(ctx, queue.QueueAssembleVideo, w.handleAssembleVideo)
	}

	<-ctx.Done()
	log.Println("Worker shutting down...")
}

func (w *Worker) processQueue(ctx context.Context, queueName string, handler func(context.Context, *queue.Job) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, queueName, 5*time.Second)
			if err != nil {
				log.Printf("Error dequeuing from %s: %v", queueName, err)
				continue
			}

			if job == nil {
				continue // No job available, retry
			}

			log.Printf("Processing job %s (type: %s, project: %s)", job.ID, job.Type, job.ProjectID)

			if err := w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusRunning); err != nil {
				log.Printf("Failed to update job status: %v", err)
			}

			if err := handler(ctx, job); err != nil {
				log.Printf("Job %s failed: %v", job.ID, err)
				w.db.UpdateJobError(ctx, job.ID, err.Error())
			} else {
				log.Printf("Job %s completed successfully", job.ID)
				w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusSucceeded)
			}
		}
	}
}

// handleGenerateScript turns the project's extracted document text into a
// scene script, creates scene records, and enqueues a process_scene job per
// scene.
func (w *Worker) handleGenerateScript(ctx context.Context, job *queue.Job) error {
	log.Printf("Generating script for project %s", job.ProjectID)

	if err := w.db.UpdateProjectStatus(ctx, job.ProjectID, models.ProjectStatusScripting); err != nil {
		return fmt.Errorf("failed to update project status: %w", err)
	}

	// The extracted source text was stored at project creation
	sourcePath := w.storage.GenerateStoragePath(job.ProjectID, "source.txt")
	sourceText, err := w.storage.Download(ctx, sourcePath)
	if err != nil {
		w.db.UpdateProjectError(ctx, job.ProjectID, "source_missing", err.Error())
		return fmt.Errorf("failed to download source text: %w", err)
	}

	scenes, err := w.gemini.GenerateScript(ctx, string(sourceText))
	if err != nil {
		w.db.UpdateProjectError(ctx, job.ProjectID, "script_generation_failed", err.Error())
		return fmt.Errorf("failed to generate script: %w", err)
	}

	// Store the script as a JSON asset for the preview endpoint
	scriptJSON, _ := json.MarshalIndent(scenes, "", "  ")
	scriptAsset := &models.Asset{
		ID:            uuid.New(),
		ProjectID:     job.ProjectID,
		Type:          models.AssetTypeScriptJSON,
		StorageBucket: w.storage.Bucket,
		StoragePath:   w.storage.GenerateStoragePath(job.ProjectID, "script.json"),
		ContentType:   strPtr("application/json"),
		ByteSize:      int64Ptr(int64(len(scriptJSON))),
	}

	if err := w.uploadWithLimit(ctx, "script.json", func() error {
		return w.storage.Upload(ctx, scriptAsset.StoragePath, scriptJSON, "application/json")
	}); err != nil {
		return fmt.Errorf("failed to upload script: %w", err)
	}

	if err := w.db.CreateAsset(ctx, scriptAsset); err != nil {
		return fmt.Errorf("failed to save script asset: %w", err)
	}
	if err := w.db.SetProjectScript(ctx, job.ProjectID, scriptAsset.ID); err != nil {
		return fmt.Errorf("failed to link script asset: %w", err)
	}

	// Create scene records and enqueue process_scene for each
	for i, sc := range scenes {
		scene := &models.Scene{
			ID:                  uuid.New(),
			ProjectID:           job.ProjectID,
			SceneIndex:          i,
			SceneNumber:         sc.SceneID,
			NarrationText:       sc.Text,
			StockQuery:          sc.StockQuery,
			DurationEstimateSec: intPtr(sc.DurationEstimate),
			Status:              models.SceneStatusPending,
		}

		if err := w.db.CreateScene(ctx, scene); err != nil {
			return fmt.Errorf("failed to create scene: %w", err)
		}

		sceneJobID := uuid.New()
		sceneJob := &models.Job{
			ID:        sceneJobID,
			ProjectID: job.ProjectID,
			SceneID:   &scene.ID,
			Type:      "process_scene",
			Status:    models.JobStatusQueued,
		}

		if err := w.db.CreateJob(ctx, sceneJob); err != nil {
			return fmt.Errorf("failed to create scene job: %w", err)
		}

		if err := w.queue.EnqueueProcessScene(ctx, job.ProjectID, scene.ID, sceneJobID); err != nil {
			return fmt.Errorf("failed to enqueue scene job: %w", err)
		}

		log.Printf("Enqueued process_scene for scene %d/%d (id: %s)", i+1, len(scenes), scene.ID)
	}

	return w.db.UpdateProjectStatus(ctx, job.ProjectID, models.ProjectStatusSourcing)
}

// handleProcessScene acquires a scene's assets: narration audio and stock
// footage run in parallel, then converge. Audio is mandatory — without it a
// scene cannot be timed. Footage is best-effort: every failure downgrades to
// the fallback query and finally to no visual at all, which composition
// renders as a placeholder.
func (w *Worker) handleProcessScene(ctx context.Context, job *queue.Job) error {
	if job.SceneID == nil {
		return fmt.Errorf("scene ID missing")
	}

	scene, err := w.db.GetScene(ctx, *job.SceneID)
	if err != nil {
		return fmt.Errorf("failed to get scene: %w", err)
	}

	project, err := w.db.GetProject(ctx, job.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to get project: %w", err)
	}

	log.Printf("Scene %d: acquiring assets (query=%q)", scene.SceneNumber, scene.StockQuery)

	voiceID := ""
	if project.VoiceID != nil {
		voiceID = *project.VoiceID
	}

	g, gctx := errgroup.WithContext(ctx)

	// ── Audio pipeline: TTS → measure → upload ─────────────────────────
	g.Go(func() error {
		audioResp, err := w.tts.GenerateSpeech(gctx, scene.NarrationText, voiceID)
		if err != nil {
			w.db.UpdateSceneError(gctx, scene.ID, fmt.Sprintf("TTS failed: %v", err))
			return fmt.Errorf("failed to generate audio: %w", err)
		}
		log.Printf("Scene %d: audio generated (%d bytes)", scene.SceneNumber, len(audioResp.AudioData))

		durationMs, err := w.measureAudio(gctx, scene.SceneNumber, audioResp.AudioData)
		if err != nil {
			w.db.UpdateSceneError(gctx, scene.ID, fmt.Sprintf("audio unreadable: %v", err))
			return fmt.Errorf("failed to measure audio: %w", err)
		}

		audioAsset := &models.Asset{
			ID:            uuid.New(),
			ProjectID:     job.ProjectID,
			SceneID:       &scene.ID,
			Type:          models.AssetTypeAudio,
			StorageBucket: w.storage.Bucket,
			StoragePath:   w.storage.GenerateStoragePath(job.ProjectID, fmt.Sprintf("audio_%d.mp3", scene.SceneIndex)),
			ContentType:   strPtr("audio/mpeg"),
			ByteSize:      int64Ptr(int64(len(audioResp.AudioData))),
		}

		if err := w.uploadWithLimit(gctx, fmt.Sprintf("audio_%d", scene.SceneIndex), func() error {
			return w.storage.Upload(gctx, audioAsset.StoragePath, audioResp.AudioData, "audio/mpeg")
		}); err != nil {
			return fmt.Errorf("failed to upload audio: %w", err)
		}

		if err := w.db.CreateAsset(gctx, audioAsset); err != nil {
			return fmt.Errorf("failed to save audio asset: %w", err)
		}
		return w.db.UpdateSceneAudio(gctx, scene.ID, audioAsset.ID, durationMs)
	})

	// ── Visual pipeline: reuse pool or Pexels, fallback query last ─────
	g.Go(func() error {
		videoAsset, err := w.acquireVisual(gctx, job.ProjectID, scene, project.FallbackQuery)
		if err != nil {
			// Non-fatal: the scene renders over a placeholder
			log.Printf("Scene %d: WARNING — no visual available, will use placeholder: %v", scene.SceneNumber, err)
			return nil
		}
		if videoAsset != nil {
			return w.db.UpdateSceneVideo(gctx, scene.ID, videoAsset.ID)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		// Make sure the scene leaves pending so assembly isn't blocked
		w.db.UpdateSceneError(ctx, scene.ID, err.Error())
		w.checkProjectSettled(ctx, job.ProjectID)
		return fmt.Errorf("scene processing failed: %w", err)
	}

	if err := w.db.UpdateSceneStatus(ctx, scene.ID, models.SceneStatusReady); err != nil {
		return fmt.Errorf("failed to mark scene ready: %w", err)
	}

	log.Printf("Scene %d: assets ready", scene.SceneNumber)

	w.checkProjectSettled(ctx, job.ProjectID)
	return nil
}

// measureAudio writes the encoded audio to a temp file and probes its real
// duration. This measurement, not the script's estimate, drives scene timing.
func (w *Worker) measureAudio(ctx context.Context, sceneNumber int, audioData []byte) (int, error) {
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("probe_audio_%d_%s.mp3", sceneNumber, uuid.NewString()))
	if err := os.WriteFile(tmpPath, audioData, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write probe file: %w", err)
	}
	defer os.Remove(tmpPath)

	seconds, err := w.ffmpeg.MediaDuration(ctx, tmpPath)
	if err != nil {
		return 0, err
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("audio has zero duration")
	}

	return int(seconds * 1000), nil
}

// acquireVisual resolves stock footage for a scene. Returns (nil, nil) when
// the reuse policy and both queries come up empty without a hard error.
func (w *Worker) acquireVisual(ctx context.Context, projectID uuid.UUID, scene *models.Scene, fallbackQuery string) (*models.Asset, error) {
	// Reuse pool: prior stored footage for the same query
	var pool []PoolAsset
	if prior, err := w.db.FindReusableAsset(ctx, models.AssetTypeStockVideo, scene.StockQuery); err != nil {
		log.Printf("Scene %d: reuse pool lookup failed: %v", scene.SceneNumber, err)
	} else if prior != nil {
		pool = append(pool, PoolAsset{AssetID: prior.ID, StoragePath: prior.StoragePath, Query: scene.StockQuery})
	}

	// Keyed by SceneIndex: unique per project, unlike the script-assigned number
	destPath := w.storage.GenerateStoragePath(projectID, fmt.Sprintf("video_%d.mp4", scene.SceneIndex))

	if chosen := w.reuse.ChooseVisual(scene.SceneIndex, pool); chosen != nil {
		log.Printf("Scene %d: reusing stored footage for %q", scene.SceneNumber, chosen.Query)
		if err := w.storage.CopyObject(ctx, chosen.StoragePath, destPath); err != nil {
			log.Printf("Scene %d: reuse copy failed, fetching fresh: %v", scene.SceneNumber, err)
		} else {
			asset := &models.Asset{
				ID:            uuid.New(),
				ProjectID:     projectID,
				SceneID:       &scene.ID,
				Type:          models.AssetTypeStockVideo,
				StorageBucket: w.storage.Bucket,
				StoragePath:   destPath,
				ContentType:   strPtr("video/mp4"),
			}
			if err := w.db.CreateAsset(ctx, asset); err != nil {
				return nil, fmt.Errorf("failed to save reused asset: %w", err)
			}
			return asset, nil
		}
	}

	stock, err := w.pexels.FetchVideo(ctx, scene.StockQuery)
	if errors.Is(err, services.ErrNoStockResults) && fallbackQuery != "" && fallbackQuery != scene.StockQuery {
		log.Printf("Scene %d: no results for %q, retrying with fallback %q", scene.SceneNumber, scene.StockQuery, fallbackQuery)
		stock, err = w.pexels.FetchVideo(ctx, fallbackQuery)
	}
	if err != nil {
		return nil, err
	}

	asset := &models.Asset{
		ID:            uuid.New(),
		ProjectID:     projectID,
		SceneID:       &scene.ID,
		Type:          models.AssetTypeStockVideo,
		StorageBucket: w.storage.Bucket,
		StoragePath:   destPath,
		ContentType:   strPtr(stock.ContentType),
		ByteSize:      int64Ptr(int64(len(stock.Data))),
	}

	if err := w.uploadWithLimit(ctx, fmt.Sprintf("video_%d", scene.SceneIndex), func() error {
		return w.storage.Upload(ctx, asset.StoragePath, stock.Data, stock.ContentType)
	}); err != nil {
		return nil, fmt.Errorf("failed to upload stock video: %w", err)
	}

	if err := w.db.CreateAsset(ctx, asset); err != nil {
		return nil, fmt.Errorf("failed to save stock asset: %w", err)
	}

	return asset, nil
}

// checkProjectSettled enqueues assembly once every scene has left pending.
func (w *Worker) checkProjectSettled(ctx context.Context, projectID uuid.UUID) {
	settled, err := w.db.AreAllScenesSettled(ctx, projectID)
	if err != nil {
		log.Printf("Failed to check scene status for project %s: %v", projectID, err)
		return
	}
	if !settled {
		return
	}

	log.Printf("All scenes settled for project %s, enqueuing assembly", projectID)

	assemblyJobID := uuid.New()
	assemblyJob := &models.Job{
		ID:        assemblyJobID,
		ProjectID: projectID,
		Type:      "assemble_video",
		Status:    models.JobStatusQueued,
	}

	if err := w.db.CreateJob(ctx, assemblyJob); err != nil {
		log.Printf("Failed to create assembly job: %v", err)
		return
	}
	if err := w.queue.EnqueueAssembleVideo(ctx, projectID, assemblyJobID); err != nil {
		log.Printf("Failed to enqueue assembly: %v", err)
		return
	}

	w.db.UpdateProjectStatus(ctx, projectID, models.ProjectStatusRendering)
}

// handleAssembleVideo stages every scene's assets into a scoped working
// directory, composes the final timeline, and uploads the result. The
// working directory is removed when the run ends, success or not.
func (w *Worker) handleAssembleVideo(ctx context.Context, job *queue.Job) error {
	log.Printf("Assembling final video for project %s", job.ProjectID)

	project, err := w.db.GetProject(ctx, job.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to get project: %w", err)
	}

	scenes, err := w.db.GetProjectScenes(ctx, job.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to get scenes: %w", err)
	}

	runDir := filepath.Join(w.workDir, job.ProjectID.String())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("failed to create working directory: %w", err)
	}
	defer os.RemoveAll(runDir)

	var inputs []compose.SceneInput
	for _, scene := range scenes {
		if scene.Status == models.SceneStatusFailed || scene.AudioAssetID == nil {
			if !w.skipFailedScenes {
				w.db.UpdateProjectError(ctx, job.ProjectID, "scene_failed", fmt.Sprintf("scene %d has no audio", scene.SceneNumber))
				return fmt.Errorf("scene %d is not assemblable", scene.SceneNumber)
			}
			log.Printf("Scene %d: WARNING — skipping failed scene in assembly", scene.SceneNumber)
			continue
		}

		audioPath := filepath.Join(runDir, fmt.Sprintf("audio_%d.mp3", scene.SceneIndex))
		if err := w.stageAsset(ctx, *scene.AudioAssetID, audioPath); err != nil {
			return fmt.Errorf("failed to stage audio for scene %d: %w", scene.SceneNumber, err)
		}

		visual := compose.Visual{Kind: compose.VisualMissing}
		if scene.VideoAssetID != nil {
			videoPath := filepath.Join(runDir, fmt.Sprintf("video_%d.mp4", scene.SceneIndex))
			if err := w.stageAsset(ctx, *scene.VideoAssetID, videoPath); err != nil {
				log.Printf("Scene %d: WARNING — could not stage footage, using placeholder: %v", scene.SceneNumber, err)
			} else {
				visual = compose.Visual{Kind: compose.VisualVideo, Path: videoPath}
			}
		}

		inputs = append(inputs, compose.SceneInput{
			Index:     scene.SceneIndex,
			SceneID:   scene.SceneNumber,
			Narration: scene.NarrationText,
			AudioPath: audioPath,
			Visual:    visual,
		})
	}

	engine := compose.NewEngine(w.ffmpeg, runDir, compose.Options{
		BurnSubtitles:    project.BurnSubtitles,
		SkipFailedScenes: w.skipFailedScenes,
		Logf:             log.Printf,
	})

	outputPath := filepath.Join(runDir, "final.mp4")
	if _, err := engine.Assemble(ctx, inputs, outputPath); err != nil {
		if errors.Is(err, compose.ErrEmptyTimeline) {
			w.db.UpdateProjectError(ctx, job.ProjectID, "empty_timeline", err.Error())
		} else {
			w.db.UpdateProjectError(ctx, job.ProjectID, "render_failed", err.Error())
		}
		return fmt.Errorf("assembly failed: %w", err)
	}

	videoData, err := os.ReadFile(outputPath)
	if err != nil {
		return fmt.Errorf("failed to read final video: %w", err)
	}

	finalAsset := &models.Asset{
		ID:            uuid.New(),
		ProjectID:     job.ProjectID,
		Type:          models.AssetTypeFinalVideo,
		StorageBucket: w.storage.Bucket,
		StoragePath:   w.storage.GenerateStoragePath(job.ProjectID, "final.mp4"),
		ContentType:   strPtr("video/mp4"),
		ByteSize:      int64Ptr(int64(len(videoData))),
	}

	if err := w.uploadWithLimit(ctx, "final_video", func() error {
		return w.storage.Upload(ctx, finalAsset.StoragePath, videoData, "video/mp4")
	}); err != nil {
		w.db.UpdateProjectError(ctx, job.ProjectID, "upload_failed", err.Error())
		return fmt.Errorf("failed to upload final video: %w", err)
	}

	if err := w.db.CreateAsset(ctx, finalAsset); err != nil {
		return fmt.Errorf("failed to save final video asset: %w", err)
	}

	return w.db.SetProjectFinalVideo(ctx, job.ProjectID, finalAsset.ID)
}

// stageAsset downloads a stored asset into the working directory.
func (w *Worker) stageAsset(ctx context.Context, assetID uuid.UUID, localPath string) error {
	asset, err := w.db.GetAsset(ctx, assetID)
	if err != nil {
		return fmt.Errorf("failed to look up asset: %w", err)
	}
	return w.storage.DownloadToFile(ctx, asset.StoragePath, localPath)
}

// Helper functions
func strPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}

func int64Ptr(i int64) *int64 {
	return &i
}
