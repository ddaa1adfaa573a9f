package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storyreel/storyreel/internal/api"
	"github.com/storyreel/storyreel/internal/compose"
	"github.com/storyreel/storyreel/internal/config"
	"github.com/storyreel/storyreel/internal/db"
	"github.com/storyreel/storyreel/internal/queue"
	"github.com/storyreel/storyreel/internal/services"
	"github.com/storyreel/storyreel/internal/storage"
	"github.com/storyreel/storyreel/internal/worker"
)

func main() {
	log.Println("Starting StoryReel API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Initialize storage
	stor := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	log.Println("Initialized Supabase storage")

	// Create API handler
	handler := api.NewHandler(database, q, stor, cfg.BurnSubtitles)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCtx context.Context
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		// Verify the ffmpeg toolchain before taking any jobs
		ffmpeg := compose.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath)
		probeCtx, probeCancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := ffmpeg.EnsureToolchain(probeCtx); err != nil {
			probeCancel()
			log.Fatalf("FFmpeg toolchain unavailable: %v", err)
		}
		probeCancel()
		log.Printf("FFmpeg toolchain verified (%s, %s)", cfg.FFmpegPath, cfg.FFprobePath)

		if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
			log.Fatalf("Failed to create work directory %s: %v", cfg.WorkDir, err)
		}

		// Initialize services
		geminiSvc := services.NewGeminiService(cfg.GeminiKey, cfg.GeminiModel)
		pexelsSvc := services.NewPexelsService(cfg.PexelsKey)

		// Initialize TTS provider — OpenAI preferred, ElevenLabs fallback
		var ttsSvc services.TTSService
		if cfg.OpenAIKey != "" {
			ttsSvc = services.NewOpenAITTSService(cfg.OpenAIKey, cfg.OpenAIVoice)
			log.Printf("TTS provider: OpenAI (voice: %s, model: tts-1)", cfg.OpenAIVoice)
		} else {
			ttsSvc = services.NewElevenLabsService(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
			log.Printf("TTS provider: ElevenLabs (voice: %s, model: eleven_flash_v2_5)", cfg.ElevenLabsVoiceID)
		}

		// Footage reuse: 30% chance of recycling stored footage for a
		// repeated query, seeded from the clock
		reusePolicy := worker.NewRandomReusePolicy(time.Now().UnixNano(), 0.3)

		// Create worker
		w := worker.New(
			database, q, stor,
			geminiSvc, ttsSvc, pexelsSvc,
			ffmpeg, reusePolicy,
			cfg.WorkDir, cfg.SkipFailedScenes,
		)

		// Start worker in background
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
