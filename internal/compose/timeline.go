package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ---------------------------------------------------------------------------
// Timeline Assembler
//
// Builds every scene clip in script order inside a scoped working directory,
// then concatenates them into one continuous rendered file. Scenes are never
// reordered and no gaps are inserted; the final duration is the sum of the
// scene clip durations.
// ---------------------------------------------------------------------------

// SceneInput is one scene ready for composition. Index defines timeline
// order; SceneID is used only for filenames and logging.
type SceneInput struct {
	Index     int
	SceneID   int
	Narration string
	AudioPath string
	Visual    Visual
}

// Options tune engine behavior per run.
type Options struct {
	// BurnSubtitles overlays the wrapped narration text on every scene.
	BurnSubtitles bool

	// SkipFailedScenes drops a failed scene with a warning instead of
	// aborting the whole assembly.
	SkipFailedScenes bool

	// Logf receives progress and warning lines. Nil disables logging.
	Logf func(format string, args ...any)
}

// Engine composes scenes into a rendered video. It owns no external state
// beyond the working directory it was given; callers remove that directory
// after the run.
type Engine struct {
	ff      *FFmpeg
	workDir string
	opts    Options
}

func NewEngine(ff *FFmpeg, workDir string, opts Options) *Engine {
	return &Engine{ff: ff, workDir: workDir, opts: opts}
}

func (e *Engine) logf(format string, args ...any) {
	if e.opts.Logf != nil {
		e.opts.Logf(format, args...)
	}
}

// Assemble builds all scene clips in order and renders them into a single
// file at outputPath. Returns the output path on success. Per-scene failures
// are skipped with a warning when SkipFailedScenes is set, otherwise the
// first failure aborts with a *SceneError. If no clip survives, the distinct
// ErrEmptyTimeline is returned and nothing is written.
func (e *Engine) Assemble(ctx context.Context, scenes []SceneInput, outputPath string) (string, error) {
	if len(scenes) == 0 {
		return "", ErrEmptyTimeline
	}

	var clipPaths []string
	for _, sc := range scenes {
		// Keyed by Index, which is unique per timeline; SceneID is
		// script-assigned and not trusted to be.
		clipPath := filepath.Join(e.workDir, fmt.Sprintf("scene_%d.mp4", sc.Index))

		if err := e.buildSceneClip(ctx, sc, clipPath); err != nil {
			if e.opts.SkipFailedScenes {
				e.logf("[Compose] WARNING: dropping scene %d from timeline: %v", sc.Index, err)
				continue
			}
			return "", err
		}

		clipPaths = append(clipPaths, clipPath)
	}

	if len(clipPaths) == 0 {
		return "", ErrEmptyTimeline
	}

	if err := e.concatenate(ctx, clipPaths, outputPath); err != nil {
		return "", fmt.Errorf("render failed: %w", err)
	}

	e.logf("[Compose] Timeline rendered: %d scene clips -> %s", len(clipPaths), outputPath)

	return outputPath, nil
}

// concatenate joins the ordered scene clips into one file via the concat
// demuxer. Clips are re-encoded rather than stream-copied so a parameter
// mismatch can never silently corrupt the output.
func (e *Engine) concatenate(ctx context.Context, clipPaths []string, outputPath string) error {
	listPath := filepath.Join(e.workDir, "concat_list.txt")

	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}
	for _, path := range clipPaths {
		fmt.Fprintf(f, "file '%s'\n", path)
	}
	f.Close()
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-r", fmt.Sprintf("%d", frameRate),
		"-c:v", "libx264",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	}

	if err := e.ff.Exec(ctx, args...); err != nil {
		return fmt.Errorf("ffmpeg concatenate: %w", err)
	}

	return nil
}
