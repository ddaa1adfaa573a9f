package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ---------------------------------------------------------------------------
// Scene Clip Builder
//
// Combines one scene's narration audio with its resolved visual into a single
// timed sub-clip. The audio file's probed duration is the authoritative scene
// duration: video visuals are looped or trimmed to match, image and
// placeholder visuals are constructed against it directly.
// ---------------------------------------------------------------------------

// buildSceneClip renders one scene to outputPath. All failures come back as
// *SceneError carrying the scene index and phase.
func (e *Engine) buildSceneClip(ctx context.Context, sc SceneInput, outputPath string) error {
	// Audio is the timing source; without it the scene cannot be assembled.
	if sc.AudioPath == "" {
		return sceneErr(sc.Index, sc.SceneID, PhaseBuild, fmt.Errorf("no audio asset"))
	}
	if _, err := os.Stat(sc.AudioPath); err != nil {
		return sceneErr(sc.Index, sc.SceneID, PhaseBuild, fmt.Errorf("audio missing: %w", err))
	}

	dur, err := e.ff.MediaDuration(ctx, sc.AudioPath)
	if err != nil {
		return sceneErr(sc.Index, sc.SceneID, PhaseBuild, fmt.Errorf("audio unreadable: %w", err))
	}
	if dur <= 0 {
		return sceneErr(sc.Index, sc.SceneID, PhaseBuild, fmt.Errorf("audio has zero duration"))
	}

	rv := e.resolveVisual(ctx, sc, dur)

	filter := rv.filter

	// Optional burned-in subtitles: wrapped narration over the full scene.
	if e.opts.BurnSubtitles && sc.Narration != "" {
		assPath := filepath.Join(e.workDir, fmt.Sprintf("subs_%d.ass", sc.Index))
		if err := writeSceneSubtitles(sc.Narration, dur, assPath); err != nil {
			return sceneErr(sc.Index, sc.SceneID, PhaseBuild, fmt.Errorf("subtitle generation: %w", err))
		}
		filter += fmt.Sprintf(",ass='%s'", escapeFilterPath(assPath))
	}

	var args []string

	// Loop a too-short video seamlessly until it covers the audio; longer
	// visuals are trimmed by the output -t. Image and placeholder sources
	// already produce at least the full duration.
	if rv.kind == VisualVideo && rv.nativeDur < dur {
		e.logf("[Compose] Scene %d: looping %.2fs video to cover %.2fs narration", sc.Index, rv.nativeDur, dur)
		args = append(args, "-stream_loop", "-1")
	}

	args = append(args, rv.inputArgs...)
	args = append(args, "-i", sc.AudioPath)
	args = append(args,
		"-filter_complex", "[0:v]"+filter+"[v]",
		"-map", "[v]",
		"-map", "1:a",
		"-t", formatSeconds(dur),
		"-r", fmt.Sprintf("%d", frameRate),
		"-c:v", "libx264",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	)

	e.logf("[Compose] Scene %d: building clip (visual=%s, duration=%.2fs)", sc.Index, rv.kind, dur)

	if err := e.ff.Exec(ctx, args...); err != nil {
		return sceneErr(sc.Index, sc.SceneID, PhaseRender, fmt.Errorf("ffmpeg scene render: %w", err))
	}

	return nil
}
