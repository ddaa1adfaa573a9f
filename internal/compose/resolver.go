package compose

import (
	"context"
	"fmt"
	"math"
	"os"
)

// ---------------------------------------------------------------------------
// Asset Resolver
//
// Turns a per-scene visual source (stock video, still image, or nothing) into
// a normalized 1920x1080 frame source ready for compositing. Missing or
// undecodable sources degrade to a solid black placeholder — one bad visual
// never fails the run.
// ---------------------------------------------------------------------------

// VisualKind discriminates the three visual source variants.
type VisualKind int

const (
	VisualMissing VisualKind = iota
	VisualVideo
	VisualImage
)

func (k VisualKind) String() string {
	switch k {
	case VisualVideo:
		return "video"
	case VisualImage:
		return "image"
	default:
		return "missing"
	}
}

// Visual describes one scene's visual source as handed over by the asset
// acquisition stage. Path is empty for VisualMissing.
type Visual struct {
	Kind VisualKind
	Path string
}

// resolvedVisual is the builder-facing result of resolution: ffmpeg input
// arguments for the visual stream plus the filter chain that normalizes it
// to the target frame. nativeDur is set for real video sources only.
type resolvedVisual struct {
	kind      VisualKind
	inputArgs []string
	filter    string
	nativeDur float64
}

// resolveVisual normalizes a scene's visual to the target frame. sceneDur is
// the authoritative scene duration (image zoom and the black placeholder are
// built against it). Resolution never fails the run: anything that cannot be
// probed or decoded falls back to the placeholder, with the recovered
// resolve-phase error logged as a warning.
func (e *Engine) resolveVisual(ctx context.Context, sc SceneInput, sceneDur float64) resolvedVisual {
	switch sc.Visual.Kind {
	case VisualVideo:
		rv, err := e.resolveVideo(ctx, sc.Visual.Path)
		if err != nil {
			rerr := sceneErr(sc.Index, sc.SceneID, PhaseResolve, fmt.Errorf("video %q unusable: %w", sc.Visual.Path, err))
			e.logf("[Compose] WARNING: substituting black placeholder: %v", rerr)
			return e.resolveMissing()
		}
		return rv

	case VisualImage:
		rv, err := e.resolveImage(ctx, sc.Visual.Path, sceneDur)
		if err != nil {
			rerr := sceneErr(sc.Index, sc.SceneID, PhaseResolve, fmt.Errorf("image %q unusable: %w", sc.Visual.Path, err))
			e.logf("[Compose] WARNING: substituting black placeholder: %v", rerr)
			return e.resolveMissing()
		}
		return rv

	default:
		return e.resolveMissing()
	}
}

func (e *Engine) resolveVideo(ctx context.Context, path string) (resolvedVisual, error) {
	if _, err := os.Stat(path); err != nil {
		return resolvedVisual{}, fmt.Errorf("stat visual: %w", err)
	}

	w, h, err := e.ff.Dimensions(ctx, path)
	if err != nil {
		return resolvedVisual{}, err
	}

	dur, err := e.ff.MediaDuration(ctx, path)
	if err != nil {
		return resolvedVisual{}, err
	}
	if dur <= 0 {
		return resolvedVisual{}, fmt.Errorf("video has zero duration")
	}

	return resolvedVisual{
		kind:      VisualVideo,
		inputArgs: []string{"-i", path},
		filter:    normalizeFilter(w, h) + fmt.Sprintf(",fps=%d,setsar=1", frameRate),
		nativeDur: dur,
	}, nil
}

func (e *Engine) resolveImage(ctx context.Context, path string, sceneDur float64) (resolvedVisual, error) {
	if _, err := os.Stat(path); err != nil {
		return resolvedVisual{}, fmt.Errorf("stat visual: %w", err)
	}

	w, h, err := e.ff.Dimensions(ctx, path)
	if err != nil {
		return resolvedVisual{}, err
	}

	return resolvedVisual{
		kind:      VisualImage,
		inputArgs: []string{"-i", path},
		filter:    normalizeFilter(w, h) + "," + kenBurnsFilter(sceneDur) + ",setsar=1",
	}, nil
}

// resolveMissing builds the deterministic fallback: a solid black frame at
// the target size for the full scene duration (the output -t cuts the
// otherwise endless color source).
func (e *Engine) resolveMissing() resolvedVisual {
	src := fmt.Sprintf("color=c=black:s=%dx%d:r=%d", frameWidth, frameHeight, frameRate)
	return resolvedVisual{
		kind:      VisualMissing,
		inputArgs: []string{"-f", "lavfi", "-i", src},
		filter:    "setsar=1",
	}
}

// normalizeFilter scales and center-crops a w x h frame to exactly 1920x1080.
// Wider than or exactly 16:9: scale to height 1080 and crop the overflowing
// width. Narrower: scale to width 1920 and crop the overflowing height.
// The crop filter centers by default, keeping the original frame center.
func normalizeFilter(w, h int) string {
	if w*frameHeight >= h*frameWidth {
		return fmt.Sprintf("scale=-2:%d,crop=%d:%d", frameHeight, frameWidth, frameHeight)
	}
	return fmt.Sprintf("scale=%d:-2,crop=%d:%d", frameWidth, frameWidth, frameHeight)
}

// kenBurnsZoomRange is the total zoom applied to a still image over its
// scene: scale grows linearly from 1.0 to 1.15.
const kenBurnsZoomRange = 0.15

// kenBurnsFilter builds the zoompan filter that animates a still image with
// a slow centered zoom. The zoomed content overflows the fixed canvas and is
// cropped by zoompan itself, so the output frame size never varies.
func kenBurnsFilter(sceneDur float64) string {
	totalFrames := int(math.Ceil(sceneDur * frameRate))
	if totalFrames < frameRate {
		totalFrames = frameRate // minimum 1 second of frames
	}

	return fmt.Sprintf(
		"zoompan=z='1.0+%.2f*on/%d':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:s=%dx%d:fps=%d",
		kenBurnsZoomRange, totalFrames,
		totalFrames,
		frameWidth, frameHeight,
		frameRate,
	)
}
