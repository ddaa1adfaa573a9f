package compose

import (
	"context"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Toolchain probe
//
// Verifies once per process that the configured ffmpeg and ffprobe binaries
// exist and answer to -version. Run at worker startup so a broken media
// toolchain fails fast instead of surfacing mid-render. Core composition
// code assumes this has passed and never re-checks.
// ---------------------------------------------------------------------------

// EnsureToolchain probes the ffmpeg and ffprobe binaries. The first call does
// the work; later calls return the cached result.
func (f *FFmpeg) EnsureToolchain(ctx context.Context) error {
	f.probeOnce.Do(func() {
		f.probeErr = f.probeToolchain(ctx)
	})
	return f.probeErr
}

func (f *FFmpeg) probeToolchain(ctx context.Context) error {
	out, err := f.runner.Output(ctx, f.ffmpeg, "-version")
	if err != nil {
		return fmt.Errorf("ffmpeg not available at %q: %w", f.ffmpeg, err)
	}
	if !strings.HasPrefix(string(out), "ffmpeg version") {
		return fmt.Errorf("unexpected ffmpeg -version output from %q", f.ffmpeg)
	}

	out, err = f.runner.Output(ctx, f.ffprobe, "-version")
	if err != nil {
		return fmt.Errorf("ffprobe not available at %q: %w", f.ffprobe, err)
	}
	if !strings.HasPrefix(string(out), "ffprobe version") {
		return fmt.Errorf("unexpected ffprobe -version output from %q", f.ffprobe)
	}

	return nil
}
