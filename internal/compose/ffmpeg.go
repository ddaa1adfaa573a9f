package compose

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// Output / rendering constants — 1080p landscape (1920x1080) at 24fps
const (
	frameWidth  = 1920
	frameHeight = 1080
	frameRate   = 24
)

// Runner executes an external command. The default implementation shells out;
// tests substitute a recording fake so composition logic can be verified
// without a working ffmpeg install.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w\n%s", name, err, string(b))
	}
	return nil
}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// FFmpeg — thin wrapper around the ffmpeg/ffprobe binaries
// ---------------------------------------------------------------------------

type FFmpeg struct {
	ffmpeg  string
	ffprobe string
	runner  Runner

	probeOnce sync.Once
	probeErr  error
}

// NewFFmpeg creates an FFmpeg wrapper. Empty paths default to binaries
// resolved from PATH.
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{
		ffmpeg:  ffmpegPath,
		ffprobe: ffprobePath,
		runner:  execRunner{},
	}
}

// Exec runs ffmpeg with the given arguments.
func (f *FFmpeg) Exec(ctx context.Context, args ...string) error {
	return f.runner.Run(ctx, f.ffmpeg, args...)
}

// MediaDuration returns the container duration of an audio or video file in seconds.
func (f *FFmpeg) MediaDuration(ctx context.Context, path string) (float64, error) {
	out, err := f.runner.Output(ctx, f.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration failed: %w", err)
	}

	s := strings.TrimSpace(string(out))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", s, err)
	}

	return sec, nil
}

// Dimensions returns the pixel width and height of the first video stream.
// Works for both video files and still images.
func (f *FFmpeg) Dimensions(ctx context.Context, path string) (int, int, error) {
	out, err := f.runner.Output(ctx, f.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe dimensions failed: %w", err)
	}

	s := strings.TrimSpace(string(out))
	parts := strings.Split(s, "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected ffprobe dimensions output %q", s)
	}

	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse width %q: %w", parts[0], err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse height %q: %w", parts[1], err)
	}

	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid dimensions %dx%d", w, h)
	}

	return w, h, nil
}

// formatSeconds renders a duration in seconds as an ffmpeg-friendly decimal.
func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

// escapeFilterPath escapes special characters in file paths for FFmpeg filter syntax.
// FFmpeg filter strings treat colons, backslashes, and single quotes specially.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "\\\\")
	path = strings.ReplaceAll(path, ":", "\\:")
	path = strings.ReplaceAll(path, "'", "'\\''")
	return path
}
