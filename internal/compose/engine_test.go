package compose

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRunner answers ffprobe queries from canned tables and records every
// ffmpeg invocation so tests can assert on the exact command lines without a
// media toolchain installed.
type fakeRunner struct {
	durations map[string]float64 // path -> probed duration (seconds)
	dims      map[string]string  // path -> "WIDTHxHEIGHT"

	runCalls    [][]string // ffmpeg arg lists, in call order
	concatLists []string   // concat list file contents captured at call time
	failRunWith string     // non-empty: fail any Run whose args contain this
}

func (f *fakeRunner) Run(_ context.Context, _ string, args ...string) error {
	if f.failRunWith != "" {
		for _, a := range args {
			if strings.Contains(a, f.failRunWith) {
				return fmt.Errorf("ffmpeg failed: simulated")
			}
		}
	}

	// Capture the concat list before the assembler deletes it.
	for i, a := range args {
		if a == "concat" && i+3 < len(args) {
			if b, err := os.ReadFile(argValue(args, "-i")); err == nil {
				f.concatLists = append(f.concatLists, string(b))
			}
		}
	}

	f.runCalls = append(f.runCalls, args)
	return nil
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	if len(args) == 1 && args[0] == "-version" {
		return []byte(name + " version 6.1.1"), nil
	}

	path := args[len(args)-1]
	for _, a := range args {
		if a == "format=duration" {
			d, ok := f.durations[path]
			if !ok {
				return nil, fmt.Errorf("probe failed for %s", path)
			}
			return []byte(fmt.Sprintf("%.6f\n", d)), nil
		}
		if a == "stream=width,height" {
			s, ok := f.dims[path]
			if !ok {
				return nil, fmt.Errorf("probe failed for %s", path)
			}
			return []byte(s + "\n"), nil
		}
	}
	return nil, fmt.Errorf("unexpected probe args: %v", args)
}

// argValue returns the argument following the given flag, or "".
func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func hasArgPair(args []string, flag, value string) bool {
	for i, a := range args {
		if a == flag && i+1 < len(args) && args[i+1] == value {
			return true
		}
	}
	return false
}

func newTestEngine(t *testing.T, fr *fakeRunner, opts Options) *Engine {
	t.Helper()
	ff := &FFmpeg{ffmpeg: "ffmpeg", ffprobe: "ffprobe", runner: fr}
	return NewEngine(ff, t.TempDir(), opts)
}

// touch creates an empty file so os.Stat checks pass.
func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestAssemblePreservesSceneOrder(t *testing.T) {
	dir := t.TempDir()
	fr := &fakeRunner{
		durations: map[string]float64{},
		dims:      map[string]string{},
	}

	var scenes []SceneInput
	for i := 1; i <= 3; i++ {
		audio := touch(t, dir, fmt.Sprintf("audio_%d.mp3", i))
		video := touch(t, dir, fmt.Sprintf("video_%d.mp4", i))
		fr.durations[audio] = 6.0
		fr.durations[video] = 10.0 // longer than audio: trimmed, never looped
		fr.dims[video] = "3840x2160"

		scenes = append(scenes, SceneInput{
			Index:     i,
			SceneID:   i,
			Narration: fmt.Sprintf("scene %d narration", i),
			AudioPath: audio,
			Visual:    Visual{Kind: VisualVideo, Path: video},
		})
	}

	e := newTestEngine(t, fr, Options{})
	out := filepath.Join(dir, "final.mp4")

	got, err := e.Assemble(context.Background(), scenes, out)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if got != out {
		t.Fatalf("expected output path %s, got %s", out, got)
	}

	// 3 scene renders + 1 concat
	if len(fr.runCalls) != 4 {
		t.Fatalf("expected 4 ffmpeg calls, got %d", len(fr.runCalls))
	}

	for i := 0; i < 3; i++ {
		args := fr.runCalls[i]
		if !hasArgPair(args, "-t", "6.000") {
			t.Errorf("scene %d: expected -t 6.000 in %v", i+1, args)
		}
		if argValue(args, "-stream_loop") != "" {
			t.Errorf("scene %d: 10s video must not loop for 6s audio", i+1)
		}
		filter := argValue(args, "-filter_complex")
		if !strings.Contains(filter, "scale=-2:1080,crop=1920:1080") {
			t.Errorf("scene %d: wide video not normalized, filter=%q", i+1, filter)
		}
	}

	if len(fr.concatLists) != 1 {
		t.Fatalf("expected 1 concat list, got %d", len(fr.concatLists))
	}
	list := fr.concatLists[0]
	p1 := strings.Index(list, "scene_1.mp4")
	p2 := strings.Index(list, "scene_2.mp4")
	p3 := strings.Index(list, "scene_3.mp4")
	if p1 < 0 || p2 < 0 || p3 < 0 || !(p1 < p2 && p2 < p3) {
		t.Fatalf("concat list not in scene order:\n%s", list)
	}
}

func TestAssembleLoopsShortVideo(t *testing.T) {
	dir := t.TempDir()
	audio := touch(t, dir, "audio.mp3")
	video := touch(t, dir, "video.mp4")

	fr := &fakeRunner{
		durations: map[string]float64{audio: 6.0, video: 2.5},
		dims:      map[string]string{video: "1920x1080"},
	}

	e := newTestEngine(t, fr, Options{})
	_, err := e.Assemble(context.Background(), []SceneInput{{
		Index:     1,
		SceneID:   1,
		AudioPath: audio,
		Visual:    Visual{Kind: VisualVideo, Path: video},
	}}, filepath.Join(dir, "out.mp4"))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	args := fr.runCalls[0]
	if !hasArgPair(args, "-stream_loop", "-1") {
		t.Fatalf("expected -stream_loop -1 for 2.5s video under 6s audio, got %v", args)
	}
	if !hasArgPair(args, "-t", "6.000") {
		t.Fatalf("looped clip must still be cut at the audio duration, got %v", args)
	}
}

func TestAssembleMissingVisualGetsBlackPlaceholder(t *testing.T) {
	dir := t.TempDir()
	audio := touch(t, dir, "audio.mp3")

	fr := &fakeRunner{
		durations: map[string]float64{audio: 8.0},
		dims:      map[string]string{},
	}

	e := newTestEngine(t, fr, Options{})
	_, err := e.Assemble(context.Background(), []SceneInput{{
		Index:     1,
		SceneID:   1,
		AudioPath: audio,
		Visual:    Visual{Kind: VisualMissing},
	}}, filepath.Join(dir, "out.mp4"))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	args := fr.runCalls[0]
	src := argValue(args, "-i")
	if !strings.Contains(src, "color=c=black:s=1920x1080:r=24") {
		t.Fatalf("expected black lavfi source, got input %q", src)
	}
	if !hasArgPair(args, "-t", "8.000") {
		t.Fatalf("placeholder scene must run for the full audio duration, got %v", args)
	}
}

func TestAssembleUndecodableVideoFallsBackToPlaceholder(t *testing.T) {
	dir := t.TempDir()
	audio := touch(t, dir, "audio.mp3")
	video := touch(t, dir, "broken.mp4") // exists but has no probe entries

	var warnings []string
	fr := &fakeRunner{
		durations: map[string]float64{audio: 5.0},
		dims:      map[string]string{},
	}

	e := newTestEngine(t, fr, Options{
		Logf: func(format string, args ...any) {
			warnings = append(warnings, fmt.Sprintf(format, args...))
		},
	})
	_, err := e.Assemble(context.Background(), []SceneInput{{
		Index:     1,
		SceneID:   1,
		AudioPath: audio,
		Visual:    Visual{Kind: VisualVideo, Path: video},
	}}, filepath.Join(dir, "out.mp4"))
	if err != nil {
		t.Fatalf("a broken visual must not fail the run: %v", err)
	}

	if !strings.Contains(argValue(fr.runCalls[0], "-i"), "color=c=black") {
		t.Fatalf("expected placeholder input, got %v", fr.runCalls[0])
	}

	found := false
	for _, w := range warnings {
		if strings.Contains(w, "WARNING") && strings.Contains(w, "broken.mp4") && strings.Contains(w, string(PhaseResolve)) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a resolve-phase warning naming the broken visual, got %v", warnings)
	}
}

func TestAssembleDuplicateSceneIDsRenderDistinctClips(t *testing.T) {
	dir := t.TempDir()
	audio1 := touch(t, dir, "audio_1.mp3")
	audio2 := touch(t, dir, "audio_2.mp3")

	fr := &fakeRunner{
		durations: map[string]float64{audio1: 4.0, audio2: 5.0},
	}
	e := newTestEngine(t, fr, Options{})

	// Both scenes claim scene id 1; clip paths must still be distinct.
	_, err := e.Assemble(context.Background(), []SceneInput{
		{Index: 0, SceneID: 1, AudioPath: audio1, Visual: Visual{Kind: VisualMissing}},
		{Index: 1, SceneID: 1, AudioPath: audio2, Visual: Visual{Kind: VisualMissing}},
	}, filepath.Join(dir, "out.mp4"))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	// 2 scene renders + 1 concat
	if len(fr.runCalls) != 3 {
		t.Fatalf("expected 3 ffmpeg calls, got %d", len(fr.runCalls))
	}

	out0 := fr.runCalls[0][len(fr.runCalls[0])-1]
	out1 := fr.runCalls[1][len(fr.runCalls[1])-1]
	if out0 == out1 {
		t.Fatalf("both scenes rendered to the same clip path %q", out0)
	}

	if len(fr.concatLists) != 1 {
		t.Fatalf("expected 1 concat list, got %d", len(fr.concatLists))
	}
	if !strings.Contains(fr.concatLists[0], "scene_0.mp4") || !strings.Contains(fr.concatLists[0], "scene_1.mp4") {
		t.Fatalf("concat list must reference both clips:\n%s", fr.concatLists[0])
	}
}

func TestSceneRenderFailureCarriesRenderPhase(t *testing.T) {
	dir := t.TempDir()
	audio := touch(t, dir, "audio.mp3")

	fr := &fakeRunner{
		durations:   map[string]float64{audio: 3.0},
		failRunWith: "scene_1.mp4",
	}
	e := newTestEngine(t, fr, Options{SkipFailedScenes: false})

	_, err := e.Assemble(context.Background(), []SceneInput{
		{Index: 1, SceneID: 1, AudioPath: audio, Visual: Visual{Kind: VisualMissing}},
	}, filepath.Join(dir, "out.mp4"))

	var serr *SceneError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SceneError, got %v", err)
	}
	if serr.Phase != PhaseRender {
		t.Fatalf("expected render phase, got %s", serr.Phase)
	}
}

func TestAssembleSkipAndContinue(t *testing.T) {
	dir := t.TempDir()
	audio1 := touch(t, dir, "audio_1.mp3")
	audio2 := touch(t, dir, "audio_2.mp3")

	makeScenes := func() []SceneInput {
		return []SceneInput{
			{Index: 1, SceneID: 1, AudioPath: audio1, Visual: Visual{Kind: VisualMissing}},
			{Index: 2, SceneID: 2, AudioPath: audio2, Visual: Visual{Kind: VisualMissing}},
		}
	}

	t.Run("skip enabled drops the bad scene", func(t *testing.T) {
		fr := &fakeRunner{
			durations: map[string]float64{audio1: 4.0, audio2: 0.0}, // scene 2 zero-length
		}
		e := newTestEngine(t, fr, Options{SkipFailedScenes: true})

		_, err := e.Assemble(context.Background(), makeScenes(), filepath.Join(dir, "out_a.mp4"))
		if err != nil {
			t.Fatalf("assemble: %v", err)
		}
		if len(fr.concatLists) != 1 {
			t.Fatalf("expected a concat, got %d", len(fr.concatLists))
		}
		if strings.Contains(fr.concatLists[0], "scene_2.mp4") {
			t.Fatalf("scene 2 must be dropped from the timeline:\n%s", fr.concatLists[0])
		}
		if !strings.Contains(fr.concatLists[0], "scene_1.mp4") {
			t.Fatalf("scene 1 missing from the timeline:\n%s", fr.concatLists[0])
		}
	})

	t.Run("skip disabled aborts naming the scene", func(t *testing.T) {
		fr := &fakeRunner{
			durations: map[string]float64{audio1: 4.0, audio2: 0.0},
		}
		e := newTestEngine(t, fr, Options{SkipFailedScenes: false})

		_, err := e.Assemble(context.Background(), makeScenes(), filepath.Join(dir, "out_b.mp4"))
		var serr *SceneError
		if !errors.As(err, &serr) {
			t.Fatalf("expected *SceneError, got %v", err)
		}
		if serr.Index != 2 || serr.Phase != PhaseBuild {
			t.Fatalf("expected scene 2 build failure, got index=%d phase=%s", serr.Index, serr.Phase)
		}
		if len(fr.concatLists) != 0 {
			t.Fatalf("no concat must happen after an abort")
		}
	})
}

func TestAssembleEmptyTimeline(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		fr := &fakeRunner{}
		e := newTestEngine(t, fr, Options{})

		_, err := e.Assemble(context.Background(), nil, "out.mp4")
		if !errors.Is(err, ErrEmptyTimeline) {
			t.Fatalf("expected ErrEmptyTimeline, got %v", err)
		}
		if len(fr.runCalls) != 0 {
			t.Fatalf("no encoder must be invoked for an empty timeline")
		}
	})

	t.Run("every scene failed", func(t *testing.T) {
		dir := t.TempDir()
		audio := touch(t, dir, "audio.mp3")
		fr := &fakeRunner{durations: map[string]float64{audio: 0.0}}
		e := newTestEngine(t, fr, Options{SkipFailedScenes: true})

		_, err := e.Assemble(context.Background(), []SceneInput{
			{Index: 1, SceneID: 1, AudioPath: audio, Visual: Visual{Kind: VisualMissing}},
		}, filepath.Join(dir, "out.mp4"))
		if !errors.Is(err, ErrEmptyTimeline) {
			t.Fatalf("expected ErrEmptyTimeline, got %v", err)
		}
	})
}

func TestAssembleBurnsSubtitles(t *testing.T) {
	dir := t.TempDir()
	audio := touch(t, dir, "audio.mp3")

	fr := &fakeRunner{durations: map[string]float64{audio: 8.0}}
	e := newTestEngine(t, fr, Options{BurnSubtitles: true})

	narration := "The quick brown fox jumps over the lazy dog near the quiet river bank at dawn."
	_, err := e.Assemble(context.Background(), []SceneInput{{
		Index:     1,
		SceneID:   1,
		Narration: narration,
		AudioPath: audio,
		Visual:    Visual{Kind: VisualMissing},
	}}, filepath.Join(dir, "out.mp4"))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	filter := argValue(fr.runCalls[0], "-filter_complex")
	if !strings.Contains(filter, ",ass='") {
		t.Fatalf("expected burned-in subtitles in filter %q", filter)
	}

	assPath := filepath.Join(e.workDir, "subs_1.ass")
	b, err := os.ReadFile(assPath)
	if err != nil {
		t.Fatalf("read subtitle file: %v", err)
	}
	if !strings.Contains(string(b), "0:00:08.00") {
		t.Fatalf("subtitle event must span the full 8s scene:\n%s", string(b))
	}
}

func TestConcatRenderErrorIsFatal(t *testing.T) {
	dir := t.TempDir()
	audio := touch(t, dir, "audio.mp3")

	fr := &fakeRunner{
		durations:   map[string]float64{audio: 3.0},
		failRunWith: "concat_list.txt",
	}
	e := newTestEngine(t, fr, Options{SkipFailedScenes: true})

	_, err := e.Assemble(context.Background(), []SceneInput{
		{Index: 1, SceneID: 1, AudioPath: audio, Visual: Visual{Kind: VisualMissing}},
	}, filepath.Join(dir, "out.mp4"))
	if err == nil || !strings.Contains(err.Error(), "render failed") {
		t.Fatalf("expected a fatal render error, got %v", err)
	}
	if errors.Is(err, ErrEmptyTimeline) {
		t.Fatalf("render failure must be distinct from the empty-timeline error")
	}
}

func TestEnsureToolchain(t *testing.T) {
	fr := &fakeRunner{}
	ff := &FFmpeg{ffmpeg: "ffmpeg", ffprobe: "ffprobe", runner: fr}

	if err := ff.EnsureToolchain(context.Background()); err != nil {
		t.Fatalf("toolchain probe: %v", err)
	}
}
