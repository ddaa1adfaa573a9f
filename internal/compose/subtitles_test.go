package compose

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWrapText(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{
			name:  "fits on one line",
			text:  "a short line",
			width: 50,
			want:  []string{"a short line"},
		},
		{
			name:  "wraps at word boundary",
			text:  "the quick brown fox jumps over the lazy dog",
			width: 20,
			want:  []string{"the quick brown fox", "jumps over the lazy", "dog"},
		},
		{
			name:  "overlong word gets its own line",
			text:  "see supercalifragilisticexpialidocious now",
			width: 10,
			want:  []string{"see", "supercalifragilisticexpialidocious", "now"},
		},
		{
			// 19 runes but 35 bytes: wrapping must measure runes
			name:  "multi-byte text measured in runes",
			text:  "żółć żółć żółć żółć",
			width: 20,
			want:  []string{"żółć żółć żółć żółć"},
		},
		{
			name:  "collapses whitespace",
			text:  "  spaced \n out  words ",
			width: 50,
			want:  []string{"spaced out words"},
		},
		{
			name:  "empty",
			text:  "   ",
			width: 50,
			want:  nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := wrapText(tc.text, tc.width)
			if len(got) != len(tc.want) {
				t.Fatalf("wrapText(%q) = %v, want %v", tc.text, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("line %d: got %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestWriteSceneSubtitles(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "scene.ass")

	narration := "A very long narration line that certainly will not fit inside fifty columns and must wrap."
	if err := writeSceneSubtitles(narration, 7.5, out); err != nil {
		t.Fatalf("writeSceneSubtitles: %v", err)
	}

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	content := string(b)

	if !strings.Contains(content, "PlayResX: 1920") || !strings.Contains(content, "PlayResY: 1080") {
		t.Errorf("canvas size missing:\n%s", content)
	}
	// White text with black outline, bottom-center alignment.
	if !strings.Contains(content, "&H00FFFFFF") || !strings.Contains(content, "&H00000000") {
		t.Errorf("expected white/black style colors:\n%s", content)
	}
	if !strings.Contains(content, "Dialogue: 0,0:00:00.00,0:00:07.50,Default") {
		t.Errorf("dialogue must span 0 to 7.5s:\n%s", content)
	}
	if !strings.Contains(content, "\\N") {
		t.Errorf("long narration must be wrapped onto multiple lines:\n%s", content)
	}

	for _, line := range strings.Split(content, "\\N") {
		if i := strings.LastIndex(line, ",,"); i >= 0 {
			line = line[i+2:]
		}
		if len(line) > subtitleWrapColumns+1 {
			// allow trailing newline slack only
			if len(strings.TrimSpace(line)) > subtitleWrapColumns {
				t.Errorf("wrapped line exceeds %d columns: %q", subtitleWrapColumns, line)
			}
		}
	}
}

func TestWriteSceneSubtitlesRejectsEmptyText(t *testing.T) {
	if err := writeSceneSubtitles("   ", 5, filepath.Join(t.TempDir(), "x.ass")); err == nil {
		t.Fatal("expected an error for empty narration")
	}
}

func TestFormatASSTime(t *testing.T) {
	cases := []struct {
		sec  float64
		want string
	}{
		{0, "0:00:00.00"},
		{7.5, "0:00:07.50"},
		{61.25, "0:01:01.25"},
		{3600, "1:00:00.00"},
		{-3, "0:00:00.00"},
	}
	for _, tc := range cases {
		if got := formatASSTime(tc.sec); got != tc.want {
			t.Errorf("formatASSTime(%v) = %q, want %q", tc.sec, got, tc.want)
		}
	}
}
