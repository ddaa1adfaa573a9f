package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/storyreel/storyreel/internal/models"
)

func TestParseScript(t *testing.T) {
	raw := `[
		{"scene_id": 1, "text": "The ocean covers most of our planet.", "stock_video_query": "ocean waves", "duration_estimate": 7},
		{"scene_id": 2, "text": "Beneath the surface, life thrives.", "stock_video_query": "coral reef", "duration_estimate": 6}
	]`

	scenes, err := ParseScript(raw)
	if err != nil {
		t.Fatalf("ParseScript failed: %v", err)
	}

	if len(scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(scenes))
	}
	if scenes[0].SceneID != 1 || scenes[1].SceneID != 2 {
		t.Errorf("scene IDs not preserved: %d, %d", scenes[0].SceneID, scenes[1].SceneID)
	}
	if scenes[1].StockQuery != "coral reef" {
		t.Errorf("stock query not preserved: %q", scenes[1].StockQuery)
	}
}

func TestParseScriptStripsMarkdownFences(t *testing.T) {
	raw := "```json\n[{\"scene_id\": 1, \"text\": \"Hello.\", \"stock_video_query\": \"city\", \"duration_estimate\": 5}]\n```"

	scenes, err := ParseScript(raw)
	if err != nil {
		t.Fatalf("ParseScript failed: %v", err)
	}
	if len(scenes) != 1 || scenes[0].Text != "Hello." {
		t.Errorf("unexpected scenes: %+v", scenes)
	}
}

func TestParseScriptAcceptsWrappedObject(t *testing.T) {
	raw := `{"scenes": [{"scene_id": 1, "text": "Wrapped.", "stock_video_query": "sky", "duration_estimate": 5}]}`

	scenes, err := ParseScript(raw)
	if err != nil {
		t.Fatalf("ParseScript failed: %v", err)
	}
	if len(scenes) != 1 || scenes[0].Text != "Wrapped." {
		t.Errorf("unexpected scenes: %+v", scenes)
	}
}

func TestParseScriptFillsDefaults(t *testing.T) {
	raw := `[{"text": "No id or query here."}]`

	scenes, err := ParseScript(raw)
	if err != nil {
		t.Fatalf("ParseScript failed: %v", err)
	}

	if scenes[0].SceneID != 1 {
		t.Errorf("expected positional scene ID 1, got %d", scenes[0].SceneID)
	}
	if scenes[0].StockQuery != models.DefaultStockQuery {
		t.Errorf("expected default stock query, got %q", scenes[0].StockQuery)
	}
}

func TestParseScriptRenumbersDuplicateSceneIDs(t *testing.T) {
	raw := `[
		{"scene_id": 1, "text": "First scene.", "stock_video_query": "sunrise"},
		{"scene_id": 1, "text": "Second scene.", "stock_video_query": "sunset"},
		{"scene_id": 2, "text": "Third scene.", "stock_video_query": "night sky"}
	]`

	scenes, err := ParseScript(raw)
	if err != nil {
		t.Fatalf("ParseScript failed: %v", err)
	}

	seen := make(map[int]bool)
	for i, sc := range scenes {
		if sc.SceneID != i+1 {
			t.Errorf("scene %d: expected sequential id %d, got %d", i, i+1, sc.SceneID)
		}
		if seen[sc.SceneID] {
			t.Errorf("duplicate scene id %d survived renumbering", sc.SceneID)
		}
		seen[sc.SceneID] = true
	}
	if scenes[1].Text != "Second scene." || scenes[1].StockQuery != "sunset" {
		t.Errorf("renumbering must not reorder scene content: %+v", scenes[1])
	}
}

func TestParseScriptRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "once upon a time"},
		{"empty array", "[]"},
		{"empty object", "{}"},
		{"scene without text", `[{"scene_id": 1, "stock_video_query": "sky"}]`},
		{"blank narration", `[{"scene_id": 1, "text": "   "}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseScript(tt.raw); err == nil {
				t.Errorf("expected error for %q", tt.raw)
			}
		})
	}
}

func TestPickVideoFile(t *testing.T) {
	files := []pexelsVideoFile{
		{ID: 1, Width: 3840, Height: 2160, Quality: "uhd", Link: "https://example.com/uhd"},
		{ID: 2, Width: 1920, Height: 1080, Quality: "hd", Link: "https://example.com/hd"},
		{ID: 3, Width: 640, Height: 360, Quality: "sd", Link: "https://example.com/sd"},
	}

	picked, err := pickVideoFile(files)
	if err != nil {
		t.Fatalf("pickVideoFile failed: %v", err)
	}
	if picked.ID != 2 {
		t.Errorf("expected the 1920-wide file, got ID %d (width %d)", picked.ID, picked.Width)
	}
}

func TestPickVideoFileAllTooWide(t *testing.T) {
	files := []pexelsVideoFile{
		{ID: 1, Width: 4096, Link: "https://example.com/a"},
		{ID: 2, Width: 3840, Link: "https://example.com/b"},
	}

	picked, err := pickVideoFile(files)
	if err != nil {
		t.Fatalf("pickVideoFile failed: %v", err)
	}
	if picked.ID != 2 {
		t.Errorf("expected the narrowest file, got ID %d", picked.ID)
	}
}

func TestPickVideoFileEmpty(t *testing.T) {
	if _, err := pickVideoFile(nil); err == nil {
		t.Fatal("expected error for empty file list")
	}
}

func TestErrNoStockResultsIsDistinguishable(t *testing.T) {
	wrapped := fmt.Errorf("%w: mountain sunrise", ErrNoStockResults)
	if !errors.Is(wrapped, ErrNoStockResults) {
		t.Error("wrapped no-results error should match ErrNoStockResults")
	}
	if !strings.Contains(wrapped.Error(), "mountain sunrise") {
		t.Errorf("query missing from error: %v", wrapped)
	}
}
