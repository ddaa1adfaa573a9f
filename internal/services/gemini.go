package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"github.com/storyreel/storyreel/internal/models"
)

// ---------------------------------------------------------------------------
// Gemini Script Generation Service
// Uses the Google Gen AI SDK in JSON mode to turn extracted document text
// into a scene-by-scene narration script.
// ---------------------------------------------------------------------------

const (
	defaultGeminiModel = "gemini-2.0-flash-lite"

	// Gemini input is truncated past this point — the interesting narrative
	// structure of a document is nearly always in its first pages.
	maxSourceChars = 30000

	maxLogLen = 2000
)

type GeminiService struct {
	apiKey string
	model  string
}

func NewGeminiService(apiKey, model string) *GeminiService {
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiService{
		apiKey: apiKey,
		model:  model,
	}
}

const scriptPromptTemplate = `You are an expert video essayist and documentarian.
Analyze the following text and create a compelling video script.

CRITICAL INSTRUCTION: Break the script into MANY short scenes.
Each scene must be between 5 to 10 seconds long.
Do not write long paragraphs. Split long sentences into multiple scenes.

The output MUST be a strictly valid JSON string representing a list of scenes.

Each scene in the list should be a dictionary with the following keys:
- "scene_id": Integer, sequential starting from 1.
- "text": String, the narration script for this scene. Keep it engaging and concise.
- "stock_video_query": String, a concise 1-3 word search query to find a relevant stock video on Pexels (e.g., "ocean waves", "corporate meeting", "forest drone").
- "duration_estimate": Integer, estimated duration in seconds (aim for 5-10).

Text to analyze:
%s`

// GenerateScript produces a scene-by-scene narration script from document text.
// Scenes come back normalized: positional IDs and default stock queries are
// filled in where the model omitted them.
func (s *GeminiService) GenerateScript(ctx context.Context, sourceText string) ([]models.ScriptScene, error) {
	if strings.TrimSpace(sourceText) == "" {
		return nil, fmt.Errorf("source text is empty")
	}

	if len(sourceText) > maxSourceChars {
		sourceText = sourceText[:maxSourceChars]
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	prompt := fmt.Sprintf(scriptPromptTemplate, sourceText)

	log.Printf("[Gemini] Generating script (model=%s, sourceLen=%d)", s.model, len(sourceText))

	resp, err := client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	raw := strings.TrimSpace(resp.Text())
	if raw == "" {
		return nil, fmt.Errorf("gemini returned empty response")
	}

	scenes, err := ParseScript(raw)
	if err != nil {
		if len(raw) > maxLogLen {
			log.Printf("[Gemini] raw response (truncated): %s...", raw[:maxLogLen])
		} else {
			log.Printf("[Gemini] raw response: %s", raw)
		}
		return nil, err
	}

	log.Printf("[Gemini] Script generated with %d scenes", len(scenes))
	return scenes, nil
}

// ParseScript decodes a JSON script into normalized scene records. Accepts
// either a bare array or an object wrapping one, and strips markdown fences
// the model sometimes emits despite JSON mode.
func ParseScript(raw string) ([]models.ScriptScene, error) {
	raw = stripCodeFences(raw)

	var scenes []models.ScriptScene
	if err := json.Unmarshal([]byte(raw), &scenes); err != nil {
		// Some responses wrap the list in an object
		var wrapper struct {
			Scenes []models.ScriptScene `json:"scenes"`
		}
		if werr := json.Unmarshal([]byte(raw), &wrapper); werr != nil || len(wrapper.Scenes) == 0 {
			return nil, fmt.Errorf("failed to parse script JSON: %w", err)
		}
		scenes = wrapper.Scenes
	}

	if len(scenes) == 0 {
		return nil, fmt.Errorf("script contains no scenes")
	}

	for i := range scenes {
		if strings.TrimSpace(scenes[i].Text) == "" {
			return nil, fmt.Errorf("scene %d has no narration text", i+1)
		}
		scenes[i].Normalize(i)
	}

	// Scene IDs key filenames downstream, so repeats would make two scenes
	// overwrite each other's outputs. Renumber the whole script sequentially
	// when the model repeats an id.
	seen := make(map[int]bool, len(scenes))
	for _, sc := range scenes {
		if seen[sc.SceneID] {
			log.Printf("[Gemini] duplicate scene_id %d in script, renumbering all scenes sequentially", sc.SceneID)
			for i := range scenes {
				scenes[i].SceneID = i + 1
			}
			break
		}
		seen[sc.SceneID] = true
	}

	return scenes, nil
}

func stripCodeFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```json") {
		raw = raw[len("```json"):]
	} else if strings.HasPrefix(raw, "```") {
		raw = raw[3:]
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}
