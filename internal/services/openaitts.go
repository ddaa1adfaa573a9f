package services

import (
	"context"
	"fmt"
	"io"
	"log"

	openai "github.com/sashabaranov/go-openai"
)

// ---------------------------------------------------------------------------
// OpenAI Text-to-Speech Service
// Uses the tts-1 model for narration audio. This is the preferred provider;
// ElevenLabs is the fallback when no OpenAI key is configured.
// ---------------------------------------------------------------------------

const openAIDefaultVoice = "onyx"

type OpenAITTSService struct {
	client       *openai.Client
	defaultVoice string
}

// Ensure OpenAITTSService implements TTSService at compile time.
var _ TTSService = (*OpenAITTSService)(nil)

func NewOpenAITTSService(apiKey, defaultVoice string) *OpenAITTSService {
	if defaultVoice == "" {
		defaultVoice = openAIDefaultVoice
	}
	return &OpenAITTSService{
		client:       openai.NewClient(apiKey),
		defaultVoice: defaultVoice,
	}
}

// GenerateSpeech converts text to speech using OpenAI's TTS API.
// Implements the TTSService interface.
func (s *OpenAITTSService) GenerateSpeech(ctx context.Context, text, voiceID string) (*TTSResponse, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot synthesize empty text")
	}

	voice := s.defaultVoice
	if voiceID != "" {
		voice = voiceID
	}

	log.Printf("[OpenAI TTS] Generating speech (voice=%s, textLen=%d)", voice, len(text))

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai tts request failed: %w", err)
	}
	defer resp.Close()

	audioData, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read tts audio: %w", err)
	}

	if len(audioData) == 0 {
		return nil, fmt.Errorf("openai tts returned empty audio")
	}

	log.Printf("[OpenAI TTS] Received %d bytes of audio", len(audioData))

	return &TTSResponse{
		AudioData: audioData,
		Format:    "mp3",
	}, nil
}
