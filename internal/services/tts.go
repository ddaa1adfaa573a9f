package services

import "context"

// ---------------------------------------------------------------------------
// TTSService — common interface for text-to-speech providers
// Both OpenAI and ElevenLabs implement this interface so the worker can use
// whichever is configured without knowing the underlying provider.
// ---------------------------------------------------------------------------

// TTSResponse is the common response type from any TTS provider.
// Duration is not reported here — the worker measures the encoded audio
// itself, and that measurement is what drives scene timing.
type TTSResponse struct {
	AudioData []byte
	Format    string // "mp3", "wav", etc.
}

// TTSService is the interface that any TTS provider must implement.
type TTSService interface {
	// GenerateSpeech converts text to audio. voiceID is a provider-specific
	// voice identifier; empty string means the provider's default voice.
	GenerateSpeech(ctx context.Context, text, voiceID string) (*TTSResponse, error)
}
