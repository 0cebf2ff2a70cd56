package sonic

import (
	"log/slog"
	"time"
)

const DefaultModelID = "amazon.nova-sonic-v1:0"

// InferenceConfig is the sampling configuration sent in sessionStart.
type InferenceConfig struct {
	MaxTokens   int     `json:"maxTokens"`
	TopP        float64 `json:"topP"`
	Temperature float64 `json:"temperature"`
}

func DefaultInferenceConfig() InferenceConfig {
	return InferenceConfig{MaxTokens: 1024, TopP: 0.9, Temperature: 0.7}
}

// AudioInputConfig describes the caller's audio format (contentStart AUDIO).
type AudioInputConfig struct {
	MediaType       string `json:"mediaType"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	SampleSizeBits  int    `json:"sampleSizeBits"`
	ChannelCount    int    `json:"channelCount"`
	AudioType       string `json:"audioType"`
	Encoding        string `json:"encoding"`
}

func DefaultAudioInputConfig() AudioInputConfig {
	return AudioInputConfig{
		MediaType:       "audio/lpcm",
		SampleRateHertz: 16000,
		SampleSizeBits:  16,
		ChannelCount:    1,
		AudioType:       "SPEECH",
		Encoding:        "base64",
	}
}

// AudioOutputConfig describes the synthesized audio the model returns
// (promptStart audioOutputConfiguration).
type AudioOutputConfig struct {
	MediaType       string `json:"mediaType"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	SampleSizeBits  int    `json:"sampleSizeBits"`
	ChannelCount    int    `json:"channelCount"`
	VoiceID         string `json:"voiceId"`
	Encoding        string `json:"encoding"`
	AudioType       string `json:"audioType"`
}

func DefaultAudioOutputConfig() AudioOutputConfig {
	return AudioOutputConfig{
		MediaType:       "audio/lpcm",
		SampleRateHertz: 24000,
		SampleSizeBits:  16,
		ChannelCount:    1,
		VoiceID:         "tiffany",
		Encoding:        "base64",
		AudioType:       "SPEECH",
	}
}

type TextConfig struct {
	MediaType string `json:"mediaType"`
}

func DefaultTextConfig() TextConfig {
	return TextConfig{MediaType: "text/plain"}
}

// Config tunes a Client. The zero value is usable; New fills in defaults.
type Config struct {
	ModelID   string
	Inference InferenceConfig

	// Audio ingestion buffer. Chunks beyond MaxAudioQueue drop the oldest
	// buffered chunk; a drain pass forwards at most AudioBatchSize chunks
	// before yielding.
	MaxAudioQueue  int
	AudioBatchSize int

	// Post-enqueue settle delays during orderly teardown.
	ContentEndDelay time.Duration
	PromptEndDelay  time.Duration
	SessionEndDelay time.Duration

	// OnAudioDropped, when set, is called once per audio chunk discarded
	// by a full ingestion buffer.
	OnAudioDropped func(sessionID string)

	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.ModelID == "" {
		c.ModelID = DefaultModelID
	}
	if c.Inference == (InferenceConfig{}) {
		c.Inference = DefaultInferenceConfig()
	}
	if c.MaxAudioQueue <= 0 {
		c.MaxAudioQueue = 200
	}
	if c.AudioBatchSize <= 0 {
		c.AudioBatchSize = 5
	}
	if c.ContentEndDelay <= 0 {
		c.ContentEndDelay = 500 * time.Millisecond
	}
	if c.PromptEndDelay <= 0 {
		c.PromptEndDelay = 300 * time.Millisecond
	}
	if c.SessionEndDelay <= 0 {
		c.SessionEndDelay = 300 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
