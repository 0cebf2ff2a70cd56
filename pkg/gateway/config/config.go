// Package config loads gateway settings from VOX_-prefixed environment
// variables with usable defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	// AWS wiring.
	Region          string
	ModelID         string
	KnowledgeBaseID string // empty disables the retrieval tool

	VoiceID string

	// Audio ingestion buffer per session.
	MaxAudioQueue  int
	AudioBatchSize int

	// Sessions with no traffic for longer than IdleSessionTimeout are
	// force-closed by the reaper.
	IdleSessionTimeout time.Duration
	ReapInterval       time.Duration

	// Live WebSocket endpoint.
	WSPingInterval  time.Duration
	WSWriteTimeout  time.Duration
	MaxMessageBytes int64

	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("VOX_ADDR", ":8080"),
		Region:              envOr("VOX_AWS_REGION", "us-east-1"),
		ModelID:             envOr("VOX_MODEL_ID", "amazon.nova-sonic-v1:0"),
		KnowledgeBaseID:     envOr("VOX_KNOWLEDGE_BASE_ID", ""),
		VoiceID:             envOr("VOX_VOICE_ID", "tiffany"),
		MaxAudioQueue:       envIntOr("VOX_MAX_AUDIO_QUEUE", 200),
		AudioBatchSize:      envIntOr("VOX_AUDIO_BATCH_SIZE", 5),
		IdleSessionTimeout:  envDurationOr("VOX_IDLE_SESSION_TIMEOUT", 5*time.Minute),
		ReapInterval:        envDurationOr("VOX_REAP_INTERVAL", time.Minute),
		WSPingInterval:      envDurationOr("VOX_WS_PING_INTERVAL", 20*time.Second),
		WSWriteTimeout:      envDurationOr("VOX_WS_WRITE_TIMEOUT", 5*time.Second),
		MaxMessageBytes:     envInt64Or("VOX_MAX_MESSAGE_BYTES", 512<<10), // base64 audio frames
		ReadHeaderTimeout:   envDurationOr("VOX_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod: envDurationOr("VOX_SHUTDOWN_GRACE_PERIOD", 15*time.Second),
	}

	if strings.TrimSpace(cfg.Region) == "" {
		return Config{}, fmt.Errorf("VOX_AWS_REGION must not be empty")
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		return Config{}, fmt.Errorf("VOX_MODEL_ID must not be empty")
	}
	if cfg.MaxAudioQueue <= 0 {
		return Config{}, fmt.Errorf("VOX_MAX_AUDIO_QUEUE must be > 0")
	}
	if cfg.AudioBatchSize <= 0 {
		return Config{}, fmt.Errorf("VOX_AUDIO_BATCH_SIZE must be > 0")
	}
	if cfg.IdleSessionTimeout <= 0 {
		return Config{}, fmt.Errorf("VOX_IDLE_SESSION_TIMEOUT must be > 0")
	}
	if cfg.ReapInterval <= 0 {
		return Config{}, fmt.Errorf("VOX_REAP_INTERVAL must be > 0")
	}
	if cfg.WSPingInterval <= 0 {
		return Config{}, fmt.Errorf("VOX_WS_PING_INTERVAL must be > 0")
	}
	if cfg.WSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("VOX_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.MaxMessageBytes <= 0 {
		return Config{}, fmt.Errorf("VOX_MAX_MESSAGE_BYTES must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("VOX_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("VOX_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
