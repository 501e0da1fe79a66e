package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string

	CallAttempts int

	DispatchInterval  time.Duration
	DispatchBatchSize int

	TTSEndpoint string
	TTSCacheDir string
	TTSTimeout  time.Duration
	TTSPrefetch bool

	RateLimitPerMinute      int
	RateLimitBurst          int
	TokenRateLimitPerMinute int
	TokenRateLimitBurst     int
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:                    port,
		DatabaseURL:             os.Getenv("DB_DSN"),
		CallAttempts:            readInt("CALL_ATTEMPTS", 3),
		DispatchInterval:        readDurationSeconds("EVENT_POLL_INTERVAL_SECONDS", 1),
		DispatchBatchSize:       readInt("EVENT_BATCH_SIZE", 100),
		TTSEndpoint:             readString("KOKORO_TTS_URL", "http://localhost:8880/v1/audio/speech"),
		TTSCacheDir:             readString("TTS_CACHE_DIR", ".run/tts_cache"),
		TTSTimeout:              readDurationSeconds("TTS_TIMEOUT_SECONDS", 15),
		TTSPrefetch:             readBool("TTS_PREFETCH", true),
		RateLimitPerMinute:      readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:          readInt("RATE_LIMIT_BURST", 30),
		TokenRateLimitPerMinute: readInt("TOKEN_RATE_LIMIT_PER_MIN", 600),
		TokenRateLimitBurst:     readInt("TOKEN_RATE_LIMIT_BURST", 120),
	}
}

func readString(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
