// Package config handles loading application configuration from environment variables.
// All settings have sensible defaults for local development.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application settings loaded from environment variables.
type Config struct {
	Port                    string
	TempFolder              string
	SnapshotURL             string
	JWTSecret               string
	IdentityTokenDuration   time.Duration
	PaxSongQueueLimit       int
	AdminNicks              []string
	AdminDeviceIDs          []string
	UseLowBitrateURL        bool
	AccessListPath          string
	RateLimitPerMinute      int
	EmoteRateLimitPerMinute int
	CORSAllowedOrigins      []string
	TrustedProxies          []string
	YouTubeAPIKey           string
	DamAPIURL               string
	JoysoundAPIURL          string
	YtdlpProxy              string
	SentryDSN               string
	SentryEnvironment       string
	SentryDSNFrontend       string
}

// Load reads configuration from environment variables, using defaults where not set.
func Load() *Config {
	tempFolder := getEnv("TEMP_FOLDER", "./karafriends-tmp")

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		TempFolder:              tempFolder,
		SnapshotURL:             getEnv("SNAPSHOT_URL", filepath.Join(tempFolder, "queue.json")),
		JWTSecret:               getEnv("JWT_SECRET", "change-me-in-production"), // #nosec G101 -- intentional dev default
		IdentityTokenDuration:   getDurationEnv("IDENTITY_TOKEN_DURATION", 30*24*time.Hour),
		PaxSongQueueLimit:       getIntEnv("PAX_SONG_QUEUE_LIMIT", 0),
		AdminNicks:              getStringSliceEnv("ADMIN_NICKS"),
		AdminDeviceIDs:          getStringSliceEnv("ADMIN_DEVICE_IDS"),
		UseLowBitrateURL:        getBoolEnv("USE_LOW_BITRATE_URL", false),
		AccessListPath:          getEnv("ACCESS_LIST_PATH", ""),
		RateLimitPerMinute:      getIntEnv("RATE_LIMIT_PER_MINUTE", 30),
		EmoteRateLimitPerMinute: getIntEnv("EMOTE_RATE_LIMIT_PER_MINUTE", 60),
		CORSAllowedOrigins:      getStringSliceEnvDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		TrustedProxies:          getStringSliceEnv("TRUSTED_PROXIES"),
		YouTubeAPIKey:           getEnv("YOUTUBE_API_KEY", ""),
		DamAPIURL:               getEnv("DAM_API_URL", ""),
		JoysoundAPIURL:          getEnv("JOYSOUND_API_URL", ""),
		YtdlpProxy:              getEnv("YTDLP_PROXY", ""),
		SentryDSN:               getEnv("SENTRY_DSN", ""),
		SentryEnvironment:       getEnv("SENTRY_ENVIRONMENT", "production"),
		SentryDSNFrontend:       getEnv("SENTRY_DSN_FRONTEND", ""),
	}
}

// MediaDir is where fetched media files are written.
func (c *Config) MediaDir() string {
	return filepath.Join(c.TempFolder, "media")
}

func getStringSliceEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var result []string
	for _, s := range strings.Split(value, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

func getStringSliceEnvDefault(key string, defaultValue []string) []string {
	if v := getStringSliceEnv(key); len(v) > 0 {
		return v
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
