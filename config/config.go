package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis (worker-slot accounting)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Managed library storage
	StorageRoot string // root under which all placed audio lives
	StagingDir  string // temp dir for in-flight downloads

	// External binaries
	ExtractorPath string // yt-dlp compatible binary
	FFmpegPath    string

	// Orchestration limits
	MaxWorkers      int           // global concurrent task ceiling
	ItemConcurrency int           // per-playlist item concurrency
	ThrottleMin     time.Duration // inter-download delay window
	ThrottleMax     time.Duration
	RetryAttempts   int
	RetryBaseDelay  time.Duration
	HeartbeatEvery  time.Duration

	// Provider credentials (each provider degrades to "skipped" when unset)
	DabAPIURL      string
	TidalAPIURLs   string // comma separated mirror list
	SonglinkAPIURL string

	// HTTP trigger surface
	ListenAddr string

	// Logging
	LogLevel string
	LogFile  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvDuration gets an environment variable as milliseconds or returns a default.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load will not override variables already set in the environment.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	storageRoot := getEnv("STORAGE_ROOT", "library")

	return &Config{
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "trackvault"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		StorageRoot: storageRoot,
		StagingDir:  getEnv("STAGING_DIR", filepath.Join(storageRoot, ".staging")),

		ExtractorPath: getEnv("EXTRACTOR_PATH", "yt-dlp"),
		FFmpegPath:    getEnv("FFMPEG_PATH", "ffmpeg"),

		MaxWorkers:      getEnvInt("MAX_WORKERS", 3),
		ItemConcurrency: getEnvInt("ITEM_CONCURRENCY", 3),
		ThrottleMin:     getEnvDuration("THROTTLE_MIN_MS", 1000*time.Millisecond),
		ThrottleMax:     getEnvDuration("THROTTLE_MAX_MS", 3000*time.Millisecond),
		RetryAttempts:   getEnvInt("RETRY_ATTEMPTS", 3),
		RetryBaseDelay:  getEnvDuration("RETRY_BASE_DELAY_MS", 2000*time.Millisecond),
		HeartbeatEvery:  getEnvDuration("HEARTBEAT_EVERY_MS", 30000*time.Millisecond),

		DabAPIURL:      getEnv("DAB_API_URL", ""),
		TidalAPIURLs:   getEnv("TIDAL_API_URLS", ""),
		SonglinkAPIURL: getEnv("SONGLINK_API_URL", "https://api.song.link/v1-alpha.1"),

		ListenAddr: getEnv("LISTEN_ADDR", ":8090"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", "logs/trackvault.log"),
	}
}
