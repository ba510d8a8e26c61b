package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the VSL pipeline binaries.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Worker        WorkerConfig
	Ingest        IngestConfig
	Media         MediaConfig
	Transcription TranscriptionConfig
}

type ServerConfig struct {
	Port          int
	Env           string
	PublicBaseURL string
	StorageDir    string
	CORSOrigins   []string
	SearchLimit   int
	SearchTTL     time.Duration
	RateLimit     int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

type RedisConfig struct {
	URL string
}

type WorkerConfig struct {
	Concurrency    int
	QueueName      string
	StageTimeout   time.Duration
	DequeueTimeout time.Duration
	TaskStatusTTL  time.Duration
}

type IngestConfig struct {
	DefaultBatchSize   int
	SchedulerEnabled   bool
	ScheduleHour       int
	ScheduleMinute     int
	ScheduledBatchSize int
}

type MediaConfig struct {
	FFmpegBin        string
	FFprobeBin       string
	VideoStoragePath string
	AudioTempPath    string
}

type TranscriptionConfig struct {
	Engine        string
	Language      string
	FailurePolicy string
	OpenAI        OpenAIConfig
	WhisperX      WhisperXConfig
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type WhisperXConfig struct {
	Command   []string
	Model     string
	Device    string
	OutputDir string
}

const (
	PolicyRollback   = "rollback"
	PolicyMarkFailed = "mark_failed"
)

var validEngines = map[string]bool{
	"openai":   true,
	"whisperx": true,
	"mock":     true,
}

var validPolicies = map[string]bool{
	PolicyRollback:   true,
	PolicyMarkFailed: true,
}

// Load reads configuration from environment variables and returns a validated Config.
// A .env file in the working directory is applied first without overriding
// variables that are already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:          envInt("VSL_PORT", 8000),
			Env:           envString("VSL_ENV", "development"),
			PublicBaseURL: strings.TrimRight(envString("PUBLIC_BASE_URL", "http://localhost:8000"), "/"),
			StorageDir:    envString("STORAGE_DIR", "storage"),
			CORSOrigins:   envList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
			SearchLimit:   envInt("SEARCH_LIMIT", 100),
			SearchTTL:     envDuration("SEARCH_CACHE_TTL", 30*time.Second),
			RateLimit:     envInt("SEARCH_RATE_LIMIT_PER_MIN", 120),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsDir:   envString("MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Worker: WorkerConfig{
			Concurrency:    envInt("WORKER_CONCURRENCY", 4),
			QueueName:      envString("WORKER_QUEUE", "vsl:tasks"),
			StageTimeout:   envDuration("STAGE_TIMEOUT", 30*time.Minute),
			DequeueTimeout: envDuration("WORKER_DEQUEUE_TIMEOUT", 5*time.Second),
			TaskStatusTTL:  envDuration("TASK_STATUS_TTL", 24*time.Hour),
		},
		Ingest: IngestConfig{
			DefaultBatchSize:   envInt("DEFAULT_BATCH_SIZE", 50),
			SchedulerEnabled:   envBool("ENABLE_INGEST_SCHEDULER", false),
			ScheduleHour:       envInt("INGEST_SCHEDULE_HOUR", 3),
			ScheduleMinute:     envInt("INGEST_SCHEDULE_MINUTE", 0),
			ScheduledBatchSize: envInt("INGEST_SCHEDULED_BATCH_SIZE", 200),
		},
		Media: MediaConfig{
			FFmpegBin:        envString("FFMPEG_BIN", "ffmpeg"),
			FFprobeBin:       envString("FFPROBE_BIN", "ffprobe"),
			VideoStoragePath: envString("VIDEO_STORAGE_PATH", "storage/videos"),
			AudioTempPath:    envString("AUDIO_TMP_PATH", "storage/tmp_audio"),
		},
		Transcription: TranscriptionConfig{
			Engine:        envString("TRANSCRIPTION_ENGINE", "openai"),
			Language:      os.Getenv("TRANSCRIPTION_LANGUAGE"),
			FailurePolicy: envString("TRANSCRIPTION_FAILURE_POLICY", PolicyRollback),
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Model:   envString("OPENAI_WHISPER_MODEL", "whisper-1"),
				BaseURL: strings.TrimRight(envString("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),
			},
			WhisperX: WhisperXConfig{
				Command:   strings.Fields(envString("WHISPERX_COMMAND", "uvx whisperx")),
				Model:     envString("WHISPERX_MODEL", "large-v3"),
				Device:    envString("WHISPERX_DEVICE", "cpu"),
				OutputDir: envString("WHISPERX_OUTPUT_DIR", "storage/tmp_transcripts"),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !strings.HasPrefix(c.Server.PublicBaseURL, "http://") && !strings.HasPrefix(c.Server.PublicBaseURL, "https://") {
		return fmt.Errorf("PUBLIC_BASE_URL must start with http:// or https://, got %q", c.Server.PublicBaseURL)
	}

	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", c.Worker.Concurrency)
	}
	if c.Worker.StageTimeout <= 0 {
		return fmt.Errorf("STAGE_TIMEOUT must be positive, got %s", c.Worker.StageTimeout)
	}

	if c.Ingest.DefaultBatchSize < 1 {
		return fmt.Errorf("DEFAULT_BATCH_SIZE must be at least 1, got %d", c.Ingest.DefaultBatchSize)
	}
	if c.Ingest.ScheduledBatchSize < 1 {
		return fmt.Errorf("INGEST_SCHEDULED_BATCH_SIZE must be at least 1, got %d", c.Ingest.ScheduledBatchSize)
	}
	if c.Ingest.ScheduleHour < 0 || c.Ingest.ScheduleHour > 23 {
		return fmt.Errorf("INGEST_SCHEDULE_HOUR must be between 0 and 23, got %d", c.Ingest.ScheduleHour)
	}
	if c.Ingest.ScheduleMinute < 0 || c.Ingest.ScheduleMinute > 59 {
		return fmt.Errorf("INGEST_SCHEDULE_MINUTE must be between 0 and 59, got %d", c.Ingest.ScheduleMinute)
	}

	if !validEngines[c.Transcription.Engine] {
		return fmt.Errorf("TRANSCRIPTION_ENGINE must be one of openai, whisperx, mock; got %q", c.Transcription.Engine)
	}
	if c.Transcription.Engine == "openai" && c.Transcription.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when TRANSCRIPTION_ENGINE is openai")
	}
	if c.Transcription.Engine == "whisperx" && len(c.Transcription.WhisperX.Command) == 0 {
		return fmt.Errorf("WHISPERX_COMMAND must not be empty when TRANSCRIPTION_ENGINE is whisperx")
	}
	if !validPolicies[c.Transcription.FailurePolicy] {
		return fmt.Errorf("TRANSCRIPTION_FAILURE_POLICY must be one of rollback, mark_failed; got %q", c.Transcription.FailurePolicy)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
