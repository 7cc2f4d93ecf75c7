package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"gopkg.in/yaml.v3"
)

const (
	VisitorBackendMemory   = "memory"
	VisitorBackendRedis    = "redis"
	VisitorBackendPostgres = "postgres"
)

type Config struct {
	API       APIConfig       `yaml:"api"`
	Visitors  VisitorsConfig  `yaml:"visitors"`
	Redis     RedisConfig     `yaml:"redis"`
	Queue     QueueConfig     `yaml:"queue"`
	Worker    WorkerConfig    `yaml:"worker"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Renderer  RendererConfig  `yaml:"renderer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type APIConfig struct {
	Addr           string        `yaml:"addr"`
	AllowOrigin    string        `yaml:"allow_origin"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PresignTTL     time.Duration `yaml:"presign_ttl"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace"`
}

type VisitorsConfig struct {
	Backend      string        `yaml:"backend"`
	MarkerTTL    time.Duration `yaml:"marker_ttl"`
	StoreTimeout time.Duration `yaml:"store_timeout"`
	KeyPrefix    string        `yaml:"key_prefix"`
	CounterKey   string        `yaml:"counter_key"`
	CounterName  string        `yaml:"counter_name"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type QueueConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	Name          string `yaml:"name"`

	ExportMaxRetry  int           `yaml:"export_max_retry"`
	ExportTimeout   time.Duration `yaml:"export_timeout"`
	ExportRetention time.Duration `yaml:"export_retention"`
}

func (q QueueConfig) RedisClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     q.RedisAddr,
		Password: q.RedisPassword,
		DB:       q.RedisDB,
	}
}

type WorkerConfig struct {
	Concurrency   int    `yaml:"concurrency"`
	MaxActiveJobs int    `yaml:"max_active_jobs"`
	MetricsAddr   string `yaml:"metrics_addr"`
}

type StorageConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	UseRedis bool          `yaml:"use_redis"`
	Capacity int           `yaml:"capacity"`
	Window   time.Duration `yaml:"window"`
}

type TracingConfig struct {
	Exporter     string `yaml:"exporter"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type RendererConfig struct {
	URL            string        `yaml:"url"`
	SigningSecret  string        `yaml:"signing_secret"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	PhotoURLTTL    time.Duration `yaml:"photo_url_ttl"`
}

type LoggingConfig struct {
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// Default returns the configuration used when neither a config file nor
// environment variables override a value.
func Default() Config {
	defaultWorkerSlots := max(1, runtime.NumCPU()/2)

	return Config{
		API: APIConfig{
			Addr:           ":8080",
			AllowOrigin:    "*",
			RequestTimeout: 15 * time.Second,
			PresignTTL:     15 * time.Minute,
			ShutdownGrace:  10 * time.Second,
		},
		Visitors: VisitorsConfig{
			Backend:      VisitorBackendMemory,
			MarkerTTL:    365 * 24 * time.Hour,
			StoreTimeout: 3 * time.Second,
			KeyPrefix:    "visitor",
			CounterKey:   "unique_visitor_count",
			CounterName:  "visitor_count",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Queue: QueueConfig{
			RedisAddr:       "localhost:6379",
			Name:            "default",
			ExportMaxRetry:  5,
			ExportTimeout:   2 * time.Minute,
			ExportRetention: 24 * time.Hour,
		},
		Worker: WorkerConfig{
			Concurrency:   max(2, runtime.NumCPU()),
			MaxActiveJobs: defaultWorkerSlots,
			MetricsAddr:   ":9091",
		},
		Storage: StorageConfig{
			Endpoint:  "localhost:9000",
			AccessKey: "minioadmin",
			SecretKey: "minioadmin",
			Bucket:    "snapframe-photos",
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Capacity: 30,
			Window:   time.Minute,
		},
		Tracing: TracingConfig{
			Exporter: "none",
		},
		Renderer: RendererConfig{
			Timeout:        10 * time.Second,
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			MaxBackoff:     10 * time.Second,
			PhotoURLTTL:    time.Hour,
		},
		Logging: LoggingConfig{
			FileMaxSizeMB:  100,
			FileMaxBackups: 3,
			FileMaxAgeDays: 30,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by SNAPFRAME_CONFIG_FILE, and environment variables, in that order.
func Load() (Config, error) {
	cfg := Default()

	if path := env("SNAPFRAME_CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	cfg.loadEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadEnv() {
	c.API.Addr = env("SNAPFRAME_API_ADDR", c.API.Addr)
	c.API.AllowOrigin = env("SNAPFRAME_CORS_ORIGIN", c.API.AllowOrigin)
	c.API.RequestTimeout = envDuration("SNAPFRAME_REQUEST_TIMEOUT", c.API.RequestTimeout)
	c.API.PresignTTL = envDuration("SNAPFRAME_PRESIGN_TTL", c.API.PresignTTL)
	c.API.ShutdownGrace = envDuration("SNAPFRAME_SHUTDOWN_GRACE", c.API.ShutdownGrace)

	c.Visitors.Backend = strings.ToLower(env("VISITOR_STORE", c.Visitors.Backend))
	c.Visitors.MarkerTTL = envDuration("VISITOR_MARKER_TTL", c.Visitors.MarkerTTL)
	c.Visitors.StoreTimeout = envDuration("VISITOR_STORE_TIMEOUT", c.Visitors.StoreTimeout)
	c.Visitors.KeyPrefix = env("VISITOR_KEY_PREFIX", c.Visitors.KeyPrefix)
	c.Visitors.CounterKey = env("VISITOR_COUNTER_KEY", c.Visitors.CounterKey)
	c.Visitors.CounterName = env("VISITOR_COUNTER_NAME", c.Visitors.CounterName)

	c.Redis.Addr = env("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = env("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = envInt("REDIS_DB", c.Redis.DB)

	c.Queue.RedisAddr = env("REDIS_ADDR", c.Queue.RedisAddr)
	c.Queue.RedisPassword = env("REDIS_PASSWORD", c.Queue.RedisPassword)
	c.Queue.RedisDB = envInt("REDIS_DB", c.Queue.RedisDB)
	c.Queue.Name = env("ASYNC_QUEUE", c.Queue.Name)
	c.Queue.ExportMaxRetry = envInt("EXPORT_MAX_RETRY", c.Queue.ExportMaxRetry)
	c.Queue.ExportTimeout = envDuration("EXPORT_TIMEOUT", c.Queue.ExportTimeout)
	c.Queue.ExportRetention = envDuration("EXPORT_RETENTION", c.Queue.ExportRetention)

	c.Worker.Concurrency = envInt("WORKER_CONCURRENCY", c.Worker.Concurrency)
	c.Worker.MaxActiveJobs = envInt("WORKER_MAX_ACTIVE_JOBS", c.Worker.MaxActiveJobs)
	c.Worker.MetricsAddr = env("WORKER_METRICS_ADDR", c.Worker.MetricsAddr)

	c.Storage.Enabled = envBool("MINIO_ENABLED", c.Storage.Enabled)
	c.Storage.Endpoint = env("MINIO_ENDPOINT", c.Storage.Endpoint)
	c.Storage.AccessKey = env("MINIO_ACCESS_KEY", c.Storage.AccessKey)
	c.Storage.SecretKey = env("MINIO_SECRET_KEY", c.Storage.SecretKey)
	c.Storage.Bucket = env("MINIO_BUCKET", c.Storage.Bucket)
	c.Storage.UseSSL = envBool("MINIO_USE_SSL", c.Storage.UseSSL)

	c.Database.DSN = env("POSTGRES_DSN", c.Database.DSN)

	c.RateLimit.Enabled = envBool("RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.UseRedis = envBool("RATE_LIMIT_USE_REDIS", c.RateLimit.UseRedis)
	c.RateLimit.Capacity = envInt("RATE_LIMIT_CAPACITY", c.RateLimit.Capacity)
	c.RateLimit.Window = envDuration("RATE_LIMIT_WINDOW", c.RateLimit.Window)

	c.Tracing.Exporter = env("OTEL_TRACES_EXPORTER", c.Tracing.Exporter)
	c.Tracing.OTLPEndpoint = env("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.OTLPEndpoint)
	c.Tracing.OTLPInsecure = envBool("OTEL_EXPORTER_OTLP_INSECURE", c.Tracing.OTLPInsecure)

	c.Renderer.URL = env("RENDERER_URL", c.Renderer.URL)
	c.Renderer.SigningSecret = env("RENDERER_SIGNING_SECRET", c.Renderer.SigningSecret)
	c.Renderer.Timeout = envDuration("RENDERER_TIMEOUT", c.Renderer.Timeout)
	c.Renderer.MaxAttempts = envInt("RENDERER_MAX_ATTEMPTS", c.Renderer.MaxAttempts)
	c.Renderer.InitialBackoff = envDuration("RENDERER_INITIAL_BACKOFF", c.Renderer.InitialBackoff)
	c.Renderer.MaxBackoff = envDuration("RENDERER_MAX_BACKOFF", c.Renderer.MaxBackoff)
	c.Renderer.PhotoURLTTL = envDuration("RENDERER_PHOTO_URL_TTL", c.Renderer.PhotoURLTTL)

	c.Logging.FilePath = env("SNAPFRAME_LOG_FILE", c.Logging.FilePath)
	c.Logging.FileMaxSizeMB = envInt("SNAPFRAME_LOG_FILE_MAX_SIZE_MB", c.Logging.FileMaxSizeMB)
	c.Logging.FileMaxBackups = envInt("SNAPFRAME_LOG_FILE_MAX_BACKUPS", c.Logging.FileMaxBackups)
	c.Logging.FileMaxAgeDays = envInt("SNAPFRAME_LOG_FILE_MAX_AGE_DAYS", c.Logging.FileMaxAgeDays)
}

// VisitorStoreError reports missing settings for the selected visitor
// backend. A non-nil result means the counter must run unconfigured.
func (c Config) VisitorStoreError() error {
	switch c.Visitors.Backend {
	case VisitorBackendMemory:
		return nil
	case VisitorBackendRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("visitor store redis requires REDIS_ADDR")
		}
		return nil
	case VisitorBackendPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("visitor store postgres requires POSTGRES_DSN")
		}
		return nil
	default:
		return fmt.Errorf("unsupported visitor store backend: %q", c.Visitors.Backend)
	}
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
