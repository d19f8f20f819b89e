package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	Paths      PathsConfig
	Database   DatabaseConfig
	Autopilot  AutopilotConfig
	Publisher  PublisherConfig
	WorkerPool WorkerPoolConfig
	Security   SecurityConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	BaseUrl            string
	CorsAllowedOrigins []string
	ServerID           string
}

type PathsConfig struct {
	BaseDir  string
	Storages string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB Name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

// AutopilotConfig groups the scheduling tunables. The dedup window and the
// immediate buffer must stay small relative to the interval and the minimum
// gap; the defaults mirror what production runs with.
type AutopilotConfig struct {
	WatchSpec       string        // cron spec for the watcher sweep
	DispatchSpec    string        // cron spec for the publish dispatcher
	UniversalMinGap time.Duration // hard floor between any two posts of a pair
	DedupWindow     time.Duration // caption-match radius around a target time
	ImmediateBuffer time.Duration // "publish now" offset to absorb processing latency
	LockTTL         time.Duration // pair lock lease; a crashed holder frees after this
	ItemTimeout     time.Duration // timeout for a single item's store calls
	MaxBatch        int           // ready items per batch, 0 = unbounded
	DispatchBatch   int           // due entries claimed per dispatcher tick
}

// PublisherConfig decides where due entries are delivered. With no webhook
// URL configured, publishes only hit the log.
type PublisherConfig struct {
	WebhookURLs               []string
	WebhookSecret             string
	WebhookInsecureSkipVerify bool
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

type SecurityConfig struct {
	SecretKey string
}

// Global provides access to the loaded configuration globally (Migration Helper)
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	// Base Directory Setup
	baseDir := getEnv("APP_BASE_DIR", "storages")

	// App Defaults
	debug := false
	if v := os.Getenv("APP_DEBUG"); v == "true" || v == "1" || v == "on" {
		debug = true
	} else if v := os.Getenv("DEBUG"); v == "true" || v == "1" {
		debug = true
	}

	// Basic Auth
	var basicAuth []string
	if v := os.Getenv("APP_BASIC_AUTH"); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	// Cors
	cors_origins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := os.Getenv("APP_CORS_ALLOWED_ORIGINS"); v != "" {
		cors_origins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.2.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              debug,
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		BaseUrl:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		CorsAllowedOrigins: cors_origins,
		ServerID:           getEnv("SERVER_ID", ""),
	}
	if v := os.Getenv("APP_TRUSTED_PROXIES"); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	// Paths
	pathsCfg := PathsConfig{
		BaseDir:  baseDir,
		Storages: baseDir,
	}

	// Database
	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Name:            getEnv("DB_NAME", filepath.Join(pathsCfg.Storages, "autopilot.db")),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "azpilot:"),
	}

	// Autopilot scheduling
	pilotCfg := AutopilotConfig{
		WatchSpec:       getEnv("AUTOPILOT_WATCH_SPEC", "@every 1m"),
		DispatchSpec:    getEnv("AUTOPILOT_DISPATCH_SPEC", "@every 15s"),
		UniversalMinGap: getEnvDuration("AUTOPILOT_MIN_GAP", 2*time.Hour),
		DedupWindow:     getEnvDuration("AUTOPILOT_DEDUP_WINDOW", 5*time.Minute),
		ImmediateBuffer: getEnvDuration("AUTOPILOT_IMMEDIATE_BUFFER", 2*time.Minute),
		LockTTL:         getEnvDuration("AUTOPILOT_LOCK_TTL", 60*time.Second),
		ItemTimeout:     getEnvDuration("AUTOPILOT_ITEM_TIMEOUT", 10*time.Second),
		MaxBatch:        getEnvInt("AUTOPILOT_MAX_BATCH", 0),
		DispatchBatch:   getEnvInt("AUTOPILOT_DISPATCH_BATCH", 10),
	}

	// Outbound publisher
	var webhookURLs []string
	if v := os.Getenv("AUTOPILOT_PUBLISH_WEBHOOK"); v != "" {
		webhookURLs = strings.Split(v, ",")
	}
	publisherCfg := PublisherConfig{
		WebhookURLs:               webhookURLs,
		WebhookSecret:             getEnv("AUTOPILOT_PUBLISH_WEBHOOK_SECRET", ""),
		WebhookInsecureSkipVerify: getEnvBool("AUTOPILOT_PUBLISH_WEBHOOK_INSECURE_SKIP_VERIFY", false),
	}

	cfg := &Config{
		App:       appCfg,
		Paths:     pathsCfg,
		Database:  dbCfg,
		Autopilot: pilotCfg,
		Publisher: publisherCfg,
		WorkerPool: WorkerPoolConfig{
			Size:      getEnvInt("PAIR_WORKER_POOL_SIZE", 20),
			QueueSize: getEnvInt("PAIR_WORKER_QUEUE_SIZE", 1000),
		},
		Security: SecurityConfig{SecretKey: getEnv("APP_SECRET_KEY", "changeme_please_change_me_in_prod_12345")},
	}

	Global = cfg
	return cfg, nil
}
