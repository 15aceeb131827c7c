package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	API      APIConfig
	Ingest   IngestConfig
	Search   SearchConfig
	Broker   BrokerConfig
	CORS     CORSConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host            string        `env:"SERVER_HOST"             env-default:"127.0.0.1"`
	Port            string        `env:"SERVER_PORT"             env-default:"8080"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

type DatabaseConfig struct {
	Driver       string `env:"DATABASE_DRIVER"         env-default:"postgres"`
	URL          string `env:"DATABASE_URL"            env-required:"true"`
	MaxOpenConns int    `env:"DATABASE_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns int    `env:"DATABASE_MAX_IDLE_CONNS" env-default:"10"`
}

type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET"      env-required:"true"`
	JWTIssuer      string        `env:"JWT_ISSUER"      env-default:"vidfold-api"`
	JWTTTL         time.Duration `env:"JWT_TTL"         env-default:"24h"`
	CallbackSecret string        `env:"CALLBACK_SECRET"`
}

// APIConfig points at the remote processing service.
type APIConfig struct {
	BaseURL string        `env:"API_BASE_URL" env-default:"http://localhost:8000/api/v1"`
	Timeout time.Duration `env:"API_TIMEOUT"  env-default:"10s"`
}

type IngestConfig struct {
	TriggerTimeout       time.Duration `env:"TRIGGER_TIMEOUT"       env-default:"30s"`
	ReconcileConcurrency int           `env:"RECONCILE_CONCURRENCY" env-default:"4"`
	ReconcileInterval    time.Duration `env:"RECONCILE_INTERVAL"    env-default:"15s"`
	WatchInterval        time.Duration `env:"WATCH_INTERVAL"        env-default:"2s"`
	WatchTimeout         time.Duration `env:"WATCH_TIMEOUT"         env-default:"60s"`
}

type SearchConfig struct {
	Backend string `env:"SEARCH_BACKEND" env-default:"remote"`
	Limit   int    `env:"SEARCH_LIMIT"   env-default:"50"`
}

// BrokerConfig is optional; an empty URL disables the status event consumer.
type BrokerConfig struct {
	URL      string `env:"RABBITMQ_URL"`
	Queue    string `env:"RABBITMQ_QUEUE"    env-default:"video_status_events"`
	Prefetch int    `env:"RABBITMQ_PREFETCH" env-default:"10"`
}

type CORSConfig struct {
	AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:3000,http://localhost:19006"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL"  env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"json"`
}

const (
	SearchBackendRemote = "remote"
	SearchBackendLocal  = "local"
)

// Load reads .env when present, then the environment with defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debugf("LoadConfig: no .env file loaded: %v", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is not set"))
	}
	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	if c.Auth.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if strings.TrimSpace(c.API.BaseURL) == "" {
		errs = append(errs, errors.New("API_BASE_URL is not set"))
	}
	switch c.Search.Backend {
	case SearchBackendRemote, SearchBackendLocal:
	default:
		errs = append(errs, fmt.Errorf("SEARCH_BACKEND must be remote or local, got %q", c.Search.Backend))
	}
	if c.Ingest.TriggerTimeout <= 0 {
		errs = append(errs, errors.New("TRIGGER_TIMEOUT must be positive"))
	}
	if c.Ingest.WatchInterval <= 0 || c.Ingest.WatchTimeout <= 0 {
		errs = append(errs, errors.New("WATCH_INTERVAL and WATCH_TIMEOUT must be positive"))
	}
	if c.Ingest.ReconcileConcurrency < 1 {
		errs = append(errs, errors.New("RECONCILE_CONCURRENCY must be at least 1"))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// Origins splits the comma separated CORS origin list.
func (c CORSConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// ConfigureLogger applies the log settings to the global logrus logger.
func (c LogConfig) ConfigureLogger() {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if c.Format == "text" {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		return
	}
	log.SetFormatter(&log.JSONFormatter{})
}
