package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	API      APIConfig
	YouTube  YouTubeConfig
	Download DownloadConfig
	CORS     CORSConfig
	Metrics  MetricsConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            string        `envconfig:"SERVER_PORT" default:"5000"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type APIConfig struct {
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"100"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

type YouTubeConfig struct {
	// HTTPTimeout bounds metadata requests only. Stream requests rely on the
	// request context so that long downloads are not cut off.
	HTTPTimeout time.Duration `envconfig:"YOUTUBE_HTTP_TIMEOUT" default:"30s"`
	ChunkSize   int64         `envconfig:"YOUTUBE_CHUNK_SIZE" default:"10485760"`
	InitTimeout time.Duration `envconfig:"YOUTUBE_INIT_TIMEOUT" default:"30s"`
}

type DownloadConfig struct {
	BufferSize int `envconfig:"STREAM_BUFFER_SIZE" default:"32768"`
}

type CORSConfig struct {
	Enabled        bool          `envconfig:"CORS_ENABLED" default:"true"`
	AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	AllowedMethods []string      `envconfig:"CORS_ALLOWED_METHODS" default:"GET,OPTIONS"`
	AllowedHeaders []string      `envconfig:"CORS_ALLOWED_HEADERS" default:"Origin,Content-Type,Accept,X-Correlation-ID"`
	ExposedHeaders []string      `envconfig:"CORS_EXPOSED_HEADERS" default:"Content-Disposition,Content-Length,X-Correlation-ID,X-Request-ID"`
	MaxAge         time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	Prefix  string `envconfig:"METRICS_PREFIX" default:"ytgrab_"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}
	if c.API.RateLimitRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.API.RateLimitRequests)
	}
	if c.API.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.API.RateLimitWindow)
	}
	if c.Download.BufferSize < 512 {
		return fmt.Errorf("STREAM_BUFFER_SIZE must be at least 512 bytes, got %d", c.Download.BufferSize)
	}
	if c.YouTube.ChunkSize < 0 {
		return fmt.Errorf("YOUTUBE_CHUNK_SIZE must not be negative")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}
	return nil
}

// Address returns the listen address in host:port form.
func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}
