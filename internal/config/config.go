package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/dago-node-cel/internal/eval/cel"
)

// Config holds all configuration for the CEL worker
type Config struct {
	// Worker configuration
	WorkerID string `env:"WORKER_ID" envDefault:"cel-1"`

	// Redis configuration
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASS" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Stream configuration
	StreamKey     string        `env:"STREAM_KEY" envDefault:"cel.work"`
	ConsumerGroup string        `env:"CONSUMER_GROUP" envDefault:"cel-workers"`
	ResultStream  string        `env:"RESULT_STREAM" envDefault:"cel.results"`
	BlockTime     time.Duration `env:"BLOCK_TIME" envDefault:"1s"`
	MaxRetries    int           `env:"MAX_RETRIES" envDefault:"3"`

	// Bindings stored in Redis and referenced by requests
	BindingsKeyPrefix string        `env:"BINDINGS_KEY_PREFIX" envDefault:"cel:bindings:"`
	BindingsTTL       time.Duration `env:"BINDINGS_TTL" envDefault:"0s"`

	// CEL configuration
	Container           string   `env:"CEL_CONTAINER" envDefault:""`
	MaxExpressionLength int      `env:"CEL_MAX_EXPRESSION_LENGTH" envDefault:"10000"`
	MaxNestingDepth     int      `env:"CEL_MAX_NESTING_DEPTH" envDefault:"250"`
	CostLimit           int64    `env:"CEL_COST_LIMIT" envDefault:"0"`
	DeclarationsFile    string   `env:"CEL_DECLARATIONS_FILE" envDefault:""`
	ProtoFiles          []string `env:"CEL_PROTO_FILES" envSeparator:","`
	ProtoImportPaths    []string `env:"CEL_PROTO_IMPORT_PATHS" envSeparator:"," envDefault:"."`
	StringsExtension    bool     `env:"CEL_STRINGS_EXTENSION" envDefault:"true"`
	TimeZone            string   `env:"CEL_TIME_ZONE" envDefault:"UTC"`

	// Health check configuration
	HealthPort int `env:"HEALTH_PORT" envDefault:"8082"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.WorkerID == "" {
		return fmt.Errorf("WORKER_ID is required")
	}

	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}

	if c.StreamKey == "" {
		return fmt.Errorf("STREAM_KEY is required")
	}

	if c.ConsumerGroup == "" {
		return fmt.Errorf("CONSUMER_GROUP is required")
	}

	if c.ResultStream == "" {
		return fmt.Errorf("RESULT_STREAM is required")
	}

	if c.ResultStream == c.StreamKey {
		return fmt.Errorf("RESULT_STREAM must differ from STREAM_KEY")
	}

	if c.BindingsKeyPrefix == "" {
		return fmt.Errorf("BINDINGS_KEY_PREFIX is required")
	}

	if c.BindingsTTL < 0 {
		return fmt.Errorf("BINDINGS_TTL must be non-negative")
	}

	if c.BlockTime <= 0 {
		return fmt.Errorf("BLOCK_TIME must be positive")
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must be non-negative")
	}

	if c.MaxExpressionLength <= 0 {
		return fmt.Errorf("CEL_MAX_EXPRESSION_LENGTH must be positive")
	}

	if c.MaxNestingDepth <= 0 {
		return fmt.Errorf("CEL_MAX_NESTING_DEPTH must be positive")
	}

	if c.CostLimit < 0 {
		return fmt.Errorf("CEL_COST_LIMIT must be non-negative")
	}

	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("HEALTH_PORT must be between 1 and 65535")
	}

	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	return nil
}

// isValidLogLevel checks if the log level is valid
func isValidLogLevel(level string) bool {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	return validLevels[level]
}

// RedisOptions returns Redis client options
func (c *Config) RedisOptions() *redis.Options {
	return &redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// EnvOptions returns the options of the CEL environment the worker
// compiles expressions in
func (c *Config) EnvOptions(logger *zap.Logger) []cel.EnvOption {
	opts := []cel.EnvOption{
		cel.Container(c.Container),
		cel.MaxExpressionLength(c.MaxExpressionLength),
		cel.MaxNestingDepth(c.MaxNestingDepth),
		cel.CostLimit(c.CostLimit),
		cel.DefaultTimeZone(c.TimeZone),
	}
	if c.DeclarationsFile != "" {
		opts = append(opts, cel.Declarations(c.DeclarationsFile))
	}
	if len(c.ProtoFiles) > 0 {
		opts = append(opts, cel.ProtoFiles(c.ProtoImportPaths, c.ProtoFiles...))
	}
	if c.StringsExtension {
		opts = append(opts, cel.StringsExtension())
	}
	if logger != nil {
		opts = append(opts, cel.Logger(logger))
	}
	return opts
}

// String returns a string representation of the config (without sensitive data)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{WorkerID=%s, RedisAddr=%s, RedisDB=%d, StreamKey=%s, ConsumerGroup=%s, ResultStream=%s, "+
			"Container=%s, CostLimit=%d, ProtoFiles=[%s], StringsExtension=%v, HealthPort=%d, LogLevel=%s}",
		c.WorkerID,
		c.RedisAddr,
		c.RedisDB,
		c.StreamKey,
		c.ConsumerGroup,
		c.ResultStream,
		c.Container,
		c.CostLimit,
		strings.Join(c.ProtoFiles, ","),
		c.StringsExtension,
		c.HealthPort,
		c.LogLevel,
	)
}
