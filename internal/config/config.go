package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AliasPatterns maps a numeric survey alias to a case-insensitive title pattern
type AliasPatterns map[int]string

// Config holds process configuration. Values come from an optional YAML file
// (CONFIG_FILE) and are then overridden by environment variables.
type Config struct {
	MongoURI      string `yaml:"mongoUri"`
	MongoDatabase string `yaml:"mongoDatabase"`
	RedisAddr     string `yaml:"redisAddr"`
	HTTPPort      string `yaml:"httpPort"`

	JWTSecret string `yaml:"-"` // Never read from file

	LogFormat string `yaml:"logFormat"`
	LogLevel  string `yaml:"logLevel"`

	DuplicateWindow    time.Duration `yaml:"duplicateWindow"`
	DuplicateAnonScope string        `yaml:"duplicateAnonScope"` // "survey" or "ip"
	SurveyCacheTTL     time.Duration `yaml:"surveyCacheTtl"`
	ReportCacheTTL     time.Duration `yaml:"reportCacheTtl"`
	ReportTimezone     string        `yaml:"reportTimezone"`
	RequestTimeout     time.Duration `yaml:"requestTimeout"`

	CORSAllowedOrigins string `yaml:"corsAllowedOrigins"`
	CORSAllowedMethods string `yaml:"corsAllowedMethods"`
	CORSAllowedHeaders string `yaml:"corsAllowedHeaders"`

	// Historical numeric aliases resolved by title before falling back to recency rank
	Aliases AliasPatterns `yaml:"aliases"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		MongoURI:           "mongodb://localhost:27017",
		MongoDatabase:      "fieldsurvey",
		RedisAddr:          "localhost:6379",
		HTTPPort:           "8080",
		JWTSecret:          "super-secret-key-change-in-production",
		LogFormat:          "text",
		LogLevel:           "info",
		DuplicateWindow:    30 * time.Second,
		DuplicateAnonScope: "survey",
		SurveyCacheTTL:     5 * time.Minute,
		ReportCacheTTL:     30 * time.Second,
		ReportTimezone:     "Asia/Kolkata",
		RequestTimeout:     15 * time.Second,
		CORSAllowedOrigins: "*",
		CORSAllowedMethods: "GET, POST, PUT, DELETE, OPTIONS",
		CORSAllowedHeaders: "Content-Type, Authorization, X-Request-ID",
		Aliases: AliasPatterns{
			1: `msr\s*survey`,
			2: `praj[aā]bhipr[aā]y|ప్రజాభిప్రాయ`,
		},
	}
}

// Load builds the configuration from defaults, CONFIG_FILE and the environment
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDatabase = getEnv("MONGO_DATABASE", cfg.MongoDatabase)
	cfg.RedisAddr = strings.TrimPrefix(getEnv("REDIS_URI", cfg.RedisAddr), "redis://")
	cfg.HTTPPort = getEnv("PORT", cfg.HTTPPort)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DuplicateAnonScope = getEnv("DUPLICATE_ANON_SCOPE", cfg.DuplicateAnonScope)
	cfg.ReportTimezone = getEnv("REPORT_TIMEZONE", cfg.ReportTimezone)
	cfg.CORSAllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.CORSAllowedMethods = getEnv("CORS_ALLOWED_METHODS", cfg.CORSAllowedMethods)
	cfg.CORSAllowedHeaders = getEnv("CORS_ALLOWED_HEADERS", cfg.CORSAllowedHeaders)

	var err error
	if cfg.DuplicateWindow, err = getDuration("DUPLICATE_WINDOW", cfg.DuplicateWindow); err != nil {
		return nil, err
	}
	if cfg.SurveyCacheTTL, err = getDuration("SURVEY_CACHE_TTL", cfg.SurveyCacheTTL); err != nil {
		return nil, err
	}
	if cfg.ReportCacheTTL, err = getDuration("REPORT_CACHE_TTL", cfg.ReportCacheTTL); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	if c.DuplicateWindow <= 0 {
		return fmt.Errorf("duplicate window must be positive, got %s", c.DuplicateWindow)
	}
	switch c.DuplicateAnonScope {
	case "survey", "ip":
	default:
		return fmt.Errorf("unknown duplicate anonymous scope %q", c.DuplicateAnonScope)
	}
	if _, err := time.LoadLocation(c.ReportTimezone); err != nil {
		return fmt.Errorf("invalid report timezone %q: %w", c.ReportTimezone, err)
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d, nil
	}
	// Bare integers are seconds
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q", key, val)
	}
	return time.Duration(secs) * time.Second, nil
}
