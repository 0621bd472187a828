// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via
// CLI flags or environment variables.
type Config struct {
	// Server
	Port     int    `json:"port,omitempty"`      // HTTP listen port
	APIToken string `json:"api_token,omitempty"` // Bearer token gating mutating routes

	// Analysis
	APIKey string `json:"api_key,omitempty"` // Gemini API key

	// Issue source
	IssuesPath string `json:"issues_path,omitempty"` // Path to the issues JSON file

	// Storage
	DataDir       string `json:"data_dir,omitempty"`       // Root directory for the file backend
	RedisAddr     string `json:"redis_addr,omitempty"`     // Redis host:port
	RedisPassword string `json:"redis_password,omitempty"` // Redis password
	RedisDB       int    `json:"redis_db,omitempty"`       // Redis database number
	KVRestURL     string `json:"kv_rest_url,omitempty"`    // Generic KV REST endpoint
	KVRestToken   string `json:"kv_rest_token,omitempty"`  // Generic KV bearer token
	Hosted        bool   `json:"hosted,omitempty"`         // Hosted deployment without persistent disk

	// Schedule
	ScheduleEnabled bool `json:"schedule_enabled,omitempty"` // Generate a brief automatically every day
	ScheduleHourUTC int  `json:"schedule_hour_utc,omitempty"`

	// Behavior
	Verbose bool `json:"verbose,omitempty"` // Print detailed debug information
}

// DefaultPort is the HTTP port used when nothing else is configured.
const DefaultPort = 8080

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv returns a Config populated from environment variables. Unset
// variables leave the zero value, so the result composes with
// MergeWithDefaults.
func FromEnv() Config {
	return Config{
		Port:            envInt("PORT"),
		APIToken:        os.Getenv("API_TOKEN"),
		APIKey:          os.Getenv("GEMINI_API_KEY"),
		IssuesPath:      os.Getenv("ISSUES_PATH"),
		DataDir:         os.Getenv("DATA_DIR"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         envInt("REDIS_DB"),
		KVRestURL:       os.Getenv("KV_REST_API_URL"),
		KVRestToken:     os.Getenv("KV_REST_API_TOKEN"),
		Hosted:          envBool("HOSTED"),
		ScheduleEnabled: envBool("SCHEDULE_ENABLED"),
		ScheduleHourUTC: envInt("SCHEDULE_HOUR_UTC"),
	}
}

func envInt(key string) int {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	// Validate mutually exclusive backends
	if c.RedisAddr != "" && c.KVRestURL != "" {
		return fmt.Errorf("config error: 'redis_addr' and 'kv_rest_url' are mutually exclusive")
	}
	if c.KVRestURL != "" && c.KVRestToken == "" {
		return fmt.Errorf("config error: 'kv_rest_url' requires 'kv_rest_token'")
	}

	// Validate numeric ranges
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.ScheduleHourUTC < 0 || c.ScheduleHourUTC > 23 {
		return fmt.Errorf("config error: 'schedule_hour_utc' must be between 0 and 23")
	}

	// Validate file paths exist (if specified)
	if c.IssuesPath != "" {
		if _, err := os.Stat(c.IssuesPath); os.IsNotExist(err) {
			return fmt.Errorf("config error: issues file not found: %s", c.IssuesPath)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to apply config file values as defaults for CLI
// flags and environment variables.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.APIToken == "" {
		result.APIToken = defaults.APIToken
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.IssuesPath == "" {
		result.IssuesPath = defaults.IssuesPath
	}
	if result.DataDir == "" {
		result.DataDir = defaults.DataDir
	}
	if result.RedisAddr == "" {
		result.RedisAddr = defaults.RedisAddr
	}
	if result.RedisPassword == "" {
		result.RedisPassword = defaults.RedisPassword
	}
	if result.KVRestURL == "" {
		result.KVRestURL = defaults.KVRestURL
	}
	if result.KVRestToken == "" {
		result.KVRestToken = defaults.KVRestToken
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.RedisDB == 0 {
		result.RedisDB = defaults.RedisDB
	}
	if result.ScheduleHourUTC == 0 {
		result.ScheduleHourUTC = defaults.ScheduleHourUTC
	}

	// Bool fields: true wins
	result.Hosted = result.Hosted || defaults.Hosted
	result.ScheduleEnabled = result.ScheduleEnabled || defaults.ScheduleEnabled
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}
