// Package config provides YAML-based configuration management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Deadline policies
const (
	DeadlineFreeze   = "freeze"
	DeadlineError    = "error"
	DeadlineComplete = "complete"
)

// AppConfig represents the root configuration structure
type AppConfig struct {
	Server        ServerConfig        `yaml:"server"`
	Simulator     SimulatorConfig     `yaml:"simulator"`
	Intake        IntakeConfig        `yaml:"intake"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Advanced      AdvancedConfig      `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bind_address"`
	EnableCORS   bool   `yaml:"enable_cors"`
	AllowOrigins string `yaml:"allow_origins"`
	ReadTimeout  int    `yaml:"read_timeout_seconds"`
	WriteTimeout int    `yaml:"write_timeout_seconds"`
	IdleTimeout  int    `yaml:"idle_timeout_seconds"`
	BodyLimit    string `yaml:"body_limit"`
}

// SimulatorConfig contains upload lifecycle timing
type SimulatorConfig struct {
	TickIntervalMs     int    `yaml:"tick_interval_ms"`
	DeadlineMs         int    `yaml:"deadline_ms"`
	ProgressStep       int    `yaml:"progress_step"`
	DeadlinePolicy     string `yaml:"deadline_policy"` // freeze, error, complete
	DriverResolutionMs int    `yaml:"driver_resolution_ms"`
}

// IntakeConfig contains batch validation and rate limiting
type IntakeConfig struct {
	MaxBatchFiles     int     `yaml:"max_batch_files"`
	MaxFileSizeBytes  int64   `yaml:"max_file_size_bytes"`
	AllowedExtensions string  `yaml:"allowed_extensions"`
	RatePerSecond     float64 `yaml:"rate_per_second"`
	RateBurst         int     `yaml:"rate_burst"`
}

// NotificationsConfig contains notification hub settings
type NotificationsConfig struct {
	HistorySize int `yaml:"history_size"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `yaml:"log_level"`
	EnableRequestLogging bool   `yaml:"enable_request_logging"`
	JournalMemoryLimit   string `yaml:"journal_memory_limit"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "64M",
		},
		Simulator: SimulatorConfig{
			TickIntervalMs:     200,
			DeadlineMs:         2500,
			ProgressStep:       10,
			DeadlinePolicy:     DeadlineFreeze,
			DriverResolutionMs: 50,
		},
		Intake: IntakeConfig{
			MaxBatchFiles:     50,
			MaxFileSizeBytes:  10 * 1024 * 1024,
			AllowedExtensions: ".pdf,.doc,.docx",
			RatePerSecond:     5,
			RateBurst:         10,
		},
		Notifications: NotificationsConfig{
			HistorySize: 50,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			JournalMemoryLimit:   "256MB",
		},
	}
}

// LoadConfig loads configuration from a YAML file, writing the defaults
// there first if it does not exist.
func LoadConfig(configPath string) (*AppConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		return config, config.Validate()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Fields missing from the file keep their defaults
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvironmentOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to a YAML file
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	header := []byte("# ACORD intake simulator configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if level := os.Getenv("ACORD_LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}

	if policy := os.Getenv("ACORD_DEADLINE_POLICY"); policy != "" {
		c.Simulator.DeadlinePolicy = strings.ToLower(policy)
	}
}

// Validate checks that the values can drive the simulator
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Simulator.TickIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("simulator.tick_interval_ms must be positive"))
	}
	if c.Simulator.DeadlineMs <= 0 {
		errs = append(errs, fmt.Errorf("simulator.deadline_ms must be positive"))
	}
	if c.Simulator.ProgressStep <= 0 || c.Simulator.ProgressStep > 100 {
		errs = append(errs, fmt.Errorf("simulator.progress_step must be in 1..100, got %d", c.Simulator.ProgressStep))
	}
	switch c.Simulator.DeadlinePolicy {
	case DeadlineFreeze, DeadlineError, DeadlineComplete:
	default:
		errs = append(errs, fmt.Errorf("simulator.deadline_policy must be freeze, error or complete, got %q", c.Simulator.DeadlinePolicy))
	}
	if c.Simulator.DriverResolutionMs <= 0 {
		errs = append(errs, fmt.Errorf("simulator.driver_resolution_ms must be positive"))
	}
	if c.Intake.MaxBatchFiles < 0 || c.Intake.MaxFileSizeBytes < 0 {
		errs = append(errs, fmt.Errorf("intake limits must not be negative"))
	}
	if c.Notifications.HistorySize < 0 {
		errs = append(errs, fmt.Errorf("notifications.history_size must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// TickInterval returns the simulator tick interval
func (c *AppConfig) TickInterval() time.Duration {
	return time.Duration(c.Simulator.TickIntervalMs) * time.Millisecond
}

// Deadline returns the per-record deadline measured from intake
func (c *AppConfig) Deadline() time.Duration {
	return time.Duration(c.Simulator.DeadlineMs) * time.Millisecond
}

// DriverResolution returns how often the real-time driver advances the virtual clock
func (c *AppConfig) DriverResolution() time.Duration {
	return time.Duration(c.Simulator.DriverResolutionMs) * time.Millisecond
}

// AllowedExtensions returns the normalized list of accepted file extensions.
// An empty list accepts everything.
func (c *AppConfig) AllowedExtensions() []string {
	var exts []string
	for _, ext := range strings.Split(c.Intake.AllowedExtensions, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return exts
}

// AllowOriginList splits the CORS origin setting
func (c *AppConfig) AllowOriginList() []string {
	origins := strings.Split(c.Server.AllowOrigins, ",")
	out := origins[:0]
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
