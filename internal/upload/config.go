package upload

import (
	"time"

	"github.com/acord-review/backend/internal/config"
)

// DeadlinePolicy decides what happens to a record whose deadline fires
// before it reaches a terminal status.
type DeadlinePolicy string

const (
	// DeadlineFreeze leaves status and progress as they are and flags the record expired.
	DeadlineFreeze DeadlinePolicy = config.DeadlineFreeze
	// DeadlineError moves the record to error.
	DeadlineError DeadlinePolicy = config.DeadlineError
	// DeadlineComplete forces the record to completed.
	DeadlineComplete DeadlinePolicy = config.DeadlineComplete
)

// Config holds the simulator timing and intake validation settings.
type Config struct {
	TickInterval   time.Duration
	Deadline       time.Duration
	Step           int
	DeadlinePolicy DeadlinePolicy

	// Zero values disable the corresponding check.
	MaxBatchFiles     int
	MaxFileSize       int64
	AllowedExtensions []string
}

// DefaultConfig mirrors the dashboard's timings: a tick every 200ms adding
// 10%, and a 2.5s deadline.
func DefaultConfig() Config {
	return Config{
		TickInterval:   200 * time.Millisecond,
		Deadline:       2500 * time.Millisecond,
		Step:           10,
		DeadlinePolicy: DeadlineFreeze,
	}
}

// ConfigFromApp builds the simulator config from the application config.
func ConfigFromApp(cfg *config.AppConfig) Config {
	return Config{
		TickInterval:      cfg.TickInterval(),
		Deadline:          cfg.Deadline(),
		Step:              cfg.Simulator.ProgressStep,
		DeadlinePolicy:    DeadlinePolicy(cfg.Simulator.DeadlinePolicy),
		MaxBatchFiles:     cfg.Intake.MaxBatchFiles,
		MaxFileSize:       cfg.Intake.MaxFileSizeBytes,
		AllowedExtensions: cfg.AllowedExtensions(),
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.Deadline <= 0 {
		c.Deadline = def.Deadline
	}
	if c.Step <= 0 {
		c.Step = def.Step
	}
	switch c.DeadlinePolicy {
	case DeadlineFreeze, DeadlineError, DeadlineComplete:
	default:
		c.DeadlinePolicy = def.DeadlinePolicy
	}
	return c
}
