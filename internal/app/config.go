package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/Wollering/CTF-Assessment-Engine/internal/credentials"
	"github.com/Wollering/CTF-Assessment-Engine/internal/executor"
)

// Config holds everything an App instance needs to run.
type Config struct {
	// One-shot mode: run a single assessment and print the result. All
	// three fields are required together.
	SubjectID   string
	ChallengeID string
	TenantID    string

	// Server mode: address for the HTTP front door, e.g. ":8080". Mutually
	// exclusive with one-shot mode.
	ListenAddr string

	// DefaultTenant fills a request that names no tenant account.
	DefaultTenant string

	Region           string
	CatalogTable     string
	ResultsTable     string
	CheckBucket      string
	RoleName         string
	ExternalID       string
	MetricsNamespace string
	DisableMetrics   bool

	LogFormat string
	LogLevel  string

	CheckTimeout    time.Duration
	MaxInFlight     int
	SessionDuration time.Duration
}

// NewConfig validates a Config and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	oneShot := cfg.SubjectID != "" || cfg.ChallengeID != "" || cfg.TenantID != ""
	if oneShot && (cfg.SubjectID == "" || cfg.ChallengeID == "" || cfg.TenantID == "") {
		return nil, errors.New("one-shot mode needs subject, challenge, and tenant together")
	}
	if oneShot && cfg.ListenAddr != "" {
		return nil, errors.New("one-shot mode and listen address are mutually exclusive")
	}
	if !oneShot && cfg.ListenAddr == "" {
		return nil, errors.New("either a one-shot run or a listen address must be configured")
	}

	if cfg.CatalogTable == "" {
		return nil, errors.New("challenge catalog table is required")
	}
	if cfg.CheckBucket == "" {
		return nil, errors.New("check code bucket is required")
	}
	if cfg.RoleName == "" {
		return nil, errors.New("tenant trust role name is required")
	}
	if cfg.ExternalID == "" {
		return nil, errors.New("external id is required")
	}

	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = executor.DefaultConfig.CheckTimeout
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = executor.DefaultConfig.MaxInFlight
	}
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = credentials.DefaultSessionDuration
	}
	if cfg.SessionDuration < cfg.CheckTimeout {
		return nil, fmt.Errorf("credential session (%s) must outlive the check deadline (%s)",
			cfg.SessionDuration, cfg.CheckTimeout)
	}

	return &cfg, nil
}

// OneShot reports whether the config selects a single CLI-driven run.
func (c *Config) OneShot() bool {
	return c.SubjectID != ""
}
