package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Resurface policies for candidates whose reconciliation failed.
const (
	ResurfaceNever     = "never"
	ResurfaceNextBatch = "next-batch"
)

// Config holds runtime settings for the matchdeck client.
//
// Units: DistanceThreshold is in pointer units, VelocityThreshold in
// units per millisecond, RequestTimeout is a time.Duration.
type Config struct {
	BaseURL      string
	WebSocketURL string

	// UnmatchPath overrides the unmatch route; {id} is replaced with the
	// target user id. Empty keeps the built-in route.
	UnmatchPath string

	UserID      string
	CSRFToken   string
	AccessToken string

	DistanceThreshold float64
	VelocityThreshold float64
	VisibleDepth      int

	RequestTimeout  time.Duration
	ResurfacePolicy string
	DedupEchoes     bool
	IncludeSenderID bool

	DBPath      string
	MetricsAddr string
	LogLevel    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "http://127.0.0.1:8000"
	c.DistanceThreshold = 100
	c.VelocityThreshold = 0.3
	c.VisibleDepth = 3
	c.RequestTimeout = 10 * time.Second
	c.ResurfacePolicy = ResurfaceNever
	c.DBPath = "matchdeck.db"
	c.LogLevel = "info"
}

// WSBase returns the realtime endpoint base. When WebSocketURL is unset it is
// derived from BaseURL by swapping the scheme (http -> ws, https -> wss).
func (c *Config) WSBase() string {
	if c.WebSocketURL != "" {
		return strings.TrimRight(c.WebSocketURL, "/")
	}
	base := strings.TrimRight(c.BaseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}

// Validate reports settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, errors.New("base url must not be empty"))
	}
	if c.DistanceThreshold <= 0 {
		errs = append(errs, fmt.Errorf("distance threshold must be positive, got %v", c.DistanceThreshold))
	}
	if c.VelocityThreshold <= 0 {
		errs = append(errs, fmt.Errorf("velocity threshold must be positive, got %v", c.VelocityThreshold))
	}
	if c.VisibleDepth < 1 {
		errs = append(errs, fmt.Errorf("visible depth must be at least 1, got %d", c.VisibleDepth))
	}
	if c.UnmatchPath != "" && !strings.Contains(c.UnmatchPath, "{id}") {
		errs = append(errs, fmt.Errorf("unmatch path %q must contain {id}", c.UnmatchPath))
	}
	if c.ResurfacePolicy != ResurfaceNever && c.ResurfacePolicy != ResurfaceNextBatch {
		errs = append(errs, fmt.Errorf("unknown resurface policy %q", c.ResurfacePolicy))
	}
	return errors.Join(errs...)
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a JSON or YAML file (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	return load(os.Args[1:])
}

func load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg, args)
	parseFlags(cfg, args)
	return cfg
}
