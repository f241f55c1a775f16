package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/matchdeck/internal/flagx"
	"github.com/dmitrijs2005/matchdeck/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is a DTO used exclusively for file unmarshalling. Pointer fields
// distinguish "absent" from a zero value so a partial file only overrides
// what it names.
type FileConfig struct {
	BaseURL           *string         `json:"base_url" yaml:"base_url"`
	WebSocketURL      *string         `json:"ws_url" yaml:"ws_url"`
	UnmatchPath       *string         `json:"unmatch_path" yaml:"unmatch_path"`
	UserID            *string         `json:"user_id" yaml:"user_id"`
	CSRFToken         *string         `json:"csrf_token" yaml:"csrf_token"`
	AccessToken       *string         `json:"access_token" yaml:"access_token"`
	DistanceThreshold *float64        `json:"distance_threshold" yaml:"distance_threshold"`
	VelocityThreshold *float64        `json:"velocity_threshold" yaml:"velocity_threshold"`
	VisibleDepth      *int            `json:"visible_depth" yaml:"visible_depth"`
	RequestTimeout    *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	ResurfacePolicy   *string         `json:"resurface_policy" yaml:"resurface_policy"`
	DedupEchoes       *bool           `json:"dedup_echoes" yaml:"dedup_echoes"`
	IncludeSenderID   *bool           `json:"include_sender_id" yaml:"include_sender_id"`
	DBPath            *string         `json:"db_path" yaml:"db_path"`
	MetricsAddr       *string         `json:"metrics_addr" yaml:"metrics_addr"`
	LogLevel          *string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays Config with values loaded from the file named by -c or
// -config. Nothing happens when neither flag is given. It panics on read or
// decode errors.
func parseFile(cfg *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(cfg)
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.BaseURL, fc.BaseURL)
	setString(&cfg.WebSocketURL, fc.WebSocketURL)
	setString(&cfg.UnmatchPath, fc.UnmatchPath)
	setString(&cfg.UserID, fc.UserID)
	setString(&cfg.CSRFToken, fc.CSRFToken)
	setString(&cfg.AccessToken, fc.AccessToken)
	setString(&cfg.ResurfacePolicy, fc.ResurfacePolicy)
	setString(&cfg.DBPath, fc.DBPath)
	setString(&cfg.MetricsAddr, fc.MetricsAddr)
	setString(&cfg.LogLevel, fc.LogLevel)

	if fc.DistanceThreshold != nil {
		cfg.DistanceThreshold = *fc.DistanceThreshold
	}
	if fc.VelocityThreshold != nil {
		cfg.VelocityThreshold = *fc.VelocityThreshold
	}
	if fc.VisibleDepth != nil {
		cfg.VisibleDepth = *fc.VisibleDepth
	}
	if fc.RequestTimeout != nil {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.DedupEchoes != nil {
		cfg.DedupEchoes = *fc.DedupEchoes
	}
	if fc.IncludeSenderID != nil {
		cfg.IncludeSenderID = *fc.IncludeSenderID
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
