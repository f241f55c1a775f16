package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/matchdeck/internal/flagx"
)

var valueFlags = []string{"-u", "-w", "-unmatch", "-id", "-csrf", "-t", "-d", "-v", "-n", "-r", "-p", "-db", "-m", "-l"}

var boolFlags = []string{"-dedup", "-sender"}

// parseFlags populates Config fields from command-line flags.
//
// The arguments are filtered with flagx.FilterArgs first so that flags owned
// by other loaders (-c/-config) do not cause parse errors. It panics on a
// malformed value.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, valueFlags, boolFlags...)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.BaseURL, "u", cfg.BaseURL, "backend base URL")
	fs.StringVar(&cfg.WebSocketURL, "w", cfg.WebSocketURL, "realtime base URL")
	fs.StringVar(&cfg.UnmatchPath, "unmatch", cfg.UnmatchPath, "unmatch route, {id} is the target user id")
	fs.StringVar(&cfg.UserID, "id", cfg.UserID, "current user id")
	fs.StringVar(&cfg.CSRFToken, "csrf", cfg.CSRFToken, "anti-forgery token")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "bearer access token")
	fs.Float64Var(&cfg.DistanceThreshold, "d", cfg.DistanceThreshold, "drag distance threshold")
	fs.Float64Var(&cfg.VelocityThreshold, "v", cfg.VelocityThreshold, "drag velocity threshold (units/ms)")
	fs.IntVar(&cfg.VisibleDepth, "n", cfg.VisibleDepth, "visible deck depth")
	timeout := fs.Int("r", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.ResurfacePolicy, "p", cfg.ResurfacePolicy, "resurface policy: never | next-batch")
	fs.BoolVar(&cfg.DedupEchoes, "dedup", cfg.DedupEchoes, "fold self-echoed chat frames")
	fs.BoolVar(&cfg.IncludeSenderID, "sender", cfg.IncludeSenderID, "include sender_id in outbound frames")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite journal path")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics listen address")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// -r is whole seconds; only apply it when given so a sub-second value
	// from the config file survives.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "r" {
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		}
	})
}
