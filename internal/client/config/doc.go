// Package config loads runtime configuration for the matchdeck client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file (see parseFile) selected via -c or -config;
//     the format follows the extension (.yaml/.yml, anything else is JSON).
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-u string    backend base URL
//	-w string    realtime base URL (derived from -u when empty)
//	-id string   current user id
//	-csrf string anti-forgery token
//	-t string    bearer access token
//	-d float     drag distance threshold
//	-v float     drag velocity threshold (units/ms)
//	-n int       visible deck depth
//	-r int       request timeout (seconds)
//	-p string    resurface policy: never | next-batch
//	-dedup       fold self-echoed chat frames into optimistic entries
//	-sender      include sender_id in outbound chat frames
//	-db string   sqlite journal path
//	-m string    metrics listen address
//	-l string    log level
//
// # File schema
//
// Durations accept strings like "10s" or integer nanoseconds:
//
//	{
//	  "base_url": "http://127.0.0.1:8000",
//	  "user_id": "7",
//	  "distance_threshold": 100,
//	  "velocity_threshold": 0.3,
//	  "request_timeout": "10s",
//	  "resurface_policy": "never"
//	}
package config
