package lorasim

//
// Broker configuration (SPEC_FULL.md section 2A), matching spec section 6's
// "listen address/port, log destination, RNG seed" contract.
//

import (
	"os"
	"strconv"
)

// Config configures a [Broker].
type Config struct {
	// ListenAddr is the TCP address to bind, e.g. ":8765".
	ListenAddr string

	// Seed seeds the broker's RNG for reproducible runs (spec section 6/9).
	// Zero means "use real entropy".
	Seed int64

	// TraceFile, if non-empty, enables the optional delivery trace
	// (SPEC_FULL.md section 4.1D) written to this path.
	TraceFile string

	// StatsInterval controls how often the periodic summary (stats.go) is
	// logged. Zero disables it.
	StatsInterval int

	// LogLevel is the apex/log level name ("debug", "info", "warn", "error").
	LogLevel string
}

// DefaultListenAddr is the default broker listen address (spec section 6:
// "TCP on a configurable port (default 8765)").
const DefaultListenAddr = ":8765"

// DefaultStatsIntervalSeconds is how often the summary log line is emitted.
const DefaultStatsIntervalSeconds = 30

// DefaultLogLevel is the log level used when neither -log-level nor
// LORASIM_LOG_LEVEL is set.
const DefaultLogLevel = "info"

// NewConfigFromEnv builds a [Config] from environment variables, falling
// back to defaults, per spec section 6. Flags in cmd/lorasim-broker/main.go
// take precedence over these when explicitly set.
func NewConfigFromEnv() Config {
	cfg := Config{
		ListenAddr:    DefaultListenAddr,
		StatsInterval: DefaultStatsIntervalSeconds,
		LogLevel:      DefaultLogLevel,
	}
	if v := os.Getenv("LORASIM_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("LORASIM_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = seed
		}
	}
	if v := os.Getenv("LORASIM_TRACE"); v != "" {
		cfg.TraceFile = v
	}
	if v := os.Getenv("LORASIM_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}
