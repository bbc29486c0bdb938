// Package envconfig reads liquid's configuration from the environment.
// Each setting is exposed as a function so values are re-read on every
// call and tests can flip them with t.Setenv.
package envconfig

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Var returns an environment variable, trimmed of surrounding
// whitespace and quotes.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// LogLevel returns the log level.
// Configured via LIQUID_DEBUG: 0/false = INFO (default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("LIQUID_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// Home returns the directory holding liquid's persistent state, most
// notably the benchmark history database.
// Configured via LIQUID_HOME, default $HOME/.liquid
func Home() string {
	if s := Var("LIQUID_HOME"); s != "" {
		return s
	}

	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}

	return filepath.Join(home, ".liquid")
}

// NumThreads returns the worker pool size for threaded kernel variants.
// Configured via LIQUID_NUM_THREADS, default runtime.NumCPU()
func NumThreads() int {
	if s := Var("LIQUID_NUM_THREADS"); s != "" {
		if n, err := strconv.Atoi(s); err != nil || n <= 0 {
			slog.Warn("invalid LIQUID_NUM_THREADS, using default", "value", s, "default", runtime.NumCPU())
		} else {
			return n
		}
	}

	return runtime.NumCPU()
}

// BenchRuns returns how many timed executions a benchmark sweep performs
// per variant.
// Configured via LIQUID_BENCH_RUNS, default 3 (1 in testing mode)
func BenchRuns() int {
	if s := Var("LIQUID_BENCH_RUNS"); s != "" {
		if n, err := strconv.Atoi(s); err != nil || n <= 0 {
			slog.Warn("invalid LIQUID_BENCH_RUNS, using default", "value", s, "default", 3)
		} else {
			return n
		}
	}

	return 3
}

func boolVar(key string) func() bool {
	return func() bool {
		if s := Var(key); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return false
	}
}

var (
	// Testing disables benchmark persistence and shrinks sweeps so
	// throwaway measurements never pollute the history (LIQUID_TESTING).
	Testing = boolVar("LIQUID_TESTING")

	// NoOffload disables device enumeration so offloaded variants are
	// never applicable (LIQUID_NO_OFFLOAD).
	NoOffload = boolVar("LIQUID_NO_OFFLOAD")
)

// EnvVar describes one environment variable for CLI usage text.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns every configuration variable with its current value.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"LIQUID_DEBUG":       {"LIQUID_DEBUG", LogLevel(), "Show additional debug information (e.g. LIQUID_DEBUG=1)"},
		"LIQUID_HOME":        {"LIQUID_HOME", Home(), "The path to the directory holding benchmark history"},
		"LIQUID_NUM_THREADS": {"LIQUID_NUM_THREADS", NumThreads(), "Worker pool size for threaded variants"},
		"LIQUID_BENCH_RUNS":  {"LIQUID_BENCH_RUNS", BenchRuns(), "Timed executions per variant during a benchmark sweep"},
		"LIQUID_TESTING":     {"LIQUID_TESTING", Testing(), "Use a minimal, non-persisted benchmarking mode"},
		"LIQUID_NO_OFFLOAD":  {"LIQUID_NO_OFFLOAD", NoOffload(), "Disable device enumeration and offloaded variants"},
	}
}
