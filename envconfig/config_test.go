package envconfig

import (
	"log/slog"
	"runtime"
	"testing"
)

func TestVar(t *testing.T) {
	cases := map[string]string{
		"value":       "value",
		" value ":     "value",
		`"value"`:     "value",
		`'value'`:     "value",
		` "value" `:   "value",
		`" value "`:   "value",
		"value value": "value value",
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("LIQUID_VAR", k)
			if s := Var("LIQUID_VAR"); s != v {
				t.Errorf("%s: expected %q, got %q", k, v, s)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"false": slog.LevelInfo,
		"0":     slog.LevelInfo,
		"true":  slog.LevelDebug,
		"1":     slog.LevelDebug,
		"2":     slog.Level(-8),
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("LIQUID_DEBUG", k)
			if l := LogLevel(); l != v {
				t.Errorf("%s: expected %d, got %d", k, v, l)
			}
		})
	}
}

func TestNumThreads(t *testing.T) {
	cases := map[string]int{
		"":    runtime.NumCPU(),
		"0":   runtime.NumCPU(),
		"-1":  runtime.NumCPU(),
		"abc": runtime.NumCPU(),
		"2":   2,
		"16":  16,
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("LIQUID_NUM_THREADS", k)
			if n := NumThreads(); n != v {
				t.Errorf("%s: expected %d, got %d", k, v, n)
			}
		})
	}
}

func TestTesting(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"0":     false,
		"false": false,
		"1":     true,
		"true":  true,
		"on":    true,
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("LIQUID_TESTING", k)
			if b := Testing(); b != v {
				t.Errorf("%s: expected %t, got %t", k, v, b)
			}
		})
	}
}
