package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBenchTestingModeKeepsHomeEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("LIQUID_HOME", home)
	t.Setenv("LIQUID_TESTING", "1")
	t.Setenv("LIQUID_NO_OFFLOAD", "1")

	cli := NewCLI()
	cli.SetArgs([]string{"bench", "--op", "TemporalCorrelations", "--frames", "4", "--size", "8"})
	require.NoError(t, cli.Execute())

	// Testing mode must not persist anything.
	_, err := os.Stat(filepath.Join(home, "benchmarks.db"))
	require.True(t, os.IsNotExist(err))
}

func TestBenchUnknownOperation(t *testing.T) {
	t.Setenv("LIQUID_TESTING", "1")

	cli := NewCLI()
	cli.SetArgs([]string{"bench", "--op", "NoSuchKernel"})
	require.Error(t, cli.Execute())
}

func TestRunRequiresInput(t *testing.T) {
	cli := NewCLI()
	cli.SetArgs([]string{"run", "--op", "NLMDenoising"})
	require.Error(t, cli.Execute())
}

func TestClearNamespacedAndFull(t *testing.T) {
	t.Setenv("LIQUID_HOME", t.TempDir())

	cli := NewCLI()
	cli.SetArgs([]string{"clear", "--op", "NLMDenoising"})
	require.NoError(t, cli.Execute())

	cli = NewCLI()
	cli.SetArgs([]string{"clear"})
	require.NoError(t, cli.Execute())
}

func TestDevicesRunsWithoutBackends(t *testing.T) {
	t.Setenv("LIQUID_NO_OFFLOAD", "1")

	cli := NewCLI()
	cli.SetArgs([]string{"devices"})
	require.NoError(t, cli.Execute())
}
