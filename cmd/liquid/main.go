// Command liquid exposes the autotuning kernel engine: benchmark
// sweeps, select-and-run on image stacks, device listing and history
// maintenance.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumoscope/liquid/envconfig"
	"github.com/lumoscope/liquid/logutil"
)

func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "liquid",
		Short:         "Self-tuning super-resolution kernel runner",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}

	benchCmd := newBenchCmd()
	runCmd := newRunCmd()
	devicesCmd := newDevicesCmd()
	clearCmd := newClearCmd()

	envVars := envconfig.AsMap()
	for _, cmd := range []*cobra.Command{benchCmd, runCmd, devicesCmd, clearCmd} {
		switch cmd {
		case benchCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["LIQUID_BENCH_RUNS"],
				envVars["LIQUID_NUM_THREADS"],
				envVars["LIQUID_NO_OFFLOAD"],
				envVars["LIQUID_HOME"],
			})
		case devicesCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["LIQUID_NO_OFFLOAD"]})
		case clearCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["LIQUID_HOME"]})
		default:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["LIQUID_HOME"],
				envVars["LIQUID_NUM_THREADS"],
				envVars["LIQUID_NO_OFFLOAD"],
			})
		}
	}

	rootCmd.AddCommand(benchCmd, runCmd, devicesCmd, clearCmd)

	return rootCmd
}

func main() {
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))

	if err := NewCLI().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
