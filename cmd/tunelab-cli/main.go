package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/XiaoConstantine/tunelab/cmd/tunelab-cli/internal/commands"
)

var rootCmd = &cobra.Command{
	Use:   "tunelab-cli",
	Short: "TuneLab CLI for running and inspecting use-case optimizations",
	Long: `A command-line interface for TuneLab that runs single-factor optimization
experiments against an LLM use case and inspects stored runs.

The CLI provides:
- Experiment execution from a YAML experiment file
- A simulated executor for dry runs without API access
- YAML run reports with confidence intervals
- A local SQLite archive of finished runs`,
	Version: "0.1.0",
}

func init() {
	rootCmd.AddCommand(
		commands.NewRunCommand(),
		commands.NewShowCommand(),
		commands.NewListCommand(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
