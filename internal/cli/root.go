// Package cli implements the interactive coresim shell.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/me/coresim/internal/config"
	"github.com/me/coresim/internal/logging"
)

var (
	flagConfig    string
	flagDB        string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the coresim shell.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "coresim",
		Short: "coresim — CPU scheduler emulator",
		Long:  "coresim emulates a multi-core machine running synthetic processes under FCFS or round-robin scheduling.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.New(flagLogLevel, flagLogFormat)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			sh := NewShell(flagConfig, flagDB, logger)
			return sh.Run()
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultPath, "Config file (config.txt or config.yaml)")
	root.PersistentFlags().StringVar(&flagDB, "db", "coresim.db", "Run archive database path")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	return root
}
