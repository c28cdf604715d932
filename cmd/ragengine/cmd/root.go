// Package cmd provides the CLI commands for ragengine.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/localrag/ragengine/internal/logging"
	"github.com/localrag/ragengine/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the ragengine CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ragengine",
		Short: "Local-first retrieval-augmented generation engine",
		Long: `ragengine indexes a directory of documents and serves hybrid
semantic/keyword search over them.

Run 'ragengine index' once to build the index, then 'ragengine serve' to
expose it as an MCP tool surface for AI assistants, or use 'ragengine
search' directly from the command line.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("ragengine version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.ragengine/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(cmd *cobra.Command, _ []string) error {
	level := "info"
	if debugMode {
		level = "debug"
	}

	// serve owns stdout for the MCP stdio transport and some MCP clients
	// treat stderr activity from it as a protocol error too, so it gets
	// file-only logging; every other command logs to file and stderr.
	if cmd.Name() == "serve" {
		cleanup, err := logging.SetupMCPModeWithLevel(level)
		if err != nil {
			return err
		}
		loggingCleanup = cleanup
		return nil
	}

	cfg := logging.DefaultConfig()
	cfg.Level = level
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
