package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/localrag/ragengine/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var transport string
	var port int
	var session string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP tool surface",
		Long: `Serve the engine's eight tools (search, list_sources,
extract_information, vector_db_sync_check, vector_db_cleanup_orphaned,
vector_db_force_sync, vector_db_integrity_report, get_vectordb_info) over
the Model Context Protocol.

stdio is the only supported transport: the protocol requires stdout to
carry nothing but JSON-RPC messages, so no status output is printed here.
Use 'ragengine status' or '--debug' file logging for diagnostics instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport to serve over (stdio)")
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (reserved for future non-stdio transports)")
	cmd.Flags().StringVar(&session, "session", "", "Session identifier (accepted but not used by serve)")

	return cmd
}

func runServe(ctx context.Context, transport string, _ int) error {
	if transport == "" || transport == "stdio" {
		if err := verifyStdinForMCP(); err != nil {
			return err
		}
	}

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	eng, err := openEngine(ctx, root)
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	stopBackground := eng.startBackgroundServices(ctx)
	defer stopBackground()

	server := mcp.NewServer(eng.metadata, eng.vectors, eng.search, eng.sync, eng.embedder)
	return server.Serve(ctx, transport)
}

// verifyStdinForMCP checks that stdin is a pipe rather than an interactive
// terminal. Running 'ragengine serve' directly in a shell (rather than
// having an MCP client spawn it) leaves stdin attached to the terminal,
// which would otherwise hang waiting for a handshake that never arrives.
func verifyStdinForMCP() error {
	info, err := os.Stdin.Stat()
	if err != nil {
		return fmt.Errorf("stat stdin: %w", err)
	}
	if info.Mode()&os.ModeCharDevice != 0 {
		return fmt.Errorf("stdin is a terminal, not a pipe: ragengine serve expects to be launched by an MCP client, not run interactively")
	}
	return nil
}
