package logging

import (
	"log/slog"
)

// SetupMCPModeWithLevel configures logging for 'ragengine serve': file-only,
// JSON-structured, at the given level. The MCP stdio transport owns stdout
// for the JSON-RPC stream, and some MCP clients treat any stderr activity
// from a spawned server as a protocol error too, so this never enables
// WriteToStderr the way DefaultConfig/DebugConfig do for the other commands.
func SetupMCPModeWithLevel(level string) (func(), error) {
	cfg := Config{
		Level:         level,
		FilePath:      DefaultLogPath(),
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return cleanup, nil
}
