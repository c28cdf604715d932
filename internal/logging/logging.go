package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	defaultMaxSizeMB = 10
	defaultMaxFiles  = 5
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the path to the log file. Empty means no file logging.
	FilePath string
	// MaxSizeMB is the maximum size in MB before rotation (default: 10).
	MaxSizeMB int
	// MaxFiles is the maximum number of rotated files to keep (default: 5).
	MaxFiles int
	// WriteToStderr whether to also write to stderr (default: true).
	WriteToStderr bool
}

// DefaultConfig is what every subcommand except serve logs with: info level,
// to the rotating file plus stderr.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     defaultMaxSizeMB,
		MaxFiles:      defaultMaxFiles,
		WriteToStderr: true,
	}
}

// DebugConfig returns configuration for debug mode.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	return cfg
}

// Setup builds a JSON slog.Logger writing to a size/count-rotated file
// (optionally mirrored to stderr) and returns it with a cleanup function that
// flushes and closes the file. Zero-valued MaxSizeMB/MaxFiles fall back to
// the package defaults, so callers only need to set the fields they care
// about rather than repeating DefaultConfig's numbers.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if err := EnsureLogDir(); err != nil {
		return nil, nil, err
	}

	maxSizeMB := cfg.MaxSizeMB
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxSizeMB
	}
	maxFiles := cfg.MaxFiles
	if maxFiles <= 0 {
		maxFiles = defaultMaxFiles
	}

	writer, err := NewRotatingWriter(cfg.FilePath, maxSizeMB, maxFiles)
	if err != nil {
		return nil, nil, err
	}

	var output io.Writer = writer
	if cfg.WriteToStderr {
		output = io.MultiWriter(writer, os.Stderr)
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})

	logger := slog.New(handler).With(slog.Int("pid", os.Getpid()))

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}

	return logger, cleanup, nil
}

// SetupDefault installs debug-level file+stderr logging as slog's default
// logger, for callers (tests, one-off scripts) that don't go through a
// cobra command's PersistentPreRunE.
func SetupDefault() (func(), error) {
	logger, cleanup, err := Setup(DebugConfig())
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return cleanup, nil
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromString exports parseLevel's string-to-slog.Level mapping for
// callers outside this package, such as the --debug flag's level selection.
func LevelFromString(level string) slog.Level {
	return parseLevel(level)
}
