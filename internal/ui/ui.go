// Package ui provides terminal progress display for long-running CLI
// operations (indexing, syncing). Output is line-oriented plain text,
// suitable for both interactive terminals and CI logs.
package ui

import (
	"context"
	"io"
	"os"
	"time"
)

// Stage identifies a phase of an ingestion or sync run.
type Stage int

const (
	StageScanning Stage = iota
	StageReading
	StageChunking
	StageEmbedding
	StageIndexing
	StageSyncing
	StageComplete
)

func (s Stage) String() string {
	switch s {
	case StageScanning:
		return "Scanning"
	case StageReading:
		return "Reading"
	case StageChunking:
		return "Chunking"
	case StageEmbedding:
		return "Embedding"
	case StageIndexing:
		return "Indexing"
	case StageSyncing:
		return "Syncing"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

func (s Stage) Icon() string {
	switch s {
	case StageScanning:
		return "SCAN"
	case StageReading:
		return "READ"
	case StageChunking:
		return "CHUNK"
	case StageEmbedding:
		return "EMBED"
	case StageIndexing:
		return "INDEX"
	case StageSyncing:
		return "SYNC"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent is a single progress update.
type ProgressEvent struct {
	Stage       Stage
	Current     int
	Total       int
	CurrentFile string
	Message     string
}

// ErrorEvent is a warning or error encountered while processing.
type ErrorEvent struct {
	File   string
	Err    error
	IsWarn bool
}

// EmbedderInfo describes the active embedding backend for the summary line.
type EmbedderInfo struct {
	Backend    string
	Model      string
	Dimensions int
}

// CompletionStats summarizes a finished run.
type CompletionStats struct {
	Files    int
	Chunks   int
	Duration time.Duration
	Errors   int
	Warnings int
	Embedder EmbedderInfo
}

// Renderer displays progress for a long-running operation.
type Renderer interface {
	Start(ctx context.Context) error
	UpdateProgress(event ProgressEvent)
	AddError(event ErrorEvent)
	Complete(stats CompletionStats)
	Stop() error
}

// Config configures a Renderer.
type Config struct {
	Output io.Writer
	Label  string // e.g. the documents_dir being processed, shown ahead of the first line
}

// NewRenderer returns the plain-text renderer. The tool surface is a
// stateless request/response protocol (C10); there is no interactive
// shell to drive a richer display, so plain text is the only renderer.
func NewRenderer(cfg Config) Renderer {
	return NewPlainRenderer(cfg)
}

// DetectNoColor reports whether NO_COLOR is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}
