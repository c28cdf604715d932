// Package watch implements the C7 file watcher: a debounced, fsnotify-backed
// (polling-fallback) watcher over the documents directory, filtered to the
// supported extension allowlist, plus a startup reconciliation scan that
// catches changes made while the engine wasn't running.
package watch

import "time"

// Operation represents a file system operation type.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
	OpRename
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents a filtered, debounced file system event.
type FileEvent struct {
	Path      string // relative to the watched root
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Options configures watcher behavior.
type Options struct {
	DebounceWindow  time.Duration
	PollInterval    time.Duration
	EventBufferSize int
}

func DefaultOptions() Options {
	return Options{
		DebounceWindow:  200 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 1000,
	}
}

func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = d.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = d.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = d.EventBufferSize
	}
	return o
}
