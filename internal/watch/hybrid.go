package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// HybridWatcher watches the documents directory using fsnotify, falling
// back to polling if fsnotify can't be initialized (e.g. inotify watch
// limit exhausted). Events are filtered to supported extensions, debounced,
// and emitted in batches.
type HybridWatcher struct {
	fsWatcher   *fsnotify.Watcher
	pollWatcher *PollingWatcher
	useFsnotify bool
	debouncer   *Debouncer

	events chan []FileEvent
	errors chan error
	stopCh chan struct{}

	rootPath    string
	dataDirName string
	opts        Options

	mu             sync.RWMutex
	stopped        bool
	droppedBatches atomic.Uint64
}

// NewHybridWatcher creates a watcher. dataDirName is the base name of the
// engine's own data directory (e.g. ".ragengine"), always excluded so the
// watcher doesn't react to its own index writes.
func NewHybridWatcher(opts Options, dataDirName string) (*HybridWatcher, error) {
	opts = opts.WithDefaults()

	h := &HybridWatcher{
		debouncer:   NewDebouncer(opts.DebounceWindow),
		events:      make(chan []FileEvent, opts.EventBufferSize),
		errors:      make(chan error, 10),
		stopCh:      make(chan struct{}),
		opts:        opts,
		dataDirName: dataDirName,
	}

	if fsw, err := fsnotify.NewWatcher(); err == nil {
		h.fsWatcher = fsw
		h.useFsnotify = true
	} else {
		h.useFsnotify = false
		h.pollWatcher = NewPollingWatcher(opts.PollInterval)
	}

	return h, nil
}

func (h *HybridWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	h.rootPath = absPath

	go h.forwardDebouncedEvents(ctx)

	if h.useFsnotify {
		return h.startFsnotify(ctx)
	}
	return h.startPolling(ctx)
}

func (h *HybridWatcher) startFsnotify(ctx context.Context) error {
	if err := h.addRecursive(h.rootPath); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopCh:
			return nil
		case event, ok := <-h.fsWatcher.Events:
			if !ok {
				return nil
			}
			h.handleFsnotifyEvent(event)
		case err, ok := <-h.fsWatcher.Errors:
			if !ok {
				return nil
			}
			h.emitError(err)
		}
	}
}

func (h *HybridWatcher) startPolling(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stopCh:
				return
			case event, ok := <-h.pollWatcher.Events():
				if !ok {
					return
				}
				if shouldIgnorePath(event.Path, event.IsDir, h.dataDirName) {
					continue
				}
				h.debouncer.Add(event)
			case err, ok := <-h.pollWatcher.Errors():
				if !ok {
					return
				}
				h.emitError(err)
			}
		}
	}()

	return h.pollWatcher.Start(ctx, h.rootPath)
}

func (h *HybridWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	relPath, err := filepath.Rel(h.rootPath, event.Name)
	if err != nil {
		relPath = event.Name
	}

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	if shouldIgnorePath(relPath, isDir, h.dataDirName) {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir {
			_ = h.fsWatcher.Add(event.Name)
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		return
	}

	h.debouncer.Add(FileEvent{Path: relPath, Operation: op, IsDir: isDir, Timestamp: time.Now()})
}

func (h *HybridWatcher) forwardDebouncedEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case events, ok := <-h.debouncer.Output():
			if !ok {
				return
			}
			if len(events) == 0 {
				continue
			}
			h.emitEvents(events)
		}
	}
}

func (h *HybridWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		relPath, _ := filepath.Rel(h.rootPath, path)
		if relPath == "." {
			return h.fsWatcher.Add(path)
		}
		if shouldIgnorePath(relPath, true, h.dataDirName) {
			return filepath.SkipDir
		}
		return h.fsWatcher.Add(path)
	})
}

func (h *HybridWatcher) emitEvents(events []FileEvent) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped {
		return
	}
	select {
	case h.events <- events:
	default:
		count := h.droppedBatches.Add(1)
		slog.Warn("event buffer full, dropping batch",
			slog.Int("batch_size", len(events)), slog.Uint64("total_dropped_batches", count))
	}
}

func (h *HybridWatcher) DroppedBatches() uint64 { return h.droppedBatches.Load() }

func (h *HybridWatcher) emitError(err error) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped {
		return
	}
	select {
	case h.errors <- err:
	default:
	}
}

func (h *HybridWatcher) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return nil
	}
	h.stopped = true
	close(h.stopCh)

	h.debouncer.Stop()

	if h.useFsnotify && h.fsWatcher != nil {
		_ = h.fsWatcher.Close()
	}
	if h.pollWatcher != nil {
		_ = h.pollWatcher.Stop()
	}

	close(h.events)
	close(h.errors)
	return nil
}

func (h *HybridWatcher) Events() <-chan []FileEvent { return h.events }
func (h *HybridWatcher) Errors() <-chan error       { return h.errors }

func (h *HybridWatcher) WatcherType() string {
	if h.useFsnotify {
		return "fsnotify"
	}
	return "polling"
}

func (h *HybridWatcher) RootPath() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rootPath
}
