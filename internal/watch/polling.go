package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// PollingWatcher watches for file changes by periodically scanning the
// directory. Used as a fallback when fsnotify is unavailable.
type PollingWatcher struct {
	interval  time.Duration
	fileState map[string]fileSnapshot
	events    chan FileEvent
	errors    chan error
	stopCh    chan struct{}
	mu        sync.RWMutex
	stopped   bool
	rootPath  string
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
	isDir   bool
}

func NewPollingWatcher(interval time.Duration) *PollingWatcher {
	return &PollingWatcher{
		interval:  interval,
		fileState: make(map[string]fileSnapshot),
		events:    make(chan FileEvent, 100),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}
}

func (p *PollingWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	p.rootPath = absPath

	if err := p.scan(); err != nil {
		return fmt.Errorf("perform initial scan: %w", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.detectChanges(); err != nil {
				select {
				case p.errors <- err:
				default:
				}
			}
		}
	}
}

func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

func (p *PollingWatcher) Events() <-chan FileEvent { return p.events }
func (p *PollingWatcher) Errors() <-chan error     { return p.errors }

func (p *PollingWatcher) scan() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return filepath.WalkDir(p.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(p.rootPath, path)
		if err != nil || relPath == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		p.fileState[relPath] = fileSnapshot{modTime: info.ModTime(), size: info.Size(), isDir: d.IsDir()}
		return nil
	})
}

func (p *PollingWatcher) detectChanges() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := make(map[string]fileSnapshot)

	err := filepath.WalkDir(p.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(p.rootPath, path)
		if err != nil || relPath == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		snap := fileSnapshot{modTime: info.ModTime(), size: info.Size(), isDir: d.IsDir()}
		current[relPath] = snap

		if prev, exists := p.fileState[relPath]; !exists {
			p.emitEvent(FileEvent{Path: relPath, Operation: OpCreate, IsDir: d.IsDir(), Timestamp: time.Now()})
		} else if prev.modTime != snap.modTime || prev.size != snap.size {
			p.emitEvent(FileEvent{Path: relPath, Operation: OpModify, IsDir: d.IsDir(), Timestamp: time.Now()})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk directory for changes: %w", err)
	}

	for path, snap := range p.fileState {
		if _, exists := current[path]; !exists {
			p.emitEvent(FileEvent{Path: path, Operation: OpDelete, IsDir: snap.isDir, Timestamp: time.Now()})
		}
	}

	p.fileState = current
	return nil
}

func (p *PollingWatcher) emitEvent(event FileEvent) {
	if p.stopped {
		return
	}
	select {
	case p.events <- event:
	default:
		slog.Warn("polling watcher buffer full, dropping event",
			slog.String("path", event.Path), slog.String("op", event.Operation.String()))
	}
}
