package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/localrag/ragengine/internal/model"
)

// ChangeType categorizes a reconciliation diff entry.
type ChangeType int

const (
	ChangeAdded ChangeType = iota
	ChangeModified
	ChangeDeleted
)

// FileChange is one entry in a reconciliation diff.
type FileChange struct {
	Path string
	Type ChangeType
}

// currentFile is a lightweight filesystem-only snapshot; unlike model.File
// it carries no content hash, since a startup scan shouldn't have to read
// every file's bytes to detect drift.
type currentFile struct {
	Path  string
	Size  int64
	MTime time.Time
}

// ScanDirectory walks root and returns one entry per supported,
// non-ignored file, keyed by path relative to root.
func ScanDirectory(root, dataDirName string) (map[string]*currentFile, error) {
	result := make(map[string]*currentFile)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil || relPath == "." {
			return nil
		}
		if shouldIgnorePath(relPath, d.IsDir(), dataDirName) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		result[relPath] = &currentFile{Path: relPath, Size: info.Size(), MTime: info.ModTime()}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan directory: %w", err)
	}
	return result, nil
}

// DetectChanges performs a 3-way diff between the file records the
// metadata store tracked before startup and what's on disk now, using
// mtime (truncated to 1-second precision) and size as the change signal —
// cheap enough to run before reading any file content. Deletions sort
// first so cascading cleanup happens before new content is indexed.
func DetectChanges(indexed map[string]*model.File, current map[string]*currentFile) []FileChange {
	var changes []FileChange

	for path, cur := range current {
		prev, exists := indexed[path]
		if !exists {
			changes = append(changes, FileChange{Path: path, Type: ChangeAdded})
			continue
		}
		if !prev.MTime.Truncate(time.Second).Equal(cur.MTime.Truncate(time.Second)) || prev.Size != cur.Size {
			changes = append(changes, FileChange{Path: path, Type: ChangeModified})
		}
	}

	for path := range indexed {
		if _, exists := current[path]; !exists {
			changes = append(changes, FileChange{Path: path, Type: ChangeDeleted})
		}
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Type == ChangeDeleted && changes[j].Type != ChangeDeleted
	})

	return changes
}

// Processor is the subset of the ingestion pipeline the reconciliation
// loop needs.
type Processor interface {
	Process(ctx context.Context, relPath string) error
	Remove(ctx context.Context, relPath string) error
}

// Reconcile runs a startup scan: it diffs the metadata store's tracked
// files against the filesystem and applies the resulting changes through
// the pipeline, returning a summary count per change type. It checks for
// cancellation between each file so a shutdown during a large reconcile
// doesn't leave the pipeline mid-operation.
func Reconcile(ctx context.Context, root, dataDirName string, indexed map[string]*model.File, pipeline Processor) (added, modified, deleted int, err error) {
	current, err := ScanDirectory(root, dataDirName)
	if err != nil {
		return 0, 0, 0, err
	}

	changes := DetectChanges(indexed, current)

	for _, change := range changes {
		select {
		case <-ctx.Done():
			return added, modified, deleted, ctx.Err()
		default:
		}

		switch change.Type {
		case ChangeDeleted:
			if err := pipeline.Remove(ctx, change.Path); err != nil {
				return added, modified, deleted, fmt.Errorf("remove %s: %w", change.Path, err)
			}
			deleted++
		case ChangeAdded:
			if err := pipeline.Process(ctx, change.Path); err != nil {
				return added, modified, deleted, fmt.Errorf("process %s: %w", change.Path, err)
			}
			added++
		case ChangeModified:
			if err := pipeline.Process(ctx, change.Path); err != nil {
				return added, modified, deleted, fmt.Errorf("reprocess %s: %w", change.Path, err)
			}
			modified++
		}
	}

	return added, modified, deleted, nil
}
