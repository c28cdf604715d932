package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	ragerrors "github.com/localrag/ragengine/internal/errors"
	"github.com/localrag/ragengine/internal/model"
	"github.com/localrag/ragengine/internal/store"
	"github.com/localrag/ragengine/internal/watch"
)

// Processor re-ingests or removes a single file, relative to documents_dir.
// *ingest.Pipeline satisfies this structurally.
type Processor interface {
	Process(ctx context.Context, relPath string) error
	Remove(ctx context.Context, relPath string) error
}

// Manager is the C9 synchronization manager, reconciling the filesystem,
// the metadata store, and the vector store.
type Manager struct {
	documentsDir string
	dataDirName  string
	metadata     store.MetadataStore
	vectors      *store.VectorStore
	processor    Processor
}

func NewManager(documentsDir, dataDirName string, metadata store.MetadataStore, vectors *store.VectorStore, processor Processor) *Manager {
	return &Manager{
		documentsDir: documentsDir,
		dataDirName:  dataDirName,
		metadata:     metadata,
		vectors:      vectors,
		processor:    processor,
	}
}

// GenerateSyncReport scans for drift. A shallow scan trusts the metadata
// store's recorded content_hash and only checks file presence; a deep scan
// recomputes every on-disk file's hash. includeNew controls whether
// new_file issues (supported files with no file record) are reported.
// When autoFix is set, detected issues are repaired in place and the
// report's Fixed field is populated.
func (m *Manager) GenerateSyncReport(ctx context.Context, deep, includeNew, autoFix bool) (*Report, error) {
	report := newReport(deep)

	files, err := m.metadata.ListFiles(ctx)
	if err != nil {
		return nil, ragerrors.StorageError("list files for sync", err)
	}
	byPath := make(map[string]*model.File, len(files))
	for _, f := range files {
		byPath[f.Path] = f
		report.FilesChecked++
	}

	activeGen, err := m.metadata.GetActiveGeneration(ctx)
	if err != nil {
		return nil, ragerrors.StorageError("load active generation for sync", err)
	}

	for _, f := range files {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		abs := filepath.Join(m.documentsDir, f.Path)
		info, statErr := os.Stat(abs)
		if statErr != nil {
			if os.IsNotExist(statErr) {
				report.add(Issue{Kind: ragerrors.IntegrityMissingFile, Severity: issueSeverity[ragerrors.IntegrityMissingFile], Path: f.Path, FileID: f.FileID})
				continue
			}
			return nil, ragerrors.StorageError(fmt.Sprintf("stat %s", f.Path), statErr)
		}

		if deep {
			data, readErr := os.ReadFile(abs)
			if readErr != nil {
				return nil, ragerrors.FileProcessingError(fmt.Sprintf("read %s for hash verification", f.Path), readErr)
			}
			if hashBytes(data) != f.ContentHash {
				report.add(Issue{Kind: ragerrors.IntegrityHashMismatch, Severity: issueSeverity[ragerrors.IntegrityHashMismatch], Path: f.Path, FileID: f.FileID})
			}
		}
		_ = info

		count, countErr := m.vectors.CountByDocID(ctx, f.FileID)
		if countErr != nil {
			return nil, ragerrors.StorageError(fmt.Sprintf("count vectors for %s", f.FileID), countErr)
		}
		if count == 0 {
			report.add(Issue{Kind: ragerrors.IntegrityMissingVectors, Severity: issueSeverity[ragerrors.IntegrityMissingVectors], Path: f.Path, FileID: f.FileID})
			continue
		}
		if activeGen != nil {
			dim, dimErr := m.vectors.VectorDimensions(ctx, f.FileID, 0)
			if dimErr == nil && dim != 0 && dim != activeGen.Dimensions {
				report.add(Issue{Kind: ragerrors.IntegrityDimensionMismatch, Severity: issueSeverity[ragerrors.IntegrityDimensionMismatch], Path: f.Path, FileID: f.FileID,
					Details: fmt.Sprintf("stored %d, active generation %d", dim, activeGen.Dimensions)})
			}
		}
	}

	docIDs, err := m.vectors.AllDocIDs(ctx)
	if err != nil {
		return nil, ragerrors.StorageError("list vector doc ids for sync", err)
	}
	fileByID := make(map[string]*model.File, len(files))
	for _, f := range files {
		fileByID[f.FileID] = f
	}
	for _, docID := range docIDs {
		if _, ok := fileByID[docID]; !ok {
			report.add(Issue{Kind: ragerrors.IntegrityOrphanedVector, Severity: issueSeverity[ragerrors.IntegrityOrphanedVector], FileID: docID})
		}
	}

	if includeNew {
		current, scanErr := watch.ScanDirectory(m.documentsDir, m.dataDirName)
		if scanErr != nil {
			return nil, ragerrors.FileProcessingError("scan documents_dir for new files", scanErr)
		}
		for relPath := range current {
			if _, ok := byPath[relPath]; !ok {
				report.add(Issue{Kind: ragerrors.IntegrityNewFile, Severity: issueSeverity[ragerrors.IntegrityNewFile], Path: relPath})
			}
		}
	}

	if autoFix && len(report.Issues) > 0 {
		fixed, fixErr := m.ApplyFixes(ctx, report.Issues)
		if fixErr != nil {
			return report, fixErr
		}
		report.Fixed = fixed
	}

	return report, nil
}

// ApplyFixes repairs each issue according to its kind. dimension_mismatch
// cannot be repaired here; it requires ForceSync and is reported unfixed.
func (m *Manager) ApplyFixes(ctx context.Context, issues []Issue) ([]FixResult, error) {
	results := make([]FixResult, 0, len(issues))
	for _, issue := range issues {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}
		results = append(results, m.applyOne(ctx, issue))
	}
	return results, nil
}

func (m *Manager) applyOne(ctx context.Context, issue Issue) FixResult {
	var err error
	switch issue.Kind {
	case ragerrors.IntegrityOrphanedVector:
		_, err = m.vectors.DeleteByDocID(ctx, issue.FileID)
	case ragerrors.IntegrityMissingFile:
		if issue.FileID != "" {
			err = m.metadata.DeleteFileCascadingChunks(ctx, issue.FileID)
		}
		if err == nil {
			_, err = m.vectors.DeleteByDocID(ctx, issue.FileID)
		}
	case ragerrors.IntegrityHashMismatch, ragerrors.IntegrityMissingVectors, ragerrors.IntegrityNewFile:
		err = m.processor.Process(ctx, issue.Path)
	case ragerrors.IntegrityDimensionMismatch:
		err = fmt.Errorf("dimension_mismatch requires force_sync")
	default:
		err = fmt.Errorf("unknown issue kind %q", issue.Kind)
	}
	if err != nil {
		return FixResult{Issue: issue, Applied: false, Error: err.Error()}
	}
	return FixResult{Issue: issue, Applied: true}
}

// ForceSync is the destructive recovery path: it deletes every vector,
// deactivates the current generation, activates a fresh one with the given
// model/dimensions, and re-ingests every file known to the metadata store.
// Callers must obtain explicit confirmation before invoking this; the tool
// surface enforces that at its boundary.
func (m *Manager) ForceSync(ctx context.Context, newGeneration *model.EmbeddingGeneration) (reingested int, failed int, err error) {
	docIDs, err := m.vectors.AllDocIDs(ctx)
	if err != nil {
		return 0, 0, ragerrors.StorageError("list vector doc ids for force sync", err)
	}
	for _, docID := range docIDs {
		if _, derr := m.vectors.DeleteByDocID(ctx, docID); derr != nil {
			return 0, 0, ragerrors.StorageError(fmt.Sprintf("delete vectors for %s", docID), derr)
		}
	}

	if err := m.metadata.DeactivateAllGenerations(ctx); err != nil {
		return 0, 0, ragerrors.StorageError("deactivate generations", err)
	}
	newGeneration.Active = true
	if err := m.metadata.UpsertGeneration(ctx, newGeneration); err != nil {
		return 0, 0, ragerrors.StorageError("activate new generation", err)
	}

	files, err := m.metadata.ListFiles(ctx)
	if err != nil {
		return 0, 0, ragerrors.StorageError("list files for force sync", err)
	}
	for _, f := range files {
		select {
		case <-ctx.Done():
			return reingested, failed, ctx.Err()
		default:
		}
		if perr := m.processor.Process(ctx, f.Path); perr != nil {
			failed++
			continue
		}
		reingested++
	}
	return reingested, failed, nil
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
