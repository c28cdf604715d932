// Package ingest implements the C6 ingestion pipeline: turning a file on
// disk into metadata rows, chunks, and vector records. A file moves through
// a fixed state sequence (queued, reading, chunking, embedding, committing,
// done or failed); the pipeline is idempotent by content hash, so a file
// whose bytes haven't changed since the last successful index is a no-op.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/localrag/ragengine/internal/chunk"
	"github.com/localrag/ragengine/internal/embed"
	ragerrors "github.com/localrag/ragengine/internal/errors"
	"github.com/localrag/ragengine/internal/model"
	"github.com/localrag/ragengine/internal/read"
	"github.com/localrag/ragengine/internal/store"
)

// State names a file's position in the ingestion state machine.
type State string

const (
	StateIdle       State = "idle"
	StateQueued     State = "queued"
	StateReading    State = "reading"
	StateChunking   State = "chunking"
	StateEmbedding  State = "embedding"
	StateCommitting State = "committing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// MaxFileSize bounds how large a file the pipeline will read into memory.
const MaxFileSize = 100 * 1024 * 1024

// Config configures a Pipeline.
type Config struct {
	DocumentsDir            string
	Metadata                store.MetadataStore
	Vectors                 *store.VectorStore
	Embedder                embed.Embedder
	Chunker                 *chunk.Dispatcher
	MaxConcurrentProcessing int
	EmbeddingBatchSize      int
	Retry                   ragerrors.RetryConfig
}

// Pipeline drives files through the ingestion state machine. It is safe for
// concurrent use; in-flight paths are deduplicated so a debounced watcher
// event and a manual reindex request for the same file never race.
type Pipeline struct {
	cfg Config

	mu       sync.Mutex
	inFlight map[string]struct{}
	states   map[string]State

	sem chan struct{}
}

// New constructs a Pipeline. Defaults are applied for zero-valued
// concurrency and batch settings.
func New(cfg Config) *Pipeline {
	if cfg.MaxConcurrentProcessing <= 0 {
		cfg.MaxConcurrentProcessing = 4
	}
	if cfg.EmbeddingBatchSize <= 0 {
		cfg.EmbeddingBatchSize = embed.DefaultBatchSize
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialDelay == 0 {
		cfg.Retry = ragerrors.DefaultRetryConfig()
	}
	return &Pipeline{
		cfg:      cfg,
		inFlight: make(map[string]struct{}),
		states:   make(map[string]State),
		sem:      make(chan struct{}, cfg.MaxConcurrentProcessing),
	}
}

// State reports the last known state of a relative path, StateIdle if the
// pipeline has never seen it.
func (p *Pipeline) State(relPath string) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.states[relPath]; ok {
		return s
	}
	return StateIdle
}

func (p *Pipeline) setState(relPath string, s State) {
	p.mu.Lock()
	p.states[relPath] = s
	p.mu.Unlock()
}

// tryAcquire marks relPath in-flight, returning false if it's already
// being processed by another goroutine.
func (p *Pipeline) tryAcquire(relPath string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[relPath]; busy {
		return false
	}
	p.inFlight[relPath] = struct{}{}
	return true
}

func (p *Pipeline) release(relPath string) {
	p.mu.Lock()
	delete(p.inFlight, relPath)
	p.mu.Unlock()
}

// Process ingests (or re-ingests) a single file, identified by a path
// relative to DocumentsDir. It is idempotent: a file whose content hash
// matches the stored record, and which already has vector records, is a
// no-op.
func (p *Pipeline) Process(ctx context.Context, relPath string) error {
	if !p.tryAcquire(relPath) {
		return nil
	}
	defer p.release(relPath)

	p.sem <- struct{}{}
	defer func() { <-p.sem }()

	p.setState(relPath, StateQueued)

	absPath := filepath.Join(p.cfg.DocumentsDir, relPath)

	p.setState(relPath, StateReading)
	info, err := os.Lstat(absPath)
	if err != nil {
		p.setState(relPath, StateFailed)
		return ragerrors.FileProcessingError(fmt.Sprintf("stat %s", relPath), err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		p.setState(relPath, StateDone)
		return nil
	}
	if info.Size() > MaxFileSize {
		p.setState(relPath, StateFailed)
		return ragerrors.FileProcessingError(fmt.Sprintf("%s exceeds max file size", relPath), nil)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		p.setState(relPath, StateFailed)
		return ragerrors.FileProcessingError(fmt.Sprintf("read %s", relPath), err)
	}
	if isBinaryContent(data) {
		p.setState(relPath, StateDone)
		return nil
	}

	fileID := generateFileID(relPath)
	hash := hashContent(data)

	existing, err := p.cfg.Metadata.GetFileByPath(ctx, relPath)
	if err != nil {
		p.setState(relPath, StateFailed)
		return ragerrors.StorageError("look up existing file record", err)
	}
	if existing != nil && existing.ContentHash == hash {
		count, cerr := p.cfg.Vectors.CountByDocID(ctx, fileID)
		if cerr == nil && count > 0 {
			p.setState(relPath, StateDone)
			return nil
		}
		// metadata says unchanged but vectors are missing: fall through
		// and re-embed rather than trusting a half-written prior run.
	}

	ext := read.Extension(relPath)
	if !read.IsSupported(ext) {
		p.setState(relPath, StateDone)
		return nil
	}

	extracted, err := read.Read(relPath, data)
	if err != nil {
		p.setState(relPath, StateFailed)
		return ragerrors.FileProcessingError(fmt.Sprintf("extract text from %s", relPath), err)
	}

	p.setState(relPath, StateChunking)
	chunks, err := p.cfg.Chunker.Chunk(ctx, &chunk.FileInput{Path: relPath, Content: extracted.Text, FileType: ext})
	if err != nil {
		p.setState(relPath, StateFailed)
		return ragerrors.FileProcessingError(fmt.Sprintf("chunk %s", relPath), err)
	}

	p.setState(relPath, StateEmbedding)
	vectors, err := p.embedChunks(ctx, chunks)
	if err != nil {
		p.setState(relPath, StateFailed)
		return err
	}

	p.setState(relPath, StateCommitting)
	if err := p.commit(ctx, fileID, relPath, info, hash, ext, chunks, vectors); err != nil {
		p.setState(relPath, StateFailed)
		return err
	}

	p.setState(relPath, StateDone)
	return nil
}

func (p *Pipeline) embedChunks(ctx context.Context, chunks []*chunk.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.ContextualText
	}

	batchSize := p.cfg.EmbeddingBatchSize
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		result, err := ragerrors.RetryWithResult(ctx, p.cfg.Retry, func() ([][]float32, error) {
			return p.cfg.Embedder.EmbedBatch(ctx, batch)
		})
		if err != nil {
			return nil, ragerrors.EmbeddingServiceError("embed batch", err)
		}
		vectors = append(vectors, result...)
	}

	return vectors, nil
}

func (p *Pipeline) commit(ctx context.Context, fileID, relPath string, info os.FileInfo, hash, ext string, chunks []*chunk.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return ragerrors.FileProcessingError(fmt.Sprintf("chunk/vector count mismatch for %s: %d chunks, %d vectors", relPath, len(chunks), len(vectors)), nil)
	}

	active, err := p.cfg.Metadata.GetActiveGeneration(ctx)
	if err != nil {
		return ragerrors.StorageError("load active embedding generation", err)
	}
	modelName := p.cfg.Embedder.ModelName()
	if active != nil {
		modelName = active.ModelName
	}

	file := &model.File{
		FileID:      fileID,
		Path:        relPath,
		Name:        filepath.Base(relPath),
		Size:        info.Size(),
		ContentHash: hash,
		MTime:       info.ModTime(),
		FileType:    ext,
		IndexedAt:   time.Now(),
	}
	if err := p.cfg.Metadata.UpsertFile(ctx, file); err != nil {
		return ragerrors.StorageError("upsert file record", err)
	}

	storeChunks := make([]*model.Chunk, len(chunks))
	records := make([]*model.VectorRecord, len(chunks))
	for i, c := range chunks {
		embeddingID := store.VectorKey(fileID, c.ChunkID)
		storeChunks[i] = &model.Chunk{
			FileID:      fileID,
			ChunkID:     c.ChunkID,
			Content:     c.Content,
			EmbeddingID: embeddingID,
		}

		meta := map[string]string{
			"path":       relPath,
			"file_type":  ext,
			"size":       strconv.FormatInt(info.Size(), 10),
			"hash":       hash,
			"mtime_unix": strconv.FormatInt(info.ModTime().Unix(), 10),
		}
		for k, v := range c.Metadata {
			meta[k] = v
		}

		records[i] = &model.VectorRecord{
			DocID:          fileID,
			ChunkID:        c.ChunkID,
			Vector:         vectors[i],
			Text:           c.Content,
			ContextualText: c.ContextualText,
			ModelName:      modelName,
			Metadata:       meta,
		}
	}

	if err := p.cfg.Metadata.ReplaceChunksForFile(ctx, fileID, storeChunks); err != nil {
		return ragerrors.StorageError("replace chunk records", err)
	}
	if err := p.cfg.Vectors.Add(ctx, records); err != nil {
		return ragerrors.StorageError("add vector records", err)
	}

	return nil
}

// Remove deletes a file's chunks and vectors, identified by its relative
// path. Used on file-delete events and sync-manager cleanup.
func (p *Pipeline) Remove(ctx context.Context, relPath string) error {
	if !p.tryAcquire(relPath) {
		return nil
	}
	defer p.release(relPath)

	file, err := p.cfg.Metadata.GetFileByPath(ctx, relPath)
	if err != nil {
		return ragerrors.StorageError("look up file record", err)
	}
	if file == nil {
		return nil
	}

	if _, err := p.cfg.Vectors.DeleteByDocID(ctx, file.FileID); err != nil {
		return ragerrors.StorageError("delete vector records", err)
	}
	if err := p.cfg.Metadata.DeleteFileCascadingChunks(ctx, file.FileID); err != nil {
		return ragerrors.StorageError("delete file record", err)
	}

	p.setState(relPath, StateIdle)
	return nil
}

// generateFileID derives a stable identifier from a path relative to the
// documents root. Unlike the multi-project predecessor this is grounded
// on, there's exactly one document root, so the identifier needs no
// project component.
func generateFileID(relPath string) string {
	sum := sha256.Sum256([]byte(filepath.ToSlash(relPath)))
	return hex.EncodeToString(sum[:])[:16]
}

func hashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// isBinaryContent reports whether data looks like a binary file, by
// checking for a NUL byte in the first 512 bytes.
func isBinaryContent(data []byte) bool {
	n := len(data)
	if n > 512 {
		n = 512
	}
	return strings.IndexByte(string(data[:n]), 0) >= 0
}
