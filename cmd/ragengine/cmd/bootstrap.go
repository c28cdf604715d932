package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/localrag/ragengine/internal/chunk"
	"github.com/localrag/ragengine/internal/config"
	"github.com/localrag/ragengine/internal/embed"
	ragerrors "github.com/localrag/ragengine/internal/errors"
	"github.com/localrag/ragengine/internal/ingest"
	"github.com/localrag/ragengine/internal/lock"
	"github.com/localrag/ragengine/internal/search"
	"github.com/localrag/ragengine/internal/store"
	syncmgr "github.com/localrag/ragengine/internal/sync"
	"github.com/localrag/ragengine/internal/watch"
)

// engine bundles the components a CLI command drives: the metadata and
// vector stores, the embedder, the ingestion pipeline, the search service,
// and the sync manager. It holds the instance lock for its lifetime.
type engine struct {
	cfg      *config.Config
	root     string
	dataDir  string
	lock     *lock.InstanceLock
	metadata store.MetadataStore
	vectors  *store.VectorStore
	embedder embed.Embedder
	pipeline *ingest.Pipeline
	search   *search.Engine
	sync     *syncmgr.Manager
}

// resolveRoot turns a user-supplied path argument into an absolute root
// directory, returning path unchanged if it cannot be made absolute.
func resolveRoot(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// openEngine loads config for root, acquires the instance lock on its data
// directory, and wires up every component a command needs. Callers must
// call Close when done.
func openEngine(ctx context.Context, root string) (*engine, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dataDir := cfg.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(root, dataDir)
	}

	il := lock.New(dataDir)
	acquired, err := il.TryLock()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("another ragengine instance already holds the lock on %s", dataDir)
	}

	metadata, err := store.NewSQLiteMetadataStore(filepath.Join(dataDir, "metadata.db"))
	if err != nil {
		_ = il.Unlock()
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	embedder, err := embed.NewEmbedder(ctx, embed.ProviderType(cfg.EmbeddingService), cfg.EmbeddingModel)
	if err != nil {
		_ = metadata.Close()
		_ = il.Unlock()
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	dims := cfg.EmbeddingDimensions
	if dims <= 0 {
		dims = embedder.Dimensions()
	}

	vectors, err := store.NewVectorStore(store.VectorStoreOptions{
		DataDir:    dataDir,
		Dimensions: dims,
		Embedder:   embedder,
	})
	if err != nil {
		_ = metadata.Close()
		_ = il.Unlock()
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	var ctxGen chunk.ContextGenerator
	if cfg.ChunkingStrategy == config.ChunkingContextual {
		ctxGen = chunk.NewHeuristicContextGenerator()
	}
	dispatcher := chunk.NewDispatcher(chunk.Options{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		Contextual:   cfg.ChunkingStrategy == config.ChunkingContextual,
	}, ctxGen)

	documentsDir := cfg.DocumentsDir
	if !filepath.IsAbs(documentsDir) {
		documentsDir = filepath.Join(root, documentsDir)
	}

	pipeline := ingest.New(ingest.Config{
		DocumentsDir:            documentsDir,
		Metadata:                metadata,
		Vectors:                 vectors,
		Embedder:                embedder,
		Chunker:                 dispatcher,
		MaxConcurrentProcessing: cfg.MaxConcurrentProcessing,
		EmbeddingBatchSize:      cfg.EmbeddingBatchSize,
		Retry:                   ragerrors.DefaultRetryConfig(),
	})

	searchEngine := search.NewEngine(vectors)

	syncManager := syncmgr.NewManager(documentsDir, filepath.Base(dataDir), metadata, vectors, pipeline)

	return &engine{
		cfg:      cfg,
		root:     root,
		dataDir:  dataDir,
		lock:     il,
		metadata: metadata,
		vectors:  vectors,
		embedder: embedder,
		pipeline: pipeline,
		search:   searchEngine,
		sync:     syncManager,
	}, nil
}

// Close releases every resource opened by openEngine, in reverse order.
func (e *engine) Close() error {
	var err error
	if e.vectors != nil {
		if cerr := e.vectors.Close(); cerr != nil {
			err = cerr
		}
	}
	if e.embedder != nil {
		if cerr := e.embedder.Close(); cerr != nil {
			err = cerr
		}
	}
	if e.metadata != nil {
		if cerr := e.metadata.Close(); cerr != nil {
			err = cerr
		}
	}
	if e.lock != nil {
		if cerr := e.lock.Unlock(); cerr != nil {
			err = cerr
		}
	}
	return err
}

// startBackgroundServices starts the file watcher and the periodic sync
// scheduler without blocking the caller: serve's MCP handshake must not
// wait on watcher initialization, which can take multiple seconds on a
// slow filesystem. Returns a stop function.
func (e *engine) startBackgroundServices(ctx context.Context) func() {
	documentsDir := e.cfg.DocumentsDir
	if !filepath.IsAbs(documentsDir) {
		documentsDir = filepath.Join(e.root, documentsDir)
	}

	watcher, err := watch.NewHybridWatcher(watch.Options{}, filepath.Base(e.dataDir))
	var watcherStop func() error
	if err != nil {
		slog.Warn("file watcher unavailable", slog.String("error", err.Error()))
	} else {
		if startErr := watcher.Start(ctx, documentsDir); startErr != nil {
			slog.Warn("file watcher failed to start", slog.String("error", startErr.Error()))
		} else {
			watcherStop = watcher.Stop
			go e.watchLoop(ctx, watcher, documentsDir)
		}
	}

	interval, err := time.ParseDuration(e.cfg.SyncInterval)
	if err != nil || interval <= 0 {
		interval = 5 * time.Minute
	}
	deepInterval, _ := time.ParseDuration(e.cfg.SyncDeepInterval)

	scheduler := syncmgr.NewScheduler(e.sync, syncmgr.SchedulerOptions{
		Interval:     interval,
		DeepInterval: deepInterval,
		AutoFix:      e.cfg.SyncAutoFix,
		IncludeNew:   true,
	})
	go scheduler.Run(ctx)

	return func() {
		scheduler.Stop()
		if watcherStop != nil {
			_ = watcherStop()
		}
	}
}

func (e *engine) watchLoop(ctx context.Context, watcher *watch.HybridWatcher, documentsDir string) {
	for {
		select {
		case <-ctx.Done():
			return
		case events, ok := <-watcher.Events():
			if !ok {
				return
			}
			for _, ev := range events {
				var err error
				switch ev.Operation {
				case watch.OpDelete:
					err = e.pipeline.Remove(ctx, ev.Path)
				default:
					err = e.pipeline.Process(ctx, ev.Path)
				}
				if err != nil {
					slog.Warn("watch event processing failed", slog.String("path", ev.Path), slog.String("error", err.Error()))
				}
			}
		case err, ok := <-watcher.Errors():
			if !ok {
				return
			}
			slog.Warn("file watcher error", slog.String("error", err.Error()))
		}
	}
}

// searchOptions builds search.Options from the engine's loaded config,
// applied as defaults for a CLI or tool-surface search invocation.
func (e *engine) searchOptions() search.Options {
	opts := search.DefaultOptions()
	opts.TopK = e.cfg.SimilarityTopK
	opts.SemanticRatio = e.cfg.HybridSemanticRatio
	opts.KeywordRatio = e.cfg.HybridKeywordRatio
	opts.TotalResultsForReranking = e.cfg.HybridTotalResultsForReranking
	return opts
}
