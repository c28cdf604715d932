// Package search implements the C8 search service: semantic, keyword, and
// hybrid query modes over the vector store, each bounded by a timeout.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	ragerrors "github.com/localrag/ragengine/internal/errors"
	"github.com/localrag/ragengine/internal/model"
	"github.com/localrag/ragengine/internal/store"
)

// Mode selects which search strategy to run.
type Mode string

const (
	ModeSemantic Mode = "semantic"
	ModeKeyword  Mode = "keyword"
	ModeHybrid   Mode = "hybrid"
)

// Options configures one search invocation.
type Options struct {
	Mode    Mode
	TopK    int
	Filter  model.Filter
	Timeout time.Duration

	// SemanticRatio and KeywordRatio split TotalResultsForReranking between
	// the two underlying searches in hybrid mode; they should sum to 1.
	SemanticRatio            float64
	KeywordRatio             float64
	TotalResultsForReranking int
}

// DefaultOptions returns sensible defaults for a search invocation.
func DefaultOptions() Options {
	return Options{
		Mode:                     ModeHybrid,
		TopK:                     10,
		Timeout:                  30 * time.Second,
		SemanticRatio:            0.65,
		KeywordRatio:             0.35,
		TotalResultsForReranking: 40,
	}
}

// Engine is the C8 search service, backed by a single VectorStore that owns
// both the ANN index and the keyword backends.
type Engine struct {
	vectors *store.VectorStore
}

func NewEngine(vectors *store.VectorStore) *Engine {
	return &Engine{vectors: vectors}
}

// Search runs one of the three modes, bounded by opts.Timeout. A timeout
// produces a structured TimeoutError rather than partial results. A hybrid
// failure (one of the two underlying searches erroring) falls back to
// semantic-only, logging a degraded-mode warning.
func (e *Engine) Search(ctx context.Context, queryText string, opts Options) ([]*Result, error) {
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultOptions().Timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		results []*Result
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		results, err := e.dispatch(ctx, queryText, opts)
		done <- outcome{results, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ragerrors.TimeoutError(fmt.Sprintf("search timed out after %s", timeout), ctx.Err())
	case o := <-done:
		return o.results, o.err
	}
}

func (e *Engine) dispatch(ctx context.Context, queryText string, opts Options) ([]*Result, error) {
	switch opts.Mode {
	case ModeSemantic:
		return e.semanticOnly(ctx, queryText, opts)
	case ModeKeyword:
		return e.keywordOnly(ctx, queryText, opts)
	case ModeHybrid, "":
		results, err := e.hybrid(ctx, queryText, opts)
		if err != nil {
			slog.Warn("hybrid search failed, falling back to semantic-only",
				slog.String("error", err.Error()))
			return e.semanticOnly(ctx, queryText, opts)
		}
		return results, nil
	default:
		return nil, ragerrors.ValidationError(fmt.Sprintf("unknown search mode %q", opts.Mode), nil)
	}
}

func (e *Engine) semanticOnly(ctx context.Context, queryText string, opts Options) ([]*Result, error) {
	hits, err := e.vectors.SemanticSearch(ctx, queryText, opts.TopK, opts.Filter)
	if err != nil {
		return nil, ragerrors.SearchError("semantic search", err)
	}
	results := make([]*Result, len(hits))
	for i, h := range hits {
		results[i] = &Result{DocID: h.DocID, ChunkID: h.ChunkID, Score: h.Score, SemanticScore: h.Score, Source: "semantic"}
	}
	return results, nil
}

func (e *Engine) keywordOnly(ctx context.Context, queryText string, opts Options) ([]*Result, error) {
	hits, err := e.vectors.KeywordSearch(ctx, queryText, opts.TopK, opts.Filter)
	if err != nil {
		return nil, ragerrors.SearchError("keyword search", err)
	}
	results := make([]*Result, len(hits))
	for i, h := range hits {
		results[i] = &Result{DocID: h.DocID, ChunkID: h.ChunkID, Score: h.Score, KeywordScore: h.Score, MatchedTerms: h.MatchedTerms, Source: "keyword"}
	}
	return results, nil
}

// hybrid runs semantic and keyword search concurrently, then merges with
// the positional-bias-aware algorithm.
func (e *Engine) hybrid(ctx context.Context, queryText string, opts Options) ([]*Result, error) {
	budget := opts.TotalResultsForReranking
	if budget <= 0 {
		budget = DefaultOptions().TotalResultsForReranking
	}
	semanticRatio, keywordRatio := opts.SemanticRatio, opts.KeywordRatio
	if semanticRatio == 0 && keywordRatio == 0 {
		semanticRatio, keywordRatio = DefaultOptions().SemanticRatio, DefaultOptions().KeywordRatio
	}
	semanticK := int(float64(budget) * semanticRatio)
	keywordK := int(float64(budget) * keywordRatio)
	if semanticK <= 0 {
		semanticK = budget
	}
	if keywordK <= 0 {
		keywordK = budget
	}

	var semanticHits []*model.VectorHit
	var keywordHits []*model.KeywordHit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := e.vectors.SemanticSearch(gctx, queryText, semanticK, opts.Filter)
		if err != nil {
			return fmt.Errorf("semantic leg: %w", err)
		}
		semanticHits = hits
		return nil
	})
	g.Go(func() error {
		hits, err := e.vectors.KeywordSearch(gctx, queryText, keywordK, opts.Filter)
		if err != nil {
			return fmt.Errorf("keyword leg: %w", err)
		}
		keywordHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, ragerrors.SearchError("hybrid search", err)
	}

	return Merge(keywordHits, semanticHits, opts.TopK), nil
}
