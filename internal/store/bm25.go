package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
)

// BleveKeywordIndex wraps Bleve v2 with its built-in CJK analyzer. The
// vector store always builds one alongside the SQLite FTS5 index and routes
// non-space-segmented (Han/Hiragana/Katakana/Hangul) queries through it,
// since SQLite FTS5's unicode61 tokenizer has no CJK segmentation.
type BleveKeywordIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ KeywordIndex = (*BleveKeywordIndex)(nil)

type bleveDocument struct {
	Content string `json:"content"`
}

// validateIndexIntegrity checks if a Bleve index is valid before opening.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}

	return nil
}

func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "unexpected end of JSON") ||
		strings.Contains(errStr, "error parsing mapping JSON") ||
		strings.Contains(errStr, "failed to load segment") ||
		strings.Contains(errStr, "error opening bolt") ||
		strings.Contains(errStr, "no such file or directory") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// NewBleveKeywordIndex creates a CJK-aware Bleve index. An empty path
// creates an in-memory index. Auto-recovers from a corrupted on-disk index
// by clearing and recreating it.
func NewBleveKeywordIndex(path string) (*BleveKeywordIndex, error) {
	indexMapping, err := createCJKIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}

		if validErr := validateIndexIntegrity(path); validErr != nil {
			slog.Warn("keyword_index_corrupted", slog.String("path", path), slog.String("error", validErr.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("keyword index corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
			slog.Info("keyword_index_cleared", slog.String("path", path), slog.String("reason", "corruption detected, will rebuild"))
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil && isCorruptionError(err) {
			slog.Warn("keyword_index_open_failed", slog.String("path", path), slog.String("error", err.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("keyword index corrupted, cannot clear: %w (original: %v)", removeErr, err)
			}
			slog.Info("keyword_index_cleared", slog.String("path", path), slog.String("reason", "open failed with corruption, will rebuild"))
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create/open index: %w", err)
	}

	return &BleveKeywordIndex{index: idx, path: path}, nil
}

// createCJKIndexMapping configures bleve's built-in CJK analyzer (Han/
// Hiragana/Katakana bigram segmentation plus Hangul syllable splitting) as
// the default analyzer, rather than a space-delimited one.
func createCJKIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = cjk.AnalyzerName
	return indexMapping, nil
}

// Index indexes a single vector record's text.
func (b *BleveKeywordIndex) Index(ctx context.Context, id string, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	doc := bleveDocument{Content: text}
	if err := b.index.Index(id, doc); err != nil {
		return fmt.Errorf("index entry %s: %w", id, err)
	}
	return nil
}

// Search returns documents matching query, scored by Bleve's BM25-derived
// relevance, optionally restricted to candidateIDs.
func (b *BleveKeywordIndex) Search(ctx context.Context, queryStr string, limit int, candidateIDs map[string]struct{}) ([]*BM25Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	if strings.TrimSpace(queryStr) == "" {
		return []*BM25Result{}, nil
	}

	matchQuery := bleve.NewMatchQuery(queryStr)
	matchQuery.SetField("content")

	searchRequest := bleve.NewSearchRequest(matchQuery)
	fetchLimit := limit
	if candidateIDs != nil && fetchLimit > 0 {
		fetchLimit *= 4
	}
	searchRequest.Size = fetchLimit
	searchRequest.IncludeLocations = true

	result, err := b.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]*BM25Result, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if candidateIDs != nil {
			if _, ok := candidateIDs[hit.ID]; !ok {
				continue
			}
		}
		results = append(results, &BM25Result{
			DocID:        hit.ID,
			Score:        hit.Score,
			MatchedTerms: extractMatchedTerms(hit),
		})
		if limit > 0 && len(results) >= limit {
			break
		}
	}

	return results, nil
}

// Delete removes documents from the index.
func (b *BleveKeywordIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}

// AllIDs returns all document IDs in the index.
func (b *BleveKeywordIndex) AllIDs() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	query := bleve.NewMatchAllQuery()
	docCount, _ := b.index.DocCount()

	req := bleve.NewSearchRequest(query)
	req.Size = int(docCount)
	req.Fields = []string{}

	result, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search for all ids: %w", err)
	}

	ids := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

func (b *BleveKeywordIndex) Stats() *IndexStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return &IndexStats{}
	}

	docCount, _ := b.index.DocCount()
	return &IndexStats{DocumentCount: int(docCount)}
}

// Save is a no-op; Bleve persists to disk as it's written.
func (b *BleveKeywordIndex) Save(path string) error {
	return nil
}

// Load opens an existing index from disk.
func (b *BleveKeywordIndex) Load(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.index != nil && !b.closed {
		_ = b.index.Close()
	}

	idx, err := bleve.Open(path)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}

	b.index = idx
	b.path = path
	b.closed = false
	return nil
}

// Close closes the index.
func (b *BleveKeywordIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}

func extractMatchedTerms(hit *search.DocumentMatch) []string {
	terms := make(map[string]struct{})
	for field, locations := range hit.Locations {
		if field == "content" {
			for term := range locations {
				terms[term] = struct{}{}
			}
		}
	}

	result := make([]string, 0, len(terms))
	for term := range terms {
		result = append(result, term)
	}
	return result
}
