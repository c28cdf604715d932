package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no cgo
)

// SQLiteKeywordIndex implements KeywordIndex using SQLite FTS5, keyed on the
// vector store's own text column (not the metadata store's chunk table —
// the vector store owns keyword search per §4.2).
type SQLiteKeywordIndex struct {
	mu        sync.RWMutex
	db        *sql.DB
	path      string
	closed    bool
	stopWords map[string]struct{}
}

var _ KeywordIndex = (*SQLiteKeywordIndex)(nil)

func validateSQLiteIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='fts_content'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("FTS5 table 'fts_content' missing")
	}

	return nil
}

// NewSQLiteKeywordIndex creates a SQLite FTS5-based keyword index. An empty
// path creates an in-memory index.
func NewSQLiteKeywordIndex(path string, stopWords []string) (*SQLiteKeywordIndex, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}

		if validErr := validateSQLiteIntegrity(path); validErr != nil {
			slog.Warn("keyword_index_corrupted", slog.String("path", path), slog.String("error", validErr.Error()))
			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, fmt.Errorf("keyword index corrupted at %s, cannot remove: %w (original: %v)", path, removeErr, validErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")
			slog.Info("keyword_index_cleared", slog.String("path", path), slog.String("reason", "corruption detected, will rebuild"))
		}

		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	idx := &SQLiteKeywordIndex{
		db:        db,
		path:      path,
		stopWords: BuildStopWordMap(stopWords),
	}

	if err := idx.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return idx, nil
}

func (s *SQLiteKeywordIndex) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

	CREATE VIRTUAL TABLE IF NOT EXISTS fts_content USING fts5(
		doc_id UNINDEXED,
		content,
		tokenize='unicode61'
	);

	CREATE TABLE IF NOT EXISTS doc_ids (doc_id TEXT PRIMARY KEY);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Index indexes (or re-indexes) a single vector record's text, keyed by its
// composite "docID#chunkID" id.
func (s *SQLiteKeywordIndex) Index(ctx context.Context, id string, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}

	tokens := Tokenize(text)
	tokens = FilterStopWords(tokens, s.stopWords)
	processed := strings.Join(tokens, " ")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fts_content WHERE doc_id = ?`, id); err != nil {
		return fmt.Errorf("delete existing entry %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO fts_content(doc_id, content) VALUES (?, ?)`, id, processed); err != nil {
		return fmt.Errorf("index entry %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO doc_ids(doc_id) VALUES (?)`, id); err != nil {
		return fmt.Errorf("track id %s: %w", id, err)
	}

	return tx.Commit()
}

// Search runs an FTS5 MATCH query, optionally restricted to candidateIDs
// (the filter-predicate pushdown set computed by the vector store before
// ranking; nil means unrestricted).
func (s *SQLiteKeywordIndex) Search(ctx context.Context, queryStr string, limit int, candidateIDs map[string]struct{}) ([]*BM25Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}

	if strings.TrimSpace(queryStr) == "" {
		return []*BM25Result{}, nil
	}

	tokens := Tokenize(queryStr)
	tokens = FilterStopWords(tokens, s.stopWords)
	if len(tokens) == 0 {
		return []*BM25Result{}, nil
	}
	processedQuery := strings.Join(tokens, " ")

	// Overfetch when a candidate filter is active since FTS5 cannot apply
	// an arbitrary set membership predicate inline; the limit is re-applied
	// after filtering.
	fetchLimit := limit
	if candidateIDs != nil && fetchLimit > 0 {
		fetchLimit *= 4
		if fetchLimit < limit {
			fetchLimit = limit
		}
	}

	query := `
		SELECT doc_id, bm25(fts_content) as score
		FROM fts_content
		WHERE content MATCH ?
		ORDER BY score
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, processedQuery, fetchLimit)
	if err != nil {
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return []*BM25Result{}, nil
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	var results []*BM25Result
	for rows.Next() {
		var docID string
		var score float64
		if err := rows.Scan(&docID, &score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if candidateIDs != nil {
			if _, ok := candidateIDs[docID]; !ok {
				continue
			}
		}
		results = append(results, &BM25Result{
			DocID:        docID,
			Score:        -score, // FTS5 bm25() is negative; higher positive = better match
			MatchedTerms: tokens,
		})
		if limit > 0 && len(results) >= limit {
			break
		}
	}

	return results, rows.Err()
}

// Delete removes entries from the index.
func (s *SQLiteKeywordIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	inClause := strings.Join(placeholders, ",")

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM fts_content WHERE doc_id IN (%s)", inClause), args...); err != nil {
		return fmt.Errorf("delete from fts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM doc_ids WHERE doc_id IN (%s)", inClause), args...); err != nil {
		return fmt.Errorf("delete from doc_ids: %w", err)
	}

	return tx.Commit()
}

// AllIDs returns every indexed id, for consistency checks.
func (s *SQLiteKeywordIndex) AllIDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}

	rows, err := s.db.Query(`SELECT doc_id FROM doc_ids ORDER BY doc_id`)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteKeywordIndex) Stats() *IndexStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return &IndexStats{}
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM doc_ids`).Scan(&count); err != nil {
		return &IndexStats{}
	}
	return &IndexStats{DocumentCount: count}
}

// Save forces a WAL checkpoint to ensure durability.
func (s *SQLiteKeywordIndex) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}
	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// Load reopens the index at a new path.
func (s *SQLiteKeywordIndex) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil && !s.closed {
		_ = s.db.Close()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}

	s.db = db
	s.path = path
	s.closed = false
	return nil
}

// Close closes the index, checkpointing first.
func (s *SQLiteKeywordIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}
