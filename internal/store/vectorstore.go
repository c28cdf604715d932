package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	ragerrors "github.com/localrag/ragengine/internal/errors"
	"github.com/localrag/ragengine/internal/model"
)

// QueryEmbedder is the narrow slice of the embedder the vector store needs
// to turn query text into a vector. Declared here (rather than importing
// internal/embed) to avoid a store<->embed import cycle.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the C2 component: it owns vector records exclusively —
// the embedding, the source text, the optional contextual text, and the
// metadata bag — joined to the metadata store only via (doc_id, chunk_id).
// It composes three backends: an ANN index for semantic search, a SQLite
// table that is the durable source of truth for text/metadata (and from
// which the ANN graph can be rebuilt after a crash), and two keyword
// indexes (SQLite FTS5 for space-delimited text, Bleve's CJK analyzer for
// non-space-segmented queries).
type VectorStore struct {
	mu sync.RWMutex

	db           *sql.DB
	ann          ANNIndex
	keywordLatin KeywordIndex
	keywordCJK   KeywordIndex
	embedder     QueryEmbedder

	dataDir     string
	annPath     string
	latinPath   string
	cjkPath     string
	recordsPath string

	dimensions  int
	lastUpdated time.Time
	closed      bool
}

// VectorStoreOptions configures construction of a VectorStore.
type VectorStoreOptions struct {
	DataDir    string
	Dimensions int
	Metric     string // "cos" | "l2"
	StopWords  []string
	Embedder   QueryEmbedder
}

// NewVectorStore creates (or reopens) the vector store's on-disk artifacts
// under dataDir/vectors/.
func NewVectorStore(opts VectorStoreOptions) (*VectorStore, error) {
	dir := filepath.Join(opts.DataDir, "vectors")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create vector store directory: %w", err)
	}

	recordsPath := filepath.Join(dir, "records.db")
	db, err := openRecordsDB(recordsPath)
	if err != nil {
		return nil, fmt.Errorf("open records database: %w", err)
	}

	cfg := DefaultVectorStoreConfig(opts.Dimensions)
	if opts.Metric != "" {
		cfg.Metric = opts.Metric
	}

	ann, err := NewHNSWStore(cfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ann index: %w", err)
	}

	annPath := filepath.Join(dir, "hnsw.idx")
	if _, statErr := os.Stat(annPath); statErr == nil {
		if loadErr := ann.Load(annPath); loadErr != nil {
			// ANN graph is rebuildable from the records table; a failed
			// load falls back to rebuilding rather than failing startup.
			_ = rebuildANNFromRecords(db, ann, opts.Dimensions)
		}
	}

	latinPath := filepath.Join(dir, "keyword")
	keywordLatin, err := NewKeywordIndexWithBackend(latinPath, opts.StopWords, string(KeywordBackendSQLite))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite keyword index: %w", err)
	}

	cjkPath := filepath.Join(dir, "keyword")
	keywordCJK, err := NewKeywordIndexWithBackend(cjkPath, nil, string(KeywordBackendBleve))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cjk keyword index: %w", err)
	}

	vs := &VectorStore{
		db:           db,
		ann:          ann,
		keywordLatin: keywordLatin,
		keywordCJK:   keywordCJK,
		embedder:     opts.Embedder,
		dataDir:      dir,
		annPath:      annPath,
		latinPath:    latinPath + ".db",
		cjkPath:      cjkPath + ".bleve",
		recordsPath:  recordsPath,
		dimensions:   opts.Dimensions,
	}

	return vs, nil
}

func openRecordsDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS vector_records (
		doc_id TEXT NOT NULL,
		chunk_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		contextual_text TEXT NOT NULL,
		model_name TEXT NOT NULL,
		file_type TEXT,
		tags TEXT,
		modified_at INTEGER,
		metadata TEXT,
		vector BLOB NOT NULL,
		PRIMARY KEY (doc_id, chunk_id)
	);
	CREATE INDEX IF NOT EXISTS idx_vector_records_doc ON vector_records(doc_id);
	CREATE INDEX IF NOT EXISTS idx_vector_records_file_type ON vector_records(file_type);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func rebuildANNFromRecords(db *sql.DB, ann ANNIndex, dimensions int) error {
	rows, err := db.Query(`SELECT doc_id, chunk_id, vector FROM vector_records`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var ids []string
	var vectors [][]float32
	for rows.Next() {
		var docID string
		var chunkID int
		var vecBytes []byte
		if err := rows.Scan(&docID, &chunkID, &vecBytes); err != nil {
			return err
		}
		ids = append(ids, VectorKey(docID, chunkID))
		vectors = append(vectors, decodeVector(vecBytes))
	}
	if len(ids) == 0 {
		return nil
	}
	return ann.Add(context.Background(), ids, vectors)
}

// Add inserts or replaces a batch of vector records. Idempotent on
// (doc_id, chunk_id): if a record with matching text already exists, it is
// left untouched; otherwise it is replaced. All records in the batch
// become visible together (single transaction against the records table).
func (vs *VectorStore) Add(ctx context.Context, records []*model.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.closed {
		return fmt.Errorf("vector store is closed")
	}

	for _, r := range records {
		if len(r.Vector) != vs.dimensions {
			mismatch := ErrDimensionMismatch{Expected: vs.dimensions, Got: len(r.Vector)}
			return ragerrors.NewIntegrity(ragerrors.IntegrityDimensionMismatch, mismatch.Error(), mismatch)
		}
	}

	tx, err := vs.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var toIndex []*model.VectorRecord
	for _, r := range records {
		var existingText string
		err := tx.QueryRowContext(ctx, `SELECT text FROM vector_records WHERE doc_id = ? AND chunk_id = ?`, r.DocID, r.ChunkID).Scan(&existingText)
		if err == nil && existingText == r.Text {
			continue // idempotent no-op: same content already stored
		}
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("check existing record: %w", err)
		}

		metaJSON, merr := json.Marshal(r.Metadata)
		if merr != nil {
			return fmt.Errorf("marshal metadata: %w", merr)
		}

		var modifiedAt int64
		var fileType, tags string
		if r.Metadata != nil {
			fileType = r.Metadata["file_type"]
			tags = r.Metadata["tags"]
			if ts, ok := r.Metadata["mtime_unix"]; ok {
				modifiedAt, _ = strconv.ParseInt(ts, 10, 64)
			}
		}

		contextual := r.ContextualText
		if contextual == "" {
			contextual = r.Text
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO vector_records
				(doc_id, chunk_id, text, contextual_text, model_name, file_type, tags, modified_at, metadata, vector)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(doc_id, chunk_id) DO UPDATE SET
				text = excluded.text,
				contextual_text = excluded.contextual_text,
				model_name = excluded.model_name,
				file_type = excluded.file_type,
				tags = excluded.tags,
				modified_at = excluded.modified_at,
				metadata = excluded.metadata,
				vector = excluded.vector
		`, r.DocID, r.ChunkID, r.Text, contextual, r.ModelName, fileType, tags, modifiedAt, string(metaJSON), encodeVector(r.Vector))
		if err != nil {
			return fmt.Errorf("upsert vector record: %w", err)
		}

		toIndex = append(toIndex, r)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if len(toIndex) == 0 {
		return nil
	}

	ids := make([]string, len(toIndex))
	vectors := make([][]float32, len(toIndex))
	for i, r := range toIndex {
		ids[i] = VectorKey(r.DocID, r.ChunkID)
		vectors[i] = r.Vector
	}
	if err := vs.ann.Add(ctx, ids, vectors); err != nil {
		return fmt.Errorf("add to ann index: %w", err)
	}

	for _, r := range toIndex {
		key := VectorKey(r.DocID, r.ChunkID)
		if err := vs.keywordLatin.Index(ctx, key, r.Text); err != nil {
			return fmt.Errorf("index keyword (latin): %w", err)
		}
		if err := vs.keywordCJK.Index(ctx, key, r.Text); err != nil {
			return fmt.Errorf("index keyword (cjk): %w", err)
		}
	}

	vs.lastUpdated = nowFunc()
	return nil
}

// DeleteByDocID removes every vector record for a doc_id, returning the
// number removed.
func (vs *VectorStore) DeleteByDocID(ctx context.Context, docID string) (int, error) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.closed {
		return 0, fmt.Errorf("vector store is closed")
	}

	rows, err := vs.db.QueryContext(ctx, `SELECT chunk_id FROM vector_records WHERE doc_id = ?`, docID)
	if err != nil {
		return 0, fmt.Errorf("query chunk ids: %w", err)
	}
	var chunkIDs []int
	for rows.Next() {
		var c int
		if err := rows.Scan(&c); err != nil {
			rows.Close()
			return 0, err
		}
		chunkIDs = append(chunkIDs, c)
	}
	rows.Close()

	if len(chunkIDs) == 0 {
		return 0, nil
	}

	keys := make([]string, len(chunkIDs))
	for i, c := range chunkIDs {
		keys[i] = VectorKey(docID, c)
	}

	if _, err := vs.db.ExecContext(ctx, `DELETE FROM vector_records WHERE doc_id = ?`, docID); err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	if err := vs.ann.Delete(ctx, keys); err != nil {
		return 0, fmt.Errorf("delete from ann: %w", err)
	}
	if err := vs.keywordLatin.Delete(ctx, keys); err != nil {
		return 0, fmt.Errorf("delete from keyword (latin): %w", err)
	}
	if err := vs.keywordCJK.Delete(ctx, keys); err != nil {
		return 0, fmt.Errorf("delete from keyword (cjk): %w", err)
	}

	vs.lastUpdated = nowFunc()
	return len(chunkIDs), nil
}

// candidateIDs computes the set of "doc_id#chunk_id" keys satisfying a
// filter, pushed down into SQL so both semantic and keyword search can
// restrict their result sets before ranking (P8: filter soundness).
func (vs *VectorStore) candidateIDs(ctx context.Context, filter model.Filter) (map[string]struct{}, error) {
	if filter.IsZero() {
		return nil, nil
	}

	query := `SELECT doc_id, chunk_id FROM vector_records WHERE 1=1`
	var args []any

	if len(filter.FileTypes) > 0 {
		placeholders := make([]string, len(filter.FileTypes))
		for i, ft := range filter.FileTypes {
			placeholders[i] = "?"
			args = append(args, ft)
		}
		query += fmt.Sprintf(" AND file_type IN (%s)", strings.Join(placeholders, ","))
	}

	if len(filter.DocIDs) > 0 {
		placeholders := make([]string, len(filter.DocIDs))
		for i, id := range filter.DocIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query += fmt.Sprintf(" AND doc_id IN (%s)", strings.Join(placeholders, ","))
	}

	if !filter.ModifiedFrom.IsZero() {
		query += " AND modified_at >= ?"
		args = append(args, filter.ModifiedFrom.Unix())
	}
	if !filter.ModifiedTo.IsZero() {
		query += " AND modified_at <= ?"
		args = append(args, filter.ModifiedTo.Unix())
	}

	rows, err := vs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	candidates := make(map[string]struct{})
	for rows.Next() {
		var docID string
		var chunkID int
		var tags sql.NullString
		// tags column not selected above; re-query per row would be wasteful,
		// so tag filtering (OR within tags) is applied separately below.
		if err := rows.Scan(&docID, &chunkID); err != nil {
			return nil, err
		}
		_ = tags
		candidates[VectorKey(docID, chunkID)] = struct{}{}
	}

	if len(filter.Tags) == 0 {
		return candidates, rows.Err()
	}

	return vs.intersectTags(ctx, candidates, filter.Tags)
}

func (vs *VectorStore) intersectTags(ctx context.Context, candidates map[string]struct{}, tags []string) (map[string]struct{}, error) {
	rows, err := vs.db.QueryContext(ctx, `SELECT doc_id, chunk_id, tags FROM vector_records`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wanted := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		wanted[t] = struct{}{}
	}

	result := make(map[string]struct{})
	for rows.Next() {
		var docID, tagStr string
		var chunkID int
		if err := rows.Scan(&docID, &chunkID, &tagStr); err != nil {
			return nil, err
		}
		key := VectorKey(docID, chunkID)
		if _, inCandidates := candidates[key]; !inCandidates {
			continue
		}
		for _, tag := range strings.Split(tagStr, ",") {
			if _, ok := wanted[strings.TrimSpace(tag)]; ok {
				result[key] = struct{}{}
				break
			}
		}
	}
	return result, rows.Err()
}

func splitVectorKey(key string) (string, int) {
	idx := strings.LastIndex(key, "#")
	if idx < 0 {
		return key, 0
	}
	chunkID, _ := strconv.Atoi(key[idx+1:])
	return key[:idx], chunkID
}

// SemanticSearch embeds query_text, runs cosine similarity search, and
// returns the top-k hits, each satisfying filter (P8).
func (vs *VectorStore) SemanticSearch(ctx context.Context, queryText string, k int, filter model.Filter) ([]*model.VectorHit, error) {
	if vs.embedder == nil {
		return nil, fmt.Errorf("vector store has no embedder configured")
	}

	queryVec, err := vs.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	vs.mu.RLock()
	defer vs.mu.RUnlock()

	if vs.closed {
		return nil, fmt.Errorf("vector store is closed")
	}

	candidates, err := vs.candidateIDs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("compute filter candidates: %w", err)
	}

	fetchK := k
	if candidates != nil {
		fetchK = k * 10
		if fetchK < 50 {
			fetchK = 50
		}
		if total := vs.ann.Count(); fetchK > total {
			fetchK = total
		}
	}
	if fetchK <= 0 {
		fetchK = k
	}

	results, err := vs.ann.Search(ctx, queryVec, fetchK)
	if err != nil {
		return nil, fmt.Errorf("ann search: %w", err)
	}

	hits := make([]*model.VectorHit, 0, len(results))
	for _, r := range results {
		if candidates != nil {
			if _, ok := candidates[r.ID]; !ok {
				continue
			}
		}
		docID, chunkID := splitVectorKey(r.ID)
		hits = append(hits, &model.VectorHit{DocID: docID, ChunkID: chunkID, Score: float64(r.Score)})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// KeywordSearch full-text matches query_text against the raw text field,
// routing non-space-segmented (CJK) queries to the Bleve/CJK-analyzer
// backend and everything else to the SQLite FTS5 backend.
func (vs *VectorStore) KeywordSearch(ctx context.Context, queryText string, k int, filter model.Filter) ([]*model.KeywordHit, error) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	if vs.closed {
		return nil, fmt.Errorf("vector store is closed")
	}

	candidates, err := vs.candidateIDs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("compute filter candidates: %w", err)
	}

	backend := vs.keywordLatin
	if IsCJKQuery(queryText) {
		backend = vs.keywordCJK
	}

	results, err := backend.Search(ctx, queryText, k, candidates)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	hits := make([]*model.KeywordHit, 0, len(results))
	for _, r := range results {
		docID, chunkID := splitVectorKey(r.DocID)
		hits = append(hits, &model.KeywordHit{
			DocID:        docID,
			ChunkID:      chunkID,
			Score:        r.Score,
			MatchedTerms: r.MatchedTerms,
		})
	}
	return hits, nil
}

// Stats summarizes the vector store for get_vectordb_info.
func (vs *VectorStore) Stats() model.VectorStoreStats {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	return model.VectorStoreStats{
		TotalVectors: int64(vs.ann.Count()),
		Dimensions:   vs.dimensions,
		LastUpdated:  vs.lastUpdated,
	}
}

// Compact rebuilds the ANN index from the records table, discarding
// lazily-tombstoned nodes accumulated from updates and deletes.
func (vs *VectorStore) Compact(ctx context.Context) error {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.closed {
		return fmt.Errorf("vector store is closed")
	}

	cfg := DefaultVectorStoreConfig(vs.dimensions)
	fresh, err := NewHNSWStore(cfg)
	if err != nil {
		return fmt.Errorf("create fresh ann index: %w", err)
	}
	if err := rebuildANNFromRecords(vs.db, fresh, vs.dimensions); err != nil {
		return fmt.Errorf("rebuild ann index: %w", err)
	}

	_ = vs.ann.Close()
	vs.ann = fresh
	return nil
}

// Persist saves the ANN index and checkpoints both keyword backends.
func (vs *VectorStore) Persist() error {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	if err := vs.ann.Save(vs.annPath); err != nil {
		return fmt.Errorf("save ann index: %w", err)
	}
	if err := vs.keywordLatin.Save(vs.latinPath); err != nil {
		return fmt.Errorf("save keyword index (latin): %w", err)
	}
	if err := vs.keywordCJK.Save(vs.cjkPath); err != nil {
		return fmt.Errorf("save keyword index (cjk): %w", err)
	}
	return nil
}

// AllDocIDs returns the distinct doc_ids present in the vector store, for
// the sync manager's orphan/reconciliation scans.
func (vs *VectorStore) AllDocIDs(ctx context.Context) ([]string, error) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	rows, err := vs.db.QueryContext(ctx, `SELECT DISTINCT doc_id FROM vector_records`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountByDocID returns how many vector records exist for doc_id.
func (vs *VectorStore) CountByDocID(ctx context.Context, docID string) (int, error) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	var count int
	err := vs.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vector_records WHERE doc_id = ?`, docID).Scan(&count)
	return count, err
}

// VectorDimensions returns the dimensions of a stored vector record, for
// the sync manager's dimension_mismatch scan.
func (vs *VectorStore) VectorDimensions(ctx context.Context, docID string, chunkID int) (int, error) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	var vecBytes []byte
	err := vs.db.QueryRowContext(ctx, `SELECT vector FROM vector_records WHERE doc_id = ? AND chunk_id = ?`, docID, chunkID).Scan(&vecBytes)
	if err != nil {
		return 0, err
	}
	return len(vecBytes) / 4, nil
}

// Close releases all underlying resources.
func (vs *VectorStore) Close() error {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.closed {
		return nil
	}
	vs.closed = true

	var firstErr error
	if err := vs.ann.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := vs.keywordLatin.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := vs.keywordCJK.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := vs.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// nowFunc is a seam so tests can stub wall-clock time if ever needed.
var nowFunc = time.Now
