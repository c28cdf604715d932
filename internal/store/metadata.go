package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/localrag/ragengine/internal/model"
)

// SQLiteMetadataStore implements MetadataStore over the tables files,
// file_metadata, document_chunks, embedding_metadata and engine_state (plus
// schema_version). It exclusively owns
// file, chunk, and embedding-generation records; the vector store never
// reads from it directly, the two are joined only by (file_id, chunk_id).
type SQLiteMetadataStore struct {
	db   *sql.DB
	path string
}

var _ MetadataStore = (*SQLiteMetadataStore)(nil)

// NewSQLiteMetadataStore opens (or creates) the metadata database at path.
// An empty path opens an in-memory database, used by tests.
func NewSQLiteMetadataStore(path string) (*SQLiteMetadataStore, error) {
	dsn := path
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &SQLiteMetadataStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteMetadataStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);
	INSERT OR IGNORE INTO schema_version (version) VALUES (1);

	CREATE TABLE IF NOT EXISTS files (
		file_id      TEXT PRIMARY KEY,
		path         TEXT NOT NULL UNIQUE,
		name         TEXT NOT NULL,
		size         INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		mtime        INTEGER NOT NULL,
		file_type    TEXT NOT NULL,
		indexed_at   INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_files_content_hash ON files(content_hash);

	CREATE TABLE IF NOT EXISTS file_metadata (
		file_id TEXT NOT NULL REFERENCES files(file_id) ON DELETE CASCADE,
		key     TEXT NOT NULL,
		value   TEXT NOT NULL,
		PRIMARY KEY (file_id, key)
	);

	CREATE TABLE IF NOT EXISTS document_chunks (
		file_id      TEXT NOT NULL REFERENCES files(file_id) ON DELETE CASCADE,
		chunk_id     INTEGER NOT NULL,
		content      TEXT NOT NULL,
		embedding_id TEXT,
		PRIMARY KEY (file_id, chunk_id)
	);

	CREATE TABLE IF NOT EXISTS embedding_metadata (
		generation_id TEXT PRIMARY KEY,
		model_name    TEXT NOT NULL,
		service       TEXT NOT NULL,
		dimensions    INTEGER NOT NULL,
		config_hash   TEXT NOT NULL,
		active        INTEGER NOT NULL DEFAULT 0,
		chunk_count   INTEGER NOT NULL DEFAULT 0,
		vector_count  INTEGER NOT NULL DEFAULT 0,
		created_at    INTEGER NOT NULL,
		last_used_at  INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS engine_state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteMetadataStore) UpsertFile(ctx context.Context, f *model.File) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (file_id, path, name, size, content_hash, mtime, file_type, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			path = excluded.path,
			name = excluded.name,
			size = excluded.size,
			content_hash = excluded.content_hash,
			mtime = excluded.mtime,
			file_type = excluded.file_type,
			indexed_at = excluded.indexed_at
	`, f.FileID, f.Path, f.Name, f.Size, f.ContentHash, f.MTime.Unix(), f.FileType, f.IndexedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert file %s: %w", f.Path, err)
	}
	return nil
}

func scanFile(row interface {
	Scan(dest ...any) error
}) (*model.File, error) {
	var f model.File
	var mtime, indexedAt int64
	if err := row.Scan(&f.FileID, &f.Path, &f.Name, &f.Size, &f.ContentHash, &mtime, &f.FileType, &indexedAt); err != nil {
		return nil, err
	}
	f.MTime = time.Unix(mtime, 0).UTC()
	f.IndexedAt = time.Unix(indexedAt, 0).UTC()
	return &f, nil
}

func (s *SQLiteMetadataStore) GetFileByPath(ctx context.Context, path string) (*model.File, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT file_id, path, name, size, content_hash, mtime, file_type, indexed_at
		FROM files WHERE path = ?
	`, path)
	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file by path %s: %w", path, err)
	}
	return f, nil
}

func (s *SQLiteMetadataStore) GetFileByID(ctx context.Context, fileID string) (*model.File, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT file_id, path, name, size, content_hash, mtime, file_type, indexed_at
		FROM files WHERE file_id = ?
	`, fileID)
	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file by id %s: %w", fileID, err)
	}
	return f, nil
}

func (s *SQLiteMetadataStore) ListFiles(ctx context.Context) ([]*model.File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_id, path, name, size, content_hash, mtime, file_type, indexed_at
		FROM files ORDER BY indexed_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []*model.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *SQLiteMetadataStore) DeleteFileCascadingChunks(ctx context.Context, fileID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM file_metadata WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("delete file metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	return tx.Commit()
}

// ReplaceChunksForFile atomically deletes all prior chunks for fileID and
// inserts the new set, so readers never observe a partial chunk list.
func (s *SQLiteMetadataStore) ReplaceChunksForFile(ctx context.Context, fileID string, chunks []*model.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("delete existing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_chunks (file_id, chunk_id, content, embedding_id)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.FileID, c.ChunkID, c.Content, nullIfEmpty(c.EmbeddingID)); err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.ChunkID, err)
		}
	}

	return tx.Commit()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *SQLiteMetadataStore) GetChunksByFile(ctx context.Context, fileID string) ([]*model.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_id, chunk_id, content, COALESCE(embedding_id, '')
		FROM document_chunks WHERE file_id = ? ORDER BY chunk_id ASC
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("get chunks for file %s: %w", fileID, err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		var c model.Chunk
		if err := rows.Scan(&c.FileID, &c.ChunkID, &c.Content, &c.EmbeddingID); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

func (s *SQLiteMetadataStore) UpsertGeneration(ctx context.Context, g *model.EmbeddingGeneration) error {
	activeInt := 0
	if g.Active {
		activeInt = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embedding_metadata
			(generation_id, model_name, service, dimensions, config_hash, active, chunk_count, vector_count, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(generation_id) DO UPDATE SET
			model_name = excluded.model_name,
			service = excluded.service,
			dimensions = excluded.dimensions,
			config_hash = excluded.config_hash,
			active = excluded.active,
			chunk_count = excluded.chunk_count,
			vector_count = excluded.vector_count,
			last_used_at = excluded.last_used_at
	`, g.GenerationID, g.ModelName, g.Service, g.Dimensions, g.ConfigHash, activeInt,
		g.ChunkCount, g.VectorCount, g.CreatedAt.Unix(), g.LastUsedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert generation %s: %w", g.GenerationID, err)
	}
	return nil
}

func (s *SQLiteMetadataStore) DeactivateAllGenerations(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE embedding_metadata SET active = 0`)
	if err != nil {
		return fmt.Errorf("deactivate generations: %w", err)
	}
	return nil
}

func scanGeneration(row interface {
	Scan(dest ...any) error
}) (*model.EmbeddingGeneration, error) {
	var g model.EmbeddingGeneration
	var active int
	var createdAt, lastUsedAt int64
	err := row.Scan(&g.GenerationID, &g.ModelName, &g.Service, &g.Dimensions, &g.ConfigHash,
		&active, &g.ChunkCount, &g.VectorCount, &createdAt, &lastUsedAt)
	if err != nil {
		return nil, err
	}
	g.Active = active != 0
	g.CreatedAt = time.Unix(createdAt, 0).UTC()
	g.LastUsedAt = time.Unix(lastUsedAt, 0).UTC()
	return &g, nil
}

func (s *SQLiteMetadataStore) GetActiveGeneration(ctx context.Context) (*model.EmbeddingGeneration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT generation_id, model_name, service, dimensions, config_hash, active, chunk_count, vector_count, created_at, last_used_at
		FROM embedding_metadata WHERE active = 1 LIMIT 1
	`)
	g, err := scanGeneration(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active generation: %w", err)
	}
	return g, nil
}

func (s *SQLiteMetadataStore) ListGenerations(ctx context.Context) ([]*model.EmbeddingGeneration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT generation_id, model_name, service, dimensions, config_hash, active, chunk_count, vector_count, created_at, last_used_at
		FROM embedding_metadata ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var gens []*model.EmbeddingGeneration
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		gens = append(gens, g)
	}
	return gens, rows.Err()
}

func (s *SQLiteMetadataStore) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM engine_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get state %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteMetadataStore) SetState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO engine_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

// ListFilePathsUnder returns every tracked file path, for the sync
// manager's filesystem reconciliation scan.
func (s *SQLiteMetadataStore) ListFilePathsUnder(ctx context.Context) (map[string]*model.File, error) {
	files, err := s.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	byPath := make(map[string]*model.File, len(files))
	for _, f := range files {
		byPath[f.Path] = f
	}
	return byPath, nil
}

func (s *SQLiteMetadataStore) Close() error {
	return s.db.Close()
}
