package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// KeywordBackend selects the keyword index implementation.
type KeywordBackend string

const (
	// KeywordBackendSQLite uses SQLite FTS5 (default). Space-delimited
	// unicode61 tokenization; fine for Latin-script text.
	KeywordBackendSQLite KeywordBackend = "sqlite"

	// KeywordBackendBleve uses Bleve's CJK analyzer, for corpora where the
	// search service detects non-space-segmented (Han/Hiragana/Katakana/
	// Hangul) queries.
	KeywordBackendBleve KeywordBackend = "bleve"
)

// NewKeywordIndexWithBackend creates a KeywordIndex using the given
// backend. basePath is extended with the backend's file extension (.db for
// SQLite, .bleve for Bleve). An empty basePath creates an in-memory index.
func NewKeywordIndexWithBackend(basePath string, stopWords []string, backend string) (KeywordIndex, error) {
	switch backend {
	case string(KeywordBackendSQLite), "":
		var path string
		if basePath != "" {
			path = basePath + ".db"
		}
		return NewSQLiteKeywordIndex(path, stopWords)

	case string(KeywordBackendBleve):
		var path string
		if basePath != "" {
			path = basePath + ".bleve"
		}
		return NewBleveKeywordIndex(path)

	default:
		return nil, fmt.Errorf("unknown keyword backend: %s (valid options: sqlite, bleve)", backend)
	}
}

// DetectKeywordBackend detects which backend an existing index uses, for
// restart continuity when keyword_backend config changes are pending.
func DetectKeywordBackend(basePath string) KeywordBackend {
	sqlitePath := basePath + ".db"
	if fileExists(sqlitePath) {
		return KeywordBackendSQLite
	}

	blevePath := basePath + ".bleve"
	if dirExists(blevePath) {
		return KeywordBackendBleve
	}

	return ""
}

// GetKeywordIndexPath returns the full path to the keyword index file or
// directory for the given backend.
func GetKeywordIndexPath(dataDir string, backend string) string {
	basePath := filepath.Join(dataDir, "keyword")
	switch backend {
	case string(KeywordBackendBleve):
		return basePath + ".bleve"
	default:
		return basePath + ".db"
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
