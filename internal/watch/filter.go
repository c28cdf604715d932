package watch

import (
	"path/filepath"
	"strings"

	"github.com/localrag/ragengine/internal/read"
)

// shouldIgnorePath reports whether a relative path falls outside the
// engine's scope: dotfiles/dotdirs anywhere in the path, or a data
// directory name, or a file extension the reader doesn't support.
func shouldIgnorePath(relPath string, isDir bool, dataDirName string) bool {
	if relPath == "." || relPath == "" {
		return true
	}

	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
		if dataDirName != "" && part == dataDirName {
			return true
		}
	}

	if isDir {
		return false
	}

	return !read.IsSupported(read.Extension(relPath))
}
