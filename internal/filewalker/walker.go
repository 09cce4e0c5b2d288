package filewalker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// languageByExt maps file extensions to registry language tags.
var languageByExt = map[string]string{
	".py":   "python",
	".rs":   "rust",
	".go":   "go",
	".js":   "javascript",
	".mjs":  "javascript",
	".css":  "css",
	".c":    "c",
	".h":    "c",
	".lua":  "lua",
	".sh":   "bash",
	".bash": "bash",
	".txt":  "text",
}

// FileEntry is a discovered source file and the language tag inferred from
// its extension.
type FileEntry struct {
	Path string
	Lang string
}

// Walk discovers all supported files under root, skipping anything whose
// extension has no registered language.
func Walk(root string) ([]FileEntry, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	var entries []FileEntry
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}
		if info.IsDir() {
			return nil
		}

		lang, ok := languageByExt[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}
		entries = append(entries, FileEntry{Path: path, Lang: lang})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	log.Info().Int("count", len(entries)).Str("root", root).Msg("Discovered files")
	return entries, nil
}
