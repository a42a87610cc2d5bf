// Package scanner discovers audio files under a root directory.
package scanner

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"audioqc/internal/logging"
)

// DefaultExtensions lists the audio formats the analyzer understands.
var DefaultExtensions = []string{
	"wav", "mp3", "m4a", "flac", "aac", "ogg", "opus", "wma", "aiff", "alac",
}

// Scan walks root and returns the matching files in sorted order. A single
// file root is accepted if its extension matches. Unreadable entries are
// skipped with a warning, not fatal.
func Scan(root string, extensions []string, log *slog.Logger) ([]string, error) {
	if log == nil {
		log = logging.NewNop()
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		if _, ok := allowed[extensionOf(root)]; !ok {
			return nil, fmt.Errorf("%s is not a supported audio file", root)
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			log.Warn("skipping unreadable entry",
				logging.String("path", path), logging.Error(walkErr))
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		if _, ok := allowed[extensionOf(path)]; ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

func extensionOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
