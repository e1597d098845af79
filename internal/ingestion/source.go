package ingestion

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// metadataSuffix marks the companion file holding a document's metadata.
const metadataSuffix = "_metadata.txt"

// Source is one document read from disk, already normalized.
type Source struct {
	Title    string
	Content  string
	Metadata string
}

// LoadDir reads every "<name>.txt" file in dir as a document. The optional
// "<name>_metadata.txt" companion supplies its metadata. Unreadable content
// files are logged and skipped so one bad file does not stop the run.
func LoadDir(dir string, logger *slog.Logger) ([]Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, metadataSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	sources := make([]Source, 0, len(names))
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Error("failed to read content file", "file", name, "error", err)
			continue
		}

		base := strings.TrimSuffix(name, ".txt")
		metadata, err := os.ReadFile(filepath.Join(dir, base+metadataSuffix))
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("failed to read metadata file, using empty metadata", "file", name, "error", err)
			} else {
				logger.Info("no metadata file, using empty metadata", "file", name)
			}
			metadata = nil
		}

		sources = append(sources, Source{
			Title:    Normalize(base),
			Content:  Normalize(string(content)),
			Metadata: Normalize(string(metadata)),
		})
	}

	return sources, nil
}
