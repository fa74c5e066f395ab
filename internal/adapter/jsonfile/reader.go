// Package jsonfile reads per-(city, day) metadata JSON documents from a data
// directory. Files follow the collector's naming convention:
//
//	city_{city}_{date}.json
//
// Documents are handed to the domain loader as raw bytes; decode failures
// become skipped records there, not read errors here.
package jsonfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gridsight/consumption-analyzer/internal/domain"
)

// Reader scans a directory of city metadata documents.
// It implements pipeline.MetadataSource.
type Reader struct {
	dir    string
	logger *slog.Logger
}

// NewReader creates a metadata source over the given directory.
func NewReader(dir string, logger *slog.Logger) *Reader {
	return &Reader{dir: dir, logger: logger}
}

// Metadata reads every city JSON document in the directory. An unreadable
// directory is fatal; a file that disappears or cannot be read between
// listing and reading degrades to a warning.
func (r *Reader) Metadata(ctx context.Context) ([]domain.RawMetadataDoc, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read metadata dir %s: %w", r.dir, err)
	}

	var docs []domain.RawMetadataDoc
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if entry.IsDir() || !matchesConvention(entry.Name()) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			r.logger.Warn("skipping unreadable metadata file", "file", entry.Name(), "error", err)
			continue
		}
		docs = append(docs, domain.RawMetadataDoc{Source: entry.Name(), Data: data})
	}
	return docs, nil
}

func matchesConvention(name string) bool {
	return strings.HasPrefix(name, "city_") && strings.HasSuffix(name, ".json")
}
