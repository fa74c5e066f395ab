package jsonfile_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/gridsight/consumption-analyzer/internal/adapter/jsonfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_ReadsMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	doc := `{"city":"City1","date":"2025-09-10","districts":{"101":{"threshold_kwh":100,"critical_hours":[18]}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "city_City1_2025-09-10.json"), []byte(doc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	reader := jsonfile.NewReader(dir, slog.Default())
	docs, err := reader.Metadata(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Equal(t, "city_City1_2025-09-10.json", docs[0].Source)
	assert.JSONEq(t, doc, string(docs[0].Data))
}

func TestMetadata_CorruptedFileStillReturned(t *testing.T) {
	// Decode problems are the loader's job; the reader hands bytes over.
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "city_bad_2025-09-10.json"), []byte(`{broken`), 0o644))

	reader := jsonfile.NewReader(dir, slog.Default())
	docs, err := reader.Metadata(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, []byte(`{broken`), docs[0].Data)
}

func TestMetadata_MissingDirIsFatal(t *testing.T) {
	reader := jsonfile.NewReader(filepath.Join(t.TempDir(), "absent"), slog.Default())
	_, err := reader.Metadata(context.Background())
	assert.Error(t, err)
}
