// Package csvfile reads per-district hourly reading CSVs from a data
// directory. Files follow the collector's naming convention:
//
//	district_{city}_{district}_{date}.csv
//
// with columns household_id, timestamp ("2006-01-02 15:04"), and
// consumption_kwh. The reader stays dumb on purpose: it splits fields into
// raw strings and leaves all validation to the domain loader, so malformed
// values surface as skipped records instead of read failures.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gridsight/consumption-analyzer/internal/domain"
)

// Reader scans a directory of district reading CSVs.
// It implements pipeline.ReadingSource.
type Reader struct {
	dir    string
	logger *slog.Logger
}

// NewReader creates a reading source over the given directory.
func NewReader(dir string, logger *slog.Logger) *Reader {
	return &Reader{dir: dir, logger: logger}
}

// Readings reads every district CSV in the directory into raw rows. An
// unreadable directory is fatal; an unreadable or truncated file degrades to
// a warning and the remaining files still load.
func (r *Reader) Readings(ctx context.Context) ([]domain.RawReadingRow, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read readings dir %s: %w", r.dir, err)
	}

	var rows []domain.RawReadingRow
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if entry.IsDir() {
			continue
		}

		city, district, date, ok := parseFilename(entry.Name())
		if !ok {
			continue
		}

		fileRows, err := r.readFile(entry.Name(), city, district, date)
		if err != nil {
			r.logger.Warn("skipping unreadable readings file", "file", entry.Name(), "error", err)
			continue
		}
		rows = append(rows, fileRows...)
	}
	return rows, nil
}

// parseFilename extracts (city, district, date) from
// "district_{city}_{district}_{date}.csv". Files that don't match the
// convention are ignored.
func parseFilename(name string) (city, district, date string, ok bool) {
	if !strings.HasPrefix(name, "district_") || !strings.HasSuffix(name, ".csv") {
		return "", "", "", false
	}
	parts := strings.Split(strings.TrimSuffix(name, ".csv"), "_")
	if len(parts) != 4 {
		return "", "", "", false
	}
	return parts[1], parts[2], parts[3], true
}

func (r *Reader) readFile(name, city, district, date string) ([]domain.RawReadingRow, error) {
	f, err := os.Open(filepath.Join(r.dir, name))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // short rows become skipped records, not read errors
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil // empty file, nothing to load
	}
	if err != nil {
		return nil, err
	}
	cols := columnIndex(header)

	var rows []domain.RawReadingRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, err
		}

		ts := field(record, cols, "timestamp")
		tsDate, tsHour := splitTimestamp(ts)

		rows = append(rows, domain.RawReadingRow{
			City:        city,
			District:    district,
			HouseholdID: field(record, cols, "household_id"),
			Date:        tsDate,
			Hour:        tsHour,
			Consumption: field(record, cols, "consumption_kwh"),
			Source:      fmt.Sprintf("%s:%d", name, line),
		})
	}

	// Readings for a different day than the filename indicates are still
	// loaded; the timestamp is authoritative. The mismatch only matters
	// for humans locating the row, and Source points at the file anyway.
	_ = date
	return rows, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.ToLower(h))] = i
	}
	return cols
}

func field(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// splitTimestamp cuts "2025-09-10 15:00" into a date and an hour string.
// Anything malformed comes back as-is or empty and fails loader validation.
func splitTimestamp(ts string) (date, hour string) {
	date, clock, found := strings.Cut(strings.TrimSpace(ts), " ")
	if !found {
		return date, ""
	}
	hour, _, _ = strings.Cut(clock, ":")
	// strip a leading zero so "05" parses the same as "5"
	if len(hour) == 2 && hour[0] == '0' {
		hour = hour[1:]
	}
	return date, hour
}
