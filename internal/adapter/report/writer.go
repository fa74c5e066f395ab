// Package report writes the pipeline's two export shapes to disk: per-city
// summary CSVs and per-(city, date) structured JSON reports.
package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gridsight/consumption-analyzer/internal/domain"
)

const (
	summarySubdir = "summary_csv"
	reportSubdir  = "reports_json"
)

var summaryHeader = []string{
	"city", "district", "date",
	"total_kwh", "mean_kwh", "peak_hour", "peak_kwh", "reading_count",
	"violation_count", "critical_peak_count", "evaluated", "risk_level",
}

// Writer persists analysis output under a base directory.
// It implements pipeline.ReportSink.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a report writer rooted at dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// WriteSummaries writes one {city}_summary.csv per city. Records arrive
// sorted by (city, district, date) and are written in that order.
func (w *Writer) WriteSummaries(_ context.Context, records []domain.SummaryRecord) error {
	dir := filepath.Join(w.dir, summarySubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create summary dir: %w", err)
	}

	byCity := make(map[string][]domain.SummaryRecord)
	var cities []string
	for _, rec := range records {
		if _, ok := byCity[rec.City]; !ok {
			cities = append(cities, rec.City)
		}
		byCity[rec.City] = append(byCity[rec.City], rec)
	}

	for _, city := range cities {
		path := filepath.Join(dir, city+"_summary.csv")
		if err := writeSummaryFile(path, byCity[city]); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		w.logger.Debug("summary written", "file", path, "rows", len(byCity[city]))
	}
	return nil
}

func writeSummaryFile(path string, records []domain.SummaryRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(summaryHeader); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.City,
			rec.District,
			rec.Date,
			formatFloat(rec.TotalKWH),
			formatFloat(rec.MeanKWH),
			strconv.Itoa(rec.PeakHour),
			formatFloat(rec.PeakKWH),
			strconv.Itoa(rec.ReadingCount),
			strconv.Itoa(rec.ViolationCount),
			strconv.Itoa(rec.CriticalPeakCount),
			strconv.FormatBool(rec.Evaluated),
			rec.RiskLevel,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReports writes one {city}_{date}_report.json per city-day.
func (w *Writer) WriteReports(_ context.Context, reports []domain.CityReport) error {
	dir := filepath.Join(w.dir, reportSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}

	for _, rep := range reports {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s_report.json", rep.City, rep.Date))
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report %s/%s: %w", rep.City, rep.Date, err)
		}
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		w.logger.Debug("report written", "file", path, "districts", len(rep.Districts))
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
