package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gridsight/consumption-analyzer/internal/domain"
	"github.com/gridsight/consumption-analyzer/internal/observability"
)

// ReadingSource supplies raw household reading rows. An error means the
// source itself is unreadable, which is fatal to the run.
type ReadingSource interface {
	Readings(ctx context.Context) ([]domain.RawReadingRow, error)
}

// MetadataSource supplies raw city-day metadata documents.
type MetadataSource interface {
	Metadata(ctx context.Context) ([]domain.RawMetadataDoc, error)
}

// ReportSink consumes the two export shapes. Writers receive fully-joined
// records and never re-join data.
type ReportSink interface {
	WriteSummaries(ctx context.Context, records []domain.SummaryRecord) error
	WriteReports(ctx context.Context, reports []domain.CityReport) error
}

// AlertPublisher pushes risk flags to an external alerting channel.
type AlertPublisher interface {
	PublishFlags(ctx context.Context, runID string, flags []domain.RiskFlag) error
}

// Pipeline orchestrates one load-merge-aggregate-detect-report run over a
// bounded in-memory dataset. Computation is single-pass and synchronous;
// I/O happens only at the source and sink edges.
type Pipeline struct {
	readings ReadingSource
	metadata MetadataSource
	sink     ReportSink
	alerts   AlertPublisher // nil disables alert publishing
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
	last     atomic.Pointer[domain.AnalysisResult]
}

// New creates a Pipeline with the given stages and observability. Pass a nil
// alerts publisher to disable alerting.
func New(readings ReadingSource, metadata MetadataSource, sink ReportSink, alerts AlertPublisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		readings: readings,
		metadata: metadata,
		sink:     sink,
		alerts:   alerts,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once the pipeline has completed at least one
// run, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no analysis run has completed yet")
	}
	return nil
}

// LastResult returns the most recently completed run's result, or nil if no
// run has completed.
func (p *Pipeline) LastResult() *domain.AnalysisResult {
	return p.last.Load()
}

// Run executes one full analysis: load both sources, merge, aggregate,
// detect risks, assemble, and hand the results to the sink. It returns the
// assembled result so callers can inspect counts; the returned error is
// non-nil only for source/sink failures, never for per-record problems.
func (p *Pipeline) Run(ctx context.Context) (*domain.AnalysisResult, error) {
	start := time.Now()
	p.metrics.AnalyzerRunning.Set(1)
	defer p.metrics.AnalyzerRunning.Set(0)

	rows, err := p.readings.Readings(ctx)
	if err != nil {
		return nil, fmt.Errorf("read readings source: %w", err)
	}
	docs, err := p.metadata.Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("read metadata source: %w", err)
	}

	readings, skippedReadings := domain.LoadReadings(rows)
	metadata, skippedMetadata := domain.LoadMetadata(docs)

	p.metrics.ReadingsLoaded.Add(float64(len(readings)))
	p.metrics.MetadataLoaded.Add(float64(len(metadata)))
	p.metrics.RecordsSkipped.WithLabelValues("readings").Add(float64(len(skippedReadings)))
	p.metrics.RecordsSkipped.WithLabelValues("metadata").Add(float64(len(skippedMetadata)))
	p.logSkipped("reading", skippedReadings)
	p.logSkipped("metadata", skippedMetadata)

	groups := domain.MergeGroups(readings, metadata)
	p.metrics.GroupsMerged.Add(float64(len(groups)))

	var (
		hours       []domain.DistrictHourAggregate
		days        []domain.DistrictDayAggregate
		flags       []domain.RiskFlag
		unevaluated []domain.UnevaluatedGroup
	)
	for _, g := range groups {
		groupHours := domain.AggregateHours(g)
		day, ok := domain.AggregateDay(groupHours)
		if !ok {
			continue
		}
		hours = append(hours, groupHours...)
		days = append(days, day)

		groupFlags, unev := domain.DetectRisks(g, day, groupHours)
		flags = append(flags, groupFlags...)
		if unev != nil {
			unevaluated = append(unevaluated, *unev)
			p.metrics.GroupsUnevaluated.Inc()
		}
		for _, f := range groupFlags {
			p.metrics.FlagsRaised.WithLabelValues(string(f.Kind)).Inc()
		}
	}

	cities := domain.AggregateCities(days, flags)

	runID := uuid.NewString()
	generatedAt := domain.Now().UTC()
	skipped := append(append([]domain.SkippedRecord(nil), skippedReadings...), skippedMetadata...)

	result := &domain.AnalysisResult{
		RunID:       runID,
		GeneratedAt: generatedAt,
		Hours:       hours,
		Days:        days,
		Cities:      cities,
		Flags:       flags,
		Unevaluated: unevaluated,
		Skipped:     skipped,
		Summaries:   domain.AssembleSummaries(days, hours, flags, unevaluated),
		Reports:     domain.AssembleReports(runID, generatedAt, cities, days, hours, flags, unevaluated),
	}

	if err := p.sink.WriteSummaries(ctx, result.Summaries); err != nil {
		return nil, fmt.Errorf("write summaries: %w", err)
	}
	if err := p.sink.WriteReports(ctx, result.Reports); err != nil {
		return nil, fmt.Errorf("write reports: %w", err)
	}

	// Alerting is best-effort: a broker outage must not fail a completed
	// analysis whose reports are already on disk.
	if p.alerts != nil && len(result.Flags) > 0 {
		if err := p.alerts.PublishFlags(ctx, runID, result.Flags); err != nil {
			p.metrics.AlertPublishErrors.Inc()
			p.logger.Error("publish risk alerts failed", "error", err, "flags", len(result.Flags))
		}
	}

	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.metrics.RunsCompleted.Inc()
	p.ready.Store(true)
	p.last.Store(result)

	p.logger.Info("analysis run completed",
		"run_id", runID,
		"readings", len(readings),
		"skipped", len(skipped),
		"groups", len(groups),
		"flags", len(flags),
		"unevaluated", len(unevaluated),
		"duration", time.Since(start),
	)
	return result, nil
}

func (p *Pipeline) logSkipped(source string, skipped []domain.SkippedRecord) {
	if len(skipped) == 0 {
		return
	}
	p.logger.Warn("skipped malformed records", "source", source, "count", len(skipped))
	for _, s := range skipped {
		p.logger.Debug("record skipped",
			"source", source,
			"location", s.SourceLocation,
			"reason", s.Reason,
			"raw", s.RawContent,
		)
	}
}
