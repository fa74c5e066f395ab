// Command validate performs end-to-end integrity checks over an analyzer
// run: it re-derives the aggregates and risk flags from the raw district
// CSVs and city metadata JSONs, verifies the arithmetic and risk invariants,
// and reconciles the written summary CSVs against the recomputed results.
//
// Usage:
//
//	go run ./cmd/validate -csv-dir data/csv -json-dir data/json -out-dir output
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gridsight/consumption-analyzer/internal/adapter/csvfile"
	"github.com/gridsight/consumption-analyzer/internal/adapter/jsonfile"
	"github.com/gridsight/consumption-analyzer/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvDir := flag.String("csv-dir", "", "directory containing district reading CSVs")
	jsonDir := flag.String("json-dir", "", "directory containing city metadata JSONs")
	outDir := flag.String("out-dir", "", "analyzer output directory to reconcile (optional)")
	flag.Parse()

	if *csvDir == "" || *jsonDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*csvDir, *jsonDir, *outDir); code != 0 {
		os.Exit(code)
	}
}

// derived holds everything recomputed from the raw inputs.
type derived struct {
	rows        []domain.RawReadingRow
	readings    []domain.Reading
	skipped     []domain.SkippedRecord
	groups      []domain.MergedGroup
	hours       map[domain.GroupKey][]domain.DistrictHourAggregate
	days        []domain.DistrictDayAggregate
	cities      []domain.CityDayAggregate
	flags       []domain.RiskFlag
	unevaluated []domain.UnevaluatedGroup
	summaries   []domain.SummaryRecord
}

func run(csvDir, jsonDir, outDir string) int {
	fmt.Println("=== Consumption Analysis Integrity Validation ===")
	fmt.Println()

	d, err := recompute(csvDir, jsonDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateInputReconciliation(d),
		validateAggregationArithmetic(d),
		validateRiskInvariants(d),
	}
	if outDir != "" {
		phases = append(phases, validateOutputReconciliation(d, outDir))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-46s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d raw rows, %d readings, %d skipped, %d groups, %d flags, %d unevaluated\n",
		len(d.rows), len(d.readings), len(d.skipped), len(d.groups), len(d.flags), len(d.unevaluated))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// recompute re-runs the full analysis from the raw input directories.
func recompute(csvDir, jsonDir string) (*derived, error) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rows, err := csvfile.NewReader(csvDir, logger).Readings(ctx)
	if err != nil {
		return nil, fmt.Errorf("read reading CSVs: %w", err)
	}
	docs, err := jsonfile.NewReader(jsonDir, logger).Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("read metadata JSONs: %w", err)
	}

	d := &derived{rows: rows, hours: make(map[domain.GroupKey][]domain.DistrictHourAggregate)}

	d.readings, d.skipped = domain.LoadReadings(rows)
	metadata, metaSkipped := domain.LoadMetadata(docs)
	d.skipped = append(d.skipped, metaSkipped...)

	d.groups = domain.MergeGroups(d.readings, metadata)
	for _, g := range d.groups {
		hours := domain.AggregateHours(g)
		d.hours[g.Key] = hours
		day, ok := domain.AggregateDay(hours)
		if !ok {
			continue
		}
		d.days = append(d.days, day)

		flags, unevaluated := domain.DetectRisks(g, day, hours)
		d.flags = append(d.flags, flags...)
		if unevaluated != nil {
			d.unevaluated = append(d.unevaluated, *unevaluated)
		}
	}
	d.cities = domain.AggregateCities(d.days, d.flags)
	d.summaries = domain.AssembleSummaries(d.days, flattenHours(d.hours), d.flags, d.unevaluated)
	return d, nil
}

func flattenHours(m map[domain.GroupKey][]domain.DistrictHourAggregate) []domain.DistrictHourAggregate {
	var out []domain.DistrictHourAggregate
	for _, hours := range m {
		out = append(out, hours...)
	}
	return out
}

// ── Phase 1: Input Reconciliation ──
// Every raw row must land in exactly one bucket: valid reading or skip.

func validateInputReconciliation(d *derived) *phase {
	p := &phase{name: "Phase 1: Input Reconciliation (rows vs skips)"}

	readingSkips := 0
	for _, s := range d.skipped {
		if strings.Contains(s.SourceLocation, ".csv") {
			readingSkips++
		}
	}
	if len(d.readings)+readingSkips != len(d.rows) {
		p.errorf("row accounting: %d raw rows, but %d readings + %d skips = %d",
			len(d.rows), len(d.readings), readingSkips, len(d.readings)+readingSkips)
	}

	for i, s := range d.skipped {
		if s.Reason == "" {
			p.errorf("skipped record %d (%s): empty reason", i, s.SourceLocation)
		}
		if s.SourceLocation == "" {
			p.errorf("skipped record %d: empty source location", i)
		}
	}

	for i, r := range d.readings {
		if r.ConsumptionKWH < 0 {
			p.errorf("reading %d (%s/%s): negative consumption %g survived loading",
				i, r.City, r.District, r.ConsumptionKWH)
		}
		if r.Hour < 0 || r.Hour > 23 {
			p.errorf("reading %d (%s/%s): hour %d out of range survived loading",
				i, r.City, r.District, r.Hour)
		}
	}
	return p
}

// ── Phase 2: Aggregation Arithmetic ──
// Hour totals must sum to the day total, day totals to the city total.

func validateAggregationArithmetic(d *derived) *phase {
	p := &phase{name: "Phase 2: Aggregation Arithmetic (sums)"}

	for _, day := range d.days {
		key := domain.GroupKey{City: day.City, District: day.District, Date: day.Date}

		var hourSum float64
		var readingCount int
		for _, h := range d.hours[key] {
			hourSum += h.TotalKWH
			readingCount += h.ReadingCount
			if h.ReadingCount == 0 {
				p.errorf("%s/%s %s hour %d: aggregate with zero readings", day.City, day.District, day.Date, h.Hour)
			}
			if !floatEq(h.MeanKWH*float64(h.ReadingCount), h.TotalKWH) {
				p.errorf("%s/%s %s hour %d: mean %g x count %d != total %g",
					day.City, day.District, day.Date, h.Hour, h.MeanKWH, h.ReadingCount, h.TotalKWH)
			}
		}
		if !floatEq(hourSum, day.TotalKWH) {
			p.errorf("%s/%s %s: hour sum %g != day total %g", day.City, day.District, day.Date, hourSum, day.TotalKWH)
		}

		if day.TotalKWH > 0 {
			peak, found := 0.0, false
			for _, h := range d.hours[key] {
				if h.Hour == day.PeakHour {
					peak, found = h.TotalKWH, true
				}
			}
			if !found {
				p.errorf("%s/%s %s: peak hour %d has no hourly aggregate", day.City, day.District, day.Date, day.PeakHour)
			} else if !floatEq(peak, day.PeakKWH) {
				p.errorf("%s/%s %s: peak kwh %g != hour %d total %g", day.City, day.District, day.Date, day.PeakKWH, day.PeakHour, peak)
			}
		}
	}

	for _, c := range d.cities {
		var daySum float64
		var districts int
		for _, day := range d.days {
			if day.City == c.City && day.Date == c.Date {
				daySum += day.TotalKWH
				districts++
			}
		}
		if !floatEq(daySum, c.TotalKWH) {
			p.errorf("%s %s: district day sum %g != city total %g", c.City, c.Date, daySum, c.TotalKWH)
		}
		if districts != c.DistrictCount {
			p.errorf("%s %s: %d district days, city aggregate says %d", c.City, c.Date, districts, c.DistrictCount)
		}
	}
	return p
}

// ── Phase 3: Risk Invariants ──
// Flags must be backed by the aggregates and metadata they claim.

func validateRiskInvariants(d *derived) *phase {
	p := &phase{name: "Phase 3: Risk Invariants (flags vs aggregates)"}

	metaByKey := map[domain.GroupKey]*domain.DistrictMetadata{}
	dayByKey := map[domain.GroupKey]domain.DistrictDayAggregate{}
	for _, g := range d.groups {
		metaByKey[g.Key] = g.Metadata
	}
	for _, day := range d.days {
		dayByKey[domain.GroupKey{City: day.City, District: day.District, Date: day.Date}] = day
	}

	for i, f := range d.flags {
		key := domain.GroupKey{City: f.City, District: f.District, Date: f.Date}
		meta := metaByKey[key]
		day, hasDay := dayByKey[key]

		if meta == nil {
			p.errorf("flag %d (%s/%s): raised without metadata", i, f.City, f.District)
			continue
		}
		if !hasDay {
			p.errorf("flag %d (%s/%s): raised without a day aggregate", i, f.City, f.District)
			continue
		}

		switch f.Kind {
		case domain.RiskThresholdViolation:
			if day.TotalKWH <= meta.ThresholdKWH {
				p.errorf("flag %d (%s/%s): threshold violation but total %g <= threshold %g",
					i, f.City, f.District, day.TotalKWH, meta.ThresholdKWH)
			}
			if f.Hour != nil {
				p.errorf("flag %d (%s/%s): threshold violation carries hour %d", i, f.City, f.District, *f.Hour)
			}
		case domain.RiskCriticalHourPeak:
			if f.Hour == nil {
				p.errorf("flag %d (%s/%s): critical hour peak without hour", i, f.City, f.District)
				continue
			}
			if !meta.IsCriticalHour(*f.Hour) {
				p.errorf("flag %d (%s/%s): hour %d not in critical hours %v",
					i, f.City, f.District, *f.Hour, meta.CriticalHours)
			}
			for _, h := range d.hours[key] {
				if h.Hour == *f.Hour && !floatEq(h.TotalKWH, day.PeakKWH) {
					p.errorf("flag %d (%s/%s): hour %d total %g is not the day peak %g",
						i, f.City, f.District, *f.Hour, h.TotalKWH, day.PeakKWH)
				}
			}
		default:
			p.errorf("flag %d (%s/%s): unknown kind %q", i, f.City, f.District, f.Kind)
		}

		if f.Level != domain.LevelLow && f.Level != domain.LevelMedium && f.Level != domain.LevelHigh {
			p.errorf("flag %d (%s/%s): invalid level %q", i, f.City, f.District, f.Level)
		}
	}

	for i, u := range d.unevaluated {
		key := domain.GroupKey{City: u.City, District: u.District, Date: u.Date}
		if metaByKey[key] != nil {
			p.errorf("unevaluated %d (%s/%s): has metadata attached", i, u.City, u.District)
		}
		for _, f := range d.flags {
			if f.City == u.City && f.District == u.District && f.Date == u.Date {
				p.errorf("unevaluated %d (%s/%s): also carries a risk flag", i, u.City, u.District)
			}
		}
	}
	return p
}

// ── Phase 4: Output Reconciliation ──
// Written summary CSVs must match the recomputed summaries.

func validateOutputReconciliation(d *derived, outDir string) *phase {
	p := &phase{name: "Phase 4: Output Reconciliation (summary CSVs)"}

	expected := map[string]domain.SummaryRecord{}
	for _, s := range d.summaries {
		expected[s.City+"|"+s.District+"|"+s.Date] = s
	}

	dir := filepath.Join(outDir, "summary_csv")
	entries, err := os.ReadDir(dir)
	if err != nil {
		p.errorf("read %s: %v", dir, err)
		return p
	}

	seen := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_summary.csv") {
			continue
		}
		rows, err := loadSummaryCSV(filepath.Join(dir, entry.Name()))
		if err != nil {
			p.errorf("%s: %v", entry.Name(), err)
			continue
		}
		for _, row := range rows {
			seen++
			key := row["city"] + "|" + row["district"] + "|" + row["date"]
			want, ok := expected[key]
			if !ok {
				p.errorf("%s: row %s not in recomputed summaries", entry.Name(), key)
				continue
			}
			compareSummaryRow(p, entry.Name(), key, row, want)
		}
	}
	if seen != len(d.summaries) {
		p.errorf("summary rows: %d written, %d recomputed", seen, len(d.summaries))
	}
	return p
}

func compareSummaryRow(p *phase, file, key string, row map[string]string, want domain.SummaryRecord) {
	checkFloat := func(col string, expected float64) {
		got, err := strconv.ParseFloat(row[col], 64)
		if err != nil || !floatEq(got, expected) {
			p.errorf("%s %s: %s=%q, expected %g", file, key, col, row[col], expected)
		}
	}
	checkInt := func(col string, expected int) {
		if row[col] != strconv.Itoa(expected) {
			p.errorf("%s %s: %s=%q, expected %d", file, key, col, row[col], expected)
		}
	}

	checkFloat("total_kwh", want.TotalKWH)
	checkFloat("mean_kwh", want.MeanKWH)
	checkFloat("peak_kwh", want.PeakKWH)
	checkInt("peak_hour", want.PeakHour)
	checkInt("reading_count", want.ReadingCount)
	checkInt("violation_count", want.ViolationCount)
	checkInt("critical_peak_count", want.CriticalPeakCount)
	if row["evaluated"] != strconv.FormatBool(want.Evaluated) {
		p.errorf("%s %s: evaluated=%q, expected %v", file, key, row["evaluated"], want.Evaluated)
	}
	if row["risk_level"] != want.RiskLevel {
		p.errorf("%s %s: risk_level=%q, expected %q", file, key, row["risk_level"], want.RiskLevel)
	}
}

func loadSummaryCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) < 1 {
		return nil, fmt.Errorf("no header in %s", path)
	}

	header := all[0]
	var rows []map[string]string
	for _, record := range all[1:] {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(record) {
				fields[h] = record[j]
			}
		}
		rows = append(rows, fields)
	}
	return rows, nil
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
