package domain

import (
	"sort"
	"time"
)

// SummaryRecord is the flat per-district-day export row for tabular output.
// It is fully joined: external writers never need to re-join anything.
type SummaryRecord struct {
	City              string  `json:"city"`
	District          string  `json:"district"`
	Date              string  `json:"date"`
	TotalKWH          float64 `json:"total_kwh"`
	MeanKWH           float64 `json:"mean_kwh"`
	PeakHour          int     `json:"peak_hour"`
	PeakKWH           float64 `json:"peak_kwh"`
	ReadingCount      int     `json:"reading_count"`
	ViolationCount    int     `json:"violation_count"`
	CriticalPeakCount int     `json:"critical_peak_count"`
	Evaluated         bool    `json:"evaluated"`
	RiskLevel         string  `json:"risk_level,omitempty"` // highest level among the day's flags
}

// DistrictReport nests one district's aggregates and flags inside a city report.
type DistrictReport struct {
	District  string                  `json:"district"`
	Day       DistrictDayAggregate    `json:"day"`
	Hours     []DistrictHourAggregate `json:"hours"`
	Flags     []RiskFlag              `json:"flags,omitempty"`
	Evaluated bool                    `json:"evaluated"`
	RiskLevel string                  `json:"risk_level,omitempty"`
}

// CityReportSummary rolls a city-day's districts up into headline counts.
type CityReportSummary struct {
	TotalKWH             float64 `json:"total_kwh"`
	DistrictCount        int     `json:"district_count"`
	ViolationCount       int     `json:"violation_count"`
	FlaggedDistricts     int     `json:"flagged_districts"`
	UnevaluatedDistricts int     `json:"unevaluated_districts"`
	HighRiskDistricts    int     `json:"high_risk_districts"`
	MediumRiskDistricts  int     `json:"medium_risk_districts"`
	LowRiskDistricts     int     `json:"low_risk_districts"`
}

// CityReport is the structured per-(city, date) export.
type CityReport struct {
	RunID       string             `json:"run_id"`
	City        string             `json:"city"`
	Date        string             `json:"date"`
	GeneratedAt time.Time          `json:"generated_at"`
	Summary     CityReportSummary  `json:"summary"`
	Districts   []DistrictReport   `json:"districts"`
	Unevaluated []UnevaluatedGroup `json:"unevaluated,omitempty"`
}

// AnalysisResult is everything one pipeline run produces: every aggregation
// level, the risk flags, the two export shapes, and the data-quality
// byproducts (skips, unevaluated groups).
type AnalysisResult struct {
	RunID       string                  `json:"run_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	Hours       []DistrictHourAggregate `json:"hours"`
	Days        []DistrictDayAggregate  `json:"days"`
	Cities      []CityDayAggregate      `json:"cities"`
	Flags       []RiskFlag              `json:"flags"`
	Unevaluated []UnevaluatedGroup      `json:"unevaluated"`
	Skipped     []SkippedRecord         `json:"skipped"`
	Summaries   []SummaryRecord         `json:"summaries"`
	Reports     []CityReport            `json:"reports"`
}

// AssembleSummaries builds the flat summary rows, one per district-day,
// in (city, district, date) order.
func AssembleSummaries(days []DistrictDayAggregate, hours []DistrictHourAggregate, flags []RiskFlag, unevaluated []UnevaluatedGroup) []SummaryRecord {
	hoursByKey := indexHours(hours)
	flagsByKey := indexFlags(flags)
	unevaluatedKeys := make(map[GroupKey]bool, len(unevaluated))
	for _, u := range unevaluated {
		unevaluatedKeys[GroupKey{City: u.City, District: u.District, Date: u.Date}] = true
	}

	records := make([]SummaryRecord, 0, len(days))
	for _, day := range days {
		key := GroupKey{City: day.City, District: day.District, Date: day.Date}

		var readingCount int
		for _, h := range hoursByKey[key] {
			readingCount += h.ReadingCount
		}

		var violations, criticalPeaks int
		var level string
		for _, f := range flagsByKey[key] {
			switch f.Kind {
			case RiskThresholdViolation:
				violations++
			case RiskCriticalHourPeak:
				criticalPeaks++
			}
			if levelRank(f.Level) > levelRank(level) {
				level = f.Level
			}
		}

		var mean float64
		if readingCount > 0 {
			mean = day.TotalKWH / float64(readingCount)
		}

		records = append(records, SummaryRecord{
			City:              day.City,
			District:          day.District,
			Date:              day.Date,
			TotalKWH:          day.TotalKWH,
			MeanKWH:           mean,
			PeakHour:          day.PeakHour,
			PeakKWH:           day.PeakKWH,
			ReadingCount:      readingCount,
			ViolationCount:    violations,
			CriticalPeakCount: criticalPeaks,
			Evaluated:         !unevaluatedKeys[key],
			RiskLevel:         level,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		a := GroupKey{City: records[i].City, District: records[i].District, Date: records[i].Date}
		b := GroupKey{City: records[j].City, District: records[j].District, Date: records[j].Date}
		return lessKey(a, b)
	})
	return records
}

// AssembleReports builds the nested per-(city, date) reports from the city
// aggregates, in the city aggregates' order.
func AssembleReports(runID string, generatedAt time.Time, cities []CityDayAggregate, days []DistrictDayAggregate, hours []DistrictHourAggregate, flags []RiskFlag, unevaluated []UnevaluatedGroup) []CityReport {
	hoursByKey := indexHours(hours)
	flagsByKey := indexFlags(flags)

	reports := make([]CityReport, 0, len(cities))
	for _, city := range cities {
		report := CityReport{
			RunID:       runID,
			City:        city.City,
			Date:        city.Date,
			GeneratedAt: generatedAt,
			Summary: CityReportSummary{
				TotalKWH:       city.TotalKWH,
				DistrictCount:  city.DistrictCount,
				ViolationCount: city.ViolationCount,
			},
		}

		for _, day := range days {
			if day.City != city.City || day.Date != city.Date {
				continue
			}
			key := GroupKey{City: day.City, District: day.District, Date: day.Date}
			dr := DistrictReport{
				District:  day.District,
				Day:       day,
				Hours:     hoursByKey[key],
				Flags:     flagsByKey[key],
				Evaluated: true,
			}
			for _, f := range dr.Flags {
				if levelRank(f.Level) > levelRank(dr.RiskLevel) {
					dr.RiskLevel = f.Level
				}
			}
			report.Districts = append(report.Districts, dr)

			if len(dr.Flags) > 0 {
				report.Summary.FlaggedDistricts++
			}
			switch dr.RiskLevel {
			case LevelHigh:
				report.Summary.HighRiskDistricts++
			case LevelMedium:
				report.Summary.MediumRiskDistricts++
			case LevelLow:
				report.Summary.LowRiskDistricts++
			}
		}

		for _, u := range unevaluated {
			if u.City != city.City || u.Date != city.Date {
				continue
			}
			report.Unevaluated = append(report.Unevaluated, u)
			report.Summary.UnevaluatedDistricts++
			for i := range report.Districts {
				if report.Districts[i].District == u.District {
					report.Districts[i].Evaluated = false
				}
			}
		}

		reports = append(reports, report)
	}
	return reports
}

func indexHours(hours []DistrictHourAggregate) map[GroupKey][]DistrictHourAggregate {
	byKey := make(map[GroupKey][]DistrictHourAggregate)
	for _, h := range hours {
		key := GroupKey{City: h.City, District: h.District, Date: h.Date}
		byKey[key] = append(byKey[key], h)
	}
	return byKey
}

func indexFlags(flags []RiskFlag) map[GroupKey][]RiskFlag {
	byKey := make(map[GroupKey][]RiskFlag)
	for _, f := range flags {
		key := GroupKey{City: f.City, District: f.District, Date: f.Date}
		byKey[key] = append(byKey[key], f)
	}
	return byKey
}
