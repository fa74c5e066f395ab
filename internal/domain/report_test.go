package domain_test

import (
	"testing"
	"time"

	"github.com/gridsight/consumption-analyzer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runAnalysis drives the full domain pipeline over readings + metadata the
// way the orchestrator does, returning everything the assembler consumes.
func runAnalysis(t *testing.T, readings []domain.Reading, metadata []domain.DistrictMetadata) (
	[]domain.DistrictDayAggregate, []domain.DistrictHourAggregate, []domain.RiskFlag, []domain.UnevaluatedGroup, []domain.CityDayAggregate,
) {
	t.Helper()
	var (
		days        []domain.DistrictDayAggregate
		hours       []domain.DistrictHourAggregate
		flags       []domain.RiskFlag
		unevaluated []domain.UnevaluatedGroup
	)
	for _, g := range domain.MergeGroups(readings, metadata) {
		groupHours := domain.AggregateHours(g)
		day, ok := domain.AggregateDay(groupHours)
		if !ok {
			continue
		}
		days = append(days, day)
		hours = append(hours, groupHours...)
		groupFlags, unev := domain.DetectRisks(g, day, groupHours)
		flags = append(flags, groupFlags...)
		if unev != nil {
			unevaluated = append(unevaluated, *unev)
		}
	}
	cities := domain.AggregateCities(days, flags)
	return days, hours, flags, unevaluated, cities
}

func TestAssembleSummaries_FlatRecordShape(t *testing.T) {
	readings := []domain.Reading{
		reading("City1", "101", "2025-09-10", 10, 70),
		reading("City1", "101", "2025-09-10", 11, 50),
	}
	metadata := []domain.DistrictMetadata{
		{City: "City1", District: "101", Date: "2025-09-10", ThresholdKWH: 100},
	}
	days, hours, flags, unevaluated, _ := runAnalysis(t, readings, metadata)

	summaries := domain.AssembleSummaries(days, hours, flags, unevaluated)

	require.Len(t, summaries, 1)
	s := summaries[0]
	assert.Equal(t, "City1", s.City)
	assert.Equal(t, "101", s.District)
	assert.Equal(t, 120.0, s.TotalKWH)
	assert.Equal(t, 60.0, s.MeanKWH)
	assert.Equal(t, 10, s.PeakHour)
	assert.Equal(t, 70.0, s.PeakKWH)
	assert.Equal(t, 2, s.ReadingCount)
	assert.Equal(t, 1, s.ViolationCount)
	assert.Equal(t, 0, s.CriticalPeakCount)
	assert.True(t, s.Evaluated)
	assert.Equal(t, domain.LevelLow, s.RiskLevel)
}

func TestAssembleSummaries_UnevaluatedStillAggregates(t *testing.T) {
	// Scenario: district-day with readings but no metadata appears as
	// unevaluated, emits zero flags, and still contributes to city totals.
	readings := []domain.Reading{
		reading("City1", "101", "2025-09-10", 10, 70),
		reading("City1", "102", "2025-09-10", 11, 30),
	}
	metadata := []domain.DistrictMetadata{
		{City: "City1", District: "101", Date: "2025-09-10", ThresholdKWH: 1000},
	}
	days, hours, flags, unevaluated, cities := runAnalysis(t, readings, metadata)

	require.Len(t, unevaluated, 1)
	assert.Equal(t, "102", unevaluated[0].District)
	assert.Empty(t, flags)

	require.Len(t, cities, 1)
	assert.Equal(t, 100.0, cities[0].TotalKWH, "unevaluated district still counts in city total")
	assert.Equal(t, 2, cities[0].DistrictCount)

	summaries := domain.AssembleSummaries(days, hours, flags, unevaluated)
	require.Len(t, summaries, 2)
	assert.True(t, summaries[0].Evaluated)
	assert.False(t, summaries[1].Evaluated)
	assert.Empty(t, summaries[1].RiskLevel)
}

func TestAssembleReports_NestedShape(t *testing.T) {
	frozen := time.Date(2025, time.September, 11, 6, 0, 0, 0, time.UTC)

	readings := []domain.Reading{
		reading("City1", "101", "2025-09-10", 18, 90),
		reading("City1", "101", "2025-09-10", 12, 40),
		reading("City1", "102", "2025-09-10", 9, 20),
	}
	metadata := []domain.DistrictMetadata{
		{City: "City1", District: "101", Date: "2025-09-10", ThresholdKWH: 100, CriticalHours: []int{18, 19}},
	}
	days, hours, flags, unevaluated, cities := runAnalysis(t, readings, metadata)

	reports := domain.AssembleReports("run-1", frozen, cities, days, hours, flags, unevaluated)

	require.Len(t, reports, 1)
	r := reports[0]
	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, frozen, r.GeneratedAt)
	assert.Equal(t, "City1", r.City)
	assert.Equal(t, "2025-09-10", r.Date)

	assert.Equal(t, 150.0, r.Summary.TotalKWH)
	assert.Equal(t, 2, r.Summary.DistrictCount)
	assert.Equal(t, 1, r.Summary.ViolationCount)
	assert.Equal(t, 1, r.Summary.FlaggedDistricts)
	assert.Equal(t, 1, r.Summary.UnevaluatedDistricts)

	require.Len(t, r.Districts, 2)
	d101 := r.Districts[0]
	assert.Equal(t, "101", d101.District)
	assert.True(t, d101.Evaluated)
	require.Len(t, d101.Flags, 2) // threshold violation + critical-hour peak at 18
	assert.Len(t, d101.Hours, 2)
	assert.NotEmpty(t, d101.RiskLevel)

	d102 := r.Districts[1]
	assert.Equal(t, "102", d102.District)
	assert.False(t, d102.Evaluated)
	assert.Empty(t, d102.Flags)

	require.Len(t, r.Unevaluated, 1)
	assert.Equal(t, "102", r.Unevaluated[0].District)
}

func TestAssemble_Idempotent(t *testing.T) {
	frozen := time.Date(2025, time.September, 11, 6, 0, 0, 0, time.UTC)
	readings := []domain.Reading{
		reading("City1", "101", "2025-09-10", 18, 90),
		reading("City2", "201", "2025-09-10", 7, 15),
	}
	metadata := []domain.DistrictMetadata{
		{City: "City1", District: "101", Date: "2025-09-10", ThresholdKWH: 50, CriticalHours: []int{18}},
	}

	build := func() ([]domain.SummaryRecord, []domain.CityReport) {
		days, hours, flags, unevaluated, cities := runAnalysis(t, readings, metadata)
		return domain.AssembleSummaries(days, hours, flags, unevaluated),
			domain.AssembleReports("run-1", frozen, cities, days, hours, flags, unevaluated)
	}

	s1, r1 := build()
	s2, r2 := build()
	assert.Equal(t, s1, s2)
	assert.Equal(t, r1, r2)
}
