package domain

// DetectRisks evaluates one district-day against its metadata. Groups
// without metadata return no flags and a non-nil UnevaluatedGroup instead;
// aggregation has already happened, only risk evaluation is skipped.
//
// Detection is a pure function of already-validated aggregates. It emits:
//
//   - a threshold violation when the day total exceeds the district's
//     ceiling, with severity (total - threshold) / threshold;
//   - a critical-hour peak for every critical hour whose total equals the
//     day's maximum hour total. Ties are all flagged. Severity is the
//     flagged hour's share of the day total.
func DetectRisks(g MergedGroup, day DistrictDayAggregate, hours []DistrictHourAggregate) ([]RiskFlag, *UnevaluatedGroup) {
	if g.Metadata == nil {
		return nil, &UnevaluatedGroup{
			City:     g.Key.City,
			District: g.Key.District,
			Date:     g.Key.Date,
			Reason:   "metadata missing",
		}
	}
	meta := *g.Metadata

	var flags []RiskFlag

	if day.TotalKWH > meta.ThresholdKWH {
		severity := (day.TotalKWH - meta.ThresholdKWH) / meta.ThresholdKWH
		flags = append(flags, RiskFlag{
			City:     day.City,
			District: day.District,
			Date:     day.Date,
			Kind:     RiskThresholdViolation,
			Severity: severity,
			Level:    severityLevel(severity),
		})
	}

	// A day with zero total has no meaningful peak; every hour would tie
	// at zero, so critical-hour detection is skipped.
	if day.TotalKWH > 0 {
		for _, h := range hours {
			if !meta.IsCriticalHour(h.Hour) || h.TotalKWH != day.PeakKWH {
				continue
			}
			hour := h.Hour
			severity := h.TotalKWH / day.TotalKWH
			flags = append(flags, RiskFlag{
				City:     day.City,
				District: day.District,
				Date:     day.Date,
				Hour:     &hour,
				Kind:     RiskCriticalHourPeak,
				Severity: severity,
				Level:    severityLevel(severity),
			})
		}
	}

	return flags, nil
}

// severityLevel bands a severity score into a label: <=0.30 low,
// <=0.60 medium, above that high.
func severityLevel(severity float64) string {
	switch {
	case severity <= 0.30:
		return LevelLow
	case severity <= 0.60:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// levelRank orders severity labels for "highest level wins" roll-ups.
func levelRank(level string) int {
	switch level {
	case LevelHigh:
		return 3
	case LevelMedium:
		return 2
	case LevelLow:
		return 1
	default:
		return 0
	}
}
