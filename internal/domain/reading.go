package domain

// RawReadingRow is one unvalidated row from a district reading source.
// Every field is the string exactly as read; the loader validates and
// types them. Adapters never interpret values.
type RawReadingRow struct {
	City        string
	District    string
	HouseholdID string
	Date        string // calendar day, "2006-01-02"
	Hour        string // hour of day, "0".."23"
	Consumption string // kWh, decimal string
	Source      string // e.g. "district_City1_101_2025-09-10.csv:17"
}

// RawMetadataDoc is one unvalidated city-day metadata document.
type RawMetadataDoc struct {
	Source string
	Data   []byte
}

// Reading is a validated hourly consumption report from one household.
// Immutable once produced by the loader.
type Reading struct {
	City           string  `json:"city"`
	District       string  `json:"district"`
	HouseholdID    string  `json:"household_id"`
	Date           string  `json:"date"`
	Hour           int     `json:"hour"`
	ConsumptionKWH float64 `json:"consumption_kwh"`
}

// DistrictMetadata carries one district's consumption ceiling and
// critical hours for a single day.
type DistrictMetadata struct {
	City          string  `json:"city"`
	District      string  `json:"district"`
	Date          string  `json:"date"`
	ThresholdKWH  float64 `json:"threshold_kwh"`
	CriticalHours []int   `json:"critical_hours"` // sorted, each 0-23
}

// IsCriticalHour reports whether the given hour is flagged as critical.
func (m DistrictMetadata) IsCriticalHour(hour int) bool {
	for _, h := range m.CriticalHours {
		if h == hour {
			return true
		}
	}
	return false
}

// SkippedRecord describes a single input record that failed validation and
// was excluded from the run. Skips are data-quality output, not errors.
type SkippedRecord struct {
	SourceLocation string `json:"source_location"`
	RawContent     string `json:"raw_content"`
	Reason         string `json:"reason"`
}

// GroupKey identifies a district-day, the unit of metadata lookup,
// aggregation, and risk evaluation.
type GroupKey struct {
	City     string `json:"city"`
	District string `json:"district"`
	Date     string `json:"date"`
}

// MergedGroup holds one district-day's readings joined with its metadata.
// Metadata is nil when no matching document was loaded; such groups still
// aggregate but cannot be risk-evaluated.
type MergedGroup struct {
	Key      GroupKey
	Readings []Reading
	Metadata *DistrictMetadata
}

// DistrictHourAggregate summarizes one district's consumption for one hour.
// Hours with no valid readings have no aggregate.
type DistrictHourAggregate struct {
	City         string  `json:"city"`
	District     string  `json:"district"`
	Date         string  `json:"date"`
	Hour         int     `json:"hour"`
	TotalKWH     float64 `json:"total_kwh"`
	MeanKWH      float64 `json:"mean_kwh"`
	ReadingCount int     `json:"reading_count"`
}

// DistrictDayAggregate folds a district-day's hour aggregates into one row.
type DistrictDayAggregate struct {
	City     string  `json:"city"`
	District string  `json:"district"`
	Date     string  `json:"date"`
	TotalKWH float64 `json:"total_kwh"`
	PeakHour int     `json:"peak_hour"`
	PeakKWH  float64 `json:"peak_kwh"`
}

// CityDayAggregate folds district-day aggregates across a city.
type CityDayAggregate struct {
	City           string  `json:"city"`
	Date           string  `json:"date"`
	TotalKWH       float64 `json:"total_kwh"`
	DistrictCount  int     `json:"district_count"`
	ViolationCount int     `json:"violation_count"`
}

// RiskKind discriminates the two flag types the detector emits.
type RiskKind string

const (
	RiskThresholdViolation RiskKind = "threshold_violation"
	RiskCriticalHourPeak   RiskKind = "critical_hour_peak"
)

// Severity level labels, banded from the numeric severity score.
const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// RiskFlag marks a risk condition on a district-day. Hour is set only for
// critical-hour peaks.
type RiskFlag struct {
	City     string   `json:"city"`
	District string   `json:"district"`
	Date     string   `json:"date"`
	Hour     *int     `json:"hour,omitempty"`
	Kind     RiskKind `json:"kind"`
	Severity float64  `json:"severity"`
	Level    string   `json:"level"`
}

// UnevaluatedGroup records a district-day that aggregated but could not be
// risk-evaluated, so callers can tell "no risk" from "not evaluable".
type UnevaluatedGroup struct {
	City     string `json:"city"`
	District string `json:"district"`
	Date     string `json:"date"`
	Reason   string `json:"reason"`
}
