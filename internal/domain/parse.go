package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Skip reasons recorded on rejected input records.
const (
	ReasonMissingField        = "missing required field"
	ReasonInvalidDate         = "invalid date"
	ReasonInvalidHour         = "invalid hour"
	ReasonHourOutOfRange      = "hour out of range"
	ReasonInvalidConsumption  = "invalid consumption value"
	ReasonNegativeConsumption = "negative consumption"
	ReasonInvalidDocument     = "invalid metadata document"
	ReasonInvalidThreshold    = "invalid threshold"
	ReasonCriticalHourRange   = "critical hour out of range"
)

const dateLayout = "2006-01-02"

// LoadReadings validates raw rows into Readings. Malformed rows are recorded
// as SkippedRecords and excluded; a bad row is never fatal.
func LoadReadings(rows []RawReadingRow) ([]Reading, []SkippedRecord) {
	readings := make([]Reading, 0, len(rows))
	var skipped []SkippedRecord

	for _, row := range rows {
		reading, err := parseReadingRow(row)
		if err != nil {
			skipped = append(skipped, SkippedRecord{
				SourceLocation: row.Source,
				RawContent:     row.rawContent(),
				Reason:         err.Error(),
			})
			continue
		}
		readings = append(readings, reading)
	}

	return readings, skipped
}

func (r RawReadingRow) rawContent() string {
	return strings.Join([]string{r.City, r.District, r.HouseholdID, r.Date, r.Hour, r.Consumption}, ",")
}

func parseReadingRow(row RawReadingRow) (Reading, error) {
	if row.City == "" || row.District == "" || row.HouseholdID == "" ||
		row.Date == "" || row.Hour == "" || row.Consumption == "" {
		return Reading{}, fmt.Errorf("%s", ReasonMissingField)
	}

	if _, err := time.Parse(dateLayout, row.Date); err != nil {
		return Reading{}, fmt.Errorf("%s", ReasonInvalidDate)
	}

	hour, err := strconv.Atoi(strings.TrimSpace(row.Hour))
	if err != nil {
		return Reading{}, fmt.Errorf("%s", ReasonInvalidHour)
	}
	if hour < 0 || hour > 23 {
		return Reading{}, fmt.Errorf("%s", ReasonHourOutOfRange)
	}

	kwh, err := strconv.ParseFloat(strings.TrimSpace(row.Consumption), 64)
	if err != nil || math.IsNaN(kwh) || math.IsInf(kwh, 0) {
		return Reading{}, fmt.Errorf("%s", ReasonInvalidConsumption)
	}
	if kwh < 0 {
		return Reading{}, fmt.Errorf("%s", ReasonNegativeConsumption)
	}

	return Reading{
		City:           row.City,
		District:       row.District,
		HouseholdID:    row.HouseholdID,
		Date:           row.Date,
		Hour:           hour,
		ConsumptionKWH: kwh,
	}, nil
}

// cityMetadataDoc mirrors the city-day metadata JSON: district settings
// keyed by district ID.
type cityMetadataDoc struct {
	City      string                     `json:"city"`
	Date      string                     `json:"date"`
	Districts map[string]districtMetaDoc `json:"districts"`
}

type districtMetaDoc struct {
	ThresholdKWH  float64 `json:"threshold_kwh"`
	CriticalHours []int   `json:"critical_hours"`
}

// LoadMetadata decodes and validates raw metadata documents. A document that
// fails to decode, or a district entry that fails validation, becomes a
// SkippedRecord; the rest of the batch still loads. District entries are
// emitted in sorted district order so output is deterministic.
func LoadMetadata(docs []RawMetadataDoc) ([]DistrictMetadata, []SkippedRecord) {
	var metadata []DistrictMetadata
	var skipped []SkippedRecord

	for _, doc := range docs {
		var parsed cityMetadataDoc
		if err := json.Unmarshal(doc.Data, &parsed); err != nil {
			skipped = append(skipped, SkippedRecord{
				SourceLocation: doc.Source,
				RawContent:     truncate(string(doc.Data), 200),
				Reason:         ReasonInvalidDocument,
			})
			continue
		}

		if parsed.City == "" || parsed.Date == "" {
			skipped = append(skipped, SkippedRecord{
				SourceLocation: doc.Source,
				RawContent:     truncate(string(doc.Data), 200),
				Reason:         ReasonMissingField,
			})
			continue
		}
		if _, err := time.Parse(dateLayout, parsed.Date); err != nil {
			skipped = append(skipped, SkippedRecord{
				SourceLocation: doc.Source,
				RawContent:     truncate(string(doc.Data), 200),
				Reason:         ReasonInvalidDate,
			})
			continue
		}

		districts := make([]string, 0, len(parsed.Districts))
		for id := range parsed.Districts {
			districts = append(districts, id)
		}
		sort.Strings(districts)

		for _, id := range districts {
			entry := parsed.Districts[id]
			meta, err := parseDistrictMeta(parsed.City, id, parsed.Date, entry)
			if err != nil {
				skipped = append(skipped, SkippedRecord{
					SourceLocation: doc.Source,
					RawContent:     fmt.Sprintf("district %s: threshold_kwh=%v critical_hours=%v", id, entry.ThresholdKWH, entry.CriticalHours),
					Reason:         err.Error(),
				})
				continue
			}
			metadata = append(metadata, meta)
		}
	}

	return metadata, skipped
}

func parseDistrictMeta(city, district, date string, entry districtMetaDoc) (DistrictMetadata, error) {
	if district == "" {
		return DistrictMetadata{}, fmt.Errorf("%s", ReasonMissingField)
	}
	if entry.ThresholdKWH <= 0 || math.IsNaN(entry.ThresholdKWH) || math.IsInf(entry.ThresholdKWH, 0) {
		return DistrictMetadata{}, fmt.Errorf("%s", ReasonInvalidThreshold)
	}
	for _, h := range entry.CriticalHours {
		if h < 0 || h > 23 {
			return DistrictMetadata{}, fmt.Errorf("%s", ReasonCriticalHourRange)
		}
	}

	hours := append([]int(nil), entry.CriticalHours...)
	sort.Ints(hours)

	return DistrictMetadata{
		City:          city,
		District:      district,
		Date:          date,
		ThresholdKWH:  entry.ThresholdKWH,
		CriticalHours: hours,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
