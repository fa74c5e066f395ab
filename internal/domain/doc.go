// Package domain models smart-grid household power-consumption data and the
// pure computations over it: loading, merging, aggregation, and risk
// detection.
//
// # Data Sources
//
// Hourly readings arrive as per-district CSV files, one file per
// (city, district, day):
//
//	district_{city}_{district}_{date}.csv
//	columns: household_id, timestamp ("2006-01-02 15:04"), consumption_kwh
//
// Metadata arrives as per-(city, day) JSON documents:
//
//	city_{city}_{date}.json
//	{"city": ..., "date": ..., "districts": {"101": {"threshold_kwh": 320.5,
//	 "critical_hours": [18, 19, 20, 21]}}}
//
// threshold_kwh is the district's consumption ceiling for the whole day;
// critical_hours are the hours of day flagged as high-risk for peak load.
//
// # Data Quality Policy
//
// A malformed record (out-of-range hour, non-numeric or negative
// consumption, missing fields, undecodable metadata document) is never
// fatal: it becomes a [SkippedRecord] and the batch continues. Only an
// unreadable source is an error, and that is the adapters' concern. A
// district-day whose metadata is absent still aggregates but is reported as
// an [UnevaluatedGroup] so "no risk found" and "could not evaluate" stay
// distinguishable.
//
// # Aggregation
//
// Readings fold hierarchically: household readings into
// [DistrictHourAggregate] (exact sum, mean over valid readings), hour
// aggregates into [DistrictDayAggregate] (day total, peak hour with
// lowest-hour tie-break), day aggregates into [CityDayAggregate]. Every
// level is a pure deterministic fold over the level below; hours with no
// readings are omitted, never synthesized as zero. Re-running on identical
// input yields bit-identical aggregates.
//
// # Risk Detection
//
// A district-day whose total exceeds its threshold gets a threshold
// violation with severity (total - threshold) / threshold. A critical hour
// whose total equals the day's maximum hour total gets a critical-hour peak
// flag; ties are all flagged. Severity scores band into low (<=0.30),
// medium (<=0.60), and high labels.
package domain
