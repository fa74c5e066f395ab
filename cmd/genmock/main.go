// Command genmock generates a synthetic input data set for the analyzer:
// per-district hourly reading CSVs and per-(city, day) metadata JSONs in the
// layout the file adapters expect. A fixed seed makes the output
// reproducible, and a configurable fraction of consumption values is written
// as "N/A" to exercise the skip policy.
//
// Usage:
//
//	go run ./cmd/genmock -data-dir data -cities 2 -districts 3 -households 10 -days 2
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

type options struct {
	dataDir    string
	cities     int
	districts  int
	households int
	days       int
	seed       int64
	badRate    float64
}

// metadataFile mirrors the city-day metadata document shape.
type metadataFile struct {
	City      string                      `json:"city"`
	Date      string                      `json:"date"`
	Districts map[string]districtSettings `json:"districts"`
}

type districtSettings struct {
	ThresholdKWH  float64 `json:"threshold_kwh"`
	CriticalHours []int   `json:"critical_hours"`
}

// Evening peak-demand hours, flagged critical for every district.
var criticalHours = []int{18, 19, 20, 21}

var startDate = time.Date(2025, time.September, 10, 0, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var opts options
	flag.StringVar(&opts.dataDir, "data-dir", "data", "directory for generated csv/ and json/ subdirectories")
	flag.IntVar(&opts.cities, "cities", 2, "number of cities")
	flag.IntVar(&opts.districts, "districts", 3, "districts per city")
	flag.IntVar(&opts.households, "households", 10, "households per district")
	flag.IntVar(&opts.days, "days", 2, "days of hourly readings")
	flag.Int64Var(&opts.seed, "seed", 1, "random seed")
	flag.Float64Var(&opts.badRate, "bad-rate", 0.05, "fraction of readings written as N/A")
	flag.Parse()

	csvDir := filepath.Join(opts.dataDir, "csv")
	jsonDir := filepath.Join(opts.dataDir, "json")
	for _, dir := range []string{csvDir, jsonDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	rng := rand.New(rand.NewSource(opts.seed))

	var files, readings int
	for c := 1; c <= opts.cities; c++ {
		city := fmt.Sprintf("City%d", c)
		for d := 0; d < opts.days; d++ {
			date := startDate.AddDate(0, 0, d).Format("2006-01-02")

			meta := metadataFile{
				City:      city,
				Date:      date,
				Districts: make(map[string]districtSettings, opts.districts),
			}
			for dist := 1; dist <= opts.districts; dist++ {
				districtID := fmt.Sprintf("%d", 100+dist)

				// Ceiling near the expected district-day total
				// (households x 24h x ~1.5 kWh) so both violating and
				// compliant days occur.
				expected := float64(opts.households) * 24 * 1.5
				threshold := expected * (0.8 + 0.4*rng.Float64())
				meta.Districts[districtID] = districtSettings{
					ThresholdKWH:  round2(threshold),
					CriticalHours: criticalHours,
				}

				n, err := writeDistrictCSV(csvDir, city, districtID, date, opts, rng)
				if err != nil {
					return err
				}
				files++
				readings += n
			}

			if err := writeMetadataJSON(jsonDir, meta); err != nil {
				return err
			}
			files++
		}
	}

	log.Printf("generated %d files, %d readings under %s", files, readings, opts.dataDir)
	return nil
}

func writeDistrictCSV(dir, city, districtID, date string, opts options, rng *rand.Rand) (int, error) {
	path := filepath.Join(dir, fmt.Sprintf("district_%s_%s_%s.csv", city, districtID, date))
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"household_id", "timestamp", "consumption_kwh"}); err != nil {
		return 0, err
	}

	rows := 0
	for h := 1; h <= opts.households; h++ {
		householdID := fmt.Sprintf("H%03d", h)
		for hour := 0; hour < 24; hour++ {
			consumption := fmt.Sprintf("%.2f", 0.5+2.0*rng.Float64())
			if rng.Float64() < opts.badRate {
				consumption = "N/A"
			}
			row := []string{
				householdID,
				fmt.Sprintf("%s %02d:00", date, hour),
				consumption,
			}
			if err := w.Write(row); err != nil {
				return rows, err
			}
			rows++
		}
	}

	w.Flush()
	return rows, w.Error()
}

func writeMetadataJSON(dir string, meta metadataFile) error {
	path := filepath.Join(dir, fmt.Sprintf("city_%s_%s.json", meta.City, meta.Date))
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata for %s: %w", meta.City, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
