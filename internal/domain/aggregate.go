package domain

import "sort"

// AggregateHours computes per-hour aggregates for one district-day group,
// sorted by hour. Hours with no readings are omitted, never synthesized as
// zero, so MeanKWH always divides by a positive count.
func AggregateHours(g MergedGroup) []DistrictHourAggregate {
	type acc struct {
		total float64
		count int
	}
	byHour := make(map[int]*acc)

	for _, r := range g.Readings {
		a, ok := byHour[r.Hour]
		if !ok {
			a = &acc{}
			byHour[r.Hour] = a
		}
		a.total += r.ConsumptionKWH
		a.count++
	}

	hours := make([]int, 0, len(byHour))
	for h := range byHour {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	aggs := make([]DistrictHourAggregate, 0, len(hours))
	for _, h := range hours {
		a := byHour[h]
		aggs = append(aggs, DistrictHourAggregate{
			City:         g.Key.City,
			District:     g.Key.District,
			Date:         g.Key.Date,
			Hour:         h,
			TotalKWH:     a.total,
			MeanKWH:      a.total / float64(a.count),
			ReadingCount: a.count,
		})
	}
	return aggs
}

// AggregateDay folds a district-day's hour aggregates into one day row.
// ok is false when there are no hour aggregates: a district-day with zero
// valid readings produces no entry, never a zero-value one. The peak hour is
// the hour with the highest total; ties go to the lowest hour number.
func AggregateDay(hours []DistrictHourAggregate) (DistrictDayAggregate, bool) {
	if len(hours) == 0 {
		return DistrictDayAggregate{}, false
	}

	day := DistrictDayAggregate{
		City:     hours[0].City,
		District: hours[0].District,
		Date:     hours[0].Date,
		PeakHour: hours[0].Hour,
		PeakKWH:  hours[0].TotalKWH,
	}
	for _, h := range hours {
		day.TotalKWH += h.TotalKWH
		// hours arrive sorted ascending, so strict > keeps the lowest
		// hour on ties
		if h.TotalKWH > day.PeakKWH {
			day.PeakHour = h.Hour
			day.PeakKWH = h.TotalKWH
		}
	}
	return day, true
}

// AggregateCities folds district-day aggregates into per-(city, date) rows,
// joined with threshold-violation counts from the risk flags. Output is
// sorted by city then date.
func AggregateCities(days []DistrictDayAggregate, flags []RiskFlag) []CityDayAggregate {
	type cityDate struct {
		city, date string
	}
	byKey := make(map[cityDate]*CityDayAggregate)
	var order []cityDate

	for _, d := range days {
		key := cityDate{city: d.City, date: d.Date}
		agg, ok := byKey[key]
		if !ok {
			agg = &CityDayAggregate{City: d.City, Date: d.Date}
			byKey[key] = agg
			order = append(order, key)
		}
		agg.TotalKWH += d.TotalKWH
		agg.DistrictCount++
	}

	for _, f := range flags {
		if f.Kind != RiskThresholdViolation {
			continue
		}
		if agg, ok := byKey[cityDate{city: f.City, date: f.Date}]; ok {
			agg.ViolationCount++
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].city != order[j].city {
			return order[i].city < order[j].city
		}
		return order[i].date < order[j].date
	})

	aggs := make([]CityDayAggregate, 0, len(order))
	for _, key := range order {
		aggs = append(aggs, *byKey[key])
	}
	return aggs
}
