package domain

import "sort"

// MergeGroups joins readings with district metadata on the exact
// (city, district, date) key. Readings keep their original relative order
// within a group; groups come back sorted by key so downstream folds are
// independent of input ordering. A group with no matching metadata keeps
// Metadata nil and is surfaced downstream as unevaluated rather than dropped.
//
// Metadata with no readings produces no group: a district-day with zero
// valid readings has nothing to aggregate or evaluate.
func MergeGroups(readings []Reading, metadata []DistrictMetadata) []MergedGroup {
	byKey := make(map[GroupKey]*MergedGroup)
	var order []GroupKey

	for _, r := range readings {
		key := GroupKey{City: r.City, District: r.District, Date: r.Date}
		group, ok := byKey[key]
		if !ok {
			group = &MergedGroup{Key: key}
			byKey[key] = group
			order = append(order, key)
		}
		group.Readings = append(group.Readings, r)
	}

	for i := range metadata {
		meta := metadata[i]
		key := GroupKey{City: meta.City, District: meta.District, Date: meta.Date}
		if group, ok := byKey[key]; ok {
			group.Metadata = &meta
		}
	}

	sort.Slice(order, func(i, j int) bool { return lessKey(order[i], order[j]) })

	groups := make([]MergedGroup, 0, len(order))
	for _, key := range order {
		groups = append(groups, *byKey[key])
	}
	return groups
}

func lessKey(a, b GroupKey) bool {
	if a.City != b.City {
		return a.City < b.City
	}
	if a.District != b.District {
		return a.District < b.District
	}
	return a.Date < b.Date
}
