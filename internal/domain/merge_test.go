package domain_test

import (
	"testing"

	"github.com/gridsight/consumption-analyzer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reading(city, district, date string, hour int, kwh float64) domain.Reading {
	return domain.Reading{
		City:           city,
		District:       district,
		HouseholdID:    "H001",
		Date:           date,
		Hour:           hour,
		ConsumptionKWH: kwh,
	}
}

func TestMergeGroups_JoinsOnExactKey(t *testing.T) {
	readings := []domain.Reading{
		reading("City1", "101", "2025-09-10", 5, 1.0),
		reading("City1", "102", "2025-09-10", 6, 2.0),
		reading("City1", "101", "2025-09-10", 7, 3.0),
	}
	metadata := []domain.DistrictMetadata{
		{City: "City1", District: "101", Date: "2025-09-10", ThresholdKWH: 100, CriticalHours: []int{18}},
		{City: "City1", District: "101", Date: "2025-09-11", ThresholdKWH: 100}, // wrong day, no match
	}

	groups := domain.MergeGroups(readings, metadata)

	require.Len(t, groups, 2)
	assert.Equal(t, domain.GroupKey{City: "City1", District: "101", Date: "2025-09-10"}, groups[0].Key)
	require.NotNil(t, groups[0].Metadata)
	assert.Equal(t, 100.0, groups[0].Metadata.ThresholdKWH)
	assert.Len(t, groups[0].Readings, 2)

	// 102 has no metadata: retained, not dropped
	assert.Equal(t, "102", groups[1].Key.District)
	assert.Nil(t, groups[1].Metadata)
	assert.Len(t, groups[1].Readings, 1)
}

func TestMergeGroups_PreservesReadingOrder(t *testing.T) {
	readings := []domain.Reading{
		reading("City1", "101", "2025-09-10", 9, 3.0),
		reading("City1", "101", "2025-09-10", 5, 1.0),
		reading("City1", "101", "2025-09-10", 7, 2.0),
	}

	groups := domain.MergeGroups(readings, nil)

	require.Len(t, groups, 1)
	hours := []int{groups[0].Readings[0].Hour, groups[0].Readings[1].Hour, groups[0].Readings[2].Hour}
	assert.Equal(t, []int{9, 5, 7}, hours)
}

func TestMergeGroups_SortedByKey(t *testing.T) {
	readings := []domain.Reading{
		reading("City2", "101", "2025-09-10", 0, 1.0),
		reading("City1", "102", "2025-09-10", 0, 1.0),
		reading("City1", "101", "2025-09-11", 0, 1.0),
		reading("City1", "101", "2025-09-10", 0, 1.0),
	}

	groups := domain.MergeGroups(readings, nil)

	require.Len(t, groups, 4)
	keys := make([]domain.GroupKey, 0, len(groups))
	for _, g := range groups {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []domain.GroupKey{
		{City: "City1", District: "101", Date: "2025-09-10"},
		{City: "City1", District: "101", Date: "2025-09-11"},
		{City: "City1", District: "102", Date: "2025-09-10"},
		{City: "City2", District: "101", Date: "2025-09-10"},
	}, keys)
}

func TestMergeGroups_MetadataWithoutReadingsProducesNoGroup(t *testing.T) {
	metadata := []domain.DistrictMetadata{
		{City: "City1", District: "101", Date: "2025-09-10", ThresholdKWH: 100},
	}

	groups := domain.MergeGroups(nil, metadata)

	assert.Empty(t, groups)
}
