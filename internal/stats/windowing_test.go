package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMonthBoundary(t *testing.T) {
	tests := []struct {
		year    int
		month   time.Month
		lastDay int
	}{
		{2025, time.January, 31},
		{2025, time.February, 28},
		{2024, time.February, 29},
		{2025, time.April, 30},
		{2025, time.December, 31},
	}
	for _, tt := range tests {
		b := NewMonthBoundary(tt.year, tt.month)
		assert.Equal(t, time.Date(tt.year, tt.month, 1, 0, 0, 0, 0, time.UTC), b.Start)
		assert.Equal(t, time.Date(tt.year, tt.month, tt.lastDay, 23, 59, 59, 999999000, time.UTC), b.End)
	}
}

func TestGenerateMonthBoundaries(t *testing.T) {
	start := time.Date(2024, 11, 15, 10, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)

	months := GenerateMonthBoundaries(start, end)
	require.Len(t, months, 4)

	keys := make([]string, len(months))
	for i, m := range months {
		keys[i] = m.Key()
	}
	assert.Equal(t, []string{"2024-11", "2024-12", "2025-01", "2025-02"}, keys)

	// contiguous, no gaps or overlaps
	for i := 1; i < len(months); i++ {
		assert.Equal(t, months[i-1].End.Add(time.Microsecond), months[i].Start)
	}
}

func TestGenerateMonthBoundaries_Edges(t *testing.T) {
	single := GenerateMonthBoundaries(
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC),
	)
	require.Len(t, single, 1)
	assert.Equal(t, "Mar 2025", single[0].GenerateLabel())

	assert.Empty(t, GenerateMonthBoundaries(
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	))

	// a start late on the last day in a positive offset still belongs to that UTC month
	berlin := time.FixedZone("CET", 3600)
	months := GenerateMonthBoundaries(
		time.Date(2025, 2, 1, 0, 30, 0, 0, berlin),
		time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
	)
	assert.Equal(t, "2025-01", months[0].Key())

	now := time.Now().UTC()
	toNow := GenerateMonthBoundaries(time.Date(now.Year(), now.Month()-2, 1, 0, 0, 0, 0, time.UTC), time.Time{})
	require.Len(t, toNow, 3)
	assert.True(t, toNow[2].IsPartial())
}

func TestParseMonthKey(t *testing.T) {
	b, err := ParseMonthKey("2025-02")
	require.NoError(t, err)
	assert.Equal(t, 2025, b.Year)
	assert.Equal(t, time.February, b.Month)
	assert.True(t, b.Contains(time.Date(2025, 2, 28, 23, 59, 59, 999999000, time.UTC)))
	assert.False(t, b.Contains(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))

	_, err = ParseMonthKey("02/2025")
	assert.Error(t, err)
}
