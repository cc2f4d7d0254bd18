package bypass

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func insightsFixture(t *testing.T) *Stats {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "insights-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })
	return NewStatsWithPath(filepath.Join(tmpDir, "stats.json"), zap.NewNop())
}

func TestInsights_EmptyState(t *testing.T) {
	stats := insightsFixture(t)

	insights := stats.Insights(time.Now())
	require.Len(t, insights, 1)
	assert.Contains(t, insights[0], "No bypass attempts recorded yet")
}

func TestInsights_TopDistraction(t *testing.T) {
	stats := insightsFixture(t)
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		stats.Record(attemptAt("facebook.com", now))
	}
	stats.Record(attemptAt("reddit.com", now))

	insights := stats.Insights(now)
	require.NotEmpty(t, insights)
	assert.Contains(t, insights[0], "facebook.com")
	assert.Contains(t, insights[0], "3 blocked attempts")
}

func TestInsights_PeakTimeOfDay(t *testing.T) {
	tests := []struct {
		name   string
		hours  []int
		bucket string
	}{
		{"morning heavy", []int{8, 9, 10, 14}, "morning"},
		{"afternoon heavy", []int{9, 13, 14, 15}, "afternoon"},
		{"evening heavy", []int{10, 18, 21, 23}, "evening"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := insightsFixture(t)
			day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
			for _, hour := range tt.hours {
				stats.Record(attemptAt("facebook.com", day.Add(time.Duration(hour)*time.Hour)))
			}

			insights := stats.Insights(day)
			found := false
			for _, insight := range insights {
				if insight == "Most bypass attempts happen in the "+tt.bucket+"." {
					found = true
				}
			}
			assert.True(t, found, "expected %s bucket in %v", tt.bucket, insights)
		})
	}
}

func TestPeakBucket_MorningWinsTies(t *testing.T) {
	assert.Equal(t, "morning", peakBucket(map[string]int{"9": 2, "14": 2}))
	assert.Equal(t, "afternoon", peakBucket(map[string]int{"14": 2, "20": 2}))
	assert.Equal(t, "", peakBucket(map[string]int{}))
	assert.Equal(t, "", peakBucket(map[string]int{"bogus": 5, "25": 3}))
}

func TestWeeklyTrend(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	day := func(offset int) string {
		return now.AddDate(0, 0, -offset).Format(dateFormat)
	}

	t.Run("rising flagged", func(t *testing.T) {
		daily := map[string]int{day(6): 2, day(5): 2, day(1): 5, day(0): 5}
		msg := weeklyTrend(daily, now)
		assert.Contains(t, msg, "up 150%")
		assert.Contains(t, msg, "Stay vigilant")
	})

	t.Run("falling flagged", func(t *testing.T) {
		daily := map[string]int{day(6): 5, day(5): 5, day(0): 2}
		msg := weeklyTrend(daily, now)
		assert.Contains(t, msg, "down 80%")
		assert.Contains(t, msg, "Great progress")
	})

	t.Run("small change ignored", func(t *testing.T) {
		daily := map[string]int{day(6): 10, day(0): 11}
		assert.Equal(t, "", weeklyTrend(daily, now))
	})

	t.Run("no baseline ignored", func(t *testing.T) {
		daily := map[string]int{day(0): 50}
		assert.Equal(t, "", weeklyTrend(daily, now))
	})

	// The middle day of the window belongs to neither half.
	t.Run("middle day excluded", func(t *testing.T) {
		daily := map[string]int{day(6): 4, day(3): 100, day(0): 4}
		assert.Equal(t, "", weeklyTrend(daily, now))
	})
}
