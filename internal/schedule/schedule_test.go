package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lkacz/PersonalFreedom-sub000/internal/domain"
)

// mustTime builds a time on a known calendar week:
// 2026-08-24 is a Monday (weekday index 0).
func mustTime(t *testing.T, day int, clock string) time.Time {
	t.Helper()
	parsed, err := time.Parse("15:04", clock)
	require.NoError(t, err)
	return time.Date(2026, 8, 24+day, parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
}

func TestWeekdayIndex(t *testing.T) {
	// Monday maps to 0, Sunday to 6.
	assert.Equal(t, 0, WeekdayIndex(mustTime(t, 0, "12:00")))
	assert.Equal(t, 1, WeekdayIndex(mustTime(t, 1, "12:00")))
	assert.Equal(t, 5, WeekdayIndex(mustTime(t, 5, "12:00")))
	assert.Equal(t, 6, WeekdayIndex(mustTime(t, 6, "12:00")))
}

func TestIsWithinSchedule_SameDayWindow(t *testing.T) {
	schedules := []domain.Schedule{
		{ID: "work", Days: []int{1}, Start: "09:00", End: "17:00", Enabled: true},
	}

	tests := []struct {
		name   string
		day    int
		clock  string
		within bool
	}{
		{"tuesday before start", 1, "08:59", false},
		{"tuesday at start", 1, "09:00", true},
		{"tuesday midday", 1, "12:30", true},
		{"tuesday at end", 1, "17:00", true},
		{"tuesday after end", 1, "17:01", false},
		{"wednesday midday", 2, "12:30", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsWithinSchedule(schedules, mustTime(t, tt.day, tt.clock))
			assert.Equal(t, tt.within, got)
		})
	}
}

func TestIsWithinSchedule_OvernightWindow(t *testing.T) {
	// Friday 22:00 to 06:00 is anchored on Friday: it covers Friday night
	// and Saturday early morning, not Thursday night.
	schedules := []domain.Schedule{
		{ID: "night", Days: []int{4}, Start: "22:00", End: "06:00", Enabled: true},
	}

	tests := []struct {
		name   string
		day    int
		clock  string
		within bool
	}{
		{"friday before window", 4, "21:59", false},
		{"friday in window", 4, "23:00", true},
		{"saturday early morning", 5, "05:00", true},
		{"saturday at end", 5, "06:00", true},
		{"saturday after end", 5, "06:01", false},
		{"friday early morning not covered", 4, "05:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsWithinSchedule(schedules, mustTime(t, tt.day, tt.clock))
			assert.Equal(t, tt.within, got)
		})
	}
}

func TestIsWithinSchedule_SkipsUnusable(t *testing.T) {
	now := mustTime(t, 1, "12:00")

	tests := []struct {
		name     string
		schedule domain.Schedule
	}{
		{"disabled", domain.Schedule{Days: []int{1}, Start: "09:00", End: "17:00", Enabled: false}},
		{"zero width", domain.Schedule{Days: []int{1}, Start: "12:00", End: "12:00", Enabled: true}},
		{"bad clock", domain.Schedule{Days: []int{1}, Start: "9am", End: "17:00", Enabled: true}},
		{"day out of range", domain.Schedule{Days: []int{7}, Start: "09:00", End: "17:00", Enabled: true}},
		{"no days", domain.Schedule{Days: nil, Start: "09:00", End: "17:00", Enabled: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, IsWithinSchedule([]domain.Schedule{tt.schedule}, now))
		})
	}
}

func TestIsWithinSchedule_AnyMatchWins(t *testing.T) {
	schedules := []domain.Schedule{
		{ID: "a", Days: []int{0}, Start: "09:00", End: "10:00", Enabled: true},
		{ID: "b", Days: []int{1}, Start: "11:00", End: "13:00", Enabled: true},
	}
	assert.True(t, IsWithinSchedule(schedules, mustTime(t, 1, "12:00")))
	assert.False(t, IsWithinSchedule(nil, mustTime(t, 1, "12:00")))
}

func TestValidateClock(t *testing.T) {
	assert.NoError(t, ValidateClock("00:00"))
	assert.NoError(t, ValidateClock("23:59"))
	assert.Error(t, ValidateClock("24:00"))
	assert.Error(t, ValidateClock("9:00"))
	assert.Error(t, ValidateClock("09:60"))
	assert.Error(t, ValidateClock("0900"))
	assert.Error(t, ValidateClock(""))
}

func TestValidateDays(t *testing.T) {
	assert.NoError(t, ValidateDays([]int{0, 6}))
	assert.Error(t, ValidateDays(nil))
	assert.Error(t, ValidateDays([]int{-1}))
	assert.Error(t, ValidateDays([]int{7}))
}
