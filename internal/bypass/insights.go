package bypass

import (
	"fmt"
	"strconv"
	"time"
)

// Insights derives human-readable observations from the aggregate: the
// top distraction site, the peak time-of-day bucket, and the trend inside
// the trailing 7-day window. Read-only, never mutates state.
func (s *Stats) Insights(now time.Time) []string {
	s.mu.Lock()
	bySite := make(map[string]int, len(s.data.AttemptsBySite))
	for k, v := range s.data.AttemptsBySite {
		bySite[k] = v
	}
	byHour := make(map[string]int, len(s.data.AttemptsByHour))
	for k, v := range s.data.AttemptsByHour {
		byHour[k] = v
	}
	daily := make(map[string]int, len(s.data.DailyAttempts))
	for k, v := range s.data.DailyAttempts {
		daily[k] = v
	}
	total := s.data.TotalAttempts
	s.mu.Unlock()

	if total == 0 {
		return []string{"No bypass attempts recorded yet. Your focus is holding!"}
	}

	var insights []string

	if top := topSites(bySite, 1); len(top) > 0 {
		insights = append(insights, fmt.Sprintf(
			"Your biggest distraction is %s (%d blocked attempts).",
			top[0].Host, top[0].Count))
	}

	if bucket := peakBucket(byHour); bucket != "" {
		insights = append(insights, fmt.Sprintf(
			"Most bypass attempts happen in the %s.", bucket))
	}

	if trend := weeklyTrend(daily, now); trend != "" {
		insights = append(insights, trend)
	}

	return insights
}

// peakBucket folds the hourly counters into coarse day parts: morning
// before 12:00, afternoon before 17:00, evening otherwise.
func peakBucket(byHour map[string]int) string {
	var morning, afternoon, evening int
	for key, count := range byHour {
		hour, err := strconv.Atoi(key)
		if err != nil || hour < 0 || hour > 23 {
			continue
		}
		switch {
		case hour < 12:
			morning += count
		case hour < 17:
			afternoon += count
		default:
			evening += count
		}
	}

	switch {
	case morning == 0 && afternoon == 0 && evening == 0:
		return ""
	case morning >= afternoon && morning >= evening:
		return "morning"
	case afternoon >= evening:
		return "afternoon"
	default:
		return "evening"
	}
}

// weeklyTrend compares the first three days of the trailing 7-day window
// against the last three, flagging a change above 30% in either direction.
func weeklyTrend(daily map[string]int, now time.Time) string {
	var early, late int
	for offset := 6; offset >= 4; offset-- {
		early += daily[now.AddDate(0, 0, -offset).Format(dateFormat)]
	}
	for offset := 2; offset >= 0; offset-- {
		late += daily[now.AddDate(0, 0, -offset).Format(dateFormat)]
	}

	if early == 0 {
		return ""
	}

	change := float64(late-early) / float64(early) * 100
	switch {
	case change > 30:
		return fmt.Sprintf("Bypass attempts are up %.0f%% over the last week. Stay vigilant!", change)
	case change < -30:
		return fmt.Sprintf("Bypass attempts are down %.0f%% over the last week. Great progress!", -change)
	default:
		return ""
	}
}
