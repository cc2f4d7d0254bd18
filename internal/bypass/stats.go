// Package bypass implements the loopback listener that observes attempts
// to reach blocked hosts, and the aggregated bypass statistics.
package bypass

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lkacz/PersonalFreedom-sub000/internal/domain"
	"github.com/lkacz/PersonalFreedom-sub000/internal/infra"
)

const (
	statsFileName = "bypass_stats.json"

	// persistEvery batches stats writes: every Nth recorded attempt,
	// plus unconditionally on listener stop.
	persistEvery = 5

	// historyCap bounds session_history; oldest entries are dropped.
	historyCap = 100
)

const dateFormat = "2006-01-02"

// Stats owns the aggregated bypass-attempt counters. It is the only
// structure shared between the listener's request handlers and the
// foreground; every access goes through its mutex.
type Stats struct {
	mu       sync.Mutex
	path     string
	logger   *zap.Logger
	data     domain.BypassStats
	current  []domain.BypassAttempt
	recorded int // attempts recorded since process start, for batching
}

// NewStats creates a stats aggregate rooted at dataDir, loading any
// previously persisted counters. Corrupt stats are discarded with a log
// line; bypass statistics are informational, never worth failing over.
func NewStats(dataDir string, logger *zap.Logger) *Stats {
	return NewStatsWithPath(filepath.Join(dataDir, statsFileName), logger)
}

// NewStatsWithPath creates a stats aggregate at a specific file (for tests).
func NewStatsWithPath(path string, logger *zap.Logger) *Stats {
	s := &Stats{
		path:   path,
		logger: logger,
		data:   domain.NewBypassStats(),
	}
	s.load()
	return s
}

func (s *Stats) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read bypass stats", zap.Error(err))
		}
		return
	}

	var loaded domain.BypassStats
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Warn("discarding corrupt bypass stats", zap.Error(err))
		return
	}

	if loaded.AttemptsBySite == nil {
		loaded.AttemptsBySite = map[string]int{}
	}
	if loaded.AttemptsByHour == nil {
		loaded.AttemptsByHour = map[string]int{}
	}
	if loaded.DailyAttempts == nil {
		loaded.DailyAttempts = map[string]int{}
	}
	if loaded.SessionHistory == nil {
		loaded.SessionHistory = []domain.SessionSummary{}
	}
	s.data = loaded
}

// Record aggregates one attempt. Safe for concurrent invocation from the
// listener's request handlers.
func (s *Stats) Record(attempt domain.BypassAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.TotalAttempts++
	s.data.AttemptsBySite[attempt.Host]++
	s.data.AttemptsByHour[strconv.Itoa(attempt.Timestamp.Hour())]++
	s.data.DailyAttempts[attempt.Timestamp.Format(dateFormat)]++
	s.current = append(s.current, attempt)

	s.recorded++
	if s.recorded%persistEvery == 0 {
		s.persistLocked()
	}
}

// EndSession appends a summary of the current session to the bounded
// history, clears the current-session list, and flushes to disk.
func (s *Stats) EndSession(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	distinct := make(map[string]struct{}, len(s.current))
	for _, attempt := range s.current {
		distinct[attempt.Host] = struct{}{}
	}

	s.data.SessionHistory = append(s.data.SessionHistory, domain.SessionSummary{
		Date:          now.Format(dateFormat),
		AttemptCount:  len(s.current),
		DistinctSites: len(distinct),
	})
	if overflow := len(s.data.SessionHistory) - historyCap; overflow > 0 {
		s.data.SessionHistory = s.data.SessionHistory[overflow:]
	}

	s.current = nil
	s.persistLocked()
}

// Flush writes the aggregate to disk immediately.
func (s *Stats) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked()
}

// persistLocked writes the aggregate; the caller holds the mutex.
// Failures are logged, never propagated: losing a stats batch must not
// disturb enforcement.
func (s *Stats) persistLocked() {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		s.logger.Warn("failed to encode bypass stats", zap.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		s.logger.Warn("failed to create stats directory", zap.Error(err))
		return
	}
	if err := infra.AtomicWriteFile(s.path, data, 0600); err != nil {
		s.logger.Warn("failed to persist bypass stats", zap.Error(err))
	}
}

// Statistics derives the read-only view: top 10 sites, top 5 hours, the
// trailing 7-day trend ending at now, and the current session. Ties break
// deterministically (count descending, then key ascending).
func (s *Stats) Statistics(now time.Time) domain.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := domain.Statistics{
		TotalAttempts: s.data.TotalAttempts,
		TopSites:      topSites(s.data.AttemptsBySite, 10),
		TopHours:      topHours(s.data.AttemptsByHour, 5),
		Last7Days:     last7Days(s.data.DailyAttempts, now),
	}

	distinct := make(map[string]struct{}, len(s.current))
	for _, attempt := range s.current {
		distinct[attempt.Host] = struct{}{}
	}
	stats.CurrentSessionCount = len(s.current)
	stats.CurrentSessionSites = make([]string, 0, len(distinct))
	for host := range distinct {
		stats.CurrentSessionSites = append(stats.CurrentSessionSites, host)
	}
	sort.Strings(stats.CurrentSessionSites)

	return stats
}

func topSites(bySite map[string]int, limit int) []domain.SiteCount {
	sites := make([]domain.SiteCount, 0, len(bySite))
	for host, count := range bySite {
		sites = append(sites, domain.SiteCount{Host: host, Count: count})
	}
	sort.Slice(sites, func(i, j int) bool {
		if sites[i].Count != sites[j].Count {
			return sites[i].Count > sites[j].Count
		}
		return sites[i].Host < sites[j].Host
	})
	if len(sites) > limit {
		sites = sites[:limit]
	}
	return sites
}

func topHours(byHour map[string]int, limit int) []domain.HourCount {
	hours := make([]domain.HourCount, 0, len(byHour))
	for key, count := range byHour {
		hour, err := strconv.Atoi(key)
		if err != nil || hour < 0 || hour > 23 || count == 0 {
			continue
		}
		hours = append(hours, domain.HourCount{Hour: hour, Count: count})
	}
	sort.Slice(hours, func(i, j int) bool {
		if hours[i].Count != hours[j].Count {
			return hours[i].Count > hours[j].Count
		}
		return hours[i].Hour < hours[j].Hour
	})
	if len(hours) > limit {
		hours = hours[:limit]
	}
	return hours
}

func last7Days(daily map[string]int, now time.Time) []domain.DayCount {
	days := make([]domain.DayCount, 0, 7)
	for offset := 6; offset >= 0; offset-- {
		date := now.AddDate(0, 0, -offset).Format(dateFormat)
		days = append(days, domain.DayCount{Date: date, Count: daily[date]})
	}
	return days
}
