// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"encoding/json"
	"time"
)

// ConfigSchemaVersion is written into every persisted config file.
const ConfigSchemaVersion = 1

// EnforcementMode selects how a focus session is enforced.
type EnforcementMode string

const (
	// ModeFull patches the hosts file (requires elevated privileges).
	ModeFull EnforcementMode = "full"
	// ModeLight only observes and notifies, never touches the hosts file.
	ModeLight EnforcementMode = "light"
)

// EngineState is the enforcement engine's lifecycle state.
type EngineState string

const (
	StateIdle     EngineState = "idle"
	StateBlocking EngineState = "blocking"
)

// Schedule is a recurring weekly enforcement window.
// Days use 0=Monday .. 6=Sunday. Start and End are zero-padded "HH:MM"
// clock strings; Start > End means the window crosses midnight and is
// anchored on the day it starts. Start == End is a zero-width window and
// never matches.
type Schedule struct {
	ID      string `json:"id"`
	Days    []int  `json:"days"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Enabled bool   `json:"enabled"`
}

// PomodoroDefaults are session timing defaults carried in the config.
// The enforcement core persists them but does not interpret them.
type PomodoroDefaults struct {
	WorkMinutes       int `json:"work_minutes"`
	ShortBreakMinutes int `json:"short_break_minutes"`
	LongBreakMinutes  int `json:"long_break_minutes"`
}

// EnforcementConfig is the durable enforcement configuration.
//
// The effective block set (Blacklist plus sites of enabled categories,
// minus Whitelist) is derived on demand and never persisted.
//
// Extra holds top-level JSON fields owned by external collaborators
// (gamification, health tracking). They round-trip losslessly through
// Load/Save but are never interpreted here.
type EnforcementConfig struct {
	SchemaVersion     int                        `json:"schema_version"`
	LastModified      string                     `json:"last_modified"`
	Blacklist         []string                   `json:"blacklist"`
	Whitelist         []string                   `json:"whitelist"`
	CategoriesEnabled map[string]bool            `json:"categories_enabled"`
	PasswordHash      string                     `json:"password_hash,omitempty"`
	EnforcementMode   EnforcementMode            `json:"enforcement_mode"`
	Schedules         []Schedule                 `json:"schedules"`
	Pomodoro          PomodoroDefaults           `json:"pomodoro"`
	Extra             map[string]json.RawMessage `json:"-"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *EnforcementConfig {
	return &EnforcementConfig{
		SchemaVersion:     ConfigSchemaVersion,
		Blacklist:         []string{},
		Whitelist:         []string{},
		CategoriesEnabled: map[string]bool{},
		EnforcementMode:   ModeFull,
		Schedules:         []Schedule{},
		Pomodoro: PomodoroDefaults{
			WorkMinutes:       25,
			ShortBreakMinutes: 5,
			LongBreakMinutes:  15,
		},
	}
}

// knownConfigKeys are the top-level JSON keys this core owns.
var knownConfigKeys = []string{
	"schema_version", "last_modified", "blacklist", "whitelist",
	"categories_enabled", "password_hash", "enforcement_mode",
	"schedules", "pomodoro",
}

// configAlias breaks the MarshalJSON/UnmarshalJSON recursion.
type configAlias EnforcementConfig

// UnmarshalJSON decodes the known fields and stashes everything else in
// Extra so collaborator-owned fields survive a load/save round trip.
func (c *EnforcementConfig) UnmarshalJSON(data []byte) error {
	var alias configAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range knownConfigKeys {
		delete(raw, key)
	}
	if len(raw) > 0 {
		alias.Extra = raw
	}

	*c = EnforcementConfig(alias)
	return nil
}

// MarshalJSON merges the known fields with the preserved Extra fields.
func (c EnforcementConfig) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(configAlias(c))
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return data, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range c.Extra {
		if _, owned := merged[key]; !owned {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// SessionState is the crash-recovery marker written while enforcement is
// active and deleted on clean stop. Its existence at startup, combined
// with PID liveness and hosts-file inspection, is the crash signal.
type SessionState struct {
	SessionID       string          `json:"session_id"`
	StartTime       time.Time       `json:"start_time"`
	PlannedDuration int             `json:"planned_duration"`
	Mode            EnforcementMode `json:"mode"`
	PID             int             `json:"pid"`
}

// BypassAttempt is one request observed by the loopback listener.
type BypassAttempt struct {
	Timestamp time.Time `json:"timestamp"`
	Host      string    `json:"host"`
	Path      string    `json:"path"`
}

// SessionSummary is appended to the stats history when the listener stops.
type SessionSummary struct {
	Date          string `json:"date"`
	AttemptCount  int    `json:"attempt_count"`
	DistinctSites int    `json:"distinct_sites"`
}

// BypassStats is the aggregated, persisted view of bypass attempts.
// Hour keys are "0".."23"; daily keys are "2006-01-02" dates.
type BypassStats struct {
	TotalAttempts  int              `json:"total_attempts"`
	AttemptsBySite map[string]int   `json:"attempts_by_site"`
	AttemptsByHour map[string]int   `json:"attempts_by_hour"`
	DailyAttempts  map[string]int   `json:"daily_attempts"`
	SessionHistory []SessionSummary `json:"session_history"`
}

// NewBypassStats returns an empty, fully initialized stats record.
func NewBypassStats() BypassStats {
	return BypassStats{
		AttemptsBySite: map[string]int{},
		AttemptsByHour: map[string]int{},
		DailyAttempts:  map[string]int{},
		SessionHistory: []SessionSummary{},
	}
}

// SiteCount pairs a hostname with its attempt count.
type SiteCount struct {
	Host  string `json:"host"`
	Count int    `json:"count"`
}

// HourCount pairs an hour of day (0..23) with its attempt count.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// DayCount pairs a date ("2006-01-02") with its attempt count.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Statistics is the read-only derived view served to callers.
type Statistics struct {
	TotalAttempts       int         `json:"total_attempts"`
	TopSites            []SiteCount `json:"top_sites"`
	TopHours            []HourCount `json:"top_hours"`
	Last7Days           []DayCount  `json:"last_7_days"`
	CurrentSessionCount int         `json:"current_session_count"`
	CurrentSessionSites []string    `json:"current_session_sites"`
}

// EngineStatus reports the engine state to external callers (UI, CLI).
type EngineStatus struct {
	State           EngineState     `json:"state"`
	Mode            EnforcementMode `json:"mode"`
	SessionID       string          `json:"session_id,omitempty"`
	StartedAt       time.Time       `json:"started_at,omitempty"`
	PlannedDuration time.Duration   `json:"planned_duration,omitempty"`
	Remaining       time.Duration   `json:"remaining,omitempty"`
	BlockedCount    int             `json:"blocked_count"`
	ListenerPort    int             `json:"listener_port,omitempty"`
}
