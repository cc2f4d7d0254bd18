// Package usecase contains application business logic.
package usecase

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/lkacz/PersonalFreedom-sub000/internal/bypass"
	"github.com/lkacz/PersonalFreedom-sub000/internal/category"
	"github.com/lkacz/PersonalFreedom-sub000/internal/domain"
)

// Engine is the enforcement state machine: Idle -> Blocking -> Idle, with
// the enforcement mode fixed for the duration of a Blocking period.
//
// Its mutex serializes Start/Stop/EmergencyCleanup and thereby the
// hosts-file read-modify-write: the hosts file has single-writer
// discipline and no OS-level locking.
type Engine struct {
	mu           sync.Mutex
	state        domain.EngineState
	mode         domain.EnforcementMode
	sessionID    string
	startedAt    time.Time
	planned      time.Duration
	blockedCount int

	config      *domain.EnforcementConfig
	configStore domain.ConfigStore
	patcher     domain.HostsPatcher
	sessions    domain.SessionStore
	server      *bypass.Server
	stats       *bypass.Stats
	categories  *category.Registry
	privileges  domain.PrivilegeChecker
	processes   domain.ProcessManager
	logger      *zap.Logger
}

// NewEngine wires the enforcement engine and loads the configuration.
func NewEngine(
	configStore domain.ConfigStore,
	patcher domain.HostsPatcher,
	sessions domain.SessionStore,
	server *bypass.Server,
	stats *bypass.Stats,
	categories *category.Registry,
	privileges domain.PrivilegeChecker,
	processes domain.ProcessManager,
	logger *zap.Logger,
) (*Engine, error) {
	cfg, err := configStore.Load()
	if err != nil {
		return nil, err
	}

	return &Engine{
		state:       domain.StateIdle,
		config:      cfg,
		configStore: configStore,
		patcher:     patcher,
		sessions:    sessions,
		server:      server,
		stats:       stats,
		categories:  categories,
		privileges:  privileges,
		processes:   processes,
		logger:      logger,
	}, nil
}

// Start begins a focus session. In Full mode it patches the hosts file,
// flushes the DNS cache, persists the session state, and starts the
// bypass listener before returning; a crash immediately after Start
// returns is therefore still detected as "blocking was active". Returns
// the number of hostnames written (0 in Light mode).
func (e *Engine) Start(planned time.Duration) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == domain.StateBlocking {
		return 0, domain.NewStateError("A focus session is already active!")
	}

	blockSet := category.EffectiveBlockSet(e.config, e.categories)
	if len(blockSet) == 0 {
		return 0, domain.NewValidationError("No sites to block!")
	}

	mode := e.config.EnforcementMode
	sessionID := uuid.NewString()
	state := domain.SessionState{
		SessionID:       sessionID,
		StartTime:       time.Now(),
		PlannedDuration: int(planned.Seconds()),
		Mode:            mode,
		PID:             e.processes.CurrentPID(),
	}

	if mode == domain.ModeLight {
		// Pure observation: no hosts-file edit, no privileges needed.
		if err := e.sessions.Begin(state); err != nil {
			return 0, err
		}
		e.enterBlocking(state, planned, 0)
		e.logger.Info("light session started",
			zap.String("session_id", sessionID),
			zap.Duration("planned", planned))
		return 0, nil
	}

	if !e.privileges.IsElevated() {
		return 0, domain.NewPrivilegeError("Administrator privileges required!")
	}

	count, err := e.patcher.Apply(blockSet)
	if err != nil {
		return 0, err
	}
	e.patcher.FlushResolverCache()

	if err := e.sessions.Begin(state); err != nil {
		// Roll back: a session that was never recorded must not leave
		// the hosts file patched.
		if rmErr := e.patcher.Remove(); rmErr != nil {
			e.logger.Error("failed to roll back hosts file", zap.Error(rmErr))
		}
		return 0, err
	}

	if _, listenErr := e.server.Start(bypass.DefaultPort); listenErr != nil {
		// Non-fatal: enforcement continues without bypass logging.
		e.logger.Warn("bypass listener unavailable", zap.Error(listenErr))
	}

	e.enterBlocking(state, planned, count)
	e.logger.Info("full session started",
		zap.String("session_id", sessionID),
		zap.Int("blocked", count),
		zap.Duration("planned", planned))
	return count, nil
}

func (e *Engine) enterBlocking(state domain.SessionState, planned time.Duration, count int) {
	e.state = domain.StateBlocking
	e.mode = state.Mode
	e.sessionID = state.SessionID
	e.startedAt = state.StartTime
	e.planned = planned
	e.blockedCount = count
}

// Stop ends the active session. When a password hash is configured,
// stopping requires the password unless force is set; force is reserved
// for natural timer completion, where no re-authentication is needed.
// The hosts-file section and the session-state file are both gone before
// Stop returns success.
func (e *Engine) Stop(password string, force bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != domain.StateBlocking {
		return domain.NewStateError("No active focus session.")
	}

	if e.config.PasswordHash != "" && !force {
		if bcrypt.CompareHashAndPassword([]byte(e.config.PasswordHash), []byte(password)) != nil {
			return domain.NewStateError("Incorrect password!")
		}
	}

	if e.mode == domain.ModeFull {
		if !e.privileges.IsElevated() {
			return domain.NewPrivilegeError("Administrator privileges required!")
		}
		if err := e.patcher.Remove(); err != nil {
			return err
		}
		e.patcher.FlushResolverCache()
		if err := e.server.Stop(); err != nil {
			e.logger.Warn("bypass listener stop failed", zap.Error(err))
		}
	}

	if err := e.sessions.End(); err != nil {
		return err
	}

	e.logger.Info("session stopped",
		zap.String("session_id", e.sessionID),
		zap.Duration("elapsed", time.Since(e.startedAt)),
		zap.Bool("forced", force))
	e.leaveBlocking()
	return nil
}

func (e *Engine) leaveBlocking() {
	e.state = domain.StateIdle
	e.sessionID = ""
	e.startedAt = time.Time{}
	e.planned = 0
	e.blockedCount = 0
}

// EmergencyCleanup is the panic button: force Idle and remove any
// hosts-file block section regardless of password or current state.
// Best-effort; sub-step failures are aggregated, not short-circuited.
func (e *Engine) EmergencyCleanup() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	if err := e.patcher.Remove(); err != nil {
		errs = append(errs, err)
	}
	e.patcher.FlushResolverCache()
	if err := e.server.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := e.sessions.End(); err != nil {
		errs = append(errs, err)
	}

	e.leaveBlocking()
	e.logger.Info("emergency cleanup completed", zap.Int("failures", len(errs)))
	return errors.Join(errs...)
}

// AdoptSession rebuilds in-memory blocking state from the persisted
// session file. Short-lived CLI processes use it so that stop, panic and
// status act on a session started by another process. Returns false when
// no session is persisted.
//
// Adoption covers the hosts file and the session file only: the bypass
// listener and the in-memory attempt buffer stay with the process that
// started the session. That process shuts the listener down and records
// the session summary when its own Stop runs, or on exit.
func (e *Engine) AdoptSession() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == domain.StateBlocking {
		return true, nil
	}
	persisted, err := e.sessions.Current()
	if err != nil || persisted == nil {
		return false, err
	}

	count := len(category.EffectiveBlockSet(e.config, e.categories))
	e.enterBlocking(*persisted,
		time.Duration(persisted.PlannedDuration)*time.Second, count)
	e.logger.Debug("adopted persisted session",
		zap.String("session_id", persisted.SessionID))
	return true, nil
}

// DetectOrphan surfaces a crashed previous run to the caller. Recovery is
// a separate explicit call, never silent.
func (e *Engine) DetectOrphan() (*domain.SessionState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions.DetectOrphan(e.patcher)
}

// RecoverFromCrash cleans up an orphaned session: session file deleted,
// hosts-file section removed, no password gate.
func (e *Engine) RecoverFromCrash() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.sessions.RecoverFromCrash(e.patcher); err != nil {
		return err
	}
	e.patcher.FlushResolverCache()
	e.leaveBlocking()
	return nil
}

// Status reports the current engine state for display.
func (e *Engine) Status() domain.EngineStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := domain.EngineStatus{
		State:        e.state,
		Mode:         e.config.EnforcementMode,
		BlockedCount: len(category.EffectiveBlockSet(e.config, e.categories)),
		ListenerPort: e.server.Port(),
	}
	if e.state == domain.StateBlocking {
		status.Mode = e.mode
		status.SessionID = e.sessionID
		status.StartedAt = e.startedAt
		status.PlannedDuration = e.planned
		status.BlockedCount = e.blockedCount
		if e.planned > 0 {
			remaining := e.planned - time.Since(e.startedAt)
			if remaining < 0 {
				remaining = 0
			}
			status.Remaining = remaining
		}
	}
	return status
}

// State returns the engine lifecycle state.
func (e *Engine) State() domain.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Statistics returns the derived bypass-attempt view.
func (e *Engine) Statistics() domain.Statistics {
	return e.stats.Statistics(time.Now())
}

// Insights returns the derived human-readable observations.
func (e *Engine) Insights() []string {
	return e.stats.Insights(time.Now())
}

// FlushStats persists the bypass aggregate immediately.
func (e *Engine) FlushStats() {
	e.stats.Flush()
}

// Config returns the in-memory configuration for display. Mutate through
// ModifyConfig so every change is persisted.
func (e *Engine) Config() *domain.EnforcementConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// Categories returns the site-category registry.
func (e *Engine) Categories() *category.Registry {
	return e.categories
}

// ModifyConfig applies mutate to the config and persists it with a
// backup. On save failure the in-memory state stays authoritative: the
// mutation is kept and the persistence error reported.
func (e *Engine) ModifyConfig(mutate func(*domain.EnforcementConfig) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := mutate(e.config); err != nil {
		return err
	}
	if err := e.configStore.Save(e.config, true); err != nil {
		e.logger.Error("config save failed, in-memory state kept", zap.Error(err))
		return err
	}
	return nil
}

// SetPassword hashes and stores the strict-mode password; empty clears it.
func (e *Engine) SetPassword(password string) error {
	var hash string
	if password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return domain.NewPersistenceError("Could not hash password.", err)
		}
		hash = string(hashed)
	}
	return e.ModifyConfig(func(cfg *domain.EnforcementConfig) error {
		cfg.PasswordHash = hash
		return nil
	})
}
