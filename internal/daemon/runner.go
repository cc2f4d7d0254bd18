// Package daemon implements the foreground session runner loop.
package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lkacz/PersonalFreedom-sub000/internal/domain"
	"github.com/lkacz/PersonalFreedom-sub000/internal/schedule"
	"github.com/lkacz/PersonalFreedom-sub000/internal/usecase"
)

// RunnerConfig holds runner loop configuration.
type RunnerConfig struct {
	ScheduleCheckInterval   time.Duration // How often to evaluate schedules
	CompletionCheckInterval time.Duration // How often to check the session timer
	StatsFlushInterval      time.Duration // How often to flush bypass stats
}

// DefaultRunnerConfig returns default runner configuration.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		ScheduleCheckInterval:   30 * time.Second,
		CompletionCheckInterval: 5 * time.Second,
		StatsFlushInterval:      5 * time.Minute,
	}
}

// Runner drives unattended enforcement: it auto-starts sessions when a
// schedule window opens, auto-stops schedule-started sessions when the
// window closes, completes timed sessions when their planned duration
// elapses, and periodically flushes bypass stats.
//
// Only sessions the runner itself started are stopped on window close;
// manually started sessions end through their own timer or an explicit
// Stop.
type Runner struct {
	config            RunnerConfig
	engine            *usecase.Engine
	logger            *zap.Logger
	startedBySchedule bool
}

// NewRunner creates a session runner.
func NewRunner(config RunnerConfig, engine *usecase.Engine, logger *zap.Logger) *Runner {
	return &Runner{config: config, engine: engine, logger: logger}
}

// Run starts the runner loop. This blocks until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("session runner started")

	// Evaluate schedules immediately so a restart inside an open window
	// resumes enforcement without waiting for the first tick.
	r.checkSchedules()

	scheduleTicker := time.NewTicker(r.config.ScheduleCheckInterval)
	completionTicker := time.NewTicker(r.config.CompletionCheckInterval)
	flushTicker := time.NewTicker(r.config.StatsFlushInterval)
	defer func() {
		scheduleTicker.Stop()
		completionTicker.Stop()
		flushTicker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("session runner stopping")
			return ctx.Err()

		case <-scheduleTicker.C:
			r.checkSchedules()

		case <-completionTicker.C:
			r.checkCompletion()

		case <-flushTicker.C:
			r.engine.FlushStats()
		}
	}
}

// checkSchedules starts enforcement when an enabled window is open and
// no session is active, and stops a runner-started session once every
// window has closed.
func (r *Runner) checkSchedules() {
	within := schedule.IsWithinSchedule(r.engine.Config().Schedules, time.Now())
	state := r.engine.State()

	switch {
	case within && state == domain.StateIdle:
		// Open-ended session: the closing window ends it.
		count, err := r.engine.Start(0)
		if err != nil {
			r.logger.Warn("scheduled session start failed", zap.Error(err))
			return
		}
		r.startedBySchedule = true
		r.logger.Info("scheduled session started", zap.Int("blocked", count))

	case !within && state == domain.StateBlocking && r.startedBySchedule:
		if err := r.engine.Stop("", true); err != nil {
			r.logger.Warn("scheduled session stop failed", zap.Error(err))
			return
		}
		r.startedBySchedule = false
		r.logger.Info("scheduled session ended")

	case state == domain.StateIdle:
		// A manual Stop ended the session; forget our claim on it.
		r.startedBySchedule = false
	}
}

// checkCompletion force-stops a timed session whose planned duration has
// elapsed. Natural completion needs no re-authentication.
func (r *Runner) checkCompletion() {
	status := r.engine.Status()
	if status.State != domain.StateBlocking || status.PlannedDuration <= 0 {
		return
	}
	if status.Remaining > 0 {
		return
	}

	if err := r.engine.Stop("", true); err != nil {
		r.logger.Warn("session completion stop failed", zap.Error(err))
		return
	}
	r.startedBySchedule = false
	r.logger.Info("session completed",
		zap.Duration("planned", status.PlannedDuration))
}
