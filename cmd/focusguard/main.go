// Package main is the CLI entry point for focusguard.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lkacz/PersonalFreedom-sub000/internal/bypass"
	"github.com/lkacz/PersonalFreedom-sub000/internal/category"
	"github.com/lkacz/PersonalFreedom-sub000/internal/daemon"
	"github.com/lkacz/PersonalFreedom-sub000/internal/domain"
	"github.com/lkacz/PersonalFreedom-sub000/internal/infra"
	"github.com/lkacz/PersonalFreedom-sub000/internal/schedule"
	"github.com/lkacz/PersonalFreedom-sub000/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.3.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "focusguard",
	Short: "Focus-session website blocker",
	Long: `focusguard temporarily denies name resolution for distracting websites
by patching the system hosts file. Sessions survive crashes: on restart
focusguard detects whether the previous run was cleanly shut down and
offers recovery.

Full mode requires administrator privileges; light mode only observes.`,
	Version:      Version,
	SilenceUsage: true,
}

var (
	startMinutes int
	startMode    string
	startRecover bool
	stopPassword string
	stopForce    bool
	siteAllow    bool
	schedDays    string
	schedStart   string
	schedEnd     string
	jsonOutput   bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a focus session",
	Long: `Starts enforcement of the effective block set (blacklist plus enabled
categories, minus whitelist). In full mode this patches the hosts file
and starts the bypass-attempt listener; in light mode it only records
the session.`,
	RunE: runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the active focus session",
	Long: `Stops enforcement, removes the hosts-file block section, and deletes
the session state. If a strict-mode password is configured, it is
required unless --force is set.`,
	RunE: runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show enforcement status",
	RunE:  runStatus,
}

var panicCmd = &cobra.Command{
	Use:   "panic",
	Short: "Emergency cleanup: force-remove any block, no password asked",
	Long: `Unconditionally forces the engine to idle and removes any hosts-file
block section regardless of password or current state. Best-effort:
sub-step failures are reported together rather than aborting.`,
	RunE: runPanic,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the session daemon (schedules, timers, stats flushing)",
	Long: `Runs the foreground session loop: auto-starts enforcement when a
schedule window opens, stops schedule-started sessions when it closes,
completes timed sessions, and periodically flushes bypass statistics.
Stops cleanly on SIGINT/SIGTERM.`,
	RunE: runDaemon,
}

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Recover from a crashed session",
	Long: `Deletes the orphaned session state and removes the hosts-file block
section left behind by a run that terminated without stopping. Crash
recovery is never blocked by a forgotten password.`,
	RunE: runRecover,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show bypass-attempt statistics",
	RunE:  runStats,
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Show derived observations about bypass attempts",
	RunE:  runInsights,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

var siteCmd = &cobra.Command{
	Use:   "site",
	Short: "Manage blocked and exempted sites",
}

var siteAddCmd = &cobra.Command{
	Use:   "add <hostname>...",
	Short: "Add hostnames to the blacklist (or whitelist with --whitelist)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSiteAdd,
}

var siteRemoveCmd = &cobra.Command{
	Use:   "remove <hostname>...",
	Short: "Remove hostnames from the blacklist (or whitelist with --whitelist)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSiteRemove,
}

var siteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blacklist, whitelist, and the effective block set",
	RunE:  runSiteList,
}

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage site categories",
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories and their sites",
	RunE:  runCategoryList,
}

var categoryEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a category",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setCategory(args[0], true) },
}

var categoryDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a category",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setCategory(args[0], false) },
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage recurring enforcement windows",
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add --days 0,1,2,3,4 --start 09:00 --end 17:00",
	Short: "Add a weekly schedule (days: 0=Monday .. 6=Sunday)",
	Long: `Adds an enabled weekly enforcement window. A start later than the end
means the window crosses midnight and is anchored on the day it starts.`,
	RunE: runScheduleAdd,
}

var scheduleRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleRemove,
}

var scheduleToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Enable or disable a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleToggle,
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules",
	RunE:  runScheduleList,
}

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Manage the strict-mode password",
}

var passwordSetCmd = &cobra.Command{
	Use:   "set <password>",
	Short: "Set the password required to stop a session early",
	Args:  cobra.ExactArgs(1),
	RunE:  runPasswordSet,
}

var passwordClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the strict-mode password",
	RunE:  runPasswordClear,
}

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Manage the login service for the session daemon",
}

var autostartInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install 'focusguard run' as a login service (launchd/systemd)",
	RunE:  runAutostartInstall,
}

var autostartUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the login service",
	RunE:  runAutostartUninstall,
}

var autostartStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the login service is installed",
	RunE:  runAutostartStatus,
}

var modeCmd = &cobra.Command{
	Use:   "mode <full|light>",
	Short: "Set the enforcement mode",
	Args:  cobra.ExactArgs(1),
	RunE:  runMode,
}

func init() {
	startCmd.Flags().IntVar(&startMinutes, "minutes", 25, "Planned session length in minutes (0 = open-ended, default is the pomodoro work length)")
	startCmd.Flags().StringVar(&startMode, "mode", "", "Override enforcement mode for this start (full|light)")
	startCmd.Flags().BoolVar(&startRecover, "recover", false, "Auto-recover an orphaned session before starting")
	stopCmd.Flags().StringVar(&stopPassword, "password", "", "Strict-mode password")
	stopCmd.Flags().BoolVar(&stopForce, "force", false, "Skip the password gate (timer completion)")
	siteAddCmd.Flags().BoolVar(&siteAllow, "whitelist", false, "Edit the whitelist instead of the blacklist")
	siteRemoveCmd.Flags().BoolVar(&siteAllow, "whitelist", false, "Edit the whitelist instead of the blacklist")
	scheduleAddCmd.Flags().StringVar(&schedDays, "days", "", "Comma-separated weekdays, 0=Monday .. 6=Sunday")
	scheduleAddCmd.Flags().StringVar(&schedStart, "start", "", "Window start, HH:MM")
	scheduleAddCmd.Flags().StringVar(&schedEnd, "end", "", "Window end, HH:MM")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	siteCmd.AddCommand(siteAddCmd, siteRemoveCmd, siteListCmd)
	categoryCmd.AddCommand(categoryListCmd, categoryEnableCmd, categoryDisableCmd)
	scheduleCmd.AddCommand(scheduleAddCmd, scheduleRemoveCmd, scheduleToggleCmd, scheduleListCmd)
	passwordCmd.AddCommand(passwordSetCmd, passwordClearCmd)
	autostartCmd.AddCommand(autostartInstallCmd, autostartUninstallCmd, autostartStatusCmd)

	rootCmd.AddCommand(startCmd, stopCmd, statusCmd, panicCmd, runCmd,
		recoverCmd, statsCmd, insightsCmd, siteCmd, categoryCmd,
		scheduleCmd, passwordCmd, modeCmd, autostartCmd, versionCmd)
}

// newEngine wires the full enforcement stack for the detected exec mode.
func newEngine() (*usecase.Engine, *zap.Logger, error) {
	execMode := infra.DetectExecMode()
	logger := createLogger(execMode.DataDir)

	pm := infra.NewProcessManager()
	configStore := infra.NewConfigStore(execMode.DataDir, logger)
	patcher := infra.NewHostsFilePatcher(logger)
	sessions := infra.NewSessionStore(execMode.DataDir, pm, logger)
	stats := bypass.NewStats(execMode.DataDir, logger)
	server := bypass.NewServer(stats, logger)
	categories := category.NewRegistry()
	privileges := infra.NewPrivilegeChecker()

	engine, err := usecase.NewEngine(configStore, patcher, sessions,
		server, stats, categories, privileges, pm, logger)
	if err != nil {
		return nil, nil, err
	}
	return engine, logger, nil
}

// createLogger writes structured logs to a rotated file in the data dir,
// falling back to stderr when the file sink cannot be used.
func createLogger(dataDir string) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		logger, _ := zap.NewProduction()
		return logger
	}

	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(dataDir, "focusguard.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	})
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, zap.InfoLevel)
	return zap.New(core)
}

// reportOrphan runs startup reconciliation and tells the user what to do.
// Returns true when an orphan is blocking normal operation.
func reportOrphan(engine *usecase.Engine) bool {
	orphan, err := engine.DetectOrphan()
	if err != nil {
		fmt.Printf("Warning: could not check for crashed sessions: %v\n", err)
		return false
	}
	if orphan == nil {
		return false
	}

	fmt.Println("A previous focus session did not shut down cleanly.")
	if orphan.SessionID != "unknown" {
		fmt.Printf("  Session %s started %s\n",
			orphan.SessionID, orphan.StartTime.Format(time.RFC1123))
	}
	fmt.Println("  The hosts file still contains the block section.")
	fmt.Println("  Run 'focusguard recover' to clean up.")
	return true
}

func runStart(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if reportOrphan(engine) {
		if !startRecover {
			return fmt.Errorf("refusing to start over an orphaned session")
		}
		if err := engine.RecoverFromCrash(); err != nil {
			return err
		}
		fmt.Println("Orphaned session recovered.")
	}

	if startMode != "" {
		mode := domain.EnforcementMode(startMode)
		if mode != domain.ModeFull && mode != domain.ModeLight {
			return fmt.Errorf("invalid mode %q, expected full or light", startMode)
		}
		if err := engine.ModifyConfig(func(cfg *domain.EnforcementConfig) error {
			cfg.EnforcementMode = mode
			return nil
		}); err != nil {
			return err
		}
	}

	minutes := startMinutes
	if !cmd.Flags().Changed("minutes") {
		// The pomodoro work length from the config is the default.
		if work := engine.Config().Pomodoro.WorkMinutes; work > 0 {
			minutes = work
		}
	}
	planned := time.Duration(minutes) * time.Minute
	count, err := engine.Start(planned)
	if err != nil {
		return userError(err)
	}

	status := engine.Status()
	if status.Mode == domain.ModeLight {
		fmt.Println("Light session started: observing only, hosts file untouched.")
	} else {
		fmt.Printf("Focus session started: %d sites blocked.\n", count)
		if port := status.ListenerPort; port != 0 {
			fmt.Printf("Bypass attempts are recorded on port %d.\n", port)
		}
	}
	if planned > 0 {
		fmt.Printf("Session ends at %s.\n",
			time.Now().Add(planned).Format(time.Kitchen))
		fmt.Println("Keep 'focusguard run' running for automatic completion.")
	}
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// The CLI process that runs stop is rarely the one that ran start, so
	// rebuild the blocking state from the session file before stopping.
	if err := adoptActiveSession(engine); err != nil {
		return err
	}

	if err := engine.Stop(stopPassword, stopForce); err != nil {
		return userError(err)
	}
	fmt.Println("Focus session stopped. Sites unblocked.")
	return nil
}

// adoptActiveSession is used by commands that act on a session started by
// another process: panic and stop work from the persisted session state.
func adoptActiveSession(engine *usecase.Engine) error {
	if engine.State() == domain.StateBlocking {
		return nil
	}
	adopted, err := engine.AdoptSession()
	if err != nil {
		return err
	}
	if !adopted {
		return fmt.Errorf("no active focus session")
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	fmt.Println("\n=== focusguard Status ===")
	reportOrphan(engine)

	_, _ = engine.AdoptSession()
	status := engine.Status()

	switch status.State {
	case domain.StateBlocking:
		fmt.Printf("Status: BLOCKING (%s mode)\n", status.Mode)
		fmt.Printf("Session: %s\n", status.SessionID)
		fmt.Printf("Started: %s\n", status.StartedAt.Format(time.RFC1123))
		if status.PlannedDuration > 0 {
			fmt.Printf("Remaining: %s\n", status.Remaining.Round(time.Second))
		} else {
			fmt.Println("Remaining: open-ended (schedule controlled)")
		}
	default:
		fmt.Printf("Status: IDLE (%s mode configured)\n", status.Mode)
	}
	fmt.Printf("Effective block set: %d sites\n", status.BlockedCount)

	cfg := engine.Config()
	enabled := 0
	for _, on := range cfg.CategoriesEnabled {
		if on {
			enabled++
		}
	}
	fmt.Printf("Categories enabled: %d, schedules: %d\n", enabled, len(cfg.Schedules))
	if cfg.PasswordHash != "" {
		fmt.Println("Strict mode: password required to stop early")
	}
	fmt.Println("=========================")
	return nil
}

func runPanic(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := engine.EmergencyCleanup(); err != nil {
		fmt.Printf("Cleanup finished with failures: %v\n", err)
		return err
	}
	fmt.Println("Emergency cleanup complete. All blocks removed.")
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if reportOrphan(engine) {
		return fmt.Errorf("run 'focusguard recover' first")
	}
	_, _ = engine.AdoptSession()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println("focusguard daemon running. Press Ctrl-C to stop.")
	runner := daemon.NewRunner(daemon.DefaultRunnerConfig(), engine, logger)
	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	engine.FlushStats()
	fmt.Println("Daemon stopped.")
	return nil
}

func runRecover(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	orphan, err := engine.DetectOrphan()
	if err != nil {
		return err
	}
	if orphan == nil {
		fmt.Println("Nothing to recover: the previous session shut down cleanly.")
		return nil
	}

	if err := engine.RecoverFromCrash(); err != nil {
		return userError(err)
	}
	fmt.Println("Recovered: session state deleted, hosts file restored.")
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	stats := engine.Statistics()
	fmt.Println("\n=== Bypass Attempts ===")
	fmt.Printf("Total: %d\n", stats.TotalAttempts)

	if len(stats.TopSites) > 0 {
		fmt.Println("\nTop sites:")
		for _, site := range stats.TopSites {
			fmt.Printf("  %5d  %s\n", site.Count, site.Host)
		}
	}
	if len(stats.TopHours) > 0 {
		fmt.Println("\nTop hours:")
		for _, hour := range stats.TopHours {
			fmt.Printf("  %5d  %02d:00-%02d:59\n", hour.Count, hour.Hour, hour.Hour)
		}
	}
	fmt.Println("\nLast 7 days:")
	for _, day := range stats.Last7Days {
		fmt.Printf("  %s  %d\n", day.Date, day.Count)
	}
	if stats.CurrentSessionCount > 0 {
		fmt.Printf("\nCurrent session: %d attempts across %s\n",
			stats.CurrentSessionCount, strings.Join(stats.CurrentSessionSites, ", "))
	}
	fmt.Println("=======================")
	return nil
}

func runInsights(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	for _, insight := range engine.Insights() {
		fmt.Printf("- %s\n", insight)
	}
	return nil
}

func runSiteAdd(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	return engine.ModifyConfig(func(cfg *domain.EnforcementConfig) error {
		list := &cfg.Blacklist
		if siteAllow {
			list = &cfg.Whitelist
		}
		for _, raw := range args {
			host := strings.ToLower(strings.TrimSpace(raw))
			if !infra.IsValidHostname(host) {
				return domain.NewValidationError(fmt.Sprintf("Invalid hostname: %s", raw))
			}
			if !containsString(*list, host) {
				*list = append(*list, host)
				fmt.Printf("Added %s\n", host)
			}
		}
		return nil
	})
}

func runSiteRemove(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	return engine.ModifyConfig(func(cfg *domain.EnforcementConfig) error {
		list := &cfg.Blacklist
		if siteAllow {
			list = &cfg.Whitelist
		}
		for _, raw := range args {
			host := strings.ToLower(strings.TrimSpace(raw))
			filtered := (*list)[:0]
			for _, existing := range *list {
				if existing != host {
					filtered = append(filtered, existing)
				} else {
					fmt.Printf("Removed %s\n", host)
				}
			}
			*list = filtered
		}
		return nil
	})
}

func runSiteList(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg := engine.Config()
	fmt.Println("Blacklist:")
	printHostList(cfg.Blacklist)
	fmt.Println("Whitelist:")
	printHostList(cfg.Whitelist)
	fmt.Println("Effective block set:")
	printHostList(category.EffectiveBlockSet(cfg, engine.Categories()))
	return nil
}

func printHostList(hosts []string) {
	if len(hosts) == 0 {
		fmt.Println("  (empty)")
		return
	}
	sorted := append([]string(nil), hosts...)
	sort.Strings(sorted)
	for _, host := range sorted {
		fmt.Printf("  - %s\n", host)
	}
}

func runCategoryList(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg := engine.Config()
	fmt.Println("\n=== Site Categories ===")
	for _, cat := range engine.Categories().GetAll() {
		state := "disabled"
		if cfg.CategoriesEnabled[cat.ID] {
			state = "ENABLED"
		}
		fmt.Printf("\n[%s] %s (%s)\n", cat.ID, cat.Name, state)
		for _, site := range cat.Sites {
			fmt.Printf("  - %s\n", site)
		}
	}
	fmt.Println("\n=======================")
	return nil
}

func setCategory(id string, enabled bool) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if _, ok := engine.Categories().Get(id); !ok {
		return fmt.Errorf("unknown category %q, see 'focusguard category list'", id)
	}
	if err := engine.ModifyConfig(func(cfg *domain.EnforcementConfig) error {
		cfg.CategoriesEnabled[id] = enabled
		return nil
	}); err != nil {
		return err
	}
	if enabled {
		fmt.Printf("Category %s enabled.\n", id)
	} else {
		fmt.Printf("Category %s disabled.\n", id)
	}
	return nil
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	days, err := parseDays(schedDays)
	if err != nil {
		return err
	}
	if err := schedule.ValidateDays(days); err != nil {
		return err
	}
	if err := schedule.ValidateClock(schedStart); err != nil {
		return err
	}
	if err := schedule.ValidateClock(schedEnd); err != nil {
		return err
	}

	sched := domain.Schedule{
		ID:      uuid.NewString()[:8],
		Days:    days,
		Start:   schedStart,
		End:     schedEnd,
		Enabled: true,
	}
	if err := engine.ModifyConfig(func(cfg *domain.EnforcementConfig) error {
		cfg.Schedules = append(cfg.Schedules, sched)
		return nil
	}); err != nil {
		return err
	}

	fmt.Printf("Schedule %s added: %s-%s on %s\n",
		sched.ID, sched.Start, sched.End, formatDays(sched.Days))
	if sched.Start > sched.End {
		fmt.Println("(window crosses midnight)")
	}
	return nil
}

func runScheduleRemove(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	id := args[0]
	found := false
	if err := engine.ModifyConfig(func(cfg *domain.EnforcementConfig) error {
		filtered := cfg.Schedules[:0]
		for _, sched := range cfg.Schedules {
			if sched.ID == id {
				found = true
				continue
			}
			filtered = append(filtered, sched)
		}
		cfg.Schedules = filtered
		return nil
	}); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no schedule with id %q", id)
	}
	fmt.Printf("Schedule %s removed.\n", id)
	return nil
}

func runScheduleToggle(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	id := args[0]
	var enabled, found bool
	if err := engine.ModifyConfig(func(cfg *domain.EnforcementConfig) error {
		for i := range cfg.Schedules {
			if cfg.Schedules[i].ID == id {
				cfg.Schedules[i].Enabled = !cfg.Schedules[i].Enabled
				enabled = cfg.Schedules[i].Enabled
				found = true
			}
		}
		return nil
	}); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no schedule with id %q", id)
	}
	if enabled {
		fmt.Printf("Schedule %s enabled.\n", id)
	} else {
		fmt.Printf("Schedule %s disabled.\n", id)
	}
	return nil
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	schedules := engine.Config().Schedules
	if len(schedules) == 0 {
		fmt.Println("No schedules configured.")
		return nil
	}
	for _, sched := range schedules {
		state := "disabled"
		if sched.Enabled {
			state = "enabled"
		}
		overnight := ""
		if sched.Start > sched.End {
			overnight = " (overnight)"
		}
		fmt.Printf("%s  %s-%s%s  %s  [%s]\n",
			sched.ID, sched.Start, sched.End, overnight,
			formatDays(sched.Days), state)
	}
	return nil
}

func runPasswordSet(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := engine.SetPassword(args[0]); err != nil {
		return err
	}
	fmt.Println("Strict-mode password set. Stopping early now requires it.")
	return nil
}

func runPasswordClear(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := engine.SetPassword(""); err != nil {
		return err
	}
	fmt.Println("Strict-mode password cleared.")
	return nil
}

func runMode(cmd *cobra.Command, args []string) error {
	engine, logger, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	mode := domain.EnforcementMode(args[0])
	if mode != domain.ModeFull && mode != domain.ModeLight {
		return fmt.Errorf("invalid mode %q, expected full or light", args[0])
	}
	if err := engine.ModifyConfig(func(cfg *domain.EnforcementConfig) error {
		cfg.EnforcementMode = mode
		return nil
	}); err != nil {
		return err
	}
	fmt.Printf("Enforcement mode set to %s.\n", mode)
	return nil
}

func runAutostartInstall(cmd *cobra.Command, args []string) error {
	execPath, err := os.Executable()
	if err != nil {
		return err
	}
	manager := infra.NewAutostartManager(infra.DetectExecMode())

	if manager.IsInstalled() && !manager.NeedsUpdate(execPath) {
		fmt.Println("Login service already installed and up to date.")
		return nil
	}
	if err := manager.Install(execPath); err != nil {
		return fmt.Errorf("installing login service: %w", err)
	}
	fmt.Printf("Login service installed: %s\n", manager.UnitPath())
	fmt.Println("The session daemon now starts automatically at login.")
	return nil
}

func runAutostartUninstall(cmd *cobra.Command, args []string) error {
	manager := infra.NewAutostartManager(infra.DetectExecMode())
	if !manager.IsInstalled() {
		fmt.Println("Login service is not installed.")
		return nil
	}
	if err := manager.Uninstall(); err != nil {
		return fmt.Errorf("removing login service: %w", err)
	}
	fmt.Println("Login service removed.")
	return nil
}

func runAutostartStatus(cmd *cobra.Command, args []string) error {
	manager := infra.NewAutostartManager(infra.DetectExecMode())
	if manager.IsInstalled() {
		fmt.Printf("Login service installed: %s\n", manager.UnitPath())
	} else {
		fmt.Println("Login service is not installed.")
	}
	return nil
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("focusguard %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

// userError prefers the display message of typed enforcement errors.
func userError(err error) error {
	var ee *domain.EnforcementError
	if errors.As(err, &ee) {
		return fmt.Errorf("%s", ee.UserMessage())
	}
	return err
}

func parseDays(csv string) ([]int, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, fmt.Errorf("--days is required (0=Monday .. 6=Sunday)")
	}
	parts := strings.Split(csv, ",")
	days := make([]int, 0, len(parts))
	for _, part := range parts {
		day, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid weekday %q", part)
		}
		days = append(days, day)
	}
	return days, nil
}

var dayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func formatDays(days []int) string {
	names := make([]string, 0, len(days))
	for _, day := range days {
		if day >= 0 && day < 7 {
			names = append(names, dayNames[day])
		}
	}
	return strings.Join(names, ",")
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
