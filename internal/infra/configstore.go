package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/lkacz/PersonalFreedom-sub000/internal/domain"
)

const (
	configFileName   = "config.json"
	backupDirName    = "backups"
	backupPrefix     = "focusguard_config_"
	backupTimeFormat = "20060102_150405"

	// DefaultMaxBackups is how many rotating config backups are kept.
	DefaultMaxBackups = 5
)

// FileConfigStore implements domain.ConfigStore with a JSON file,
// atomic writes, and a rotating backups directory.
type FileConfigStore struct {
	path       string
	backupDir  string
	maxBackups int
	logger     *zap.Logger
}

// NewConfigStore creates a config store rooted at dataDir.
func NewConfigStore(dataDir string, logger *zap.Logger) *FileConfigStore {
	return &FileConfigStore{
		path:       filepath.Join(dataDir, configFileName),
		backupDir:  filepath.Join(dataDir, backupDirName),
		maxBackups: DefaultMaxBackups,
		logger:     logger,
	}
}

// Path returns the config file path.
func (s *FileConfigStore) Path() string {
	return s.path
}

// Load reads the config file. It never fails hard: a missing file yields
// defaults (persisted immediately), and corrupt JSON is quarantined to a
// timestamped .corrupted sibling before falling back to defaults.
func (s *FileConfigStore) Load() (*domain.EnforcementConfig, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := domain.DefaultConfig()
			if saveErr := s.Save(cfg, false); saveErr != nil {
				s.logger.Warn("failed to persist default config",
					zap.Error(saveErr))
			}
			return cfg, nil
		}
		return nil, domain.NewPersistenceError("Could not read configuration.", err)
	}

	var cfg domain.EnforcementConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		s.quarantineCorrupt(data, err)
		cfg := domain.DefaultConfig()
		if saveErr := s.Save(cfg, false); saveErr != nil {
			s.logger.Warn("failed to persist replacement config",
				zap.Error(saveErr))
		}
		return cfg, nil
	}

	normalizeConfig(&cfg)
	return &cfg, nil
}

// Save atomically replaces the on-disk config, optionally backing up the
// previous file first. Backup failures are logged and swallowed; only the
// main write can fail the save.
func (s *FileConfigStore) Save(cfg *domain.EnforcementConfig, createBackup bool) error {
	cfg.SchemaVersion = domain.ConfigSchemaVersion
	cfg.LastModified = time.Now().Format(time.RFC3339)

	if createBackup {
		s.backupCurrent()
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return domain.NewPersistenceError("Could not encode configuration.", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return domain.NewPersistenceError("Could not create config directory.", err)
	}
	if err := AtomicWriteFile(s.path, data, 0600); err != nil {
		return domain.NewPersistenceError("Could not save configuration.", err)
	}
	return nil
}

// quarantineCorrupt copies unparseable config content aside so the user
// can inspect it after the fallback to defaults.
func (s *FileConfigStore) quarantineCorrupt(data []byte, cause error) {
	ts := time.Now().Format(backupTimeFormat)
	quarantine := fmt.Sprintf("%s.corrupted.%s.bak", s.path, ts)
	if err := os.WriteFile(quarantine, data, 0600); err != nil {
		s.logger.Warn("failed to quarantine corrupt config",
			zap.String("path", quarantine),
			zap.Error(err))
	}
	s.logger.Error("config file is corrupt, falling back to defaults",
		zap.String("quarantine", quarantine),
		zap.Error(cause))
}

// backupCurrent copies the live config into the backups directory and
// prunes old backups. Best-effort.
func (s *FileConfigStore) backupCurrent() {
	if _, err := os.Stat(s.path); err != nil {
		return // nothing to back up yet
	}
	if err := os.MkdirAll(s.backupDir, 0700); err != nil {
		s.logger.Warn("failed to create backup directory", zap.Error(err))
		return
	}

	name := backupPrefix + time.Now().Format(backupTimeFormat) + ".json"
	dst := filepath.Join(s.backupDir, name)
	if err := copyFile(s.path, dst); err != nil {
		s.logger.Warn("failed to back up config", zap.Error(err))
		return
	}

	s.pruneBackups()
}

// pruneBackups keeps only the maxBackups most recently modified backups.
func (s *FileConfigStore) pruneBackups() {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return
	}

	type backup struct {
		path    string
		modTime time.Time
	}
	var backups []backup
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if len(name) < len(backupPrefix) || name[:len(backupPrefix)] != backupPrefix {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, backup{
			path:    filepath.Join(s.backupDir, name),
			modTime: info.ModTime(),
		})
	}

	if len(backups) <= s.maxBackups {
		return
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].modTime.After(backups[j].modTime)
	})
	for _, old := range backups[s.maxBackups:] {
		if err := os.Remove(old.path); err != nil {
			s.logger.Warn("failed to prune old backup",
				zap.String("path", old.path),
				zap.Error(err))
		}
	}
}

// normalizeConfig fills nil collections so callers never nil-check.
func normalizeConfig(cfg *domain.EnforcementConfig) {
	if cfg.Blacklist == nil {
		cfg.Blacklist = []string{}
	}
	if cfg.Whitelist == nil {
		cfg.Whitelist = []string{}
	}
	if cfg.CategoriesEnabled == nil {
		cfg.CategoriesEnabled = map[string]bool{}
	}
	if cfg.Schedules == nil {
		cfg.Schedules = []domain.Schedule{}
	}
	if cfg.EnforcementMode != domain.ModeLight {
		cfg.EnforcementMode = domain.ModeFull
	}
}

// Ensure FileConfigStore implements domain.ConfigStore.
var _ domain.ConfigStore = (*FileConfigStore)(nil)
