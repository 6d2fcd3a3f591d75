// Package backup writes point-in-time JSON snapshots of the bot's documents
// and restores them into whichever store backend is configured.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/focusbot/internal/constants"
	"github.com/julianstephens/focusbot/internal/logger"
	"github.com/julianstephens/focusbot/internal/models"
)

const (
	// BackupFileSuffix is the suffix for backup files
	BackupFileSuffix = ".json"

	minuteLayout = "20060102-1504"
	secondLayout = "20060102-150405"

	snapshotVersion = 1
)

// Documents is the part of a store a snapshot covers.
type Documents interface {
	LoadHabits() (models.HabitDocument, error)
	SaveHabits(models.HabitDocument) error
	LoadLockConfig() (models.LockDocument, error)
	SaveLockConfig(models.LockDocument) error
	Kind() string
}

// Snapshot is the on-disk backup format.
type Snapshot struct {
	Version    int                  `json:"version"`
	CreatedAt  time.Time            `json:"createdAt"`
	Store      string               `json:"store"`
	Habits     models.HabitDocument `json:"habits"`
	UserConfig models.LockDocument  `json:"userConfig"`
}

// BackupInfo contains information about a backup file
type BackupInfo struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// Manager handles backup operations
type Manager struct {
	docs      Documents
	backupDir string
	now       func() time.Time
}

// NewManager creates a backup manager that keeps its files in
// dataDir/backups.
func NewManager(docs Documents, dataDir string) *Manager {
	return &Manager{
		docs:      docs,
		backupDir: filepath.Join(dataDir, constants.BackupDirName),
		now:       time.Now,
	}
}

// GetBackupDir returns the backup directory path
func (m *Manager) GetBackupDir() string {
	return m.backupDir
}

// CreateBackup snapshots both documents and rotates old backups.
func (m *Manager) CreateBackup() (string, error) {
	return m.createBackup(false)
}

// skipRotation keeps the pre-restore snapshot from evicting the backup being
// restored.
func (m *Manager) createBackup(skipRotation bool) (string, error) {
	if err := os.MkdirAll(m.backupDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	habits, err := m.docs.LoadHabits()
	if err != nil {
		return "", fmt.Errorf("failed to load habits: %w", err)
	}
	locks, err := m.docs.LoadLockConfig()
	if err != nil {
		return "", fmt.Errorf("failed to load lock lists: %w", err)
	}

	now := m.now()
	path, err := m.uniquePath(now)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(Snapshot{
		Version:    snapshotVersion,
		CreatedAt:  now.UTC(),
		Store:      m.docs.Kind(),
		Habits:     habits,
		UserConfig: locks,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	if !skipRotation {
		if err := m.rotateBackups(); err != nil {
			logger.Warn("Failed to rotate old backups", "dir", m.backupDir, "error", err)
		}
	}
	return path, nil
}

func (m *Manager) uniquePath(now time.Time) (string, error) {
	name := func(stamp string) string {
		return filepath.Join(m.backupDir, constants.BackupFilePrefix+stamp+BackupFileSuffix)
	}

	path := name(now.Format(minuteLayout))
	if !exists(path) {
		return path, nil
	}
	stamp := now.Format(secondLayout)
	path = name(stamp)
	for counter := 1; exists(path); counter++ {
		if counter > 100 {
			return "", errors.New("failed to generate unique backup filename")
		}
		path = name(fmt.Sprintf("%s-%d", stamp, counter))
	}
	return path, nil
}

// ListBackups returns all backups, newest first.
func (m *Manager) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(m.backupDir)
	if errors.Is(err, os.ErrNotExist) {
		return []BackupInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ts, ok := parseName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Path:      filepath.Join(m.backupDir, entry.Name()),
			Timestamp: ts,
			Size:      info.Size(),
		})
	}

	sort.SliceStable(backups, func(i, j int) bool {
		if backups[i].Timestamp.Equal(backups[j].Timestamp) {
			return backups[i].Path > backups[j].Path
		}
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// parseName extracts the timestamp from focusbot-YYYYMMDD-HHMM[SS][-N].json.
func parseName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, constants.BackupFilePrefix) || !strings.HasSuffix(name, BackupFileSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, constants.BackupFilePrefix), BackupFileSuffix)

	// A third dash-separated part is the collision counter.
	if parts := strings.Split(stamp, "-"); len(parts) == 3 {
		stamp = parts[0] + "-" + parts[1]
	}
	for _, layout := range []string{minuteLayout, secondLayout} {
		if ts, err := time.ParseInLocation(layout, stamp, time.Local); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func (m *Manager) rotateBackups() error {
	backups, err := m.ListBackups()
	if err != nil {
		return err
	}
	for i := constants.MaxBackups; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Path, err)
		}
	}
	return nil
}

// RestoreBackup replaces both documents with the contents of backupPath.
// The current state is snapshotted first; its path is returned.
func (m *Manager) RestoreBackup(backupPath string) (string, error) {
	snap, err := ReadSnapshot(backupPath)
	if err != nil {
		return "", err
	}

	current, err := m.createBackup(true)
	if err != nil {
		return "", fmt.Errorf("failed to backup current state before restore: %w", err)
	}

	if err := m.docs.SaveHabits(snap.Habits); err != nil {
		return current, fmt.Errorf("failed to restore habits: %w", err)
	}
	if err := m.docs.SaveLockConfig(snap.UserConfig); err != nil {
		return current, fmt.Errorf("failed to restore lock lists: %w", err)
	}
	return current, nil
}

// ReadSnapshot loads and verifies a backup file.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("backup file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}
	if snap.Version < 1 || snap.Version > snapshotVersion {
		return nil, fmt.Errorf("backup file has unsupported version %d", snap.Version)
	}
	if snap.Habits == nil {
		snap.Habits = models.HabitDocument{}
	}
	if snap.UserConfig == nil {
		snap.UserConfig = models.LockDocument{}
	}
	return &snap, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
