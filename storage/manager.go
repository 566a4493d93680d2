package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"fpsunlock/models"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// HomeEnv overrides the data directory.
	HomeEnv = "FPSUNLOCK_HOME"
	// DatabaseEnv overrides the remembered settings database path.
	DatabaseEnv = "FPSUNLOCK_DB"
)

var ErrBackupNotFound = errors.New("backup not found")

// Manager handles data persistence
type Manager struct {
	dataPath string
}

// NewManager creates a new storage manager
func NewManager() *Manager {
	dataPath := os.Getenv(HomeEnv)
	if dataPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "."
		}
		dataPath = filepath.Join(homeDir, ".fpsunlock")
	}
	return NewManagerAt(dataPath)
}

// NewManagerAt creates a storage manager rooted at dataPath
func NewManagerAt(dataPath string) *Manager {
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		// Fallback to current directory
		slog.Warn("cannot create data directory, using current directory", "path", dataPath, "err", err)
		dataPath = "."
	}

	return &Manager{
		dataPath: dataPath,
	}
}

// DataPath returns the directory settings and backups are kept in
func (m *Manager) DataPath() string {
	return m.dataPath
}

// SaveSettings saves the settings to disk
func (m *Manager) SaveSettings(settings *models.Settings) error {
	return m.writeJSON("settings.json", settings)
}

// LoadSettings loads the settings from disk
func (m *Manager) LoadSettings() (*models.Settings, error) {
	settings := models.DefaultSettings()
	found, err := m.readJSON("settings.json", settings)
	if err != nil {
		return nil, err
	}
	if !found {
		return models.DefaultSettings(), nil
	}

	settings.LastDBPath = cleanPath(settings.LastDBPath)
	settings.LastUsedPath = cleanPath(settings.LastUsedPath)
	if !models.IsSupportedFrameRate(settings.TargetFrameRate) {
		settings.TargetFrameRate = models.DefaultSettings().TargetFrameRate
	}
	return settings, nil
}

// PreferredDatabasePath returns the database the user worked with last,
// unless FPSUNLOCK_DB names another one.
func (m *Manager) PreferredDatabasePath(settings *models.Settings) string {
	if path := cleanPath(os.Getenv(DatabaseEnv)); path != "" {
		return path
	}
	if settings != nil {
		return settings.LastDBPath
	}
	return ""
}

// Backup copies the database at dbPath into the backups directory and
// records it. It satisfies unlock.Backuper.
func (m *Manager) Backup(dbPath string, frameRate int64) (*models.Backup, error) {
	backup := models.NewBackup(dbPath)
	backup.FrameRate = frameRate

	dir := filepath.Join(m.dataPath, "backups")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating backups directory: %w", err)
	}
	backup.BackupPath = filepath.Join(dir, backup.ID+".db")

	if err := copyFile(dbPath, backup.BackupPath); err != nil {
		return nil, err
	}
	// A live write-ahead log holds committed pages the main file may lack yet.
	if _, err := os.Stat(dbPath + "-wal"); err == nil {
		if err := copyFile(dbPath+"-wal", backup.BackupPath+"-wal"); err != nil {
			return nil, err
		}
	}

	backups, err := m.LoadBackups()
	if err != nil {
		return nil, err
	}
	backups = append(backups, backup)
	if err := m.saveBackups(backups); err != nil {
		return nil, err
	}

	slog.Info("backed up settings database", "id", backup.ID, "source", dbPath, "backup", backup.BackupPath)
	return backup, nil
}

// Discard deletes a backup and its record. It satisfies unlock.Backuper.
func (m *Manager) Discard(backup *models.Backup) error {
	backups, err := m.LoadBackups()
	if err != nil {
		return err
	}
	kept := backups[:0]
	for _, b := range backups {
		if b.ID != backup.ID {
			kept = append(kept, b)
		}
	}
	if err := m.saveBackups(kept); err != nil {
		return err
	}

	for _, path := range []string{backup.BackupPath, backup.BackupPath + "-wal"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}
	slog.Info("discarded backup", "id", backup.ID)
	return nil
}

// LoadBackups returns all backup records, oldest first
func (m *Manager) LoadBackups() ([]*models.Backup, error) {
	var backups []*models.Backup
	if _, err := m.readJSON("backups.json", &backups); err != nil {
		return nil, err
	}
	sort.SliceStable(backups, func(i, j int) bool {
		return backups[i].CreatedAt.Before(backups[j].CreatedAt)
	})
	return backups, nil
}

// FindBackup returns the backup with the given ID. A unique ID prefix is
// accepted as well.
func (m *Manager) FindBackup(id string) (*models.Backup, error) {
	backups, err := m.LoadBackups()
	if err != nil {
		return nil, err
	}

	var match *models.Backup
	for _, b := range backups {
		if b.ID == id {
			return b, nil
		}
		if id != "" && strings.HasPrefix(b.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("backup id %q is ambiguous", id)
			}
			match = b
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}
	return match, nil
}

// LatestBackupFor returns the newest backup taken of dbPath
func (m *Manager) LatestBackupFor(dbPath string) (*models.Backup, error) {
	backups, err := m.LoadBackups()
	if err != nil {
		return nil, err
	}
	for i := len(backups) - 1; i >= 0; i-- {
		if backups[i].SourcePath == dbPath {
			return backups[i], nil
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrBackupNotFound, dbPath)
}

// Restore copies a backup over the database it was taken from
func (m *Manager) Restore(id string) (*models.Backup, error) {
	backup, err := m.FindBackup(id)
	if err != nil {
		return nil, err
	}

	if err := copyFile(backup.BackupPath, backup.SourcePath); err != nil {
		return nil, fmt.Errorf("restoring backup %s: %w", backup.ID, err)
	}
	// Drop a newer log so SQLite does not replay it over the restored file.
	// A leftover shared-memory index would point into that log.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(backup.SourcePath + suffix); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing stale %s file: %w", suffix, err)
		}
	}
	if _, err := os.Stat(backup.BackupPath + "-wal"); err == nil {
		if err := copyFile(backup.BackupPath+"-wal", backup.SourcePath+"-wal"); err != nil {
			return nil, fmt.Errorf("restoring backup %s: %w", backup.ID, err)
		}
	}

	slog.Info("restored settings database", "id", backup.ID, "target", backup.SourcePath)
	return backup, nil
}

func (m *Manager) saveBackups(backups []*models.Backup) error {
	return m.writeJSON("backups.json", backups)
}

func (m *Manager) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	filePath := filepath.Join(m.dataPath, name)
	slog.Debug("saving", "file", filePath)
	return os.WriteFile(filePath, data, 0644)
}

// readJSON decodes a file from the data directory into v. A missing file is
// not an error and leaves v untouched.
func (m *Manager) readJSON(name string, v any) (bool, error) {
	filePath := filepath.Join(m.dataPath, name)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	return true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}

// cleanPath cleans and normalizes a file path
func cleanPath(path string) string {
	// Remove surrounding quotes
	path = strings.Trim(strings.TrimSpace(path), `"'`)
	if path == "" {
		return ""
	}

	// Normalize path separators
	return filepath.Clean(path)
}
