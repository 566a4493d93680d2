package storage

import (
	"database/sql"
	"errors"
	"fpsunlock/models"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestNewManagerHonorsHomeEnv(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	t.Setenv(HomeEnv, dir)

	m := NewManager()
	if m.DataPath() != dir {
		t.Errorf("Expected data path %q, got %q", dir, m.DataPath())
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("expected %s to be created, got %v", dir, err)
	}
}

func TestSettingsRoundTripAndDefaults(t *testing.T) {
	m := NewManagerAt(t.TempDir())

	settings, err := m.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings on empty dir: %v", err)
	}
	if settings.TargetFrameRate != 120 || !settings.BackupBeforeSet {
		t.Errorf("expected defaults, got %+v", settings)
	}

	settings.LastDBPath = `"` + filepath.Join("wuwa", "LocalStorage.db") + `"`
	settings.TargetFrameRate = 165
	if err := m.SaveSettings(settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	loaded, err := m.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if loaded.LastDBPath != filepath.Join("wuwa", "LocalStorage.db") {
		t.Errorf("expected quotes stripped from path, got %q", loaded.LastDBPath)
	}
	if loaded.TargetFrameRate != 165 {
		t.Errorf("Expected target 165, got %d", loaded.TargetFrameRate)
	}
}

func TestLoadSettingsReplacesUnsupportedTarget(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), []byte(`{"target_frame_rate": 999}`), 0644); err != nil {
		t.Fatal(err)
	}

	settings, err := NewManagerAt(dir).LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if settings.TargetFrameRate != 120 {
		t.Errorf("Expected fallback target 120, got %d", settings.TargetFrameRate)
	}
	if !settings.BackupBeforeSet {
		t.Error("fields absent from the file should keep their defaults")
	}
}

func TestLoadSettingsRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), []byte(`{`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewManagerAt(dir).LoadSettings(); err == nil {
		t.Error("expected an error for a corrupt settings file")
	}
}

func TestPreferredDatabasePath(t *testing.T) {
	m := NewManagerAt(t.TempDir())
	settings := &models.Settings{LastDBPath: "remembered.db"}

	t.Setenv(DatabaseEnv, "")
	if got := m.PreferredDatabasePath(settings); got != "remembered.db" {
		t.Errorf("Expected remembered path, got %q", got)
	}

	t.Setenv(DatabaseEnv, "override.db")
	if got := m.PreferredDatabasePath(settings); got != "override.db" {
		t.Errorf("Expected env override, got %q", got)
	}
}

func TestBackupAndRestore(t *testing.T) {
	m := NewManagerAt(t.TempDir())

	dbPath := filepath.Join(t.TempDir(), "LocalStorage.db")
	if err := os.WriteFile(dbPath, []byte("original"), 0644); err != nil {
		t.Fatal(err)
	}

	backup, err := m.Backup(dbPath, 60)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if backup.ID == "" || backup.SourcePath != dbPath || backup.FrameRate != 60 {
		t.Errorf("unexpected backup record: %+v", backup)
	}
	data, err := os.ReadFile(backup.BackupPath)
	if err != nil || string(data) != "original" {
		t.Fatalf("backup copy = %q, %v", data, err)
	}

	if err := os.WriteFile(dbPath, []byte("patched"), 0644); err != nil {
		t.Fatal(err)
	}

	latest, err := m.LatestBackupFor(dbPath)
	if err != nil || latest.ID != backup.ID {
		t.Fatalf("LatestBackupFor = %+v, %v", latest, err)
	}

	// A log left by the patched file must not survive the restore.
	if err := os.WriteFile(dbPath+"-wal", []byte("newer pages"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Restore(backup.ID[:8]); err != nil {
		t.Fatalf("Restore by prefix: %v", err)
	}
	data, err = os.ReadFile(dbPath)
	if err != nil || string(data) != "original" {
		t.Errorf("restored file = %q, %v", data, err)
	}
	if _, err := os.Stat(dbPath + "-wal"); !os.IsNotExist(err) {
		t.Errorf("expected the stale log to be removed, got %v", err)
	}
}

func TestLoadBackupsKeepsHistory(t *testing.T) {
	m := NewManagerAt(t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "LocalStorage.db")
	if err := os.WriteFile(dbPath, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	first, err := m.Backup(dbPath, 60)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Backup(dbPath, 60)
	if err != nil {
		t.Fatal(err)
	}

	backups, err := m.LoadBackups()
	if err != nil {
		t.Fatalf("LoadBackups: %v", err)
	}
	if len(backups) != 2 || backups[0].ID != first.ID || backups[1].ID != second.ID {
		t.Errorf("unexpected history: %+v", backups)
	}
}

func TestFindBackupUnknown(t *testing.T) {
	m := NewManagerAt(t.TempDir())
	if _, err := m.FindBackup("nope"); !errors.Is(err, ErrBackupNotFound) {
		t.Errorf("Expected ErrBackupNotFound, got %v", err)
	}
	if _, err := m.LatestBackupFor("nowhere.db"); !errors.Is(err, ErrBackupNotFound) {
		t.Errorf("Expected ErrBackupNotFound, got %v", err)
	}
}

func TestDiscardRemovesBackup(t *testing.T) {
	m := NewManagerAt(t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "LocalStorage.db")
	if err := os.WriteFile(dbPath, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	kept, err := m.Backup(dbPath, 60)
	if err != nil {
		t.Fatal(err)
	}
	dropped, err := m.Backup(dbPath, 60)
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Discard(dropped); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, err := os.Stat(dropped.BackupPath); !os.IsNotExist(err) {
		t.Errorf("expected backup file to be removed, got %v", err)
	}
	backups, err := m.LoadBackups()
	if err != nil || len(backups) != 1 || backups[0].ID != kept.ID {
		t.Errorf("unexpected history after discard: %+v, %v", backups, err)
	}
}

func queryQualitySetting(t *testing.T, path string) string {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer db.Close()

	var value string
	if err := db.QueryRow(`SELECT value FROM LocalStorage WHERE key = 'GameQualitySetting'`).Scan(&value); err != nil {
		t.Fatalf("reading setting: %v", err)
	}
	return value
}

func TestBackupAndRestoreWALDatabase(t *testing.T) {
	m := NewManagerAt(t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "LocalStorage.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{
		`PRAGMA journal_mode=WAL`,
		`CREATE TABLE LocalStorage (key TEXT PRIMARY KEY, value TEXT)`,
		`INSERT INTO LocalStorage (key, value) VALUES ('GameQualitySetting', '{"KeyCustomFrameRate":60}')`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			t.Fatalf("%s: %v", stmt, err)
		}
	}

	// The open connection keeps the rows in the log, not the main file.
	if _, err := os.Stat(dbPath + "-wal"); err != nil {
		db.Close()
		t.Fatalf("expected a write-ahead log: %v", err)
	}

	backup, err := m.Backup(dbPath, 60)
	if err != nil {
		db.Close()
		t.Fatalf("Backup: %v", err)
	}
	if _, err := os.Stat(backup.BackupPath + "-wal"); err != nil {
		t.Errorf("expected the log to be copied: %v", err)
	}

	if _, err := db.Exec(`UPDATE LocalStorage SET value = '{"KeyCustomFrameRate":120}'`); err != nil {
		db.Close()
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Restore(backup.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := queryQualitySetting(t, dbPath); got != `{"KeyCustomFrameRate":60}` {
		t.Errorf("restored setting = %s", got)
	}
}
