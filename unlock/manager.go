package unlock

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"fpsunlock/models"
	"log/slog"
	"os"
	"strconv"

	"github.com/buger/jsonparser"
	_ "modernc.org/sqlite"
)

// Layout of the game's LocalStorage database. The game owns this schema.
const (
	TableName      = "LocalStorage"
	QualityKey     = "GameQualitySetting"
	FrameRateField = "KeyCustomFrameRate"
)

var (
	ErrDatabaseNotFound     = errors.New("settings database not found")
	ErrInvalidDatabase      = errors.New("not a readable settings database")
	ErrSettingMissing       = errors.New("frame rate setting missing")
	ErrUnsupportedFrameRate = errors.New("unsupported frame rate")
	ErrDuplicateSetting     = errors.New("frame rate setting is duplicated")
	ErrWriteFailed          = errors.New("settings database was not updated")
)

// Backuper copies a database aside before it is modified. frameRate is
// the value the copy holds. Discard drops a copy whose write never landed.
type Backuper interface {
	Backup(dbPath string, frameRate int64) (*models.Backup, error)
	Discard(backup *models.Backup) error
}

// Result describes the outcome of SetFrameRate
type Result struct {
	Previous int64
	Current  int64
	Changed  bool
	Backup   *models.Backup // nil when no copy was taken
}

// Message returns the status line shown to the user.
func (r *Result) Message() string {
	if !r.Changed {
		return fmt.Sprintf("FPS is already set to %d. No need to patch.", r.Current)
	}
	return fmt.Sprintf("FPS successfully unlocked to %d!", r.Current)
}

// Manager reads and patches the frame rate limit in a settings database
type Manager struct {
	backups Backuper
	logger  *slog.Logger
}

// NewManager creates a new unlock manager. backups may be nil.
func NewManager(backups Backuper) *Manager {
	return &Manager{
		backups: backups,
		logger:  slog.Default().With("component", "unlock"),
	}
}

// ReadFrameRate returns the stored frame rate limit.
func (m *Manager) ReadFrameRate(ctx context.Context, dbPath string) (int64, error) {
	db, err := m.open(dbPath)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	_, fps, err := readQualitySetting(ctx, db)
	if err != nil {
		return 0, err
	}

	m.logger.Debug("read frame rate", "path", dbPath, "fps", fps)
	return fps, nil
}

// SetFrameRate writes target into the settings database unless it is
// already stored there. Only the frame rate member of the quality setting
// document changes.
func (m *Manager) SetFrameRate(ctx context.Context, dbPath string, target int64) (*Result, error) {
	if !models.IsSupportedFrameRate(target) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFrameRate, target)
	}

	db, err := m.open(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	// Read and write in one transaction so the game cannot slip a write in between.
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDatabase, err)
	}
	defer tx.Rollback()

	doc, current, err := readQualitySetting(ctx, tx)
	if err != nil {
		return nil, err
	}

	result := &Result{Previous: current, Current: current}
	if current == target {
		m.logger.Info("frame rate already at target", "path", dbPath, "fps", target)
		return result, nil
	}

	updated, err := jsonparser.Set(doc, []byte(strconv.FormatInt(target, 10)), FrameRateField)
	if err != nil {
		return nil, fmt.Errorf("%w: rewriting %s: %v", ErrSettingMissing, FrameRateField, err)
	}

	if m.backups != nil {
		backup, err := m.backups.Backup(dbPath, current)
		if err != nil {
			return nil, fmt.Errorf("backing up settings database: %w", err)
		}
		result.Backup = backup
	}

	// A write committed by another connection since the read above makes
	// SQLite refuse the update, leaving that write in place.
	if _, err := tx.ExecContext(ctx,
		"UPDATE "+TableName+" SET value = ? WHERE key = ?", string(updated), QualityKey); err != nil {
		m.discard(result.Backup)
		return nil, fmt.Errorf("%w: updating %s: %w", ErrWriteFailed, QualityKey, err)
	}
	if err := tx.Commit(); err != nil {
		m.discard(result.Backup)
		return nil, fmt.Errorf("%w: committing update: %w", ErrWriteFailed, err)
	}

	result.Current = target
	result.Changed = true
	m.logger.Info("frame rate patched", "path", dbPath, "from", current, "to", target)
	return result, nil
}

func (m *Manager) discard(backup *models.Backup) {
	if backup == nil {
		return
	}
	if err := m.backups.Discard(backup); err != nil {
		m.logger.Warn("discarding unused backup", "id", backup.ID, "err", err)
	}
}

// open checks that dbPath names an existing file before handing it to
// SQLite, which would otherwise create an empty database.
func (m *Manager) open(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: no path selected", ErrDatabaseNotFound)
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, dbPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDatabase, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidDatabase, dbPath)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDatabase, err)
	}

	// The game may hold the file open; wait briefly instead of failing.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrInvalidDatabase, err)
	}

	return db, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readQualitySetting(ctx context.Context, db queryer) ([]byte, int64, error) {
	var value sql.NullString
	err := db.QueryRowContext(ctx,
		"SELECT value FROM "+TableName+" WHERE key = ?", QualityKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !value.Valid) {
		return nil, 0, fmt.Errorf("%w: no %s entry", ErrSettingMissing, QualityKey)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidDatabase, err)
	}

	doc := []byte(value.String)
	fps, err := parseFrameRate(doc)
	if err != nil {
		return nil, 0, err
	}
	return doc, fps, nil
}

func parseFrameRate(doc []byte) (int64, error) {
	if !json.Valid(doc) {
		return 0, fmt.Errorf("%w: %s is not valid JSON", ErrSettingMissing, QualityKey)
	}

	// GetInt and Set only see the first of repeated members.
	seen := 0
	err := jsonparser.ObjectEach(doc, func(key, _ []byte, _ jsonparser.ValueType, _ int) error {
		if string(key) == FrameRateField {
			seen++
		}
		return nil
	})
	if err == nil && seen > 1 {
		return 0, fmt.Errorf("%w: %s appears %d times", ErrDuplicateSetting, FrameRateField, seen)
	}

	fps, err := jsonparser.GetInt(doc, FrameRateField)
	if err != nil {
		if errors.Is(err, jsonparser.KeyPathNotFoundError) {
			return 0, fmt.Errorf("%w: %s not found", ErrSettingMissing, FrameRateField)
		}
		return 0, fmt.Errorf("%w: %s is not an integer", ErrSettingMissing, FrameRateField)
	}
	return fps, nil
}
