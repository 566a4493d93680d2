package models

import (
	"time"

	"github.com/google/uuid"
)

// Backup records one copy of a settings database taken before it was patched
type Backup struct {
	ID         string    `json:"id"`
	SourcePath string    `json:"source_path"`
	BackupPath string    `json:"backup_path"`
	FrameRate  int64     `json:"frame_rate"` // value stored in the copy, 0 if unknown
	CreatedAt  time.Time `json:"created_at"`
}

// NewBackup creates a new backup record with a unique ID
func NewBackup(sourcePath string) *Backup {
	return &Backup{
		ID:         uuid.New().String(),
		SourcePath: sourcePath,
		CreatedAt:  time.Now(),
	}
}
