package models

// Settings represents application settings
type Settings struct {
	LastUsedPath    string `json:"last_used_path"` // directory the browse dialog opens in
	LastDBPath      string `json:"last_db_path"`
	TargetFrameRate int64  `json:"target_frame_rate"`
	BackupBeforeSet bool   `json:"backup_before_set"`
}

// DefaultSettings returns default application settings
func DefaultSettings() *Settings {
	return &Settings{
		TargetFrameRate: 120,
		BackupBeforeSet: true,
	}
}
