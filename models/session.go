package models

import "slices"

// SupportedFrameRates lists the frame rate limits the game accepts once unlocked.
var SupportedFrameRates = []int64{120, 165}

// IsSupportedFrameRate reports whether fps is one of SupportedFrameRates.
func IsSupportedFrameRate(fps int64) bool {
	return slices.Contains(SupportedFrameRates, fps)
}

// Session holds what the tool knows about the database it is working on
// for the lifetime of one window or command.
type Session struct {
	DBPath     string
	FrameRate  int64
	HasReading bool
}

// SetPath selects a new database and drops any reading taken from the old one.
func (s *Session) SetPath(path string) {
	if path != s.DBPath {
		s.HasReading = false
		s.FrameRate = 0
	}
	s.DBPath = path
}

// Record stores the last value read from or written to the database.
func (s *Session) Record(fps int64) {
	s.FrameRate = fps
	s.HasReading = true
}
