package locate

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrNotInstalled        = errors.New("game installation not found")
	ErrUnsupportedPlatform = errors.New("install records are only available on Windows")
)

// Path of the settings database below the launcher's install directory.
var databaseRelPath = []string{"Wuthering Waves Game", "Client", "Saved", "LocalStorage", "LocalStorage.db"}

// Locator finds the settings database of an installed game
type Locator struct {
	installPath func() (string, error)
	steamRoots  func() []string
}

// NewLocator creates a locator backed by the platform's install records,
// falling back to Steam libraries.
func NewLocator() *Locator {
	return &Locator{installPath: lookupInstallPath, steamRoots: steamRoots}
}

// NewLocatorWith creates a locator that asks lookup for the install
// directory and never searches Steam libraries.
func NewLocatorWith(lookup func() (string, error)) *Locator {
	return &Locator{installPath: lookup}
}

// DatabasePathFor returns where the settings database lives for a given
// install directory.
func DatabasePathFor(installPath string) string {
	return filepath.Join(append([]string{cleanPath(installPath)}, databaseRelPath...)...)
}

// DefaultDatabasePath resolves the settings database of the installed game.
// A path from the launcher's install record is returned without checking
// the file; reading it reports a missing database. Steam libraries are only
// consulted when there is no install record.
func (l *Locator) DefaultDatabasePath() (string, error) {
	installPath, err := l.installPath()
	if err == nil && strings.TrimSpace(installPath) == "" {
		err = fmt.Errorf("%w: empty install path", ErrNotInstalled)
	}
	if err == nil {
		return DatabasePathFor(installPath), nil
	}

	if l.steamRoots != nil {
		if path, ok := findSteamDatabase(l.steamRoots()); ok {
			return path, nil
		}
	}
	return "", err
}

// cleanPath cleans and normalizes a file path
func cleanPath(path string) string {
	// Registry values sometimes carry surrounding quotes
	path = strings.Trim(strings.TrimSpace(path), `"'`)
	return filepath.Clean(path)
}
