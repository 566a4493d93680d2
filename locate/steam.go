package locate

import (
	"os"
	"path/filepath"
	"runtime"
)

// Folder names the Steam release may be installed under, below steamapps/common.
var steamGameDirs = []string{"Wuthering Waves"}

// steamRoots lists the usual Steam installation directories for this OS.
func steamRoots() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			`C:\Program Files (x86)\Steam`,
			`C:\Program Files\Steam`,
			filepath.Join(os.Getenv("PROGRAMFILES"), "Steam"),
			filepath.Join(os.Getenv("PROGRAMFILES(X86)"), "Steam"),
		}
	case "darwin":
		homeDir, _ := os.UserHomeDir()
		return []string{
			filepath.Join(homeDir, "Library", "Application Support", "Steam"),
		}
	default: // Linux, where the game runs through Proton
		homeDir, _ := os.UserHomeDir()
		return []string{
			filepath.Join(homeDir, ".steam", "steam"),
			filepath.Join(homeDir, ".local", "share", "Steam"),
			filepath.Join(homeDir, ".var", "app", "com.valvesoftware.Steam", ".local", "share", "Steam"),
		}
	}
}

// findSteamDatabase returns the first settings database found in a Steam
// library under one of roots.
func findSteamDatabase(roots []string) (string, bool) {
	for _, root := range roots {
		if root == "" || root == "Steam" {
			continue
		}
		for _, dir := range steamGameDirs {
			install := filepath.Join(root, "steamapps", "common", dir)
			// The Steam depot either wraps the client in the launcher's
			// folder or ships the client directory at its root.
			candidates := []string{
				DatabasePathFor(install),
				filepath.Join(append([]string{install}, databaseRelPath[1:]...)...),
			}
			for _, path := range candidates {
				if info, err := os.Stat(path); err == nil && !info.IsDir() {
					return path, true
				}
			}
		}
	}
	return "", false
}
