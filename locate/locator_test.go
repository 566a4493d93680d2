package locate

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDatabasePathFor(t *testing.T) {
	install := filepath.Join("games", "Wuthering Waves")
	want := filepath.Join(install, "Wuthering Waves Game", "Client", "Saved", "LocalStorage", "LocalStorage.db")

	for _, in := range []string{install, `"` + install + `"`, "  " + install + string(filepath.Separator)} {
		if got := DatabasePathFor(in); got != want {
			t.Errorf("DatabasePathFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaultDatabasePath(t *testing.T) {
	install := filepath.Join(t.TempDir(), "WW")
	l := &Locator{installPath: func() (string, error) { return install, nil }}

	got, err := l.DefaultDatabasePath()
	if err != nil {
		t.Fatalf("DefaultDatabasePath: %v", err)
	}
	if got != DatabasePathFor(install) {
		t.Errorf("Expected %s, got %s", DatabasePathFor(install), got)
	}
}

func TestDefaultDatabasePathErrors(t *testing.T) {
	l := &Locator{installPath: func() (string, error) { return "   ", nil }}
	if _, err := l.DefaultDatabasePath(); !errors.Is(err, ErrNotInstalled) {
		t.Errorf("Expected ErrNotInstalled for a blank install path, got %v", err)
	}

	l = &Locator{installPath: func() (string, error) { return "", ErrNotInstalled }}
	if _, err := l.DefaultDatabasePath(); !errors.Is(err, ErrNotInstalled) {
		t.Errorf("Expected ErrNotInstalled, got %v", err)
	}
}

func TestNewLocatorOnNonWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("registry lookup is exercised on Windows only")
	}
	l := &Locator{installPath: lookupInstallPath}
	if _, err := l.DefaultDatabasePath(); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("Expected ErrUnsupportedPlatform, got %v", err)
	}
}

func TestSteamFallback(t *testing.T) {
	root := t.TempDir()
	want := filepath.Join(root, "steamapps", "common", "Wuthering Waves",
		"Client", "Saved", "LocalStorage", "LocalStorage.db")
	if err := os.MkdirAll(filepath.Dir(want), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(want, []byte("db"), 0644); err != nil {
		t.Fatal(err)
	}

	l := &Locator{
		installPath: func() (string, error) { return "", ErrNotInstalled },
		steamRoots:  func() []string { return []string{filepath.Join(root, "missing"), root} },
	}
	got, err := l.DefaultDatabasePath()
	if err != nil {
		t.Fatalf("DefaultDatabasePath: %v", err)
	}
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestSteamFallbackKeepsOriginalError(t *testing.T) {
	l := &Locator{
		installPath: func() (string, error) { return "", ErrUnsupportedPlatform },
		steamRoots:  func() []string { return []string{t.TempDir()} },
	}
	if _, err := l.DefaultDatabasePath(); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("Expected ErrUnsupportedPlatform, got %v", err)
	}
}
