//go:build windows

package locate

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

const (
	uninstallKey     = `SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall\KRInstall Wuthering Waves Overseas`
	installPathValue = "InstallPath"
)

// lookupInstallPath reads the install directory the game launcher recorded
// in its uninstall entry.
func lookupInstallPath() (string, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, uninstallKey, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", fmt.Errorf("%w: no uninstall entry", ErrNotInstalled)
		}
		return "", fmt.Errorf("failed to open registry key: %w", err)
	}
	defer key.Close()

	path, _, err := key.GetStringValue(installPathValue)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", fmt.Errorf("%w: %s not set", ErrNotInstalled, installPathValue)
		}
		return "", fmt.Errorf("failed to read %s: %w", installPathValue, err)
	}
	return path, nil
}
