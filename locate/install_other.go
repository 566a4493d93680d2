//go:build !windows

package locate

func lookupInstallPath() (string, error) {
	return "", ErrUnsupportedPlatform
}
