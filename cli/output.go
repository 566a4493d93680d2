package cli

import (
	"errors"
	"fmt"
	"fpsunlock/locate"
	"fpsunlock/models"
	"fpsunlock/storage"
	"fpsunlock/unlock"
	"io"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
)

// noColor is bound to --no-color.
var noColor bool

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// printer writes the one-line reports every command ends with.
type printer struct {
	w io.Writer
}

func (p printer) success(format string, args ...any) {
	fmt.Fprintln(p.w, colorize(colorGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func (p printer) failure(err error) {
	fmt.Fprintln(p.w, colorize(colorRed, "✗ Error: "+err.Error()))
	if hint := hintFor(err); hint != "" {
		fmt.Fprintln(p.w, hint)
	}
}

func (p printer) warning(format string, args ...any) {
	fmt.Fprintln(p.w, colorize(colorYellow, "⚠ "+fmt.Sprintf(format, args...)))
}

func (p printer) field(label, value string) {
	fmt.Fprintf(p.w, "  %s %s\n", colorize(colorBold, label+":"), value)
}

// frameRate prints the stored limit, green once it is unlocked.
func (p printer) frameRate(fps int64) {
	value := fmt.Sprint(fps)
	if models.IsSupportedFrameRate(fps) {
		value = colorize(colorGreen, value)
	}
	p.field(unlock.FrameRateField, value)
}

// hintFor suggests what to do about a failed command.
func hintFor(err error) string {
	switch {
	case errors.Is(err, unlock.ErrDatabaseNotFound),
		errors.Is(err, locate.ErrNotInstalled),
		errors.Is(err, locate.ErrUnsupportedPlatform):
		return "Run 'fpsunlock locate' or pass --db with the file's location."
	case errors.Is(err, unlock.ErrWriteFailed):
		return "Close the game and try again."
	case errors.Is(err, unlock.ErrDuplicateSetting):
		return "Change the FPS limit in-game once so the game rewrites its settings, then try again."
	case errors.Is(err, storage.ErrBackupNotFound):
		return "Run 'fpsunlock backups' to list the available backups."
	}
	return ""
}
