package ui

import (
	"context"
	"errors"
	"fmt"
	"fpsunlock/locate"
	"fpsunlock/models"
	"fpsunlock/storage"
	"fpsunlock/unlock"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	fynestorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/ncruces/zenity"
)

const (
	appTitle     = "WuWa Ploom 120 & 165 FPS Unlock"
	instructions = `1) Check and set your FPS limit to 60, then close your game.
2) Do not touch FPS or VSync options in-game.
3) You can either automatically find it or browse and choose the file.`
)

// MainWindow represents the main application window
type MainWindow struct {
	// mu serializes handlers, since dialog results arrive on their own goroutines.
	mu sync.Mutex

	app      fyne.App
	window   fyne.Window
	storage  *storage.Manager
	locator  *locate.Locator
	settings *models.Settings
	session  models.Session

	pathLabel     *widget.Label
	readingLabel  *widget.Label
	noticeLabel   *widget.Label
	statusLabel   *StatusLabel
	setButtons    []*widget.Button
	restoreButton *widget.Button
}

// NewMainWindow creates a new main window
func NewMainWindow() *MainWindow {
	myApp := app.NewWithID("io.github.wuwa-ploom.fpsunlock")
	myApp.SetIcon(theme.ComputerIcon())
	return newMainWindow(myApp, storage.NewManager(), locate.NewLocator())
}

func newMainWindow(a fyne.App, store *storage.Manager, locator *locate.Locator) *MainWindow {
	window := a.NewWindow("WuWa Ploom Tools")
	window.Resize(fyne.NewSize(640, 520))

	mw := &MainWindow{
		app:     a,
		window:  window,
		storage: store,
		locator: locator,
	}

	mw.loadData()
	mw.setupUI()
	mw.restoreSession()

	return mw
}

// ShowAndRun shows the window and runs the application
func (mw *MainWindow) ShowAndRun() {
	mw.window.ShowAndRun()
}

// loadData loads settings from storage
func (mw *MainWindow) loadData() {
	settings, err := mw.storage.LoadSettings()
	if err != nil {
		dialog.ShowError(err, mw.window)
		settings = models.DefaultSettings()
	}
	mw.settings = settings
}

// setupUI sets up the user interface
func (mw *MainWindow) setupUI() {
	heading := widget.NewLabelWithStyle(appTitle, fyne.TextAlignCenter, fyne.TextStyle{Bold: true})

	locateBtn := widget.NewButton("Locate Configuration File", mw.locked(mw.locateDatabase))
	browseBtn := widget.NewButton("Browse for Configuration File", mw.locked(mw.browseDatabase))

	buttons := container.NewHBox(locateBtn, browseBtn)
	for _, fps := range models.SupportedFrameRates {
		btn := widget.NewButton(fmt.Sprintf("Set FPS to %d", fps), mw.locked(func() {
			mw.applyFrameRate(fps)
		}))
		mw.setButtons = append(mw.setButtons, btn)
		buttons.Add(btn)
	}
	mw.restoreButton = widget.NewButtonWithIcon("Restore Last Backup", theme.HistoryIcon(), mw.locked(mw.confirmRestoreLatest))

	mw.pathLabel = widget.NewLabel("")
	mw.pathLabel.Wrapping = fyne.TextWrapBreak
	mw.readingLabel = widget.NewLabel("")
	mw.noticeLabel = widget.NewLabel("")
	mw.statusLabel = NewStatusLabel()

	content := container.NewVBox(
		heading,
		widget.NewSeparator(),
		widget.NewLabel("Steps:"),
		widget.NewLabel(instructions),
		widget.NewSeparator(),
		widget.NewLabel("Select the SQLite database file:"),
		buttons,
		container.NewHBox(mw.restoreButton),
		mw.pathLabel,
		widget.NewSeparator(),
		mw.readingLabel,
		mw.noticeLabel,
		mw.statusLabel,
	)

	mw.window.SetContent(container.NewBorder(mw.createToolbar(), nil, nil, nil, container.NewPadded(content)))
}

// createToolbar creates the main toolbar
func (mw *MainWindow) createToolbar() *widget.Toolbar {
	return widget.NewToolbar(
		widget.NewToolbarAction(theme.SearchIcon(), mw.locked(mw.locateDatabase)),
		widget.NewToolbarAction(theme.FolderOpenIcon(), mw.locked(mw.browseDatabase)),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.HistoryIcon(), mw.locked(mw.confirmRestoreLatest)),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.SettingsIcon(), mw.locked(mw.showSettings)),
	)
}

// locked wraps an event handler so it runs with mu held. Handlers call
// each other directly and never lock themselves.
func (mw *MainWindow) locked(handler func()) func() {
	return func() {
		mw.mu.Lock()
		defer mw.mu.Unlock()
		handler()
	}
}

// restoreSession preselects the database used last time
func (mw *MainWindow) restoreSession() {
	path := mw.storage.PreferredDatabasePath(mw.settings)
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		slog.Debug("remembered database is gone", "path", path, "err", err)
		return
	}
	mw.selectDatabase(path)
}

// locateDatabase resolves the database from the game's install record
func (mw *MainWindow) locateDatabase() {
	path, err := mw.locator.DefaultDatabasePath()
	if err != nil {
		mw.showError("Error locating game: %v", err)
		return
	}
	mw.selectDatabase(path)
}

// selectDatabase makes path the current database and reads its setting
func (mw *MainWindow) selectDatabase(path string) {
	mw.session.SetPath(path)
	mw.pathLabel.SetText(path)
	mw.refreshReading()

	fps, err := unlock.NewManager(nil).ReadFrameRate(context.Background(), path)
	if err != nil {
		mw.showError("Error reading FPS setting: %v", err)
		return
	}
	mw.session.Record(fps)
	mw.refreshReading()
	mw.rememberDatabase(path)
	mw.showStatus("", StatusNeutral)
}

// applyFrameRate writes fps into the selected database
func (mw *MainWindow) applyFrameRate(fps int64) {
	var backups unlock.Backuper
	if mw.settings.BackupBeforeSet {
		backups = mw.storage
	}

	result, err := unlock.NewManager(backups).SetFrameRate(context.Background(), mw.session.DBPath, fps)
	if err != nil {
		mw.showError("Error: %v", err)
		return
	}

	mw.session.Record(result.Current)
	mw.refreshReading()
	mw.settings.TargetFrameRate = fps
	mw.settings.LastDBPath = mw.session.DBPath
	mw.saveSettings()
	mw.showStatus(result.Message(), StatusSuccess)
}

// confirmRestoreLatest asks before copying the newest backup back
func (mw *MainWindow) confirmRestoreLatest() {
	if mw.session.DBPath == "" {
		mw.showError("Error: %v", unlock.ErrDatabaseNotFound)
		return
	}

	backup, err := mw.storage.LatestBackupFor(mw.session.DBPath)
	if err != nil {
		mw.showError("Error: %v", err)
		return
	}

	msg := fmt.Sprintf("Restore the copy taken %s (FPS %d)?\nClose the game first.",
		backup.CreatedAt.Format("2006-01-02 15:04"), backup.FrameRate)
	dialog.ShowConfirm("Restore Backup", msg, func(ok bool) {
		if ok {
			mw.locked(func() { mw.restoreBackup(backup) })()
		}
	}, mw.window)
}

// restoreBackup copies backup over its source and rereads the setting
func (mw *MainWindow) restoreBackup(backup *models.Backup) {
	if _, err := mw.storage.Restore(backup.ID); err != nil {
		mw.showError("Error: %v", err)
		return
	}
	mw.selectDatabase(backup.SourcePath)
	if mw.session.HasReading {
		mw.showStatus(fmt.Sprintf("Backup restored, FPS is %d.", mw.session.FrameRate), StatusSuccess)
	}
}

// refreshReading shows the last known value of the FPS setting
func (mw *MainWindow) refreshReading() {
	if !mw.session.HasReading {
		mw.readingLabel.SetText("")
		mw.noticeLabel.SetText("")
		return
	}

	fps := mw.session.FrameRate
	mw.readingLabel.SetText(fmt.Sprintf("Current FPS Setting:\n%s: %d", unlock.FrameRateField, fps))
	if models.IsSupportedFrameRate(fps) {
		mw.noticeLabel.SetText(fmt.Sprintf("FPS is already set to %d. No need to patch.", fps))
	} else {
		mw.noticeLabel.SetText("")
	}
}

func (mw *MainWindow) showError(format string, err error) {
	slog.Warn("operation failed", "path", mw.session.DBPath, "err", err)
	mw.showStatus(fmt.Sprintf(format, err), StatusError)
}

func (mw *MainWindow) showStatus(text string, kind StatusKind) {
	mw.statusLabel.SetStatus(text, kind)
}

// rememberDatabase stores path as the database to preselect next time
func (mw *MainWindow) rememberDatabase(path string) {
	if mw.settings.LastDBPath == path {
		return
	}
	mw.settings.LastDBPath = path
	mw.saveSettings()
}

// showSettings shows the settings dialog
func (mw *MainWindow) showSettings() {
	backupCheck := widget.NewCheck("Back up the database before patching", nil)
	backupCheck.SetChecked(mw.settings.BackupBeforeSet)

	dataDir := widget.NewLabel(mw.storage.DataPath())
	dataDir.Wrapping = fyne.TextWrapBreak

	form := dialog.NewForm("Settings", "Save", "Cancel",
		[]*widget.FormItem{
			widget.NewFormItem("", backupCheck),
			widget.NewFormItem("Backups in", dataDir),
		},
		func(confirm bool) {
			if !confirm {
				return
			}
			mw.locked(func() {
				mw.settings.BackupBeforeSet = backupCheck.Checked
				mw.saveSettings()
			})()
		},
		mw.window)

	form.Resize(fyne.NewSize(420, 200))
	form.Show()
}

// saveSettings saves the settings to storage
func (mw *MainWindow) saveSettings() {
	if err := mw.storage.SaveSettings(mw.settings); err != nil {
		dialog.ShowError(err, mw.window)
	}
}

// getLastUsedPath returns the last used path or user's home directory
func (mw *MainWindow) getLastUsedPath() string {
	if mw.settings.LastUsedPath != "" {
		return mw.settings.LastUsedPath
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return homeDir
}

// saveLastUsedPath saves the last used directory path
func (mw *MainWindow) saveLastUsedPath(path string) {
	if path == "" {
		return
	}
	// Extract directory from path if it's a file
	if stat, err := os.Stat(path); err == nil && !stat.IsDir() {
		path = filepath.Dir(path)
	}
	mw.settings.LastUsedPath = path
	mw.saveSettings()
}

// browseDatabase lets the user pick the database file. The choice is
// applied later, from whichever goroutine the dialog answers on.
func (mw *MainWindow) browseDatabase() {
	mw.openNativeFileDialog(func(path string, err error) {
		if err != nil {
			dialog.ShowError(err, mw.window)
			return
		}
		if path == "" {
			return // cancelled
		}
		mw.locked(func() { mw.chooseDatabase(path) })()
	})
}

// chooseDatabase selects a file picked in a dialog
func (mw *MainWindow) chooseDatabase(path string) {
	mw.saveLastUsedPath(path)
	mw.selectDatabase(path)
}

// openNativeFileDialog opens the system's native file dialog
// Priority order: 1) kdialog (KDE), 2) Zenity, 3) Fyne (fallback)
func (mw *MainWindow) openNativeFileDialog(done func(string, error)) {
	startPath := mw.getLastUsedPath()

	if _, err := exec.LookPath("kdialog"); err == nil {
		go func() {
			filename, err := mw.openKDialog(startPath)
			if err == nil {
				done(filename, nil)
				return
			}
			slog.Debug("kdialog failed, trying the next dialog", "err", err)
			mw.openZenityOrFyneDialog(startPath, done)
		}()
		return
	}

	mw.openZenityOrFyneDialog(startPath, done)
}

func (mw *MainWindow) openZenityOrFyneDialog(startPath string, done func(string, error)) {
	if !zenity.IsAvailable() {
		mw.openFyneFileDialog(startPath, done)
		return
	}

	go func() {
		filename, err := zenity.SelectFile(
			zenity.Title("Select LocalStorage.db"),
			zenity.Filename(startPath+string(filepath.Separator)),
			zenity.FileFilters{
				{"SQLite databases", []string{"*.db"}, false},
				{"All files", []string{"*"}, false},
			},
		)
		if errors.Is(err, zenity.ErrCanceled) {
			done("", nil)
			return
		}
		if err != nil {
			slog.Debug("zenity failed, falling back to the fyne dialog", "err", err)
			mw.openFyneFileDialog(startPath, done)
			return
		}
		done(filename, nil)
	}()
}

// openFyneFileDialog is a fallback that uses the Fyne file dialog
func (mw *MainWindow) openFyneFileDialog(startPath string, done func(string, error)) {
	fileDialog := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			done("", err)
			return
		}
		if reader == nil {
			done("", nil) // User cancelled
			return
		}
		defer reader.Close()
		done(reader.URI().Path(), nil)
	}, mw.window)

	fileDialog.SetFilter(fynestorage.NewExtensionFileFilter([]string{".db"}))
	if startPath != "" {
		if listable, err := fynestorage.ListerForURI(fynestorage.NewFileURI(startPath)); err == nil {
			fileDialog.SetLocation(listable)
		}
	}

	fileDialog.Show()
}

// openKDialog asks kdialog, the KDE dialog utility, for a file
func (mw *MainWindow) openKDialog(startPath string) (string, error) {
	args := []string{
		"--getopenfilename",
		startPath,
		"*.db|SQLite databases\n*|All files",
		"--title", "Select LocalStorage.db",
	}

	output, err := exec.Command("kdialog", args...).Output()
	if err != nil {
		// Exit code 1 means the user cancelled
		var exitError *exec.ExitError
		if errors.As(err, &exitError) && exitError.ExitCode() == 1 {
			return "", nil
		}
		return "", err
	}

	return strings.TrimSpace(string(output)), nil
}
