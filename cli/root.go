package cli

import (
	"context"
	"fmt"
	"fpsunlock/locate"
	"fpsunlock/models"
	"fpsunlock/storage"
	"fpsunlock/unlock"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// Deps wires the command tree to its collaborators. Nil fields get the
// production defaults.
type Deps struct {
	LaunchGUI func() error
	Storage   *storage.Manager
	Locator   *locate.Locator
}

type commandEnv struct {
	deps     Deps
	dbFlag   string
	verbose  bool
	settings *models.Settings
}

// NewRootCommand builds the fpsunlock command tree. Without a subcommand
// the GUI is started.
func NewRootCommand(deps Deps) *cobra.Command {
	env := &commandEnv{deps: deps}

	root := &cobra.Command{
		Use:   "fpsunlock",
		Short: "Unlock 120 and 165 FPS in Wuthering Waves",
		Long: `Unlock 120 and 165 FPS in Wuthering Waves.

Set the in-game FPS limit to 60 and close the game before patching.
Run without arguments to open the window.

Examples:
  fpsunlock status
  fpsunlock set 165
  fpsunlock set 120 --db "D:\Games\Wuthering Waves\...\LocalStorage.db"
  fpsunlock restore 3f2a`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.deps.LaunchGUI == nil {
				return cmd.Help()
			}
			return env.deps.LaunchGUI()
		},
	}

	root.PersistentFlags().StringVar(&env.dbFlag, "db", "", "path to LocalStorage.db")
	root.PersistentFlags().BoolVarP(&env.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")

	root.AddCommand(
		env.locateCommand(),
		env.statusCommand(),
		env.setCommand(),
		env.backupsCommand(),
		env.restoreCommand(),
	)
	return root
}

func (e *commandEnv) setup() error {
	level := slog.LevelWarn
	if e.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if e.deps.Storage == nil {
		e.deps.Storage = storage.NewManager()
	}
	if e.deps.Locator == nil {
		e.deps.Locator = locate.NewLocator()
	}

	settings, err := e.deps.Storage.LoadSettings()
	if err != nil {
		slog.Warn("falling back to default settings", "err", err)
		settings = models.DefaultSettings()
	}
	e.settings = settings
	return nil
}

// resolveDatabase picks the database to work on: --db, FPSUNLOCK_DB, the
// remembered path, then the installed game's default location.
func (e *commandEnv) resolveDatabase() (string, error) {
	if e.dbFlag != "" {
		return e.dbFlag, nil
	}
	if path := e.deps.Storage.PreferredDatabasePath(e.settings); path != "" {
		return path, nil
	}
	path, err := e.deps.Locator.DefaultDatabasePath()
	if err != nil {
		return "", fmt.Errorf("locating game: %w (use --db to pick the file)", err)
	}
	return path, nil
}

// rememberDatabase saves path, along with any other changed settings, for
// the next run.
func (e *commandEnv) rememberDatabase(path string) {
	e.settings.LastDBPath = path
	if err := e.deps.Storage.SaveSettings(e.settings); err != nil {
		slog.Warn("saving settings", "err", err)
	}
}

// --- locate ---

func (e *commandEnv) locateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "locate",
		Short: "Print the default location of the settings database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := e.deps.Locator.DefaultDatabasePath()
			if err != nil {
				return fmt.Errorf("locating game: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), path)
			if _, err := os.Stat(path); err != nil {
				printer{cmd.ErrOrStderr()}.warning("File not found at the default location, browse for it with --db")
			}
			return nil
		},
	}
}

// --- status ---

func (e *commandEnv) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current FPS limit setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := e.resolveDatabase()
			if err != nil {
				return err
			}

			fps, err := unlock.NewManager(nil).ReadFrameRate(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("reading FPS setting: %w", err)
			}
			e.rememberDatabase(path)

			out := printer{cmd.OutOrStdout()}
			out.field("Database", path)
			out.frameRate(fps)
			if models.IsSupportedFrameRate(fps) {
				fmt.Fprintf(out.w, "FPS is already set to %d. No need to patch.\n", fps)
			}
			return nil
		},
	}
}

// --- set ---

func (e *commandEnv) setCommand() *cobra.Command {
	var noBackup bool

	cmd := &cobra.Command{
		Use:   "set [120|165]",
		Short: "Set the FPS limit",
		Long: `Set the FPS limit.

Without an argument the last target used is applied again (120 at first).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := e.settings.TargetFrameRate
			if len(args) == 1 {
				fps, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || !models.IsSupportedFrameRate(fps) {
					return fmt.Errorf("%w: %s (choose one of %v)", unlock.ErrUnsupportedFrameRate, args[0], models.SupportedFrameRates)
				}
				target = fps
			}

			path, err := e.resolveDatabase()
			if err != nil {
				return err
			}

			var backups unlock.Backuper
			if e.settings.BackupBeforeSet && !noBackup {
				backups = e.deps.Storage
			}

			result, err := unlock.NewManager(backups).SetFrameRate(cmd.Context(), path, target)
			if err != nil {
				return err
			}
			e.settings.TargetFrameRate = target
			e.rememberDatabase(path)

			out := printer{cmd.OutOrStdout()}
			out.success("%s", result.Message())
			if result.Backup != nil {
				out.field("Backup", result.Backup.ID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "skip copying the database before writing")
	return cmd
}

// --- backups ---

func (e *commandEnv) backupsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List copies taken before patching",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backups, err := e.deps.Storage.LoadBackups()
			if err != nil {
				return fmt.Errorf("loading backups: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintln(out, "No backups found.")
				return nil
			}
			for _, b := range backups {
				fmt.Fprintf(out, "%s  %s  fps=%d  %s\n",
					b.ID, b.CreatedAt.Format("2006-01-02 15:04:05"), b.FrameRate, b.SourcePath)
			}
			return nil
		},
	}
}

// --- restore ---

func (e *commandEnv) restoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Copy a backup over the database it was taken from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backup, err := e.deps.Storage.Restore(args[0])
			if err != nil {
				return err
			}
			printer{cmd.OutOrStdout()}.success("Restored %s to %s", backup.ID, backup.SourcePath)
			return nil
		},
	}
}

// Execute runs the command tree and reports a failure on stderr.
func Execute(ctx context.Context, deps Deps) int {
	root := NewRootCommand(deps)
	if err := root.ExecuteContext(ctx); err != nil {
		printer{root.ErrOrStderr()}.failure(err)
		return 1
	}
	return 0
}
