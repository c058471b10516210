package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tessro/cleandl/internal/classify"
	"github.com/tessro/cleandl/internal/config"
	"github.com/tessro/cleandl/internal/daemon"
	"github.com/tessro/cleandl/internal/engine"
	"github.com/tessro/cleandl/internal/folders"
	"github.com/tessro/cleandl/internal/logging"
	"github.com/tessro/cleandl/internal/paths"
	"github.com/tessro/cleandl/internal/procevent"
	"github.com/tessro/cleandl/internal/recycle"
	"github.com/tessro/cleandl/internal/service"
	"github.com/tessro/cleandl/internal/tracking"
	"github.com/tessro/cleandl/internal/version"
)

var (
	runWatchFolder string
	runMode        string
	runLogLevel    string
	runQuiet       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the cleandl daemon in the foreground",
	Long: "Watch the Downloads folder and delete files once the program that opened them exits. " +
		"Stops on Ctrl+C, SIGTERM or `cleandl stop`, after waiting for tracked files to be resolved.",
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("%w: %w", engine.ErrStartup, err)
	}
	if err := applyRunFlags(cmd, settings); err != nil {
		return fmt.Errorf("%w: %w", engine.ErrStartup, err)
	}

	logPath := paths.LogPath()
	level := logging.ParseLevel(settings.LogLevel)
	var cleanup func()
	if runQuiet {
		cleanup, err = logging.Setup(logPath, level)
	} else {
		cleanup, err = logging.SetupMulti(logPath, os.Stderr, level)
	}
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer cleanup()

	pidPath := daemon.DefaultPIDPath()
	if err := ensureNotRunning(pidPath); err != nil {
		return err
	}

	poller := procevent.NewPoller(settings.PollInterval.Duration)
	eng, err := newEngine(settings, poller)
	if err != nil {
		return err
	}

	// The poller outlives signals; the engine closes it once drained.
	if err := poller.Start(context.Background()); err != nil {
		return fmt.Errorf("%w: %w", engine.ErrStartup, err)
	}

	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	if err := eng.Start(ctx); err != nil {
		_ = poller.Close()
		return err
	}

	svc := service.New(eng, *settings)
	defer svc.Close()

	srv := daemon.NewServer(getSocketPath(), svc)
	svc.SetServer(srv)
	if err := srv.Start(); err != nil {
		_ = eng.StopAndDrain(context.Background())
		return fmt.Errorf("start control server: %w", err)
	}
	defer func() { _ = srv.Stop() }()

	if err := daemon.WritePID(pidPath); err != nil {
		slog.Warn("failed to write pid file", "path", pidPath, "error", err)
	}
	defer func() { _ = daemon.RemovePID(pidPath) }()

	slog.Info("cleandl running", "version", version.Version, "pid", os.Getpid(), "socket", srv.SocketPath())

	select {
	case <-ctx.Done():
		slog.Info("signal received, draining")
	case <-svc.ShutdownCh():
		slog.Info("shutdown requested, draining")
	}
	// A second interrupt terminates immediately.
	stopSignals()

	if err := eng.StopAndDrain(context.Background()); err != nil {
		if errors.Is(err, engine.ErrDrainTimeout) {
			slog.Warn("drain timed out; some files were left in place")
			return nil
		}
		return fmt.Errorf("drain: %w", err)
	}
	return nil
}

// ensureNotRunning refuses to start when the pid file names a live daemon,
// and removes the file when it is stale.
func ensureNotRunning(pidPath string) error {
	if running, pid := daemon.IsDaemonRunning(pidPath); running {
		return fmt.Errorf("%w (pid %d)", daemon.ErrAlreadyRunning, pid)
	}
	daemon.CleanStalePID(pidPath)
	return nil
}

// applyRunFlags layers command-line overrides onto settings.
func applyRunFlags(cmd *cobra.Command, settings *config.Settings) error {
	flags := cmd.Flags()
	if flags.Changed("watch-folder") {
		settings.WatchFolder = runWatchFolder
	}
	if flags.Changed("mode") {
		mode, err := recycle.ParseMode(runMode)
		if err != nil {
			return err
		}
		settings.DeleteMode = mode
	}
	if flags.Changed("log-level") {
		settings.LogLevel = runLogLevel
	}
	return settings.Validate()
}

// newEngine wires an engine for settings on top of src.
func newEngine(settings *config.Settings, src procevent.Source) (*engine.Engine, error) {
	folder, err := folders.Resolve(settings.WatchFolder)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrStartup, err)
	}
	matcher, err := classify.New(folder)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrStartup, err)
	}

	return engine.New(engine.Config{
		Source:   src,
		Matcher:  matcher,
		Recycler: recycle.New(recycle.WithFallbackToPermanent(settings.FallbackToPermanent)),
		Mode:     settings.DeleteMode,
		Registry: tracking.New(
			tracking.WithMissingMaxAge(settings.MissingMaxAge.Duration),
			tracking.WithMissingMaxEntries(settings.MissingMaxEntries),
		),
		DrainTimeout: settings.DrainTimeout.Duration,
	})
}

func init() {
	runCmd.Flags().StringVar(&runWatchFolder, "watch-folder", "", "folder to watch (default: Downloads)")
	runCmd.Flags().StringVar(&runMode, "mode", "", "delete mode: trash or permanent")
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "", "log level: debug, info, warn, error")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "log to the log file only")
	rootCmd.AddCommand(runCmd)
}
