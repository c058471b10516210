package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/tessro/cleandl/internal/config"
	"github.com/tessro/cleandl/internal/daemon"
	"github.com/tessro/cleandl/internal/engine"
	"github.com/tessro/cleandl/internal/folders"
	"github.com/tessro/cleandl/internal/procevent"
	"github.com/tessro/cleandl/internal/recycle"
)

func TestNewEngine(t *testing.T) {
	settings := config.Defaults()
	settings.WatchFolder = t.TempDir()
	settings.DeleteMode = recycle.Permanent

	eng, err := newEngine(settings, procevent.NewFeed(0))
	if err != nil {
		t.Fatalf("newEngine: %v", err)
	}
	status := eng.Status()
	if status.WatchFolder != settings.WatchFolder {
		t.Errorf("WatchFolder = %q, want %q", status.WatchFolder, settings.WatchFolder)
	}
	if status.Mode != recycle.Permanent {
		t.Errorf("Mode = %v, want permanent", status.Mode)
	}

	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := eng.StopAndDrain(ctx); err != nil {
		t.Errorf("StopAndDrain: %v", err)
	}
}

func TestNewEngine_MissingWatchFolder(t *testing.T) {
	settings := config.Defaults()
	settings.WatchFolder = filepath.Join(t.TempDir(), "gone")

	_, err := newEngine(settings, procevent.NewFeed(0))
	if !errors.Is(err, engine.ErrStartup) {
		t.Errorf("error = %v, want ErrStartup", err)
	}
	if !errors.Is(err, folders.ErrNotFound) {
		t.Errorf("error = %v, want folders.ErrNotFound", err)
	}
}

// newRunFlags returns a command carrying the run flags, unbound from the
// package-level variables.
func newRunFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "run"}
	cmd.Flags().StringVar(&runWatchFolder, "watch-folder", "", "")
	cmd.Flags().StringVar(&runMode, "mode", "", "")
	cmd.Flags().StringVar(&runLogLevel, "log-level", "", "")
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	return cmd
}

func TestApplyRunFlags(t *testing.T) {
	settings := config.Defaults()
	cmd := newRunFlags(t, "--mode", "permanent", "--watch-folder", "/srv/in", "--log-level", "debug")

	if err := applyRunFlags(cmd, settings); err != nil {
		t.Fatalf("applyRunFlags: %v", err)
	}
	if settings.DeleteMode != recycle.Permanent {
		t.Errorf("DeleteMode = %v, want permanent", settings.DeleteMode)
	}
	if settings.WatchFolder != "/srv/in" {
		t.Errorf("WatchFolder = %q", settings.WatchFolder)
	}
	if settings.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", settings.LogLevel)
	}
}

func TestApplyRunFlags_Unchanged(t *testing.T) {
	settings := config.Defaults()
	settings.WatchFolder = "/from/settings"

	if err := applyRunFlags(newRunFlags(t), settings); err != nil {
		t.Fatalf("applyRunFlags: %v", err)
	}
	if settings.WatchFolder != "/from/settings" {
		t.Errorf("WatchFolder overwritten: %q", settings.WatchFolder)
	}
}

func TestApplyRunFlags_Invalid(t *testing.T) {
	tests := [][]string{
		{"--mode", "shred"},
		{"--log-level", "loud"},
	}
	for _, args := range tests {
		if err := applyRunFlags(newRunFlags(t, args...), config.Defaults()); err == nil {
			t.Errorf("applyRunFlags(%v) should fail", args)
		}
	}
}

// exitedPID returns the pid of a child that has already been reaped.
func exitedPID(t *testing.T) int {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=^$")
	if err := cmd.Run(); err != nil {
		t.Fatalf("run child: %v", err)
	}
	return cmd.ProcessState.Pid()
}

func writePIDFile(t *testing.T, pid int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cleandl.pid")
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	return path
}

func TestEnsureNotRunning(t *testing.T) {
	t.Run("live daemon", func(t *testing.T) {
		path := writePIDFile(t, os.Getpid())
		err := ensureNotRunning(path)
		if !errors.Is(err, daemon.ErrAlreadyRunning) {
			t.Fatalf("ensureNotRunning() error = %v, want ErrAlreadyRunning", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("pid file of live daemon removed: %v", err)
		}
	})

	t.Run("stale pid file", func(t *testing.T) {
		path := writePIDFile(t, exitedPID(t))
		if err := ensureNotRunning(path); err != nil {
			t.Fatalf("ensureNotRunning() error = %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("stale pid file kept: %v", err)
		}
	})

	t.Run("no pid file", func(t *testing.T) {
		if err := ensureNotRunning(filepath.Join(t.TempDir(), "cleandl.pid")); err != nil {
			t.Errorf("ensureNotRunning() error = %v", err)
		}
	})
}

func TestRunDaemon_RefusesSecondInstance(t *testing.T) {
	base := t.TempDir()
	t.Setenv("CLEANDL_DIR", base)
	t.Setenv("CLEANDL_PID_PATH", writePIDFile(t, os.Getpid()))
	t.Setenv("CLEANDL_SOCKET_PATH", "")

	prevLogger := slog.Default()
	prevQuiet := runQuiet
	runQuiet = true
	t.Cleanup(func() {
		runQuiet = prevQuiet
		slog.SetDefault(prevLogger)
	})

	err := runDaemon(newRunFlags(t, "--watch-folder", t.TempDir()), nil)
	if !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("runDaemon() error = %v, want ErrAlreadyRunning", err)
	}
	if _, statErr := os.Stat(filepath.Join(base, "cleandl.sock")); !os.IsNotExist(statErr) {
		t.Errorf("control socket created by refused daemon: %v", statErr)
	}
}
