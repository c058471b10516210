package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	stopWait    bool
	stopTimeout time.Duration
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the cleandl daemon",
	Long: "Ask the running daemon to stop. It finishes waiting on tracked files " +
		"(up to its drain timeout) before exiting.",
	Args: cobra.NoArgs,
	RunE: runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	client := MustConnect()
	defer client.Close()

	if err := client.Shutdown(); err != nil {
		return fmt.Errorf("shutdown daemon: %w", err)
	}
	out := cmd.OutOrStdout()

	if !stopWait {
		fmt.Fprintln(out, "cleandl daemon is draining")
		return nil
	}

	fmt.Fprintln(out, "Waiting for tracked files to be resolved...")
	if !waitForExit(stopTimeout, 200*time.Millisecond) {
		return fmt.Errorf("daemon still running after %s", stopTimeout)
	}
	fmt.Fprintln(out, "cleandl daemon stopped")
	return nil
}

// waitForExit polls the control socket until it stops answering.
func waitForExit(timeout, interval time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !IsDaemonRunning() {
			return true
		}
		time.Sleep(interval)
	}
	return !IsDaemonRunning()
}

func init() {
	stopCmd.Flags().BoolVarP(&stopWait, "wait", "w", true, "wait for the daemon to exit")
	stopCmd.Flags().DurationVar(&stopTimeout, "timeout", 2*time.Minute, "how long to wait for the daemon to exit")
	rootCmd.AddCommand(stopCmd)
}
