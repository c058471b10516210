package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tessro/cleandl/internal/daemon"
)

// Output formats accepted by -o.
const (
	formatTable = "table"
	formatYAML  = "yaml"
	formatJSON  = "json"
)

var statusOutput string

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status and tracked files",
	Long:  "Display the watch folder, delete mode, files waiting on their opener, and recent outcomes.",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := checkFormat(statusOutput); err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	client, err := ConnectClient()
	if err != nil {
		if errors.Is(err, ErrDaemonNotRunning) {
			fmt.Fprintln(out, "cleandl daemon is not running")
			return nil
		}
		return fmt.Errorf("connect to daemon: %w", err)
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}
	return writeStatus(out, status, statusOutput, time.Now())
}

func checkFormat(format string) error {
	switch format {
	case formatTable, formatYAML, formatJSON:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, yaml or json)", format)
}

// writeStructured encodes v as YAML or JSON.
func writeStructured(w io.Writer, v any, format string) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func writeStatus(w io.Writer, status *daemon.StatusResponse, format string, now time.Time) error {
	if format != formatTable {
		return writeStructured(w, status, format)
	}

	uptime := now.Sub(status.Daemon.StartedAt).Truncate(time.Second)
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("cleandl daemon running (pid %d, uptime %s)", status.Daemon.PID, uptime)))

	e := status.Engine
	mode := e.DeleteMode
	if e.FallbackToPermanent {
		mode += " (falls back to permanent)"
	}
	fmt.Fprintf(w, "   Watching: %s\n", e.WatchFolder)
	fmt.Fprintf(w, "   Mode:     %s\n", mode)
	if e.BufferedTerminations > 0 {
		fmt.Fprintf(w, "   Buffered terminations: %d\n", e.BufferedTerminations)
	}
	fmt.Fprintln(w)

	if len(status.Tracked) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No files tracked."))
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "PID\tPROGRAM\tAGE\tFILE")
		for _, t := range status.Tracked {
			age := now.Sub(t.Since).Truncate(time.Second)
			_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.PID, t.Name, age, t.Path)
		}
		_ = tw.Flush()
	}

	if len(status.Recent) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render("Recent"))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "TIME\tSTATE\tPID\tFILE\tERROR")
		for _, o := range status.Recent {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
				o.At.Local().Format("15:04:05"), o.State, o.PID, o.Path, o.Error)
		}
		_ = tw.Flush()
	}
	return nil
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", formatTable, "output format: table, yaml or json")
	rootCmd.AddCommand(statusCmd)
}
