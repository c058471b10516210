package cli

import (
	"github.com/spf13/cobra"

	"github.com/tessro/cleandl/internal/monitor"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch tracked files and outcomes live",
	Long:  "Open a terminal dashboard showing tracked files and recent outcomes from the running daemon.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := MustConnect()
		defer client.Close()
		return monitor.Run(client)
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}
