package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tessro/cleandl/internal/paths"
)

// baseDir is the global --dir flag value.
var baseDir string

var rootCmd = &cobra.Command{
	Use:   "cleandl",
	Short: "Delete downloads once the program that opened them exits",
	Long: "cleandl watches your Downloads folder for programs launched on a downloaded file " +
		"and moves the file to the trash once that program exits.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set CLEANDL_DIR so every path helper sees the override.
		if baseDir != "" {
			if err := os.Setenv(paths.EnvDir, baseDir); err != nil {
				return err
			}
		}
		return nil
	},
}

// BaseDir returns the value of the --dir flag.
func BaseDir() string {
	return baseDir
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseDir, "dir", "", "base directory for cleandl data (overrides ~/.cleandl)")
}

func Execute() error {
	return rootCmd.Execute()
}
