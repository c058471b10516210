package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tessro/cleandl/internal/classify"
	"github.com/tessro/cleandl/internal/config"
	"github.com/tessro/cleandl/internal/folders"
	"github.com/tessro/cleandl/internal/procevent"
)

var classifyWatchFolder string

var classifyCmd = &cobra.Command{
	Use:   "classify <command line> | classify -- <argv...>",
	Short: "Show whether a launch would be tracked",
	Long: "Run the launch classifier on a command line without touching any file.\n\n" +
		"A single argument is split like a real command line; several arguments are used as argv.\n" +
		"Relative paths are resolved against the current directory.",
	Example: `  cleandl classify '"C:\Program Files\Viewer\viewer.exe" "C:\Users\me\Downloads\report.pdf"'
  cleandl classify -- evince ~/Downloads/report.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	override := classifyWatchFolder
	if !cmd.Flags().Changed("watch-folder") {
		settings, err := config.Load()
		if err != nil {
			return err
		}
		override = settings.WatchFolder
	}
	folder, err := folders.Resolve(override)
	if err != nil {
		return err
	}
	c, err := classify.New(folder)
	if err != nil {
		return err
	}

	cwd, _ := os.Getwd()
	d := procevent.Descriptor{Cwd: cwd}
	if len(args) == 1 {
		d.CommandLine = args[0]
	} else {
		d.Args = args
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, describeMatch(c, d))
	return nil
}

// describeMatch explains the classifier's verdict for d.
func describeMatch(c *classify.Classifier, d procevent.Descriptor) string {
	file, ok := c.FileArgument(d)
	if !ok {
		return "not tracked: no existing file argument"
	}
	if !c.IsUnderWatchFolder(file) {
		return fmt.Sprintf("not tracked: %s is outside %s", file, c.WatchFolder())
	}
	return "tracked: " + file
}

func init() {
	classifyCmd.Flags().StringVar(&classifyWatchFolder, "watch-folder", "", "folder to check against (default: from settings)")
	rootCmd.AddCommand(classifyCmd)
}
