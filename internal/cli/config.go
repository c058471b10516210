package cli

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/tessro/cleandl/internal/config"
	"github.com/tessro/cleandl/internal/paths"
)

const formatTOML = "toml"

var configShowOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or edit cleandl settings",
	Long: "Show or edit settings.toml. Changes take effect the next time the daemon starts.\n\n" +
		"Keys: delete_mode, fallback_to_permanent, watch_folder, poll_interval, drain_timeout, " +
		"missing_max_age, missing_max_entries, log_level",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load()
		if err != nil {
			return err
		}
		return writeSettings(cmd.OutOrStdout(), settings, configShowOutput)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := paths.SettingsPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load()
		if err != nil {
			return err
		}
		value, err := settings.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: "Change one setting and save settings.toml.\n\n" +
		"Example: cleandl config set delete_mode permanent",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := paths.SettingsPath()
		if err != nil {
			return err
		}
		if err := setSetting(path, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
		if IsDaemonRunning() {
			fmt.Fprintln(cmd.OutOrStdout(), "Restart the daemon to apply: cleandl stop && cleandl run")
		}
		return nil
	},
}

// setSetting loads path, applies key=value and saves it back.
func setSetting(path, key, value string) error {
	settings, err := config.LoadFromPath(path)
	if err != nil {
		return err
	}
	if err := settings.Set(key, value); err != nil {
		return err
	}
	return settings.Save(path)
}

func writeSettings(w io.Writer, settings *config.Settings, format string) error {
	if format == formatTOML {
		return toml.NewEncoder(w).Encode(settings)
	}
	return writeStructured(w, settings, format)
}

func init() {
	configShowCmd.Flags().StringVarP(&configShowOutput, "output", "o", formatTOML, "output format: toml, yaml or json")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
