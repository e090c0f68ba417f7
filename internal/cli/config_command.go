package cli

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as JSON",
		Long:  "Print the configuration after config file, MIXDECK_* environment variables and flags are applied.",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting in the config file",
		Long: `Change one setting and save the config file.

Keys: sound_enabled, music_enabled, sound_volume, music_volume, master_volume,
engine, output, soundpack, soundpack_paths (comma separated), log_level,
file_logging.enabled, file_logging.filename, tracking.enabled,
tracking.database_path.

Examples:
  mixdeck config set master_volume 0.8
  mixdeck config set tracking.enabled true`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd, args[0], args[1])
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print which config file is used",
		Args:  cobra.NoArgs,
		RunE:  runConfigPath,
	})

	return configCmd
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cli, err := cliFromContext(cmd.Context())
	if err != nil {
		return err
	}

	cfg, err := cli.loadAndValidateConfig(cmd)
	if err != nil {
		return err
	}
	return writeJSON(cmd, cfg)
}

func runConfigSet(cmd *cobra.Command, key, value string) error {
	cli, err := cliFromContext(cmd.Context())
	if err != nil {
		return err
	}
	cm := cli.configManager

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		if found, ok := cm.FindConfigFile(); ok {
			path = found
		} else {
			path = cm.UserConfigPath()
		}
	}

	cfg := cm.GetDefaultConfig()
	if exists, _ := afero.Exists(cli.fsFactory.Production(), path); exists {
		if cfg, err = cm.LoadFromFile(path); err != nil {
			return err
		}
	}

	if err := cm.Set(cfg, key, value); err != nil {
		return err
	}
	if err := cm.SaveToFile(cfg, path); err != nil {
		return err
	}

	cmd.Printf("%s = %s (%s)\n", key, value, path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	cli, err := cliFromContext(cmd.Context())
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cmd.Println(path)
		return nil
	}
	if path, ok := cli.configManager.FindConfigFile(); ok {
		cmd.Println(path)
		return nil
	}
	cmd.Printf("no config file, defaults in use (user config: %s)\n", cli.configManager.UserConfigPath())
	return nil
}
