package cmd

import (
	"errors"
	"os"

	"github.com/phynance/phyn/config"
	"github.com/phynance/phyn/pkg/clierr"
	"github.com/spf13/cobra"
)

// initCmd writes a config file for first-time use.
func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file for first-time use",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = config.DefaultPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return clierr.New(clierr.Validation, "Config file "+path+" already exists; use --force to overwrite it", nil)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return clierr.New(clierr.Internal, "Failed to inspect "+path, err)
			}

			out := *cfg
			out.API.BaseURL = baseURL()
			if err := config.Save(path, &out); err != nil {
				return clierr.New(clierr.Internal, "Failed to write the config file", err)
			}
			cmd.Printf("Config written to %s\n", path)
			cmd.Printf("API: %s\n", out.API.BaseURL)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	return cmd
}
