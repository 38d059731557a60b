package cmd

import (
	"errors"
	"os"

	"github.com/phynance/phyn/config"
	"github.com/phynance/phyn/db"
	"github.com/phynance/phyn/pkg/clierr"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// cfg is the active configuration. Commands run outside the root command see the defaults.
	cfg = config.Default()

	configPath string
	apiURL     string
)

func Execute() {
	rootCmd := createRootCmd()
	rootCmd.PersistentFlags().BoolP("help", "h", false, "Show help for a command")

	err := rootCmd.Execute()
	closeDatabase()
	if err != nil {
		log.Error().Err(err).Msg("Command execution failed.")
		os.Exit(exitCode(err))
	}
}

func createRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "phyn",
		Short:         "Command-line client for the Phynance market physics API",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(); err != nil {
				return err
			}
			return initializeDatabase()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file (default ~/.phyn/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Base URL of the Phynance API; overrides the config file")

	rootCmd.AddCommand(
		initCmd(),
		loginCmd(),
		logoutCmd(),
		whoamiCmd(),
		authCmd(),
		marketCmd(),
		symbolsCmd(),
		analyzeCmd(),
		usageCmd(),
		usersCmd(),
		mockCmd(),
		versionCmd(),
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	return rootCmd
}

// loadConfig reads the config file and applies it to logging and storage.
func loadConfig() error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	loaded, err := config.Load(path)
	if err != nil {
		return clierr.New(clierr.Validation, "Failed to load config: "+err.Error(), err)
	}
	if err := loaded.Validate(); err != nil {
		return clierr.New(clierr.Validation, "Invalid config "+path+": "+err.Error(), err)
	}
	cfg = loaded

	// DEBUG_PHYN wins over the configured level; main has already applied it.
	if os.Getenv("DEBUG_PHYN") == "" {
		level, err := cfg.LogLevel()
		if err != nil {
			return clierr.New(clierr.Validation, err.Error(), err)
		}
		zerolog.SetGlobalLevel(level)
	}
	if cfg.Storage.DBPath != "" {
		db.Path = cfg.Storage.DBPath
	}
	log.Debug().Str("config", path).Str("api", baseURL()).Msg("Configuration loaded")
	return nil
}

func initializeDatabase() error {
	if db.GetDB() != nil {
		return nil
	}
	if err := db.InitDB(); err != nil {
		log.Error().Err(err).Msg("Failed to initialize database")
		return clierr.New(clierr.Internal, "Failed to initialize the local database", err)
	}
	return nil
}

func closeDatabase() {
	if err := db.CloseDB(); err != nil {
		log.Error().Err(err).Msg("Failed to close the database.")
	}
	db.Db = nil
}

// exitCode maps command errors to process exit codes.
func exitCode(err error) int {
	var cliErr *clierr.Error
	if errors.As(err, &cliErr) {
		return cliErr.Type.ExitCode()
	}
	return 1
}
