package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/glucobot/glucobot/internal/cli"
	"github.com/glucobot/glucobot/internal/config"
	"github.com/glucobot/glucobot/internal/dataset"
	"github.com/glucobot/glucobot/internal/logger"
	"github.com/glucobot/glucobot/internal/memory"
)

var (
	version = "0.1.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configDir string

	rootCmd := &cobra.Command{
		Use:   "glucobot",
		Short: "Glucose Data Assistant - conversational access to CGM data",
		Long: `Glucose Data Assistant answers questions about continuous glucose monitoring data.

It can:
  • Show a patient's glucose readings as a chart or a raw data table
  • Ask for the patient or the format when a request is incomplete
  • Answer follow-up questions about the patient currently shown
  • Export the conversation as a PDF`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configDir != "" {
				config.SetConfigDir(configDir)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Close()

			return cli.Run(cfg)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ./config)")

	// config subcommand
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.String())

			path, _ := config.ConfigPath()
			fmt.Fprintf(cmd.OutOrStdout(), "\nConfig file path: %s\n", path)
			return nil
		},
	}

	// patients subcommand
	patientsCmd := &cobra.Command{
		Use:   "patients",
		Short: "List patient IDs found in the data root",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			catalog, err := dataset.LoadCatalog(cfg.Data.Root, cfg.Data.FolderPrefix)
			if err != nil {
				return fmt.Errorf("failed to load patient catalog: %w", err)
			}
			for _, id := range catalog.IDs() {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	// exports subcommand
	var limit int
	exportsCmd := &cobra.Command{
		Use:   "exports",
		Short: "List recent conversation exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			journal, err := memory.NewSQLiteJournal(cfg.Memory.JournalPath)
			if err != nil {
				return fmt.Errorf("failed to open export journal: %w", err)
			}
			defer journal.Close()

			records, err := journal.ListExports(limit)
			if err != nil {
				return fmt.Errorf("failed to list exports: %w", err)
			}
			for _, r := range records {
				line := fmt.Sprintf("%s\t%s\t%s", r.CreatedAt.Format("2006-01-02 15:04:05"), r.PatientID, r.Path)
				if r.RemoteURL != "" {
					line += "\t" + r.RemoteURL
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	exportsCmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of exports to list")

	// version subcommand
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Glucose Data Assistant v%s\n", version)
		},
	}

	rootCmd.AddCommand(configCmd, patientsCmd, exportsCmd, versionCmd)
	rootCmd.SetContext(context.Background())
	return rootCmd
}

// loadConfig loads the configuration and starts file logging
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		LogDir:     config.LogDir(),
		Level:      cfg.Log.Level,
		MaxDays:    cfg.Log.MaxDays,
		ConsoleOut: cfg.Log.Console,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	logConfigInfo(cfg)
	return cfg, nil
}

// logConfigInfo records the effective configuration without the API key
func logConfigInfo(cfg *config.Config) {
	apiKeyStatus := "not configured"
	if cfg.Model.APIKey != "" {
		apiKeyStatus = "configured"
	}

	logger.Info().
		Str("provider", cfg.Model.Provider).
		Str("api_key", apiKeyStatus).
		Str("base_url", cfg.Model.BaseURL).
		Str("model", cfg.Model.Model).
		Float64("temperature", cfg.Model.Temperature).
		Int("max_tokens", cfg.Model.MaxTokens).
		Str("data_root", cfg.Data.Root).
		Int("memory_turns", cfg.Memory.MaxTurns).
		Str("output_dir", cfg.Output.Dir).
		Bool("open_viewer", cfg.Output.OpenViewer).
		Str("bucket", cfg.Output.Bucket).
		Msg("configuration loaded")
}
