package cli

import (
	"fmt"
	"os"

	"taskflow-backend/pkg/config"

	"github.com/spf13/cobra"
)

var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "taskflow",
	Short:         "Work and task scheduler mirrored to Google Tasks",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file overlaid on the environment")
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if configPath != "" {
		if err := cfg.MergeFile(configPath); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
