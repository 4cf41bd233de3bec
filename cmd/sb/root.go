package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibeckermayer/selectbot/internal/config"
	"github.com/ibeckermayer/selectbot/internal/dashboard"
	"github.com/ibeckermayer/selectbot/internal/observability"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "sb",
	Short:         "selectbot dev CLI",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, created, err := dashboard.LoadConfig(cfgFile)
		if err != nil {
			observability.InitializeLogger(config.Default().Logger)
			return err
		}
		cfg = loaded
		observability.InitializeLogger(cfg.Logger)
		if created {
			observability.GetLogger().Info("Created default config")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		observability.Sync()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		observability.GetLogger().Error("Command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is the user config dir)")
	rootCmd.AddCommand(serveCmd, loginCmd, logoutCmd, botTestCmd, openCmd)
}
