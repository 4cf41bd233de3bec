package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/selectbot/internal/dashboard"
	"github.com/ibeckermayer/selectbot/internal/observability"
)

var (
	noBrowser bool
	addrFlag  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reply dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		if noBrowser {
			cfg.Server.OpenBrowser = false
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return dashboard.Run(ctx, cfg, cfgFile, observability.GetLogger())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "do not open the dashboard in a browser")
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (overrides config)")
	serveCmd.PreRun = func(cmd *cobra.Command, args []string) {
		if addrFlag != "" {
			cfg.Server.Addr = addrFlag
		}
	}
}
