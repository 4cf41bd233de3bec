package main

import (
	"fmt"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/selectbot/internal/config"
)

var openCmd = &cobra.Command{
	Use:       "open <config|cache|dashboard>",
	Short:     "Open the config file, cache directory or running dashboard",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"config", "cache", "dashboard"},
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := openTarget(args[0], cfg)
		if err != nil {
			return err
		}
		if args[0] == "dashboard" {
			return browser.OpenURL(target)
		}
		return browser.OpenFile(target)
	},
}

func openTarget(name string, cfg *config.Config) (string, error) {
	switch name {
	case "config":
		return config.ConfigPath()
	case "cache":
		return config.CacheDir()
	case "dashboard":
		return "http://" + cfg.Server.Addr, nil
	}
	return "", fmt.Errorf("unknown target: %s", name)
}
