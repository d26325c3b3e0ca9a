package main

import (
	"github.com/hohotang/shortlink-core/internal/config"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:          "shortlink-core",
	Short:        "shortlink-core shortens same-origin URLs and resolves them back",
	SilenceUsage: true,
	// Serving is the default action
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./config.yaml or ./config/config.yaml)")
}

// loadConfig reads the configuration selected by the --config flag
func loadConfig() (*config.Config, error) {
	return config.Load(configFile)
}
