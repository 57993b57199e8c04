package main

import (
	"github.com/spf13/cobra"

	"github.com/auria-labs/auria-agent/config"
)

const serviceName = "auria-agent"

var (
	tomlPath string
	jsonPath string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "auria",
		Short:        "AURIA agent: tiered dispatch to inference workers",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&tomlPath, "config", config.DefaultTOMLFile, "Path to the TOML config file")
	rootCmd.PersistentFlags().StringVar(&jsonPath, "config-json", config.DefaultJSONFile, "Path to the JSON config file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newKeysCmd())
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	return config.LoadFiles(tomlPath, jsonPath)
}
