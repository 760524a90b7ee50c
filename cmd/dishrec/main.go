package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/temcen/dishrec/internal/config"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "dishrec",
		Short:         "dishrec - Vietnamese dish recommendation engine",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./config/app.yaml)")

	load := func() (*config.Config, error) {
		v := viper.New()
		if configFile != "" {
			v.SetConfigFile(configFile)
		}
		cfg, err := config.LoadWith(v)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		return cfg, nil
	}

	rootCmd.AddCommand(serveCmd(load))
	rootCmd.AddCommand(recommendCmd(load))
	rootCmd.AddCommand(tokenCmd(load))
	rootCmd.AddCommand(schemaCmd())

	return rootCmd
}

type configLoader func() (*config.Config, error)
