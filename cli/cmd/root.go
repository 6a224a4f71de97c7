package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pulsefeed",
	Short: "PulseFeed developer CLI",
	Long: `pulsefeed is the developer command-line tool for the PulseFeed stack.

Mint development tokens and seed the platform with test data through
the gateway.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}
