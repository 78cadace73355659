package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ordering",
	Short: "Restaurant ordering service",
	Long:  `Restaurant ordering service: web storefront, JSON menu API and background worker`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
