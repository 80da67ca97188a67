package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gigpost/gigpost/internal/handlers"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "gigpost",
	Short: "GigPost - email campaigns and ticket sales for events",
	Long:  `GigPost manages recipient lists, sends bulk email campaigns, and sells event tickets with QR codes.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gigpost %s (built %s)\n", version, buildTime)
	},
}

func init() {
	if version != "dev" {
		handlers.Version = version
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(dkimCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
