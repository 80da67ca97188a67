package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gigpost/gigpost/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

func init() {
	configValidateCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/gigpost/config.yaml", "Path to configuration file")
	configCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	fmt.Println("Configuration is valid")
	fmt.Printf("  Listen address: %s\n", cfg.Server.ListenAddr)
	fmt.Printf("  Database path: %s\n", cfg.Database.Path)
	fmt.Printf("  QR cache path: %s\n", cfg.QRCache.Path)
	fmt.Printf("  Dispatch batch size: %d\n", cfg.Dispatch.BatchSize)
	fmt.Printf("  Scheduler poll interval: %s\n", cfg.Dispatch.PollInterval)

	if cfg.SMTP.Host == "" {
		fmt.Println("  SMTP relay: not configured (campaign sends will fail)")
	} else {
		fmt.Printf("  SMTP relay: %s:%d (from %s)\n", cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From)
	}
	if cfg.SMTP.DKIM.Enabled {
		fmt.Printf("  DKIM: %s (selector %s)\n", cfg.SMTP.DKIM.Domain, cfg.SMTP.DKIM.Selector)
	}

	return nil
}
