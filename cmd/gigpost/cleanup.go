package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gigpost/gigpost/internal/repository"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Clean up old data (mail logs, stale payments)",
	RunE:  runCleanup,
}

var (
	cleanupLogsDays     int
	cleanupPaymentHours int
	cleanupDryRun       bool
)

func init() {
	cleanupCmd.Flags().IntVar(&cleanupLogsDays, "logs-days", 90, "Delete mail log entries older than N days")
	cleanupCmd.Flags().IntVar(&cleanupPaymentHours, "payments-hours", 24, "Delete pending payments older than N hours")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be deleted without actually deleting")
	cleanupCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/gigpost/config.yaml", "Path to configuration file")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	if cleanupDryRun {
		fmt.Println("Dry run mode - no data will be deleted")
		fmt.Println()
	}

	logsCutoff := time.Now().AddDate(0, 0, -cleanupLogsDays)
	var logCount int64
	if cleanupDryRun {
		err = database.QueryRow(
			"SELECT COUNT(*) FROM mail_logs WHERE created_at < ?", logsCutoff,
		).Scan(&logCount)
		if err != nil {
			return fmt.Errorf("failed to count mail logs: %w", err)
		}
	} else {
		logCount, err = repository.NewMailLogRepository(database.DB).DeleteOlderThan(logsCutoff)
		if err != nil {
			return fmt.Errorf("failed to cleanup mail logs: %w", err)
		}
	}
	fmt.Printf("Mail log entries older than %d days: %d\n", cleanupLogsDays, logCount)

	paymentsCutoff := time.Now().Add(-time.Duration(cleanupPaymentHours) * time.Hour)
	var paymentCount int64
	if cleanupDryRun {
		err = database.QueryRow(
			"SELECT COUNT(*) FROM payments WHERE status = 'PENDING' AND created_at < ?", paymentsCutoff,
		).Scan(&paymentCount)
		if err != nil {
			return fmt.Errorf("failed to count stale payments: %w", err)
		}
	} else {
		paymentCount, err = repository.NewPaymentRepository(database.DB).DeleteStalePending(paymentsCutoff)
		if err != nil {
			return fmt.Errorf("failed to cleanup stale payments: %w", err)
		}
	}
	fmt.Printf("Pending payments older than %d hours: %d\n", cleanupPaymentHours, paymentCount)

	if !cleanupDryRun {
		fmt.Println("\nCleanup completed")
	}

	return nil
}
