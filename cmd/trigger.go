package cmd

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger <account_id> <platform>",
	Short: "Run one scheduling batch for a pair and exit",
	Long: `Runs a single scheduling batch for the given (account, platform) pair,
exactly as the watcher would, then prints the outcome. Useful to verify a
pair's configuration without waiting for the next sweep.`,
	Args: cobra.ExactArgs(2),
	Run:  runTrigger,
}

func init() {
	rootCmd.AddCommand(triggerCmd)
}

func runTrigger(_ *cobra.Command, args []string) {
	defer StopApp()

	accountID := args[0]
	platform, err := parsePlatform(args[1])
	if err != nil {
		logrus.Fatalf("[TRIGGER] %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	result, err := engine.ScheduleReady(ctx, accountID, platform)
	if err != nil {
		logrus.Fatalf("[TRIGGER] Scheduling batch failed: %v", err)
	}

	if result.InProgress {
		logrus.Warnf("[TRIGGER] Pair %s/%s is already being scheduled elsewhere, nothing to do", accountID, platform)
		return
	}

	logrus.Infof("[TRIGGER] Pair %s/%s: %d scheduled, %d skipped", accountID, platform, result.Scheduled, result.Skipped)
	for _, itemErr := range result.Errors {
		logrus.Warnf("[TRIGGER] Item %s: %s", itemErr.Fingerprint, itemErr.Message)
	}
}
