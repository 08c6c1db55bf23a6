// backfill-snapshots regenerates daily snapshots for a date range, skipping
// dates that already have one.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/backfill-snapshots -from 2026-01-01 -to 2026-03-31
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/config"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/models"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/utils"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/workflow"
)

func main() {
	from := flag.String("from", "", "Optional: start date (YYYY-MM-DD). Defaults to the earliest transaction date.")
	to := flag.String("to", "", "Optional: end date (YYYY-MM-DD). Defaults to yesterday.")
	flag.Parse()

	ctx := context.Background()
	logger := config.GetLogger()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	// Ensure schema is up-to-date (creates daily_snapshots if missing).
	models.MigrateTable()

	start, err := resolveStart(ctx, strings.TrimSpace(*from))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve start date: %v\n", err)
		os.Exit(1)
	}
	end := utils.TruncateToDay(time.Now().AddDate(0, 0, -1))
	if raw := strings.TrimSpace(*to); raw != "" {
		end, err = time.Parse("2006-01-02", raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -to date: %v\n", err)
			os.Exit(1)
		}
	}
	if end.Before(start) {
		fmt.Fprintln(os.Stderr, "end date precedes start date; nothing to do")
		return
	}

	fmt.Printf("Backfilling daily_snapshots from=%s to=%s\n",
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	days := 0
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		if err := workflow.GenerateDailySnapshot(ctx, logger, date); err != nil {
			fmt.Fprintf(os.Stderr, "snapshot for %s failed: %v\n", date.Format("2006-01-02"), err)
			os.Exit(1)
		}
		days++
	}

	fmt.Printf("Backfill complete (%d days)\n", days)
}

func resolveStart(ctx context.Context, from string) (time.Time, error) {
	if from != "" {
		return time.Parse("2006-01-02", from)
	}

	db := config.GetDB()
	var earliest models.Transaction
	if err := db.WithContext(ctx).Order("transaction_date ASC").First(&earliest).Error; err != nil {
		return time.Time{}, fmt.Errorf("no transactions found: %w", err)
	}
	return utils.TruncateToDay(earliest.TransactionDate), nil
}
