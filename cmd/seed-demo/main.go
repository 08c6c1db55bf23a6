// seed-demo populates an empty database with a few months of plausible
// small-business activity: recurring income and expenses with day-to-day
// noise, plus the derived snapshots and standard forecasts. The random seed
// is fixed so repeated runs against a fresh database produce the same ledger.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/seed-demo -days 90
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/config"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/models"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/workflow"
	"github.com/shopspring/decimal"
)

type seedTemplate struct {
	category    string
	description string
	txnType     models.TransactionType
	baseAmount  float64
	// probability a given day produces this transaction
	chance float64
}

var templates = []seedTemplate{
	{"Sales", "Daily sales revenue", models.TransactionTypeIncome, 2500, 0.9},
	{"Consulting", "Consulting engagement", models.TransactionTypeIncome, 4000, 0.15},
	{"Payroll", "Staff wages", models.TransactionTypeExpense, 1800, 0.3},
	{"Rent", "Office rent", models.TransactionTypeExpense, 3000, 0.04},
	{"Supplies", "Office and shop supplies", models.TransactionTypeExpense, 350, 0.4},
	{"Utilities", "Power and internet", models.TransactionTypeExpense, 220, 0.1},
	{"Marketing", "Online advertising", models.TransactionTypeExpense, 500, 0.2},
}

func main() {
	days := flag.Int("days", 90, "How many days of history to generate")
	flag.Parse()

	ctx := context.Background()
	logger := config.GetLogger()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	var existing int64
	if err := db.WithContext(ctx).Model(&models.Transaction{}).Count(&existing).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to count transactions: %v\n", err)
		os.Exit(1)
	}
	if existing > 0 {
		fmt.Fprintf(os.Stderr, "database already has %d transactions; refusing to seed on top\n", existing)
		os.Exit(2)
	}

	rng := rand.New(rand.NewSource(42))
	start := time.Now().AddDate(0, 0, -*days)
	created := 0

	for d := 0; d < *days; d++ {
		date := start.AddDate(0, 0, d)
		for _, tpl := range templates {
			if rng.Float64() > tpl.chance {
				continue
			}
			// +/- 30% noise around the base amount.
			amount := tpl.baseAmount * (0.7 + rng.Float64()*0.6)
			input := models.NewTransaction{
				TransactionDate: date,
				Amount:          decimal.NewFromFloat(amount).Round(2),
				Type:            tpl.txnType,
				Category:        tpl.category,
				Description:     tpl.description,
			}
			if _, err := models.CreateTransaction(ctx, &input); err != nil {
				fmt.Fprintf(os.Stderr, "failed to create transaction: %v\n", err)
				os.Exit(1)
			}
			created++
		}
	}
	fmt.Printf("Seeded %d transactions over %d days\n", created, *days)

	for d := 0; d < *days; d++ {
		date := start.AddDate(0, 0, d)
		if err := workflow.GenerateDailySnapshot(ctx, logger, date); err != nil {
			fmt.Fprintf(os.Stderr, "snapshot for %s failed: %v\n", date.Format("2006-01-02"), err)
			os.Exit(1)
		}
	}
	fmt.Println("Generated daily snapshots")

	settings := config.GetSettings()
	if err := workflow.GenerateStandardForecasts(ctx, logger, settings.Forecast); err != nil {
		fmt.Fprintf(os.Stderr, "forecast generation failed: %v\n", err)
		os.Exit(1)
	}
	if inserted, err := workflow.EvaluateAlertRules(ctx, logger, settings.Alert); err != nil {
		fmt.Fprintf(os.Stderr, "alert evaluation failed: %v\n", err)
		os.Exit(1)
	} else {
		fmt.Printf("Generated forecasts and %d alerts\n", inserted)
	}

	fmt.Println("Seed complete")
}
