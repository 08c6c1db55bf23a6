package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/config"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/models"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// BuildSnapshot rolls a day's transactions plus the end-of-day running balance
// into a snapshot row. Pure; the caller supplies the inputs.
//
// OpeningBalance is derived as closing - netFlow so the snapshot arithmetic
// invariant holds by construction.
func BuildSnapshot(date time.Time, closingBalance decimal.Decimal, transactions []*models.Transaction, computedAt time.Time) *models.DailySnapshot {
	totalIncome := decimal.Zero
	totalExpenses := decimal.Zero
	for _, txn := range transactions {
		if txn.Type == models.TransactionTypeIncome {
			totalIncome = totalIncome.Add(txn.Amount)
		} else {
			totalExpenses = totalExpenses.Add(txn.Amount)
		}
	}
	netCashFlow := totalIncome.Sub(totalExpenses)

	return &models.DailySnapshot{
		SnapshotDate:     utils.TruncateToDay(date),
		OpeningBalance:   closingBalance.Sub(netCashFlow),
		TotalIncome:      totalIncome,
		TotalExpenses:    totalExpenses,
		ClosingBalance:   closingBalance,
		NetCashFlow:      netCashFlow,
		TransactionCount: len(transactions),
		ComputedAt:       computedAt,
	}
}

// GenerateDailySnapshot creates the snapshot for the given calendar date.
// Idempotent: if a snapshot for the date already exists the call is a silent
// no-op and the existing row is left untouched.
func GenerateDailySnapshot(ctx context.Context, logger *logrus.Logger, date time.Time) error {
	if _, err := models.GetSnapshotByDate(ctx, date); err == nil {
		logger.WithFields(logrus.Fields{
			"module": "snapshotWorkflow.go",
			"date":   date.Format("2006-01-02"),
		}).Info("snapshot already exists; skipping")
		return nil
	} else if !utils.IsNotFound(err) {
		return err
	}

	closingBalance, err := models.GetBalanceAsOf(ctx, utils.EndOfDay(date))
	if err != nil {
		config.LogError(logger, "snapshotWorkflow.go", "GenerateDailySnapshot", "GetBalanceAsOf", date, err)
		return err
	}
	transactions, err := models.GetTransactionsInRange(ctx, utils.StartOfDay(date), utils.EndOfDay(date))
	if err != nil {
		config.LogError(logger, "snapshotWorkflow.go", "GenerateDailySnapshot", "GetTransactionsInRange", date, err)
		return err
	}

	snapshot := BuildSnapshot(date, closingBalance, transactions, time.Now().UTC())
	inserted, err := models.CreateSnapshot(ctx, snapshot)
	if err != nil {
		config.LogError(logger, "snapshotWorkflow.go", "GenerateDailySnapshot", "CreateSnapshot", snapshot, err)
		return err
	}
	if inserted {
		logger.WithFields(logrus.Fields{
			"module": "snapshotWorkflow.go",
			"date":   snapshot.SnapshotDate.Format("2006-01-02"),
		}).Info("generated daily snapshot")
	}
	return nil
}
