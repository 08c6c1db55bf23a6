package workflow

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/models"
	"github.com/shopspring/decimal"
)

func TestBuildSnapshot_Arithmetic(t *testing.T) {
	day := time.Date(2026, 2, 10, 18, 30, 0, 0, time.UTC)
	transactions := []*models.Transaction{
		{Type: models.TransactionTypeIncome, Amount: decimal.RequireFromString("1500.00")},
		{Type: models.TransactionTypeIncome, Amount: decimal.RequireFromString("250.50")},
		{Type: models.TransactionTypeExpense, Amount: decimal.RequireFromString("600.25")},
	}

	snapshot := BuildSnapshot(day, decimal.RequireFromString("8000"), transactions, time.Now())

	if !snapshot.TotalIncome.Equal(decimal.RequireFromString("1750.50")) {
		t.Fatalf("expected income 1750.50, got %s", snapshot.TotalIncome)
	}
	if !snapshot.TotalExpenses.Equal(decimal.RequireFromString("600.25")) {
		t.Fatalf("expected expenses 600.25, got %s", snapshot.TotalExpenses)
	}
	if !snapshot.NetCashFlow.Equal(decimal.RequireFromString("1150.25")) {
		t.Fatalf("expected net flow 1150.25, got %s", snapshot.NetCashFlow)
	}
	// closing = opening + income - expenses must hold by construction.
	if !snapshot.OpeningBalance.Add(snapshot.NetCashFlow).Equal(snapshot.ClosingBalance) {
		t.Fatalf("opening %s + net %s != closing %s",
			snapshot.OpeningBalance, snapshot.NetCashFlow, snapshot.ClosingBalance)
	}
	if !snapshot.OpeningBalance.Equal(decimal.RequireFromString("6849.75")) {
		t.Fatalf("expected opening 6849.75, got %s", snapshot.OpeningBalance)
	}
	if snapshot.TransactionCount != 3 {
		t.Fatalf("expected count 3, got %d", snapshot.TransactionCount)
	}
	if !snapshot.SnapshotDate.Equal(time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected date truncated to midnight, got %s", snapshot.SnapshotDate)
	}
}

func TestBuildSnapshot_NoTransactions(t *testing.T) {
	day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	closing := decimal.RequireFromString("5000")

	snapshot := BuildSnapshot(day, closing, nil, time.Now())

	if !snapshot.NetCashFlow.IsZero() {
		t.Fatalf("expected zero net flow, got %s", snapshot.NetCashFlow)
	}
	if !snapshot.OpeningBalance.Equal(closing) {
		t.Fatalf("quiet day: opening %s should equal closing %s", snapshot.OpeningBalance, closing)
	}
	if snapshot.TransactionCount != 0 {
		t.Fatalf("expected count 0, got %d", snapshot.TransactionCount)
	}
}

func TestBuildSnapshot_NegativeFlowDay(t *testing.T) {
	day := time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)
	transactions := []*models.Transaction{
		{Type: models.TransactionTypeExpense, Amount: decimal.RequireFromString("2000")},
	}

	snapshot := BuildSnapshot(day, decimal.RequireFromString("3000"), transactions, time.Now())

	if !snapshot.NetCashFlow.Equal(decimal.RequireFromString("-2000")) {
		t.Fatalf("expected net flow -2000, got %s", snapshot.NetCashFlow)
	}
	if !snapshot.OpeningBalance.Equal(decimal.RequireFromString("5000")) {
		t.Fatalf("expected opening 5000, got %s", snapshot.OpeningBalance)
	}
}
