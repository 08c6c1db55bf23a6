package models

import (
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/utils"
	"github.com/shopspring/decimal"
)

func validNewTransaction() NewTransaction {
	return NewTransaction{
		TransactionDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Amount:          decimal.NewFromInt(250),
		Type:            TransactionTypeIncome,
		Category:        "Sales",
	}
}

func TestNewTransactionValidate(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	badPattern := RecurrencePattern("Fortnightly")

	cases := []struct {
		name   string
		mutate func(*NewTransaction)
		wantOK bool
	}{
		{"valid", func(*NewTransaction) {}, true},
		{"zero amount", func(in *NewTransaction) { in.Amount = decimal.Zero }, false},
		{"negative amount", func(in *NewTransaction) { in.Amount = decimal.NewFromInt(-5) }, false},
		{"blank category", func(in *NewTransaction) { in.Category = "   " }, false},
		{"category too long", func(in *NewTransaction) { in.Category = strings.Repeat("x", 101) }, false},
		{"invalid type", func(in *NewTransaction) { in.Type = "Transfer" }, false},
		{"one year ahead ok", func(in *NewTransaction) { in.TransactionDate = now.AddDate(1, 0, 0) }, true},
		{"too far in future", func(in *NewTransaction) { in.TransactionDate = now.AddDate(1, 0, 1) }, false},
		{"backdated ok", func(in *NewTransaction) { in.TransactionDate = now.AddDate(-2, 0, 0) }, true},
		{"invalid recurrence", func(in *NewTransaction) { in.RecurrencePattern = &badPattern }, false},
	}

	for _, tc := range cases {
		input := validNewTransaction()
		tc.mutate(&input)
		err := input.Validate(now)
		if tc.wantOK && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.wantOK {
			if err == nil {
				t.Fatalf("%s: expected validation error", tc.name)
			}
			if !utils.IsValidationError(err) {
				t.Fatalf("%s: expected ValidationError, got %T", tc.name, err)
			}
		}
	}
}
