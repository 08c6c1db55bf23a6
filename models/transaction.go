package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/config"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction is a single ledger entry. Amount is always positive; Type carries
// the sign semantics. Immutable except for the patch fields in UpdateTransaction.
type Transaction struct {
	ID                int                `gorm:"primary_key" json:"id"`
	TransactionDate   time.Time          `gorm:"not null;index" json:"transaction_date" binding:"required"`
	Amount            decimal.Decimal    `gorm:"type:decimal(20,4);not null" json:"amount"`
	Type              TransactionType    `gorm:"type:enum('Income','Expense');not null" json:"type" binding:"required"`
	Category          string             `gorm:"size:100;not null" json:"category" binding:"required"`
	Description       string             `gorm:"size:500" json:"description"`
	ReferenceId       *string            `gorm:"size:100" json:"reference_id"`
	IsRecurring       *bool              `gorm:"not null;default:false" json:"is_recurring"`
	RecurrencePattern *RecurrencePattern `gorm:"type:enum('None','Daily','Weekly','Monthly','Quarterly','Annually');default:null" json:"recurrence_pattern"`
	CreatedAt         time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTransaction struct {
	TransactionDate   time.Time          `json:"transaction_date" binding:"required"`
	Amount            decimal.Decimal    `json:"amount"`
	Type              TransactionType    `json:"type" binding:"required"`
	Category          string             `json:"category" binding:"required"`
	Description       string             `json:"description"`
	ReferenceId       string             `json:"reference_id"`
	IsRecurring       bool               `json:"is_recurring"`
	RecurrencePattern *RecurrencePattern `json:"recurrence_pattern"`
}

// UpdateTransactionInput is a patch: nil fields are left untouched.
type UpdateTransactionInput struct {
	Amount      *decimal.Decimal `json:"amount"`
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
}

func (input *NewTransaction) Validate(now time.Time) error {
	if !input.Amount.IsPositive() {
		return utils.NewValidationError("transaction amount must be greater than zero")
	}
	if strings.TrimSpace(input.Category) == "" {
		return utils.NewValidationError("transaction category is required")
	}
	if len(input.Category) > 100 {
		return utils.NewValidationError("transaction category must be 100 characters or fewer")
	}
	if !input.Type.IsValid() {
		return utils.NewValidationError("transaction type must be Income or Expense")
	}
	if input.TransactionDate.After(now.AddDate(1, 0, 0)) {
		return utils.NewValidationError("transaction date cannot be more than 1 year in the future")
	}
	if input.RecurrencePattern != nil && !input.RecurrencePattern.IsValid() {
		return utils.NewValidationError("invalid recurrence pattern")
	}
	return nil
}

func CreateTransaction(ctx context.Context, input *NewTransaction) (*Transaction, error) {
	if err := input.Validate(time.Now()); err != nil {
		return nil, err
	}

	isRecurring := input.IsRecurring
	transaction := Transaction{
		TransactionDate:   input.TransactionDate,
		Amount:            input.Amount,
		Type:              input.Type,
		Category:          input.Category,
		Description:       input.Description,
		ReferenceId:       utils.NilIfEmpty(input.ReferenceId),
		IsRecurring:       &isRecurring,
		RecurrencePattern: input.RecurrencePattern,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&transaction).Error; err != nil {
		return nil, err
	}
	return &transaction, nil
}

func GetTransaction(ctx context.Context, id int) (*Transaction, error) {
	db := config.GetDB()
	var transaction Transaction
	if err := db.WithContext(ctx).First(&transaction, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &transaction, nil
}

// UpdateTransaction applies a patch-style update. Untouched patches are a no-op
// (UpdatedAt is not bumped when nothing changed).
func UpdateTransaction(ctx context.Context, id int, input *UpdateTransactionInput) (*Transaction, error) {
	transaction, err := GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Amount != nil && !input.Amount.Equal(transaction.Amount) {
		if !input.Amount.IsPositive() {
			return nil, utils.NewValidationError("transaction amount must be greater than zero")
		}
		updates["Amount"] = *input.Amount
	}
	if input.Category != nil && *input.Category != transaction.Category {
		if strings.TrimSpace(*input.Category) == "" {
			return nil, utils.NewValidationError("transaction category is required")
		}
		if len(*input.Category) > 100 {
			return nil, utils.NewValidationError("transaction category must be 100 characters or fewer")
		}
		updates["Category"] = *input.Category
	}
	if input.Description != nil && *input.Description != transaction.Description {
		updates["Description"] = *input.Description
	}

	if len(updates) == 0 {
		return transaction, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(transaction).Updates(updates).Error; err != nil {
		return nil, err
	}
	return transaction, nil
}

// DeleteTransaction is idempotent: deleting a missing id is a successful no-op.
func DeleteTransaction(ctx context.Context, id int) error {
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&Transaction{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	return db.WithContext(ctx).Delete(&Transaction{}, id).Error
}

func GetRecentTransactions(ctx context.Context, limit int) ([]*Transaction, error) {
	db := config.GetDB()
	var transactions []*Transaction
	if err := db.WithContext(ctx).
		Order("transaction_date DESC, id DESC").
		Limit(limit).
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// GetTransactionsInRange returns transactions with start <= date <= end,
// newest first.
func GetTransactionsInRange(ctx context.Context, start time.Time, end time.Time) ([]*Transaction, error) {
	db := config.GetDB()
	var transactions []*Transaction
	if err := db.WithContext(ctx).
		Where("transaction_date BETWEEN ? AND ?", start, end).
		Order("transaction_date DESC, id DESC").
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// GetBalanceAsOf returns sum(Income) - sum(Expense) over all transactions with
// date <= asOf. This is the live ledger balance, independent of snapshots.
func GetBalanceAsOf(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	db := config.GetDB()
	balance := decimal.Zero
	err := db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(CASE WHEN type = 'Income' THEN amount ELSE -amount END), 0)
		FROM transactions
		WHERE transaction_date <= ?
	`, asOf).Scan(&balance).Error
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

type TransactionSummary struct {
	TotalIncome            decimal.Decimal `json:"total_income"`
	TotalExpenses          decimal.Decimal `json:"total_expenses"`
	NetCashFlow            decimal.Decimal `json:"net_cash_flow"`
	TransactionCount       int             `json:"transaction_count"`
	AverageTransactionSize decimal.Decimal `json:"average_transaction_size"`
}

func GetTransactionSummary(ctx context.Context, start time.Time, end time.Time) (*TransactionSummary, error) {
	db := config.GetDB()
	var row struct {
		TotalIncome      decimal.Decimal
		TotalExpenses    decimal.Decimal
		TransactionCount int
	}
	err := db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(CASE WHEN type = 'Income' THEN amount ELSE 0 END), 0) AS total_income,
			COALESCE(SUM(CASE WHEN type = 'Expense' THEN amount ELSE 0 END), 0) AS total_expenses,
			COUNT(*) AS transaction_count
		FROM transactions
		WHERE transaction_date BETWEEN ? AND ?
	`, start, end).Scan(&row).Error
	if err != nil {
		return nil, err
	}

	summary := &TransactionSummary{
		TotalIncome:      row.TotalIncome,
		TotalExpenses:    row.TotalExpenses,
		NetCashFlow:      row.TotalIncome.Sub(row.TotalExpenses),
		TransactionCount: row.TransactionCount,
	}
	if row.TransactionCount > 0 {
		summary.AverageTransactionSize = row.TotalIncome.Add(row.TotalExpenses).
			Div(decimal.NewFromInt(int64(row.TransactionCount))).Round(2)
	}
	return summary, nil
}
