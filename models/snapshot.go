package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/config"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailySnapshot is an immutable per-date rollup of the ledger, one row per
// calendar date. Derived data: it can always be rebuilt from transactions
// (see cmd/backfill-snapshots).
//
// Invariants:
// - ClosingBalance = OpeningBalance + TotalIncome - TotalExpenses
// - NetCashFlow = TotalIncome - TotalExpenses
type DailySnapshot struct {
	ID               int             `gorm:"primary_key" json:"id"`
	SnapshotDate     time.Time       `gorm:"not null;uniqueIndex:idx_snapshot_date" json:"snapshot_date"`
	OpeningBalance   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"opening_balance"`
	TotalIncome      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_income"`
	TotalExpenses    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_expenses"`
	ClosingBalance   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"closing_balance"`
	NetCashFlow      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"net_cash_flow"`
	TransactionCount int             `gorm:"not null;default:0" json:"transaction_count"`
	ComputedAt       time.Time       `gorm:"not null" json:"computed_at"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func GetSnapshotByDate(ctx context.Context, date time.Time) (*DailySnapshot, error) {
	db := config.GetDB()
	var snapshot DailySnapshot
	err := db.WithContext(ctx).
		Where("snapshot_date = ?", utils.TruncateToDay(date)).
		First(&snapshot).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &snapshot, nil
}

// GetSnapshotsInRange returns snapshots with start <= date <= end, oldest first.
func GetSnapshotsInRange(ctx context.Context, start time.Time, end time.Time) ([]*DailySnapshot, error) {
	db := config.GetDB()
	var snapshots []*DailySnapshot
	err := db.WithContext(ctx).
		Where("snapshot_date BETWEEN ? AND ?", utils.TruncateToDay(start), utils.TruncateToDay(end)).
		Order("snapshot_date ASC").
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

// CreateSnapshot inserts the snapshot if no row exists for its date yet.
// The unique index on snapshot_date makes this safe under concurrent callers:
// a losing writer gets a no-op, never a duplicate row or an overwrite.
// Returns true when a row was actually inserted.
func CreateSnapshot(ctx context.Context, snapshot *DailySnapshot) (bool, error) {
	snapshot.SnapshotDate = utils.TruncateToDay(snapshot.SnapshotDate)

	db := config.GetDB()
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "snapshot_date"}},
			DoNothing: true,
		}).
		Create(snapshot)
	if result.Error != nil {
		if utils.IsDuplicateKey(result.Error) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
