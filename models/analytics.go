package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/utils"
	"github.com/shopspring/decimal"
)

type TrendDirection string

const (
	TrendDirectionRising  TrendDirection = "Rising"
	TrendDirectionFalling TrendDirection = "Falling"
	TrendDirectionStable  TrendDirection = "Stable"
)

type ChartDataPoint struct {
	Date     string           `json:"date"`
	Balance  decimal.Decimal  `json:"balance"`
	Income   *decimal.Decimal `json:"income,omitempty"`
	Expenses *decimal.Decimal `json:"expenses,omitempty"`
}

type CashFlowTrend struct {
	DataPoints []ChartDataPoint `json:"data_points"`
	Direction  TrendDirection   `json:"direction"`
	GrowthRate decimal.Decimal  `json:"growth_rate"`
}

type GrowthMetrics struct {
	CurrentBalance       decimal.Decimal `json:"current_balance"`
	BalanceChangePercent decimal.Decimal `json:"balance_change_percent"`
	NetCashFlow30Day     decimal.Decimal `json:"net_cash_flow_30_day"`
	BurnRate             decimal.Decimal `json:"burn_rate"`
}

// GetCashFlowTrend charts balance/income/expense per day over a period from
// the pre-computed snapshots, with a coarse direction (first vs last closing
// balance) and growth rate.
func GetCashFlowTrend(ctx context.Context, start time.Time, end time.Time) (*CashFlowTrend, error) {
	snapshots, err := GetSnapshotsInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	points := make([]ChartDataPoint, 0, len(snapshots))
	for _, s := range snapshots {
		income := s.TotalIncome
		expenses := s.TotalExpenses
		points = append(points, ChartDataPoint{
			Date:     s.SnapshotDate.Format("2006-01-02"),
			Balance:  s.ClosingBalance,
			Income:   &income,
			Expenses: &expenses,
		})
	}

	trend := &CashFlowTrend{
		DataPoints: points,
		Direction:  TrendDirectionStable,
		GrowthRate: decimal.Zero,
	}
	if len(snapshots) >= 2 {
		first := snapshots[0].ClosingBalance
		last := snapshots[len(snapshots)-1].ClosingBalance
		if last.GreaterThan(first) {
			trend.Direction = TrendDirectionRising
		} else if last.LessThan(first) {
			trend.Direction = TrendDirectionFalling
		}
		if !first.IsZero() {
			trend.GrowthRate = last.Sub(first).Div(first.Abs())
		}
	}
	return trend, nil
}

// GetGrowthMetrics summarizes the last 30 days against the live ledger.
func GetGrowthMetrics(ctx context.Context) (*GrowthMetrics, error) {
	now := time.Now()
	currentBalance, err := GetBalanceAsOf(ctx, utils.EndOfDay(now))
	if err != nil {
		return nil, err
	}
	lastMonthBalance, err := GetBalanceAsOf(ctx, utils.EndOfDay(now.AddDate(0, 0, -30)))
	if err != nil {
		return nil, err
	}

	changePercent := decimal.Zero
	if !lastMonthBalance.IsZero() {
		changePercent = currentBalance.Sub(lastMonthBalance).Div(lastMonthBalance.Abs())
	}

	start, end := utils.GetLastDaysRange(30)
	summary, err := GetTransactionSummary(ctx, start, end)
	if err != nil {
		return nil, err
	}

	return &GrowthMetrics{
		CurrentBalance:       currentBalance,
		BalanceChangePercent: changePercent,
		NetCashFlow30Day:     summary.NetCashFlow,
		// Approximation: burn rate = total expenses over the last 30 days.
		BurnRate: summary.TotalExpenses,
	}, nil
}
