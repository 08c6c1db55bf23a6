package models

import (
	"context"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/config"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/utils"
	"github.com/shopspring/decimal"
)

const (
	dashboardCacheKey = "dashboard:summary"
	dashboardCacheTTL = 60 * time.Second
)

// DashboardSummary aggregates the independent reads behind the landing view.
type DashboardSummary struct {
	CurrentBalance       decimal.Decimal  `json:"current_balance"`
	BalanceChangePercent decimal.Decimal  `json:"balance_change_percent"`
	NetCashFlow30Day     decimal.Decimal  `json:"net_cash_flow_30_day"`
	ForecastGrowth       decimal.Decimal  `json:"forecast_growth"`
	ActiveAlertCount     int              `json:"active_alert_count"`
	HistoricalChartData  []ChartDataPoint `json:"historical_chart_data"`
	ProjectedChartData   []ChartDataPoint `json:"projected_chart_data"`
	RecentAlerts         []*Alert         `json:"recent_alerts"`
	RecentTransactions   []*Transaction   `json:"recent_transactions"`
}

// GetDashboardSummary issues the dashboard reads concurrently. The reads are
// independent and read-only, so one failing must not take down the rest: each
// failure is logged and its section left empty.
func GetDashboardSummary(ctx context.Context) *DashboardSummary {
	logger := config.GetLogger()

	var cached DashboardSummary
	if hit, err := config.GetRedisObject(dashboardCacheKey, &cached); err == nil && hit {
		return &cached
	}

	summary := &DashboardSummary{
		HistoricalChartData: []ChartDataPoint{},
		ProjectedChartData:  []ChartDataPoint{},
		RecentAlerts:        []*Alert{},
		RecentTransactions:  []*Transaction{},
	}

	var (
		wg        sync.WaitGroup
		metrics   *GrowthMetrics
		trend     *CashFlowTrend
		alerts    []*Alert
		baseCase  *ForecastScenario
		recentTxn []*Transaction
	)

	wg.Add(5)
	go func() {
		defer wg.Done()
		var err error
		if metrics, err = GetGrowthMetrics(ctx); err != nil {
			config.LogError(logger, "dashboard.go", "GetDashboardSummary", "GetGrowthMetrics", nil, err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		now := time.Now()
		if trend, err = GetCashFlowTrend(ctx, now.AddDate(0, -6, 0), now); err != nil {
			config.LogError(logger, "dashboard.go", "GetDashboardSummary", "GetCashFlowTrend", nil, err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if alerts, err = GetActiveAlerts(ctx); err != nil {
			config.LogError(logger, "dashboard.go", "GetDashboardSummary", "GetActiveAlerts", nil, err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if baseCase, err = GetActiveScenarioByType(ctx, ScenarioTypeBaseCase); err != nil && !utils.IsNotFound(err) {
			config.LogError(logger, "dashboard.go", "GetDashboardSummary", "GetActiveScenarioByType", nil, err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if recentTxn, err = GetRecentTransactions(ctx, 10); err != nil {
			config.LogError(logger, "dashboard.go", "GetDashboardSummary", "GetRecentTransactions", nil, err)
		}
	}()
	wg.Wait()

	if metrics != nil {
		summary.CurrentBalance = metrics.CurrentBalance
		summary.BalanceChangePercent = metrics.BalanceChangePercent
		summary.NetCashFlow30Day = metrics.NetCashFlow30Day
	}
	if trend != nil {
		summary.HistoricalChartData = trend.DataPoints
	}
	if alerts != nil {
		summary.ActiveAlertCount = len(alerts)
		if len(alerts) > 5 {
			summary.RecentAlerts = alerts[:5]
		} else {
			summary.RecentAlerts = alerts
		}
	}
	if baseCase != nil {
		for _, dp := range baseCase.DataPoints {
			summary.ProjectedChartData = append(summary.ProjectedChartData, ChartDataPoint{
				Date:    dp.PointDate.Format("2006-01-02"),
				Balance: dp.ProjectedBalance,
			})
		}
		if metrics != nil && !metrics.CurrentBalance.IsZero() {
			summary.ForecastGrowth = baseCase.EndBalance().
				Sub(metrics.CurrentBalance).
				Div(metrics.CurrentBalance.Abs())
		}
	}
	if recentTxn != nil {
		summary.RecentTransactions = recentTxn
	}

	if err := config.SetRedisObject(dashboardCacheKey, summary, dashboardCacheTTL); err != nil {
		config.LogError(logger, "dashboard.go", "GetDashboardSummary", "SetRedisObject", nil, err)
	}
	return summary
}

// InvalidateDashboardCache drops the cached summary after a write.
func InvalidateDashboardCache() {
	_ = config.DeleteRedisKeys(dashboardCacheKey)
}
