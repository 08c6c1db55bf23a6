package workflow

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/models"
	"github.com/shopspring/decimal"
)

func snapshotWindow(flows []string) []*models.DailySnapshot {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snapshots := make([]*models.DailySnapshot, 0, len(flows))
	for i, f := range flows {
		snapshots = append(snapshots, &models.DailySnapshot{
			SnapshotDate: base.AddDate(0, 0, i),
			NetCashFlow:  decimal.RequireFromString(f),
		})
	}
	return snapshots
}

func linearWindow(n int, intercept, slope int64) []*models.DailySnapshot {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snapshots := make([]*models.DailySnapshot, 0, n)
	for i := 0; i < n; i++ {
		snapshots = append(snapshots, &models.DailySnapshot{
			SnapshotDate: base.AddDate(0, 0, i),
			NetCashFlow:  decimal.NewFromInt(intercept + slope*int64(i)),
		})
	}
	return snapshots
}

func TestComputeTrend_EmptyWindow(t *testing.T) {
	trend := ComputeTrend(nil)
	if trend.Points != 0 {
		t.Fatalf("expected 0 points, got %d", trend.Points)
	}
	if !trend.FlowAt(1).IsZero() {
		t.Fatalf("expected zero flow, got %s", trend.FlowAt(1))
	}
	if !trend.StdDev.IsZero() {
		t.Fatalf("expected zero stdDev, got %s", trend.StdDev)
	}
}

func TestComputeTrend_SmallWindowUsesMean(t *testing.T) {
	// 5 points, well under the regression cutoff: flow must be the plain
	// mean at every future offset.
	trend := ComputeTrend(snapshotWindow([]string{"100", "200", "300", "400", "500"}))

	if !trend.Slope.IsZero() {
		t.Fatalf("expected zero slope, got %s", trend.Slope)
	}
	if !trend.Intercept.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected mean 300, got %s", trend.Intercept)
	}
	for _, offset := range []int{1, 7, 30} {
		if !trend.FlowAt(offset).Equal(decimal.NewFromInt(300)) {
			t.Fatalf("FlowAt(%d) expected 300, got %s", offset, trend.FlowAt(offset))
		}
	}
}

func TestComputeTrend_RegressionRecoversLine(t *testing.T) {
	// netCashFlow = 100 + 5*i over exactly 30 days. OLS on noiseless data
	// must recover the generating line.
	trend := ComputeTrend(linearWindow(30, 100, 5))

	if trend.Points != 30 {
		t.Fatalf("expected 30 points, got %d", trend.Points)
	}
	if !trend.Slope.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected slope 5, got %s", trend.Slope)
	}
	if !trend.Intercept.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected intercept 100, got %s", trend.Intercept)
	}
	// Forecast day i extrapolates at x = n + i.
	if !trend.FlowAt(1).Equal(decimal.NewFromInt(255)) {
		t.Fatalf("FlowAt(1) expected 255, got %s", trend.FlowAt(1))
	}
	if !trend.FlowAt(10).Equal(decimal.NewFromInt(300)) {
		t.Fatalf("FlowAt(10) expected 300, got %s", trend.FlowAt(10))
	}
}

func TestComputeTrend_ConstantSeriesHasZeroDeviation(t *testing.T) {
	flows := make([]string, 40)
	for i := range flows {
		flows[i] = "150"
	}
	trend := ComputeTrend(snapshotWindow(flows))

	if !trend.Slope.IsZero() {
		t.Fatalf("expected zero slope for flat series, got %s", trend.Slope)
	}
	if !trend.Intercept.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected intercept 150, got %s", trend.Intercept)
	}
	if !trend.StdDev.IsZero() {
		t.Fatalf("expected zero stdDev for flat series, got %s", trend.StdDev)
	}
}

func TestComputeTrend_StdDevAroundMean(t *testing.T) {
	// {100, 300}: mean 200, population deviation 100.
	trend := ComputeTrend(snapshotWindow([]string{"100", "300"}))
	if !trend.StdDev.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected stdDev 100, got %s", trend.StdDev)
	}
}

func TestComputeTrend_BoundaryAt29Points(t *testing.T) {
	// 29 rising points must still take the mean branch.
	trend := ComputeTrend(linearWindow(29, 100, 5))
	if !trend.Slope.IsZero() {
		t.Fatalf("expected mean branch below 30 points, got slope %s", trend.Slope)
	}
	// mean of 100+5i for i=0..28 is 100+5*14 = 170
	if !trend.Intercept.Equal(decimal.NewFromInt(170)) {
		t.Fatalf("expected mean 170, got %s", trend.Intercept)
	}
}
