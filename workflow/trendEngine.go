package workflow

import (
	"math"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/models"
	"github.com/shopspring/decimal"
)

// regressionMinPoints is the window size below which ordinary least squares is
// considered unstable and the engine falls back to a simple average.
const regressionMinPoints = 30

// TrendEstimate is the output of ComputeTrend: a daily net-flow estimator plus
// the variance of the historical window.
//
// FlowAt(i) = Slope*(Points+i) + Intercept, i.e. the fitted line continues the
// index sequence established during the historical window (forecast day 1 is
// index Points, day 2 is Points+1, ...). The simple-average branch sets
// Slope = 0 and Intercept = mean, so FlowAt degenerates to a constant.
type TrendEstimate struct {
	Points    int
	Slope     decimal.Decimal
	Intercept decimal.Decimal
	StdDev    decimal.Decimal
}

// FlowAt returns the projected net cash flow for future day offset i >= 1.
func (t TrendEstimate) FlowAt(offset int) decimal.Decimal {
	x := decimal.NewFromInt(int64(t.Points + offset))
	return t.Slope.Mul(x).Add(t.Intercept)
}

// ComputeTrend fits a daily net-flow trend over an ordered snapshot window.
// Pure and deterministic; no I/O.
//
// - 0 points: zero flow, zero deviation.
// - 1..29 points: constant flow = mean(netCashFlow), stdDev = population
//   standard deviation around that mean.
// - >= 30 points: OLS over (index, netCashFlow) with the closed-form
//   slope/intercept. stdDev stays the deviation around the mean, not around
//   the fitted line (known simplification, kept for forecast stability
//   expectations downstream).
//
// A zero OLS denominator (no variance in X) falls back to the mean branch
// instead of dividing by zero.
func ComputeTrend(snapshots []*models.DailySnapshot) TrendEstimate {
	n := len(snapshots)
	if n == 0 {
		return TrendEstimate{}
	}

	sumY := decimal.Zero
	for _, s := range snapshots {
		sumY = sumY.Add(s.NetCashFlow)
	}
	count := decimal.NewFromInt(int64(n))
	mean := sumY.Div(count)

	estimate := TrendEstimate{
		Points:    n,
		Intercept: mean,
		StdDev:    populationStdDev(snapshots, mean),
	}
	if n < regressionMinPoints {
		return estimate
	}

	sumX := decimal.Zero
	sumXY := decimal.Zero
	sumXX := decimal.Zero
	for i, s := range snapshots {
		x := decimal.NewFromInt(int64(i))
		sumX = sumX.Add(x)
		sumXY = sumXY.Add(x.Mul(s.NetCashFlow))
		sumXX = sumXX.Add(x.Mul(x))
	}

	denominator := count.Mul(sumXX).Sub(sumX.Mul(sumX))
	if denominator.IsZero() {
		return estimate
	}

	slope := count.Mul(sumXY).Sub(sumX.Mul(sumY)).Div(denominator)
	estimate.Slope = slope
	estimate.Intercept = sumY.Sub(slope.Mul(sumX)).Div(count)
	return estimate
}

// populationStdDev computes sqrt(sum((y-mean)^2)/n). The square root goes
// through float64; confidence bands don't need exact decimal arithmetic.
func populationStdDev(snapshots []*models.DailySnapshot, mean decimal.Decimal) decimal.Decimal {
	n := len(snapshots)
	if n == 0 {
		return decimal.Zero
	}
	sumSqDiff := 0.0
	meanF, _ := mean.Float64()
	for _, s := range snapshots {
		y, _ := s.NetCashFlow.Float64()
		diff := y - meanF
		sumSqDiff += diff * diff
	}
	return decimal.NewFromFloat(math.Sqrt(sumSqDiff / float64(n)))
}
