package workflow

import (
	"math"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/models"
	"github.com/shopspring/decimal"
)

func TestBuildScenario_PointSequence(t *testing.T) {
	today := time.Date(2026, 3, 15, 13, 45, 0, 0, time.UTC)
	trend := TrendEstimate{
		Points:    10,
		Intercept: decimal.NewFromInt(100),
		StdDev:    decimal.NewFromInt(50),
	}

	scenario := BuildScenario(models.ScenarioTypeBaseCase, 30, trend, decimal.NewFromInt(5000), 90, today, today)

	if len(scenario.DataPoints) != 30 {
		t.Fatalf("expected 30 data points, got %d", len(scenario.DataPoints))
	}

	wantDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	for i, dp := range scenario.DataPoints {
		if dp.Position != i+1 {
			t.Fatalf("point %d: expected position %d, got %d", i, i+1, dp.Position)
		}
		wantDate = wantDate.AddDate(0, 0, 1)
		if !dp.PointDate.Equal(wantDate) {
			t.Fatalf("point %d: expected date %s, got %s", i, wantDate, dp.PointDate)
		}
		if dp.LowerBound.GreaterThan(dp.ProjectedBalance) || dp.ProjectedBalance.GreaterThan(dp.UpperBound) {
			t.Fatalf("point %d: bounds %s <= %s <= %s violated",
				i, dp.LowerBound, dp.ProjectedBalance, dp.UpperBound)
		}
	}

	if !scenario.StartDate.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected start date truncated to midnight, got %s", scenario.StartDate)
	}
	if !scenario.EndDate.Equal(time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected end date 30 days out, got %s", scenario.EndDate)
	}
}

func TestBuildScenario_BalanceAccumulation(t *testing.T) {
	// Constant flow of 100/day from a 4000 starting balance: day i sits at
	// 4000 + 100*i exactly.
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	trend := TrendEstimate{Points: 10, Intercept: decimal.NewFromInt(100)}

	scenario := BuildScenario(models.ScenarioTypeBaseCase, 5, trend, decimal.NewFromInt(4000), 90, today, today)

	for i, dp := range scenario.DataPoints {
		want := decimal.NewFromInt(4000 + 100*int64(i+1))
		if !dp.ProjectedBalance.Equal(want) {
			t.Fatalf("day %d: expected balance %s, got %s", i+1, want, dp.ProjectedBalance)
		}
	}
}

func TestBuildScenario_ConfidenceBandGrowth(t *testing.T) {
	// Half-width at offset i is 2*stdDev*sqrt(i), so the width ratio between
	// consecutive days is sqrt((i+1)/i).
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	trend := TrendEstimate{Points: 30, StdDev: decimal.NewFromInt(50)}

	scenario := BuildScenario(models.ScenarioTypeBaseCase, 10, trend, decimal.Zero, 90, today, today)

	for i := 0; i < len(scenario.DataPoints)-1; i++ {
		width, _ := scenario.DataPoints[i].UpperBound.Sub(scenario.DataPoints[i].LowerBound).Float64()
		next, _ := scenario.DataPoints[i+1].UpperBound.Sub(scenario.DataPoints[i+1].LowerBound).Float64()
		wantRatio := math.Sqrt(float64(i+2) / float64(i+1))
		if gotRatio := next / width; math.Abs(gotRatio-wantRatio) > 1e-9 {
			t.Fatalf("width ratio day %d->%d: expected %f, got %f", i+1, i+2, wantRatio, gotRatio)
		}
	}

	firstWidth := scenario.DataPoints[0].UpperBound.Sub(scenario.DataPoints[0].LowerBound)
	if !firstWidth.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("day 1 width expected 200 (2*2*stdDev), got %s", firstWidth)
	}
}

func TestBuildScenario_ScenarioOrdering(t *testing.T) {
	// With a positive trend the optimistic path must end above base, and
	// base above pessimistic.
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	trend := TrendEstimate{Points: 30, Intercept: decimal.NewFromInt(200)}
	start := decimal.NewFromInt(10000)

	base := BuildScenario(models.ScenarioTypeBaseCase, 30, trend, start, 90, today, today)
	optimistic := BuildScenario(models.ScenarioTypeOptimistic, 30, trend, start, 90, today, today)
	pessimistic := BuildScenario(models.ScenarioTypePessimistic, 30, trend, start, 90, today, today)

	if !optimistic.EndBalance().GreaterThan(base.EndBalance()) {
		t.Fatalf("optimistic end %s not above base end %s", optimistic.EndBalance(), base.EndBalance())
	}
	if !base.EndBalance().GreaterThan(pessimistic.EndBalance()) {
		t.Fatalf("base end %s not above pessimistic end %s", base.EndBalance(), pessimistic.EndBalance())
	}

	// Same trend, same dates: only the multiplier differs.
	if !optimistic.StartDate.Equal(base.StartDate) || !optimistic.EndDate.Equal(base.EndDate) {
		t.Fatalf("scenario variants diverged on dates")
	}
}

func TestBuildScenario_MultiplierScalesFlows(t *testing.T) {
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	trend := TrendEstimate{Points: 30, Intercept: decimal.NewFromInt(100)}

	base := BuildScenario(models.ScenarioTypeBaseCase, 1, trend, decimal.Zero, 90, today, today)
	optimistic := BuildScenario(models.ScenarioTypeOptimistic, 1, trend, decimal.Zero, 90, today, today)
	pessimistic := BuildScenario(models.ScenarioTypePessimistic, 1, trend, decimal.Zero, 90, today, today)

	if !base.DataPoints[0].ProjectedBalance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("base day 1 expected 100, got %s", base.DataPoints[0].ProjectedBalance)
	}
	if !optimistic.DataPoints[0].ProjectedBalance.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("optimistic day 1 expected 120, got %s", optimistic.DataPoints[0].ProjectedBalance)
	}
	if !pessimistic.DataPoints[0].ProjectedBalance.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("pessimistic day 1 expected 80, got %s", pessimistic.DataPoints[0].ProjectedBalance)
	}
}

func TestBuildScenario_ConfidenceLevelByWindowSize(t *testing.T) {
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	sparse := BuildScenario(models.ScenarioTypeBaseCase, 5, TrendEstimate{Points: 10}, decimal.Zero, 90, today, today)
	if sparse.ConfidenceLevel.String() != "0.5" {
		t.Fatalf("sparse window: expected confidence 0.5, got %s", sparse.ConfidenceLevel)
	}

	dense := BuildScenario(models.ScenarioTypeBaseCase, 5, TrendEstimate{Points: 30}, decimal.Zero, 90, today, today)
	if dense.ConfidenceLevel.String() != "0.85" {
		t.Fatalf("dense window: expected confidence 0.85, got %s", dense.ConfidenceLevel)
	}
}

func TestBuildScenario_EmptyHistoryIsFlat(t *testing.T) {
	// Brand-new ledger: zero trend means the projection holds the starting
	// balance flat with zero-width bands.
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	start := decimal.NewFromInt(2500)

	scenario := BuildScenario(models.ScenarioTypeBaseCase, 7, ComputeTrend(nil), start, 90, today, today)

	for i, dp := range scenario.DataPoints {
		if !dp.ProjectedBalance.Equal(start) {
			t.Fatalf("day %d: expected flat balance %s, got %s", i+1, start, dp.ProjectedBalance)
		}
		if !dp.LowerBound.Equal(start) || !dp.UpperBound.Equal(start) {
			t.Fatalf("day %d: expected zero-width band, got [%s, %s]", i+1, dp.LowerBound, dp.UpperBound)
		}
	}
	if scenario.ConfidenceLevel.String() != "0.5" {
		t.Fatalf("expected low confidence for empty history, got %s", scenario.ConfidenceLevel)
	}
}
