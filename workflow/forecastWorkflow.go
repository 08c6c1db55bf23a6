package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/config"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/models"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Fixed per-scenario growth multipliers. Scenario variants are one
// parameterized algorithm selected by type, not separate code paths.
var scenarioMultipliers = map[models.ScenarioType]decimal.Decimal{
	models.ScenarioTypeBaseCase:    decimal.NewFromInt(1),
	models.ScenarioTypeOptimistic:  decimal.RequireFromString("1.2"),
	models.ScenarioTypePessimistic: decimal.RequireFromString("0.8"),
	models.ScenarioTypeCustom:      decimal.NewFromInt(1),
}

// ScenarioMultiplier returns the growth multiplier applied to every projected
// daily flow for the given scenario type.
func ScenarioMultiplier(scenarioType models.ScenarioType) decimal.Decimal {
	if m, ok := scenarioMultipliers[scenarioType]; ok {
		return m
	}
	return decimal.NewFromInt(1)
}

var (
	pointConfidence      = decimal.RequireFromString("0.95")
	scenarioConfHigh     = decimal.RequireFromString("0.85")
	scenarioConfLow      = decimal.RequireFromString("0.50")
	confidenceBandFactor = decimal.NewFromInt(2)
)

type forecastAssumptions struct {
	GrowthMultiplier decimal.Decimal `json:"growth_multiplier"`
	HistoryDays      int             `json:"history_days"`
	SnapshotCount    int             `json:"snapshot_count"`
}

// BuildScenario projects daysAhead future balances from the fitted trend.
// Pure; persistence is the caller's concern.
//
// Each day's flow is FlowAt(i) scaled by the scenario multiplier and
// accumulated into a running balance. The confidence-interval half-width is
// 2*stdDev*sqrt(i): random-walk uncertainty growing with the square root of
// elapsed days.
func BuildScenario(
	scenarioType models.ScenarioType,
	daysAhead int,
	trend TrendEstimate,
	startingBalance decimal.Decimal,
	historyDays int,
	today time.Time,
	generatedAt time.Time,
) *models.ForecastScenario {

	multiplier := ScenarioMultiplier(scenarioType)
	today = utils.TruncateToDay(today)

	dataPoints := make([]models.ForecastDataPoint, 0, daysAhead)
	runningBalance := startingBalance
	for i := 1; i <= daysAhead; i++ {
		flow := trend.FlowAt(i).Mul(multiplier)
		runningBalance = runningBalance.Add(flow)

		width := confidenceBandFactor.
			Mul(trend.StdDev).
			Mul(decimal.NewFromFloat(math.Sqrt(float64(i))))

		dataPoints = append(dataPoints, models.ForecastDataPoint{
			Position:         i,
			PointDate:        today.AddDate(0, 0, i),
			ProjectedBalance: runningBalance,
			LowerBound:       runningBalance.Sub(width),
			UpperBound:       runningBalance.Add(width),
			Confidence:       pointConfidence,
		})
	}

	confidenceLevel := scenarioConfLow
	if trend.Points >= regressionMinPoints {
		confidenceLevel = scenarioConfHigh
	}

	assumptions, _ := json.Marshal(forecastAssumptions{
		GrowthMultiplier: multiplier,
		HistoryDays:      historyDays,
		SnapshotCount:    trend.Points,
	})

	return &models.ForecastScenario{
		Name:            fmt.Sprintf("%s Forecast (%d days)", scenarioType, daysAhead),
		ScenarioType:    scenarioType,
		StartDate:       today,
		EndDate:         today.AddDate(0, 0, daysAhead),
		Assumptions:     string(assumptions),
		ConfidenceLevel: confidenceLevel,
		GeneratedAt:     generatedAt,
		IsActive:        utils.NewTrue(),
		DataPoints:      dataPoints,
	}
}

// GenerateForecast fits a trend over the configured history window and
// persists a new active scenario of the given type.
//
// An empty history window still produces a flat zero-flow projection rather
// than an error; a brand-new ledger gets a degenerate but valid forecast.
func GenerateForecast(ctx context.Context, logger *logrus.Logger, scenarioType models.ScenarioType, daysAhead int, settings config.ForecastSettings) (*models.ForecastScenario, error) {
	if !scenarioType.IsValid() {
		return nil, utils.NewValidationError("invalid scenario type")
	}
	if daysAhead < 1 {
		return nil, utils.NewValidationError("daysAhead must be at least 1")
	}

	today := utils.TruncateToDay(time.Now())
	windowStart := today.AddDate(0, 0, -settings.HistoryDays)

	snapshots, err := models.GetSnapshotsInRange(ctx, windowStart, today)
	if err != nil {
		config.LogError(logger, "forecastWorkflow.go", "GenerateForecast", "GetSnapshotsInRange", scenarioType, err)
		return nil, err
	}
	trend := ComputeTrend(snapshots)

	// Live ledger balance, not the last snapshot's closing balance: stays
	// correct even if snapshot generation lagged.
	startingBalance, err := models.GetBalanceAsOf(ctx, utils.EndOfDay(today))
	if err != nil {
		config.LogError(logger, "forecastWorkflow.go", "GenerateForecast", "GetBalanceAsOf", scenarioType, err)
		return nil, err
	}

	scenario := BuildScenario(scenarioType, daysAhead, trend, startingBalance, settings.HistoryDays, today, time.Now().UTC())
	if err := models.CreateScenario(ctx, scenario); err != nil {
		config.LogError(logger, "forecastWorkflow.go", "GenerateForecast", "CreateScenario", scenario.Name, err)
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"module":     "forecastWorkflow.go",
		"scenario":   scenario.Name,
		"snapshots":  trend.Points,
		"confidence": scenario.ConfidenceLevel.String(),
	}).Info("generated forecast scenario")
	return scenario, nil
}

// GenerateStandardForecasts regenerates the three standard scenarios from the
// same historical data.
func GenerateStandardForecasts(ctx context.Context, logger *logrus.Logger, settings config.ForecastSettings) error {
	for _, scenarioType := range []models.ScenarioType{
		models.ScenarioTypeBaseCase,
		models.ScenarioTypeOptimistic,
		models.ScenarioTypePessimistic,
	} {
		if _, err := GenerateForecast(ctx, logger, scenarioType, settings.HorizonDays, settings); err != nil {
			return err
		}
	}
	return nil
}
