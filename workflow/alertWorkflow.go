package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/config"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/models"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	triggerLowBalance = "Rule:LowBalance"
	triggerLargeTxn   = "Rule:LargeTxn:%d"
	triggerShortfall  = "Rule:Shortfall:%d"
)

// AlertEvaluationInput carries everything the rules inspect, so rule logic
// stays pure and the I/O lives in EvaluateAlertRules.
type AlertEvaluationInput struct {
	Now               time.Time
	CurrentBalance    decimal.Decimal
	TodayTransactions []*models.Transaction
	BaseCaseScenario  *models.ForecastScenario
}

// BuildCandidateAlerts runs the rules independently and returns every alert
// they would raise, before deduplication.
func BuildCandidateAlerts(input AlertEvaluationInput, settings config.AlertSettings) []*models.Alert {
	var candidates []*models.Alert
	generatedAt := input.Now.UTC()

	// Low balance: prevent overdraft fees / operations stoppage.
	if input.CurrentBalance.LessThan(settings.LowBalanceThreshold) {
		trigger := triggerLowBalance
		candidates = append(candidates, &models.Alert{
			Severity: models.AlertSeverityCritical,
			Category: models.AlertCategoryCashFlow,
			Title:    "Low Balance Warning",
			Message: fmt.Sprintf("Current balance (%s) is below the threshold of %s.",
				input.CurrentBalance.StringFixed(2), settings.LowBalanceThreshold.StringFixed(2)),
			Status:      models.AlertStatusUnread,
			GeneratedAt: generatedAt,
			TriggeredBy: &trigger,
		})
	}

	// Large transaction: one candidate per qualifying transaction. The
	// per-transaction trigger key gives natural dedup across runs.
	for _, txn := range input.TodayTransactions {
		if txn.Amount.LessThan(settings.LargeTransactionThreshold) {
			continue
		}
		trigger := fmt.Sprintf(triggerLargeTxn, txn.ID)
		relatedId := txn.ID
		candidates = append(candidates, &models.Alert{
			Severity: models.AlertSeverityInfo,
			Category: models.AlertCategoryCashFlow,
			Title:    "Large Transaction Detected",
			Message: fmt.Sprintf("A large transaction of %s was recorded on %s.",
				txn.Amount.StringFixed(2), txn.TransactionDate.Format("2006-01-02")),
			Status:          models.AlertStatusUnread,
			GeneratedAt:     generatedAt,
			TriggeredBy:     &trigger,
			RelatedEntityId: &relatedId,
		})
	}

	// Projected shortfall: earliest negative point of the BaseCase forecast.
	if input.BaseCaseScenario != nil {
		for _, dp := range input.BaseCaseScenario.DataPoints {
			if dp.ProjectedBalance.IsNegative() {
				trigger := fmt.Sprintf(triggerShortfall, input.BaseCaseScenario.ID)
				scenarioId := input.BaseCaseScenario.ID
				candidates = append(candidates, &models.Alert{
					Severity: models.AlertSeverityWarning,
					Category: models.AlertCategoryForecast,
					Title:    "Projected Cash Shortfall",
					Message: fmt.Sprintf("Forecast predicts a negative balance on %s.",
						dp.PointDate.Format("2006-01-02")),
					Status:          models.AlertStatusUnread,
					GeneratedAt:     generatedAt,
					TriggeredBy:     &trigger,
					RelatedEntityId: &scenarioId,
				})
				break
			}
		}
	}

	return candidates
}

// FilterDuplicateAlerts drops candidates whose trigger key already produced an
// alert today, regardless of that alert's status: an issue the user already
// dismissed or resolved must not re-fire the same calendar day.
func FilterDuplicateAlerts(candidates []*models.Alert, existingToday []*models.Alert) []*models.Alert {
	seen := make(map[string]struct{}, len(existingToday))
	for _, alert := range existingToday {
		if alert.TriggeredBy != nil {
			seen[*alert.TriggeredBy] = struct{}{}
		}
	}

	fresh := make([]*models.Alert, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.TriggeredBy != nil {
			if _, dup := seen[*candidate.TriggeredBy]; dup {
				continue
			}
		}
		fresh = append(fresh, candidate)
	}
	return fresh
}

// EvaluateAlertRules runs all rules against the current ledger and forecasts
// and persists the non-duplicate alerts. Safe to invoke repeatedly within a
// day and from concurrent callers: the in-process dedup check is backed by the
// (triggered_by, trigger_date) unique index, so a racing second caller's
// insert degrades to a no-op. Returns the number of alerts inserted.
func EvaluateAlertRules(ctx context.Context, logger *logrus.Logger, settings config.AlertSettings) (int, error) {
	logger.WithFields(logrus.Fields{"module": "alertWorkflow.go"}).Info("starting alert rule evaluation")
	now := time.Now()

	currentBalance, err := models.GetBalanceAsOf(ctx, utils.EndOfDay(now))
	if err != nil {
		config.LogError(logger, "alertWorkflow.go", "EvaluateAlertRules", "GetBalanceAsOf", nil, err)
		return 0, err
	}
	todayTransactions, err := models.GetTransactionsInRange(ctx, utils.StartOfDay(now), utils.EndOfDay(now))
	if err != nil {
		config.LogError(logger, "alertWorkflow.go", "EvaluateAlertRules", "GetTransactionsInRange", nil, err)
		return 0, err
	}
	baseCase, err := models.GetActiveScenarioByType(ctx, models.ScenarioTypeBaseCase)
	if err != nil && !utils.IsNotFound(err) {
		config.LogError(logger, "alertWorkflow.go", "EvaluateAlertRules", "GetActiveScenarioByType", nil, err)
		return 0, err
	}
	existingToday, err := models.GetAlertsGeneratedOn(ctx, now)
	if err != nil {
		config.LogError(logger, "alertWorkflow.go", "EvaluateAlertRules", "GetAlertsGeneratedOn", nil, err)
		return 0, err
	}

	candidates := BuildCandidateAlerts(AlertEvaluationInput{
		Now:               now,
		CurrentBalance:    currentBalance,
		TodayTransactions: todayTransactions,
		BaseCaseScenario:  baseCase,
	}, settings)

	inserted := 0
	for _, alert := range FilterDuplicateAlerts(candidates, existingToday) {
		ok, err := models.InsertRuleAlert(ctx, alert)
		if err != nil {
			config.LogError(logger, "alertWorkflow.go", "EvaluateAlertRules", "InsertRuleAlert", alert.Title, err)
			return inserted, err
		}
		if ok {
			inserted++
			logger.WithFields(logrus.Fields{
				"module":    "alertWorkflow.go",
				"title":     alert.Title,
				"triggered": utils.DereferencePtr(alert.TriggeredBy),
			}).Info("generated alert")
		}
	}

	logger.WithFields(logrus.Fields{
		"module":   "alertWorkflow.go",
		"inserted": inserted,
	}).Info("completed alert rule evaluation")
	return inserted, nil
}
