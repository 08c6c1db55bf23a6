package workflow

import (
	"fmt"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/config"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/models"
	"github.com/shopspring/decimal"
)

func testAlertSettings() config.AlertSettings {
	return config.AlertSettings{
		LowBalanceThreshold:       decimal.NewFromInt(10000),
		LargeTransactionThreshold: decimal.NewFromInt(50000),
	}
}

func TestBuildCandidateAlerts_LowBalance(t *testing.T) {
	input := AlertEvaluationInput{
		Now:            time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		CurrentBalance: decimal.NewFromInt(7000),
	}

	candidates := BuildCandidateAlerts(input, testAlertSettings())

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	alert := candidates[0]
	if alert.Severity != models.AlertSeverityCritical {
		t.Fatalf("expected Critical severity, got %s", alert.Severity)
	}
	if alert.Title != "Low Balance Warning" {
		t.Fatalf("unexpected title %q", alert.Title)
	}
	if alert.TriggeredBy == nil || *alert.TriggeredBy != "Rule:LowBalance" {
		t.Fatalf("unexpected trigger key %v", alert.TriggeredBy)
	}
	if alert.Category != models.AlertCategoryCashFlow {
		t.Fatalf("expected CashFlow category, got %s", alert.Category)
	}
}

func TestBuildCandidateAlerts_BalanceAtThresholdIsQuiet(t *testing.T) {
	input := AlertEvaluationInput{
		Now:            time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		CurrentBalance: decimal.NewFromInt(10000),
	}
	if candidates := BuildCandidateAlerts(input, testAlertSettings()); len(candidates) != 0 {
		t.Fatalf("balance equal to threshold must not alert, got %d candidates", len(candidates))
	}
}

func TestBuildCandidateAlerts_LargeTransaction(t *testing.T) {
	input := AlertEvaluationInput{
		Now:            time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		CurrentBalance: decimal.NewFromInt(100000),
		TodayTransactions: []*models.Transaction{
			{ID: 41, Amount: decimal.NewFromInt(500), Type: models.TransactionTypeExpense,
				TransactionDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
			{ID: 42, Amount: decimal.NewFromInt(60000), Type: models.TransactionTypeIncome,
				TransactionDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		},
	}

	candidates := BuildCandidateAlerts(input, testAlertSettings())

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	alert := candidates[0]
	if alert.Severity != models.AlertSeverityInfo {
		t.Fatalf("expected Info severity, got %s", alert.Severity)
	}
	if alert.RelatedEntityId == nil || *alert.RelatedEntityId != 42 {
		t.Fatalf("expected related entity 42, got %v", alert.RelatedEntityId)
	}
	if alert.TriggeredBy == nil || *alert.TriggeredBy != "Rule:LargeTxn:42" {
		t.Fatalf("unexpected trigger key %v", alert.TriggeredBy)
	}
}

func TestBuildCandidateAlerts_ShortfallFirstNegativePointOnly(t *testing.T) {
	scenario := &models.ForecastScenario{
		ID:           9,
		ScenarioType: models.ScenarioTypeBaseCase,
		DataPoints: []models.ForecastDataPoint{
			{Position: 1, PointDate: time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC), ProjectedBalance: decimal.NewFromInt(500)},
			{Position: 2, PointDate: time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC), ProjectedBalance: decimal.NewFromInt(-1000)},
			{Position: 3, PointDate: time.Date(2026, 4, 4, 0, 0, 0, 0, time.UTC), ProjectedBalance: decimal.NewFromInt(-2500)},
		},
	}
	input := AlertEvaluationInput{
		Now:              time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		CurrentBalance:   decimal.NewFromInt(100000),
		BaseCaseScenario: scenario,
	}

	candidates := BuildCandidateAlerts(input, testAlertSettings())

	if len(candidates) != 1 {
		t.Fatalf("expected a single shortfall alert, got %d", len(candidates))
	}
	alert := candidates[0]
	if alert.Severity != models.AlertSeverityWarning {
		t.Fatalf("expected Warning severity, got %s", alert.Severity)
	}
	if alert.Category != models.AlertCategoryForecast {
		t.Fatalf("expected Forecast category, got %s", alert.Category)
	}
	// The message names the first projected negative day, not the worst one.
	want := "Forecast predicts a negative balance on 2026-04-03."
	if alert.Message != want {
		t.Fatalf("expected message %q, got %q", want, alert.Message)
	}
}

func TestBuildCandidateAlerts_AllRulesIndependent(t *testing.T) {
	scenario := &models.ForecastScenario{
		ID: 3,
		DataPoints: []models.ForecastDataPoint{
			{Position: 1, PointDate: time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC), ProjectedBalance: decimal.NewFromInt(-10)},
		},
	}
	input := AlertEvaluationInput{
		Now:            time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		CurrentBalance: decimal.NewFromInt(500),
		TodayTransactions: []*models.Transaction{
			{ID: 7, Amount: decimal.NewFromInt(75000), Type: models.TransactionTypeExpense,
				TransactionDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		},
		BaseCaseScenario: scenario,
	}

	candidates := BuildCandidateAlerts(input, testAlertSettings())

	if len(candidates) != 3 {
		t.Fatalf("expected all three rules to fire, got %d candidates", len(candidates))
	}
}

func TestFilterDuplicateAlerts_DropsSameDayTriggers(t *testing.T) {
	lowBalance := "Rule:LowBalance"
	largeTxn := "Rule:LargeTxn:42"

	candidates := []*models.Alert{
		{Title: "Low Balance Warning", TriggeredBy: &lowBalance},
		{Title: "Large Transaction Detected", TriggeredBy: &largeTxn},
	}
	// The existing low-balance alert was already dismissed: it still blocks
	// a re-fire for the rest of the day.
	existing := []*models.Alert{
		{Title: "Low Balance Warning", TriggeredBy: &lowBalance, Status: models.AlertStatusDismissed},
	}

	fresh := FilterDuplicateAlerts(candidates, existing)

	if len(fresh) != 1 {
		t.Fatalf("expected 1 fresh alert, got %d", len(fresh))
	}
	if fresh[0].Title != "Large Transaction Detected" {
		t.Fatalf("wrong survivor: %q", fresh[0].Title)
	}
}

func TestFilterDuplicateAlerts_ManualAlertsNeverBlock(t *testing.T) {
	lowBalance := "Rule:LowBalance"
	candidates := []*models.Alert{
		{Title: "Low Balance Warning", TriggeredBy: &lowBalance},
	}
	// Manually created alerts carry no trigger key and must not suppress
	// rule alerts.
	existing := []*models.Alert{
		{Title: "Manual note", TriggeredBy: nil},
	}

	if fresh := FilterDuplicateAlerts(candidates, existing); len(fresh) != 1 {
		t.Fatalf("expected manual alert to be ignored by dedup, got %d fresh", len(fresh))
	}
}

func TestFilterDuplicateAlerts_EmptyExistingPassesAll(t *testing.T) {
	var candidates []*models.Alert
	for i := 0; i < 4; i++ {
		trigger := fmt.Sprintf("Rule:LargeTxn:%d", i)
		candidates = append(candidates, &models.Alert{TriggeredBy: &trigger})
	}
	if fresh := FilterDuplicateAlerts(candidates, nil); len(fresh) != 4 {
		t.Fatalf("expected all 4 candidates to pass, got %d", len(fresh))
	}
}
