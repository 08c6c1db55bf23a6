package models

import "errors"

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "Income"
	TransactionTypeExpense TransactionType = "Expense"
)

func (t TransactionType) IsValid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

type RecurrencePattern string

const (
	RecurrencePatternNone      RecurrencePattern = "None"
	RecurrencePatternDaily     RecurrencePattern = "Daily"
	RecurrencePatternWeekly    RecurrencePattern = "Weekly"
	RecurrencePatternMonthly   RecurrencePattern = "Monthly"
	RecurrencePatternQuarterly RecurrencePattern = "Quarterly"
	RecurrencePatternAnnually  RecurrencePattern = "Annually"
)

func (p RecurrencePattern) IsValid() bool {
	switch p {
	case RecurrencePatternNone, RecurrencePatternDaily, RecurrencePatternWeekly,
		RecurrencePatternMonthly, RecurrencePatternQuarterly, RecurrencePatternAnnually:
		return true
	}
	return false
}

type ScenarioType string

const (
	ScenarioTypeBaseCase    ScenarioType = "BaseCase"
	ScenarioTypeOptimistic  ScenarioType = "Optimistic"
	ScenarioTypePessimistic ScenarioType = "Pessimistic"
	ScenarioTypeCustom      ScenarioType = "Custom"
)

func (t ScenarioType) IsValid() bool {
	switch t {
	case ScenarioTypeBaseCase, ScenarioTypeOptimistic, ScenarioTypePessimistic, ScenarioTypeCustom:
		return true
	}
	return false
}

func ParseScenarioType(s string) (ScenarioType, error) {
	t := ScenarioType(s)
	if !t.IsValid() {
		return "", errors.New("invalid scenario type")
	}
	return t, nil
}

type AlertSeverity string

const (
	AlertSeverityCritical AlertSeverity = "Critical"
	AlertSeverityWarning  AlertSeverity = "Warning"
	AlertSeverityInfo     AlertSeverity = "Info"
	AlertSeveritySuccess  AlertSeverity = "Success"
)

func (s AlertSeverity) IsValid() bool {
	switch s {
	case AlertSeverityCritical, AlertSeverityWarning, AlertSeverityInfo, AlertSeveritySuccess:
		return true
	}
	return false
}

// Rank orders severities for sorting: Critical > Warning > Info > Success.
func (s AlertSeverity) Rank() int {
	switch s {
	case AlertSeverityCritical:
		return 3
	case AlertSeverityWarning:
		return 2
	case AlertSeverityInfo:
		return 1
	default:
		return 0
	}
}

type AlertStatus string

const (
	AlertStatusUnread    AlertStatus = "Unread"
	AlertStatusRead      AlertStatus = "Read"
	AlertStatusDismissed AlertStatus = "Dismissed"
	AlertStatusResolved  AlertStatus = "Resolved"
)

func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertStatusUnread, AlertStatusRead, AlertStatusDismissed, AlertStatusResolved:
		return true
	}
	return false
}

// CanTransitionTo encodes the alert lifecycle:
// Unread -> Read, Unread|Read -> Dismissed, any -> Resolved.
// Dismissed and Resolved are terminal; alerts are never resurrected.
func (s AlertStatus) CanTransitionTo(next AlertStatus) bool {
	if s == AlertStatusDismissed || s == AlertStatusResolved {
		return false
	}
	switch next {
	case AlertStatusRead:
		return s == AlertStatusUnread
	case AlertStatusDismissed:
		return s == AlertStatusUnread || s == AlertStatusRead
	case AlertStatusResolved:
		return true
	}
	return false
}

type AlertCategory string

const (
	AlertCategoryCashFlow AlertCategory = "CashFlow"
	AlertCategoryInvoice  AlertCategory = "Invoice"
	AlertCategoryForecast AlertCategory = "Forecast"
	AlertCategorySecurity AlertCategory = "Security"
	AlertCategorySystem   AlertCategory = "System"
)

func (c AlertCategory) IsValid() bool {
	switch c {
	case AlertCategoryCashFlow, AlertCategoryInvoice, AlertCategoryForecast,
		AlertCategorySecurity, AlertCategorySystem:
		return true
	}
	return false
}
