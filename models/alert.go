package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/config"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Alert is a system- or user-generated notification with a lifecycle
// (Unread -> Read -> Dismissed/Resolved, see AlertStatus.CanTransitionTo).
//
// TriggeredBy + TriggerDate form the deduplication key for rule-generated
// alerts: for one rule+entity fingerprint at most one alert per calendar date,
// enforced by a unique index so the guarantee holds under concurrent
// evaluator runs. Manual alerts carry a nil TriggeredBy and are exempt
// (MySQL unique indexes ignore NULLs).
type Alert struct {
	ID              int           `gorm:"primary_key" json:"id"`
	Severity        AlertSeverity `gorm:"type:enum('Critical','Warning','Info','Success');not null" json:"severity"`
	Title           string        `gorm:"size:200;not null" json:"title"`
	Message         string        `gorm:"size:2000;not null" json:"message"`
	Category        AlertCategory `gorm:"type:enum('CashFlow','Invoice','Forecast','Security','System');not null" json:"category"`
	Status          AlertStatus   `gorm:"type:enum('Unread','Read','Dismissed','Resolved');not null;default:'Unread';index" json:"status"`
	GeneratedAt     time.Time     `gorm:"not null;index" json:"generated_at"`
	TriggeredBy     *string       `gorm:"size:100;uniqueIndex:idx_alert_trigger_day,priority:1" json:"triggered_by"`
	TriggerDate     time.Time     `gorm:"not null;uniqueIndex:idx_alert_trigger_day,priority:2" json:"trigger_date"`
	RelatedEntityId *int          `json:"related_entity_id"`
	ActionUrl       *string       `gorm:"size:500" json:"action_url"`
	ExpiresAt       *time.Time    `json:"expires_at"`
	CreatedAt       time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
	TimeAgo         string        `gorm:"-" json:"time_ago"`
}

func (a *Alert) AfterFind(tx *gorm.DB) error {
	a.TimeAgo = utils.TimeAgo(a.GeneratedAt, time.Now())
	return nil
}

type NewAlert struct {
	Severity AlertSeverity `json:"severity" binding:"required"`
	Title    string        `json:"title" binding:"required"`
	Message  string        `json:"message" binding:"required"`
	Category AlertCategory `json:"category" binding:"required"`
}

func (input *NewAlert) Validate() error {
	if !input.Severity.IsValid() {
		return utils.NewValidationError("invalid alert severity")
	}
	if !input.Category.IsValid() {
		return utils.NewValidationError("invalid alert category")
	}
	if strings.TrimSpace(input.Title) == "" {
		return utils.NewValidationError("alert title is required")
	}
	if strings.TrimSpace(input.Message) == "" {
		return utils.NewValidationError("alert message is required")
	}
	return nil
}

// CreateManualAlert records a user-created alert. Manual alerts never take part
// in rule deduplication.
func CreateManualAlert(ctx context.Context, input *NewAlert) (*Alert, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	alert := Alert{
		Severity:    input.Severity,
		Title:       input.Title,
		Message:     input.Message,
		Category:    input.Category,
		Status:      AlertStatusUnread,
		GeneratedAt: now,
		TriggerDate: utils.TruncateToDay(now),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&alert).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// InsertRuleAlert inserts a rule-generated alert, relying on the
// (triggered_by, trigger_date) unique index for once-per-day semantics.
// Returns true when a row was actually inserted; a dedup hit is a silent no-op.
func InsertRuleAlert(ctx context.Context, alert *Alert) (bool, error) {
	alert.TriggerDate = utils.TruncateToDay(alert.GeneratedAt)

	db := config.GetDB()
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "triggered_by"}, {Name: "trigger_date"}},
			DoNothing: true,
		}).
		Create(alert)
	if result.Error != nil {
		if utils.IsDuplicateKey(result.Error) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetActiveAlerts returns alerts that are neither Dismissed nor Resolved,
// newest first.
func GetActiveAlerts(ctx context.Context) ([]*Alert, error) {
	db := config.GetDB()
	var alerts []*Alert
	err := db.WithContext(ctx).
		Where("status IN ?", []AlertStatus{AlertStatusUnread, AlertStatusRead}).
		Order("generated_at DESC, id DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func GetAlertsBySeverity(ctx context.Context, severity AlertSeverity) ([]*Alert, error) {
	db := config.GetDB()
	var alerts []*Alert
	err := db.WithContext(ctx).
		Where("severity = ?", severity).
		Order("generated_at DESC, id DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// GetAlertsGeneratedOn returns every alert generated on the given calendar
// date, regardless of status. Duplicate suppression must see Dismissed and
// Resolved alerts too: an issue acknowledged this morning must not re-fire
// this afternoon.
func GetAlertsGeneratedOn(ctx context.Context, date time.Time) ([]*Alert, error) {
	db := config.GetDB()
	var alerts []*Alert
	err := db.WithContext(ctx).
		Where("trigger_date = ?", utils.TruncateToDay(date)).
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// UpdateAlertStatus applies a lifecycle transition. Setting the current status
// again is a no-op; transitions out of Dismissed/Resolved are rejected.
func UpdateAlertStatus(ctx context.Context, id int, next AlertStatus) (*Alert, error) {
	if !next.IsValid() {
		return nil, utils.NewValidationError("invalid alert status")
	}

	db := config.GetDB()
	var alert Alert
	if err := db.WithContext(ctx).First(&alert, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	if alert.Status == next {
		return &alert, nil
	}
	if !alert.Status.CanTransitionTo(next) {
		return nil, utils.NewValidationError("alert cannot transition from " + string(alert.Status) + " to " + string(next))
	}

	if err := db.WithContext(ctx).Model(&alert).Update("status", next).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// MarkAllAlertsRead moves every Unread alert to Read.
func MarkAllAlertsRead(ctx context.Context) error {
	db := config.GetDB()
	return db.WithContext(ctx).
		Model(&Alert{}).
		Where("status = ?", AlertStatusUnread).
		Update("status", AlertStatusRead).Error
}
