package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/config"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ForecastScenario is a versioned, immutable projection of future balances.
// Regeneration creates a new scenario row; old rows are only ever deactivated
// (IsActive flag), never mutated.
//
// The scenario exclusively owns its data points: they are written and deleted
// with the parent as one aggregate and are addressed by (scenario, position).
type ForecastScenario struct {
	ID              int                 `gorm:"primary_key" json:"id"`
	Name            string              `gorm:"size:100;not null" json:"name"`
	ScenarioType    ScenarioType        `gorm:"type:enum('BaseCase','Optimistic','Pessimistic','Custom');not null;index" json:"scenario_type"`
	StartDate       time.Time           `gorm:"not null" json:"start_date"`
	EndDate         time.Time           `gorm:"not null" json:"end_date"`
	Assumptions     string              `gorm:"type:text" json:"assumptions"`
	ConfidenceLevel decimal.Decimal     `gorm:"type:decimal(5,4);not null" json:"confidence_level"`
	GeneratedAt     time.Time           `gorm:"not null;index" json:"generated_at"`
	IsActive        *bool               `gorm:"not null;default:true;index" json:"is_active"`
	DataPoints      []ForecastDataPoint `gorm:"foreignKey:ScenarioId;constraint:OnDelete:CASCADE" json:"data_points"`
}

// ForecastDataPoint is a value object: one projected day within a scenario.
// Invariant: LowerBound <= ProjectedBalance <= UpperBound.
type ForecastDataPoint struct {
	ScenarioId       int             `gorm:"primaryKey;autoIncrement:false" json:"scenario_id"`
	Position         int             `gorm:"primaryKey;autoIncrement:false" json:"position"`
	PointDate        time.Time       `gorm:"not null" json:"point_date"`
	ProjectedBalance decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"projected_balance"`
	LowerBound       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"lower_bound"`
	UpperBound       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"upper_bound"`
	Confidence       decimal.Decimal `gorm:"type:decimal(5,4);not null" json:"confidence"`
}

// EndBalance is the projected balance at the end of the horizon.
func (s *ForecastScenario) EndBalance() decimal.Decimal {
	if len(s.DataPoints) == 0 {
		return decimal.Zero
	}
	return s.DataPoints[len(s.DataPoints)-1].ProjectedBalance
}

// CreateScenario persists the scenario together with all of its data points as
// a single aggregate write.
func CreateScenario(ctx context.Context, scenario *ForecastScenario) error {
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(scenario).Error
	})
}

func GetScenario(ctx context.Context, id int) (*ForecastScenario, error) {
	db := config.GetDB()
	var scenario ForecastScenario
	err := db.WithContext(ctx).
		Preload("DataPoints", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC")
		}).
		First(&scenario, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &scenario, nil
}

// GetActiveScenarios returns active scenarios with their data points, newest
// generation first.
func GetActiveScenarios(ctx context.Context) ([]*ForecastScenario, error) {
	db := config.GetDB()
	var scenarios []*ForecastScenario
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("generated_at DESC, id DESC").
		Preload("DataPoints", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC")
		}).
		Find(&scenarios).Error
	if err != nil {
		return nil, err
	}
	return scenarios, nil
}

// GetActiveScenarioByType returns the most recently generated active scenario
// of the given type, or ErrorRecordNotFound.
func GetActiveScenarioByType(ctx context.Context, scenarioType ScenarioType) (*ForecastScenario, error) {
	db := config.GetDB()
	var scenario ForecastScenario
	err := db.WithContext(ctx).
		Where("is_active = ? AND scenario_type = ?", true, scenarioType).
		Order("generated_at DESC, id DESC").
		Preload("DataPoints", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC")
		}).
		First(&scenario).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &scenario, nil
}

// DeactivateOldScenarios flips IsActive off for active scenarios generated
// before olderThan. The rows themselves are kept for history.
func DeactivateOldScenarios(ctx context.Context, olderThan time.Time) error {
	db := config.GetDB()
	return db.WithContext(ctx).
		Model(&ForecastScenario{}).
		Where("generated_at < ? AND is_active = ?", olderThan, true).
		Update("is_active", false).Error
}
