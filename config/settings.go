package config

import (
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// AlertSettings holds the thresholds consumed by the alert rule evaluator.
type AlertSettings struct {
	LowBalanceThreshold       decimal.Decimal `json:"low_balance_threshold"`
	LargeTransactionThreshold decimal.Decimal `json:"large_transaction_threshold"`
}

// ForecastSettings holds the window sizes consumed by the forecast generator.
type ForecastSettings struct {
	HistoryDays int `json:"history_days" validate:"gte=1,lte=3650"`
	HorizonDays int `json:"horizon_days" validate:"gte=1,lte=365"`
}

// Settings is the full configuration surface of the dashboard core. It is built
// once from the environment and passed into workflows explicitly; there is no
// mutable global settings state.
type Settings struct {
	Alert    AlertSettings
	Forecast ForecastSettings

	// Local hour (0-23) at which the daily pipeline runs.
	DailyJobHour int `validate:"gte=0,lte=23"`
}

var (
	settings     *Settings
	settingsOnce sync.Once
	validate     = validator.New()
)

// GetSettings parses settings from env on first use. Invalid values fail fast:
// a dashboard silently running with a zero threshold is worse than not starting.
func GetSettings() *Settings {
	settingsOnce.Do(func() {
		s, err := loadSettings()
		if err != nil {
			GetLogger().Fatal("invalid settings: " + err.Error())
		}
		settings = s
	})
	return settings
}

func loadSettings() (*Settings, error) {
	s := &Settings{
		Alert: AlertSettings{
			LowBalanceThreshold:       decimalFromEnv("LOW_BALANCE_THRESHOLD", "10000"),
			LargeTransactionThreshold: decimalFromEnv("LARGE_TRANSACTION_THRESHOLD", "50000"),
		},
		Forecast: ForecastSettings{
			HistoryDays: intFromEnv("FORECAST_HISTORY_DAYS", 90),
			HorizonDays: intFromEnv("FORECAST_HORIZON_DAYS", 30),
		},
		DailyJobHour: intFromEnv("DAILY_JOB_HOUR", 1),
	}
	if err := validate.Struct(s); err != nil {
		return nil, err
	}
	// validator has no decimal support; checked by hand.
	if !s.Alert.LowBalanceThreshold.IsPositive() {
		return nil, errors.New("LOW_BALANCE_THRESHOLD must be positive")
	}
	if !s.Alert.LargeTransactionThreshold.IsPositive() {
		return nil, errors.New("LARGE_TRANSACTION_THRESHOLD must be positive")
	}
	return s, nil
}

func decimalFromEnv(key string, def string) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		v = def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		d, _ = decimal.NewFromString(def)
	}
	return d
}
