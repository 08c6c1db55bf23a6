package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/config"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/models"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

const dailyPipelineLockKey = "jobs:daily-pipeline"

// RunDailyPipeline is the scheduled end-of-day job:
// 1. snapshot yesterday (the last complete day)
// 2. deactivate previously active scenarios
// 3. regenerate the three standard forecasts
// 4. evaluate alert rules
//
// The Redis lock is a best-effort optimization against overlapping runs on
// multiple instances. Correctness never depends on it: snapshots and
// rule alerts are guarded by unique indexes, and scenario regeneration is
// additive.
func RunDailyPipeline(ctx context.Context, logger *logrus.Logger, settings *config.Settings) error {
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, dailyPipelineLockKey, 10*time.Minute, nil)
		if err == redislock.ErrNotObtained {
			logger.WithFields(logrus.Fields{"module": "dailyPipeline.go"}).Info("daily pipeline already running elsewhere; skipping")
			return nil
		}
		if err == nil {
			defer lock.Release(context.Background())
		} else {
			config.LogError(logger, "dailyPipeline.go", "RunDailyPipeline", "ObtainLock", nil, err)
			// Fall through: the lock is advisory only.
		}
	}

	startedAt := time.Now()

	yesterday := startedAt.AddDate(0, 0, -1)
	if err := GenerateDailySnapshot(ctx, logger, yesterday); err != nil {
		return err
	}

	if err := models.DeactivateOldScenarios(ctx, startedAt); err != nil {
		config.LogError(logger, "dailyPipeline.go", "RunDailyPipeline", "DeactivateOldScenarios", nil, err)
		return err
	}
	if err := GenerateStandardForecasts(ctx, logger, settings.Forecast); err != nil {
		return err
	}

	if _, err := EvaluateAlertRules(ctx, logger, settings.Alert); err != nil {
		return err
	}

	models.InvalidateDashboardCache()
	logger.WithFields(logrus.Fields{
		"module":   "dailyPipeline.go",
		"duration": time.Since(startedAt).String(),
	}).Info("daily pipeline completed")
	return nil
}
