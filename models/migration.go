package models

import (
	"log"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Transaction{},
		&DailySnapshot{},
		&ForecastScenario{}, &ForecastDataPoint{},
		&Alert{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
