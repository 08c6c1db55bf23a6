package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/config"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/models"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/models/reports"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/scheduler"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/utils"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func getRedisClient(redisAddress string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
	return client
}

// respondError maps the error taxonomy onto HTTP statuses: validation
// failures are 400, missing records 404, everything else 500.
func respondError(c *gin.Context, err error) {
	switch {
	case utils.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case utils.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func queryDate(c *gin.Context, name string, fallback time.Time) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, true
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s date, expected YYYY-MM-DD", name)})
		return time.Time{}, false
	}
	return parsed, true
}

func createTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewTransaction
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		transaction, err := models.CreateTransaction(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		models.InvalidateDashboardCache()
		c.JSON(http.StatusCreated, transaction)
	}
}

func getTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		transaction, err := models.GetTransaction(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, transaction)
	}
}

func updateTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.UpdateTransactionInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		transaction, err := models.UpdateTransaction(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		models.InvalidateDashboardCache()
		c.JSON(http.StatusOK, transaction)
	}
}

func deleteTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if err := models.DeleteTransaction(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		models.InvalidateDashboardCache()
		c.Status(http.StatusNoContent)
	}
}

func listTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if v := strings.TrimSpace(c.Query("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}
		transactions, err := models.GetRecentTransactions(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, transactions)
	}
}

func transactionSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		days := 30
		if v := strings.TrimSpace(c.Query("days")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 3650 {
				days = n
			}
		}
		start, end := utils.GetLastDaysRange(days)
		summary, err := models.GetTransactionSummary(c.Request.Context(), start, end)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func exportTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		from, ok := queryDate(c, "from", now.AddDate(0, -1, 0))
		if !ok {
			return
		}
		to, ok := queryDate(c, "to", now)
		if !ok {
			return
		}
		if to.Before(from) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to date must not precede from date"})
			return
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=transactions_%s_%s.xlsx",
			from.Format("20060102"), to.Format("20060102")))
		if err := reports.ExportTransactionsExcel(c.Request.Context(), c.Writer, from, to); err != nil {
			c.Error(err)
			c.Status(http.StatusInternalServerError)
		}
	}
}

func dashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.GetDashboardSummary(c.Request.Context()))
	}
}

func cashFlowTrendHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		months := 6
		if v := strings.TrimSpace(c.Query("months")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 60 {
				months = n
			}
		}
		now := time.Now()
		trend, err := models.GetCashFlowTrend(c.Request.Context(), now.AddDate(0, -months, 0), now)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, trend)
	}
}

func growthMetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics, err := models.GetGrowthMetrics(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, metrics)
	}
}

func balanceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		asOf, ok := queryDate(c, "as_of", time.Now())
		if !ok {
			return
		}
		balance, err := models.GetBalanceAsOf(c.Request.Context(), utils.EndOfDay(asOf))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"as_of": utils.TruncateToDay(asOf).Format("2006-01-02"), "balance": balance})
	}
}

func categoryBreakdownHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		from, ok := queryDate(c, "from", now.AddDate(0, -1, 0))
		if !ok {
			return
		}
		to, ok := queryDate(c, "to", now)
		if !ok {
			return
		}
		breakdown, err := reports.GetCategoryBreakdown(c.Request.Context(), from, to)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, breakdown)
	}
}

type generateForecastRequest struct {
	ScenarioType string `json:"scenario_type" binding:"required"`
	DaysAhead    int    `json:"days_ahead"`
}

func generateForecastHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req generateForecastRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		scenarioType, err := models.ParseScenarioType(req.ScenarioType)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		settings := config.GetSettings()
		daysAhead := req.DaysAhead
		if daysAhead == 0 {
			daysAhead = settings.Forecast.HorizonDays
		}
		scenario, err := workflow.GenerateForecast(c.Request.Context(), logger, scenarioType, daysAhead, settings.Forecast)
		if err != nil {
			respondError(c, err)
			return
		}
		models.InvalidateDashboardCache()
		c.JSON(http.StatusCreated, scenario)
	}
}

func listForecastsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		scenarios, err := models.GetActiveScenarios(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, scenarios)
	}
}

func getForecastHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		scenario, err := models.GetScenario(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, scenario)
	}
}

func listAlertsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := strings.TrimSpace(c.Query("severity")); raw != "" {
			severity := models.AlertSeverity(raw)
			if !severity.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid severity"})
				return
			}
			alerts, err := models.GetAlertsBySeverity(c.Request.Context(), severity)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, alerts)
			return
		}
		alerts, err := models.GetActiveAlerts(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, alerts)
	}
}

func createAlertHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewAlert
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		alert, err := models.CreateManualAlert(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, alert)
	}
}

type alertStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func updateAlertStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req alertStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		next := models.AlertStatus(req.Status)
		if !next.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert status"})
			return
		}
		alert, err := models.UpdateAlertStatus(c.Request.Context(), id, next)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, alert)
	}
}

func markAllAlertsReadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := models.MarkAllAlertsRead(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func listSnapshotsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		from, ok := queryDate(c, "from", now.AddDate(0, 0, -90))
		if !ok {
			return
		}
		to, ok := queryDate(c, "to", now)
		if !ok {
			return
		}
		snapshots, err := models.GetSnapshotsInRange(c.Request.Context(), utils.TruncateToDay(from), utils.TruncateToDay(to))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshots)
	}
}

func generateSnapshotHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		date, ok := queryDate(c, "date", time.Now().AddDate(0, 0, -1))
		if !ok {
			return
		}
		if err := workflow.GenerateDailySnapshot(c.Request.Context(), logger, date); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func runDailyPipelineHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := workflow.RunDailyPipeline(c.Request.Context(), logger, config.GetSettings()); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until the DB is ready, we return 503 for app endpoints.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate app endpoints on database readiness. Redis is optional.
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/transactions", createTransactionHandler())
	r.GET("/transactions", listTransactionsHandler())
	r.GET("/transactions/summary", transactionSummaryHandler())
	r.GET("/transactions/export", exportTransactionsHandler())
	r.GET("/transactions/:id", getTransactionHandler())
	r.PUT("/transactions/:id", updateTransactionHandler())
	r.DELETE("/transactions/:id", deleteTransactionHandler())

	r.GET("/dashboard", dashboardHandler())
	r.GET("/analytics/balance", balanceHandler())
	r.GET("/analytics/trend", cashFlowTrendHandler())
	r.GET("/analytics/growth", growthMetricsHandler())
	r.GET("/analytics/categories", categoryBreakdownHandler())

	r.POST("/forecasts", generateForecastHandler(logger))
	r.GET("/forecasts", listForecastsHandler())
	r.GET("/forecasts/:id", getForecastHandler())

	r.GET("/alerts", listAlertsHandler())
	r.POST("/alerts", createAlertHandler())
	r.PUT("/alerts/:id/status", updateAlertStatusHandler())
	r.POST("/alerts/read-all", markAllAlertsReadHandler())

	r.GET("/snapshots", listSnapshotsHandler())
	// Ops tooling: trigger the background jobs outside the schedule.
	r.POST("/internal/ops/snapshots/generate", generateSnapshotHandler(logger))
	r.POST("/internal/ops/run-daily-pipeline", runDailyPipelineHandler(logger))

	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	// Now DB is ready; run migrations.
	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow disabling migrations
	// on startup and running them as a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Start the daily snapshot/forecast/alert job.
	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	defer cancelScheduler()
	dailyScheduler := scheduler.NewScheduler(schedulerCtx, logger, config.GetSettings())
	if err := dailyScheduler.Register(); err != nil {
		logger.WithFields(logrus.Fields{"field": "scheduler"}).Error("failed to register jobs: " + err.Error())
	} else {
		dailyScheduler.Start()
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background jobs first so they don't start new work while we're draining.
	dailyScheduler.Stop()
	cancelScheduler()

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	// Get the IP address or user identifier from the request.
	key := c.ClientIP()

	// Check if the key exists in Redis.
	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the key doesn't exist, create it and set expiry.
	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	// If the key exists, get the current count.
	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the count exceeds the limit, return an error response.
	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
