package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/foodstation/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares. webhook is
// nil when WhatsApp messaging is disabled.
func New(ledgerHandler *handlers.LedgerHandler, webhook *handlers.WebhookHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	if webhook != nil {
		r.GET("/webhook", webhook.Verify)
		r.POST("/webhook", webhook.Receive)
		r.POST("/reports/weekly/send", webhook.SendWeeklyReport)
	}

	api := r.Group("/api")
	api.GET("/pipelines", ledgerHandler.Pipelines)
	api.POST("/shipments", ledgerHandler.RecordShipment)

	pipeline := api.Group("/ledger/:pipeline")
	pipeline.GET("/days", ledgerHandler.ListDays)
	pipeline.GET("/days/:date", ledgerHandler.GetDay)
	pipeline.POST("/days/:date", ledgerHandler.RecordDay)
	pipeline.GET("/days/:date/variance", ledgerHandler.Variance)
	pipeline.GET("/summary", ledgerHandler.Summary)
	pipeline.GET("/summary.xlsx", ledgerHandler.SummaryWorkbook)
	pipeline.POST("/rebuild", ledgerHandler.Rebuild)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
