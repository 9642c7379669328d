package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/foodstation/internal/domain/models"
	service "github.com/mamadbah2/foodstation/internal/service/whatsapp"
)

// ReportGenerator builds the weekly ledger report for every pipeline.
type ReportGenerator interface {
	GenerateWeeklyReport(ctx context.Context, now time.Time) (string, error)
}

// WebhookHandler exposes the WhatsApp channel: Meta callbacks carrying ledger
// commands, and on-demand delivery of the weekly report.
type WebhookHandler struct {
	svc       service.MessagingService
	reports   ReportGenerator
	recipient string
	logger    *zap.Logger
	now       func() time.Time
}

// NewWebhookHandler constructs the HTTP handler adapter. recipient is the
// default destination of the weekly report.
func NewWebhookHandler(svc service.MessagingService, reports ReportGenerator, recipient string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, reports: reports, recipient: recipient, logger: logger, now: time.Now}
}

// Verify responds to Meta's webhook verification challenge.
func (h *WebhookHandler) Verify(c *gin.Context) {
	resp, err := h.svc.VerifyWebhookToken(c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"))
	if err != nil {
		h.logger.Warn("webhook verification failed", zap.Error(err))
		c.String(http.StatusForbidden, "verification failed")
		return
	}

	c.String(http.StatusOK, resp)
}

// Receive ingests operator messages and runs the ledger commands they carry.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("invalid webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.svc.HandleWebhook(c.Request.Context(), payload); err != nil {
		h.logger.Error("failed processing webhook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process webhook"})
		return
	}

	c.Status(http.StatusOK)
}

type sendReportRequest struct {
	To string `json:"to"`
}

// SendWeeklyReport builds the current week's report and sends it over
// WhatsApp, to the body's "to" or the configured recipient. A report missing
// some pipelines is still sent; the failures are returned as warnings.
func (h *WebhookHandler) SendWeeklyReport(c *gin.Context) {
	var req sendReportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	to := strings.TrimSpace(req.To)
	if to == "" {
		to = h.recipient
	}
	if to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no report recipient configured"})
		return
	}

	ctx := c.Request.Context()
	report, err := h.reports.GenerateWeeklyReport(ctx, h.now())
	if report == "" {
		h.logger.Error("weekly report failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to build weekly report"})
		return
	}

	if sendErr := h.svc.SendOutbound(ctx, models.OutboundMessageRequest{To: to, Message: report}); sendErr != nil {
		h.logger.Error("failed sending weekly report", zap.String("to", to), zap.Error(sendErr))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send message"})
		return
	}

	resp := gin.H{"to": to, "report": report}
	if err != nil {
		h.logger.Warn("weekly report sent incomplete", zap.Error(err))
		resp["warnings"] = err.Error()
	}
	c.JSON(http.StatusAccepted, resp)
}
