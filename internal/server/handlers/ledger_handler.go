package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/foodstation/internal/domain/models"
	"github.com/mamadbah2/foodstation/internal/export"
	"github.com/mamadbah2/foodstation/internal/service/ledger"
	"github.com/mamadbah2/foodstation/internal/service/shipments"
)

// LedgerService is the ledger surface exposed over HTTP.
type LedgerService interface {
	RecordDaily(ctx context.Context, pipeline models.PipelineKind, day models.Day, fields models.RecordFields) (ledger.RecordResult, error)
	RefreshShipped(ctx context.Context, pipeline models.PipelineKind, day models.Day) (ledger.RecordResult, error)
	GetDaily(ctx context.Context, pipeline models.PipelineKind, day models.Day) (*models.LedgerRecord, error)
	GetRange(ctx context.Context, pipeline models.PipelineKind, from, to models.Day) ([]models.LedgerRecord, error)
	GetPeriodSummary(ctx context.Context, pipeline models.PipelineKind, period models.Period) (models.PeriodSummary, error)
	GetVariance(ctx context.Context, pipeline models.PipelineKind, day models.Day) ([]shipments.Variance, error)
	Rebuild(ctx context.Context, pipeline models.PipelineKind, from models.Day) (ledger.CascadeResult, error)
}

// ShipmentRecorder appends shipment events.
type ShipmentRecorder interface {
	RecordEvent(ctx context.Context, event models.ShipmentEvent) (models.ShipmentEvent, models.Day, error)
}

// LedgerHandler serves the ledger REST API.
type LedgerHandler struct {
	svc       LedgerService
	shipments ShipmentRecorder
	location  *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// NewLedgerHandler constructs the handler. recorder may be nil when shipment
// events come from a read-only source.
func NewLedgerHandler(svc LedgerService, recorder ShipmentRecorder, loc *time.Location, logger *zap.Logger) *LedgerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &LedgerHandler{svc: svc, shipments: recorder, location: loc, logger: logger, now: time.Now}
}

type recordResponse struct {
	Record       models.LedgerRecord `json:"record"`
	Created      bool                `json:"created"`
	Shortfalls   []models.Shortfall  `json:"shortfalls,omitempty"`
	CascadedDays []models.Day        `json:"cascaded_days,omitempty"`
	StoppedAt    models.Day          `json:"stopped_at,omitempty"`
}

func newRecordResponse(res ledger.RecordResult) recordResponse {
	return recordResponse{
		Record:       res.Record,
		Created:      res.Created,
		Shortfalls:   res.Shortfalls,
		CascadedDays: res.Cascade.UpdatedDays(),
		StoppedAt:    res.Cascade.StoppedAt,
	}
}

// RecordDay creates or edits the record of one pipeline day.
func (h *LedgerHandler) RecordDay(c *gin.Context) {
	pipeline, day, ok := h.pipelineAndDay(c)
	if !ok {
		return
	}

	var fields models.RecordFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		h.logger.Warn("invalid ledger payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.svc.RecordDaily(c.Request.Context(), pipeline, day, fields)
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, newRecordResponse(res))
}

// GetDay returns one record.
func (h *LedgerHandler) GetDay(c *gin.Context) {
	pipeline, day, ok := h.pipelineAndDay(c)
	if !ok {
		return
	}

	rec, err := h.svc.GetDaily(c.Request.Context(), pipeline, day)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ListDays returns the records between the from and to query parameters.
func (h *LedgerHandler) ListDays(c *gin.Context) {
	pipeline, ok := h.pipeline(c)
	if !ok {
		return
	}
	period, ok := h.period(c)
	if !ok {
		return
	}

	records, err := h.svc.GetRange(c.Request.Context(), pipeline, period.Start, period.End)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if records == nil {
		records = []models.LedgerRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"pipeline": pipeline, "period": period, "records": records})
}

// Summary aggregates a period.
func (h *LedgerHandler) Summary(c *gin.Context) {
	pipeline, ok := h.pipeline(c)
	if !ok {
		return
	}
	period, ok := h.period(c)
	if !ok {
		return
	}

	summary, err := h.svc.GetPeriodSummary(c.Request.Context(), pipeline, period)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SummaryWorkbook streams the period summary and its records as xlsx.
func (h *LedgerHandler) SummaryWorkbook(c *gin.Context) {
	pipeline, ok := h.pipeline(c)
	if !ok {
		return
	}
	period, ok := h.period(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	summary, err := h.svc.GetPeriodSummary(ctx, pipeline, period)
	if err != nil {
		h.writeError(c, err)
		return
	}
	records, err := h.svc.GetRange(ctx, pipeline, period.Start, period.End)
	if err != nil {
		h.writeError(c, err)
		return
	}

	filename := fmt.Sprintf("%s_%s_%s.xlsx", pipeline, period.Start, period.End)
	c.Header("Content-Type", export.ContentType)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Status(http.StatusOK)
	if err := export.Write(c.Writer, summary, records); err != nil {
		h.logger.Error("failed writing workbook", zap.String("pipeline", string(pipeline)), zap.Error(err))
	}
}

// Variance compares planned and actual shipments with the day's stock.
func (h *LedgerHandler) Variance(c *gin.Context) {
	pipeline, day, ok := h.pipelineAndDay(c)
	if !ok {
		return
	}

	variance, err := h.svc.GetVariance(c.Request.Context(), pipeline, day)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pipeline": pipeline, "date": day, "categories": variance})
}

// Rebuild recomputes the chain from the from query parameter.
func (h *LedgerHandler) Rebuild(c *gin.Context) {
	pipeline, ok := h.pipeline(c)
	if !ok {
		return
	}
	from, err := models.ParseDay(c.Query("from"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	res, err := h.svc.Rebuild(c.Request.Context(), pipeline, from)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pipeline": pipeline, "from": from, "updated_days": res.UpdatedDays(), "shortfalls": res.Shortfalls})
}

type shipmentRequest struct {
	ID         string          `json:"id"`
	Pipeline   string          `json:"pipeline" binding:"required"`
	Category   string          `json:"category" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
	Type       string          `json:"event_type" binding:"required"`
	OccurredAt time.Time       `json:"occurred_at" binding:"required"`
	Reference  string          `json:"reference"`
}

// RecordShipment appends a shipment event and refreshes the affected day.
func (h *LedgerHandler) RecordShipment(c *gin.Context) {
	if h.shipments == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "shipment events are read from an external source"})
		return
	}

	var req shipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid shipment payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pipeline, err := models.ParsePipelineKind(req.Pipeline)
	if err != nil {
		h.writeError(c, err)
		return
	}
	typ, err := models.ParseShipmentType(req.Type)
	if err != nil {
		h.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	event, day, err := h.shipments.RecordEvent(ctx, models.ShipmentEvent{
		ID:         req.ID,
		Pipeline:   pipeline,
		Category:   models.Category(req.Category),
		Quantity:   req.Quantity,
		Type:       typ,
		OccurredAt: req.OccurredAt,
		Reference:  req.Reference,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := gin.H{"event": event, "date": day}
	res, err := h.svc.RefreshShipped(ctx, pipeline, day)
	switch {
	case errors.Is(err, models.ErrNotFound):
	case err != nil:
		// The event is stored; the next write to the day reconciles it.
		h.logger.Error("failed refreshing shipped quantities", zap.String("pipeline", string(pipeline)), zap.String("date", day.String()), zap.Error(err))
		resp["refresh_error"] = err.Error()
	default:
		resp["record"] = newRecordResponse(res)
	}
	c.JSON(http.StatusCreated, resp)
}

// Pipelines lists the catalog.
func (h *LedgerHandler) Pipelines(c *gin.Context) {
	type pipelineView struct {
		Kind        models.PipelineKind `json:"kind"`
		Name        string              `json:"name"`
		RawMaterial string              `json:"raw_material"`
		Categories  []models.Category   `json:"categories"`
	}

	catalog := models.Pipelines()
	out := make([]pipelineView, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, pipelineView{Kind: p.Kind, Name: p.Name, RawMaterial: p.RawMaterial, Categories: p.Categories})
	}
	c.JSON(http.StatusOK, gin.H{"pipelines": out})
}

func (h *LedgerHandler) pipeline(c *gin.Context) (models.PipelineKind, bool) {
	pipeline, err := models.ParsePipelineKind(c.Param("pipeline"))
	if err != nil {
		h.writeError(c, err)
		return "", false
	}
	return pipeline, true
}

func (h *LedgerHandler) pipelineAndDay(c *gin.Context) (models.PipelineKind, models.Day, bool) {
	pipeline, ok := h.pipeline(c)
	if !ok {
		return "", "", false
	}
	day, err := models.ParseDay(c.Param("date"))
	if err != nil {
		h.writeError(c, err)
		return "", "", false
	}
	return pipeline, day, true
}

// period reads from/to, or period=week|month around date (default today).
func (h *LedgerHandler) period(c *gin.Context) (models.Period, bool) {
	if from, to := c.Query("from"), c.Query("to"); from != "" || to != "" {
		start, err := models.ParseDay(from)
		if err != nil {
			h.writeError(c, err)
			return models.Period{}, false
		}
		end, err := models.ParseDay(to)
		if err != nil {
			h.writeError(c, err)
			return models.Period{}, false
		}
		period, err := models.NewPeriod(start, end)
		if err != nil {
			h.writeError(c, err)
			return models.Period{}, false
		}
		return period, true
	}

	anchor := models.DayOf(h.now(), h.location)
	if raw := c.Query("date"); raw != "" {
		day, err := models.ParseDay(raw)
		if err != nil {
			h.writeError(c, err)
			return models.Period{}, false
		}
		anchor = day
	}

	switch c.DefaultQuery("period", "week") {
	case "week":
		return models.WeekOf(anchor), true
	case "month":
		return models.MonthOf(anchor), true
	default:
		h.writeError(c, &models.ValidationError{Field: "period", Reason: "must be week or month"})
		return models.Period{}, false
	}
}

func (h *LedgerHandler) writeError(c *gin.Context, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent update, retry"})
	case errors.Is(err, shipments.ErrNoShipmentLog):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	default:
		h.logger.Error("ledger request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
