package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/vsinha/fuelrecon/pkg/app"
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/export"
)

// Handler serves the order-entry, movement and report API
type Handler struct {
	app *app.App
}

// New creates a handler over a wired application
func New(a *app.App) *Handler {
	return &Handler{app: a}
}

// Register mounts every route under /api/v1
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")
	v1.PUT("/demands/:id", h.UpdateDemand)
	v1.POST("/demands/:id/reconcile", h.ReconcileDemand)
	v1.GET("/demands/:id/lines", h.DemandLines)
	v1.GET("/demands/:id/invoice", h.InvoiceValues)
	v1.POST("/reconcile", h.ReconcileAll)

	v1.POST("/lines/merge", h.MergeLines)
	v1.POST("/lines/:id/split", h.SplitLine)
	v1.POST("/lines/:id/complete", h.CompleteLine)
	v1.PUT("/lines/:id/done-normalized", h.SetDoneNormalized)

	v1.GET("/lots", h.ListLots)

	v1.POST("/reports/flow", h.OpenReport)
	v1.GET("/reports/flow", h.ReportRows)
}

func (h *Handler) runContext(c *gin.Context) entities.RunContext {
	rc := h.app.RunContext()
	if company := c.Query("company"); company != "" {
		rc.Company = company
	}
	return rc
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	success(c, gin.H{"status": "ok"})
}

// UpdateDemandRequest changes the target of a demand line
type UpdateDemandRequest struct {
	Nominal            decimal.Decimal `json:"nominal"`
	Normalized         decimal.Decimal `json:"normalized"`
	DensityFact        decimal.Decimal `json:"density_fact"`
	DensityReference   decimal.Decimal `json:"density_reference"`
	Strict             *bool           `json:"strict"`
	SkipReconciliation bool            `json:"skip_reconciliation"`
}

// UpdateDemand saves a new target and reconciles the demand's fulfillment.
// Interactive callers get strict mode unless they opt out.
func (h *Handler) UpdateDemand(c *gin.Context) {
	var req UpdateDemandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	strict := req.Strict == nil || *req.Strict

	rc := h.runContext(c)
	rc.SkipReconciliation = req.SkipReconciliation
	result, err := h.app.Orchestrator.UpdateDemand(c.Request.Context(), rc, c.Param("id"),
		entities.NewDualQuantity(req.Nominal, req.Normalized),
		entities.Density{Fact: req.DensityFact, Reference: req.DensityReference},
		strict)
	if err != nil {
		fail(c, err, reconciliationView(result))
		return
	}
	success(c, reconciliationView(result))
}

// ReconcileDemand re-runs reconciliation of one demand against its current target
func (h *Handler) ReconcileDemand(c *gin.Context) {
	strict := c.DefaultQuery("strict", "true") != "false"
	result, err := h.app.Orchestrator.Reconcile(c.Request.Context(), h.runContext(c), c.Param("id"), strict)
	if err != nil {
		fail(c, err, reconciliationView(result))
		return
	}
	success(c, reconciliationView(result))
}

// ReconcileAll reconciles every demand line in non-strict mode
func (h *Handler) ReconcileAll(c *gin.Context) {
	results, err := h.app.Orchestrator.ReconcileAll(c.Request.Context(), h.runContext(c))
	views := make([]*ReconciliationView, 0, len(results))
	for _, r := range results {
		views = append(views, reconciliationView(r))
	}
	if err != nil {
		fail(c, err, views)
		return
	}
	success(c, views)
}

// DemandLines lists the fulfillment lines attached to a demand
func (h *Handler) DemandLines(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.app.Demands.GetDemandLine(ctx, id); err != nil {
		fail(c, err, nil)
		return
	}
	lines, err := h.app.Fulfillment.LinesForDemand(ctx, id)
	if err != nil {
		fail(c, err, nil)
		return
	}
	success(c, lineViews(lines))
}

// InvoiceValues returns the values of the next invoice line of a demand
func (h *Handler) InvoiceValues(c *gin.Context) {
	values, err := h.app.Orchestrator.InvoiceValues(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, nil)
		return
	}
	success(c, invoiceView(values))
}

// MergeLinesRequest lists the lines to merge, survivor first
type MergeLinesRequest struct {
	IDs []string `json:"ids" binding:"required,min=2"`
}

// MergeLines merges compatible lines into the first one
func (h *Handler) MergeLines(c *gin.Context) {
	var req MergeLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	survivor, err := h.app.Moves.Merge(c.Request.Context(), h.runContext(c), req.IDs)
	if err != nil {
		fail(c, err, nil)
		return
	}
	success(c, lineView(survivor))
}

// SplitLineRequest carves a nominal quantity out of a line
type SplitLineRequest struct {
	Nominal    decimal.Decimal  `json:"nominal"`
	Normalized *decimal.Decimal `json:"normalized"`
}

// SplitLine splits a line and returns both pieces
func (h *Handler) SplitLine(c *gin.Context) {
	var req SplitLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	remainder, split, err := h.app.Moves.Split(c.Request.Context(), h.runContext(c), c.Param("id"), req.Nominal, req.Normalized)
	if err != nil {
		fail(c, err, nil)
		return
	}
	success(c, gin.H{"remainder": lineView(remainder), "split": lineView(split)})
}

// CompleteLineRequest records an executed quantity
type CompleteLineRequest struct {
	Nominal    decimal.Decimal `json:"nominal"`
	Normalized decimal.Decimal `json:"normalized"`
	LotID      string          `json:"lot_id"`
	Date       time.Time       `json:"date"`
}

// CompleteLine records an executed movement on a line
func (h *Handler) CompleteLine(c *gin.Context) {
	var req CompleteLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	detail, err := h.app.Moves.Complete(c.Request.Context(), h.runContext(c), c.Param("id"),
		entities.NewDualQuantity(req.Nominal, req.Normalized), req.Date, req.LotID)
	if err != nil {
		fail(c, err, nil)
		return
	}
	success(c, detailView(detail))
}

// SetDoneNormalizedRequest overrides the executed normalized quantity of a line
type SetDoneNormalizedRequest struct {
	Normalized decimal.Decimal `json:"normalized"`
}

// SetDoneNormalized distributes a done normalized quantity over the line's details
func (h *Handler) SetDoneNormalized(c *gin.Context) {
	var req SetDoneNormalizedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	if err := h.app.Moves.SetDoneNormalized(ctx, h.runContext(c), c.Param("id"), req.Normalized); err != nil {
		fail(c, err, nil)
		return
	}
	line, err := h.app.Fulfillment.GetLine(ctx, c.Param("id"))
	if err != nil {
		fail(c, err, nil)
		return
	}
	success(c, lineView(line))
}

// ListLots lists density lots, optionally for one product
func (h *Handler) ListLots(c *gin.Context) {
	lots, err := h.app.Lots.ListLots(c.Request.Context(), entities.ProductID(c.Query("product")))
	if err != nil {
		fail(c, err, nil)
		return
	}
	success(c, lotViews(lots))
}

// OpenReportRequest selects the report window
type OpenReportRequest struct {
	Start time.Time `json:"start" binding:"required"`
	End   time.Time `json:"end" binding:"required"`
}

// OpenReport regenerates the flow report for the window
func (h *Handler) OpenReport(c *gin.Context) {
	var req OpenReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	rows, err := h.app.Reports.OpenReport(c.Request.Context(), h.runContext(c).Company, req.Start, req.End)
	if err != nil {
		fail(c, err, nil)
		return
	}
	success(c, rows)
}

// ReportRows returns the last generated report, as JSON or ?format=xlsx
func (h *Handler) ReportRows(c *gin.Context) {
	rows, err := h.app.Reports.Rows(c.Request.Context())
	if err != nil {
		fail(c, err, nil)
		return
	}
	if c.Query("format") != "xlsx" {
		success(c, rows)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=flow_report.xlsx")
	if err := export.WriteFlowReport(c.Writer, rows); err != nil {
		fail(c, err, nil)
	}
}
