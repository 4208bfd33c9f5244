package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mdnair2344/greenbasket/internal/revenue"
	"github.com/mdnair2344/greenbasket/internal/server/http/dto"
)

// ReportHandler serves revenue and sustainability reports.
type ReportHandler struct {
	facade ReportFacade
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(facade ReportFacade) *ReportHandler {
	return &ReportHandler{facade: facade}
}

// Revenue handles GET /api/producer/revenue.
func (h *ReportHandler) Revenue(c *gin.Context) {
	report, err := h.facade.Revenue(c.Request.Context(), CurrentProducerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRevenueResponse(report))
}

// Snapshot handles GET /api/producer/revenue/snapshot: the report last
// published by the background refresher. generated_at tells its age.
func (h *ReportHandler) Snapshot(c *gin.Context) {
	report, err := h.facade.RevenueSnapshot(c.Request.Context(), CurrentProducerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRevenueResponse(report))
}

func toRevenueResponse(report *revenue.Report) dto.RevenueResponse {
	rows := report.Rows()
	resp := dto.RevenueResponse{
		ProducerID:   report.ProducerID(),
		GeneratedAt:  report.GeneratedAt(),
		CurrentMonth: report.CurrentMonth().String(),
		Total:        report.Total(),
		CurrentTotal: report.CurrentMonthTotals(),
		Rows:         make([]dto.RevenueRowResponse, 0, len(rows)),
	}
	for _, r := range rows {
		resp.Rows = append(resp.Rows, dto.RevenueRowResponse{
			ProductName:  r.ProductName,
			Month:        r.Month.String(),
			Revenue:      r.Revenue,
			Category:     r.Category,
			Emoji:        r.Emoji,
			PricePerUnit: r.PricePerUnit,
		})
	}
	return resp
}

// CurrentMonthTotal handles GET /api/producer/revenue/current/:product.
func (h *ReportHandler) CurrentMonthTotal(c *gin.Context) {
	product := strings.TrimSpace(c.Param("product"))
	if product == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: "product is required"})
		return
	}
	total, err := h.facade.CurrentMonthTotal(c.Request.Context(), CurrentProducerID(c), product)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ProductTotalResponse{Product: product, Total: total})
}

// Sustainability handles GET /api/producer/sustainability.
func (h *ReportHandler) Sustainability(c *gin.Context) {
	m, err := h.facade.Sustainability(c.Request.Context(), CurrentProducerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SustainabilityResponse{
		ProducerID:            m.ProducerID,
		Score:                 m.Score,
		CropCount:             m.CropCount,
		CompletedOrderCount:   m.CompletedOrderCount,
		TotalRevenue:          m.TotalRevenue,
		AverageRating:         m.AverageRating,
		ReviewCount:           m.ReviewCount,
		ValidCertificateCount: m.ValidCertificateCount,
	})
}
