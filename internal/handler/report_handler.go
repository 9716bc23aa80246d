package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thpt-conduct-api/internal/service"
	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
	"github.com/noah-isme/thpt-conduct-api/pkg/response"
)

// ReportHandler exposes the read-only aggregation surface.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Aggregate godoc
// @Summary Per-class penalty point summary over a date range
// @Tags Reports
// @Produce json
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Param classes query string false "Comma-separated class codes; defaults to all known"
// @Success 200 {object} response.Envelope
// @Router /reports/points [get]
func (h *ReportHandler) Aggregate(c *gin.Context) {
	from, err := time.ParseInLocation("2006-01-02", c.Query("from"), service.SchoolZone)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD"))
		return
	}
	to, err := time.ParseInLocation("2006-01-02", c.Query("to"), service.SchoolZone)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD"))
		return
	}
	// Inclusive range: extend "to" through the end of its day.
	to = to.Add(24*time.Hour - time.Nanosecond)
	if to.Before(from) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must not precede from"))
		return
	}

	var classes []string
	if raw := c.Query("classes"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				classes = append(classes, trimmed)
			}
		}
	}

	summaries, cacheHit, err := h.reports.Aggregate(c.Request.Context(), from, to, classes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil, map[string]interface{}{"cache_hit": cacheHit})
}
