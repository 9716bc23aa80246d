package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thpt-conduct-api/internal/models"
	"github.com/noah-isme/thpt-conduct-api/internal/service"
	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
	"github.com/noah-isme/thpt-conduct-api/pkg/response"
)

// ViolationHandler exposes the single-record violation endpoints.
type ViolationHandler struct {
	violations *service.ViolationService
}

// NewViolationHandler constructs ViolationHandler.
func NewViolationHandler(violations *service.ViolationService) *ViolationHandler {
	return &ViolationHandler{violations: violations}
}

// List godoc
// @Summary List violations
// @Tags Violations
// @Produce json
// @Param grade query int false "Filter by grade"
// @Param class query string false "Filter by class code"
// @Param targetType query string false "student or class"
// @Param status query string false "Filter by status"
// @Param from query string false "Range start (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Range end (RFC3339 or YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /violations [get]
func (h *ViolationHandler) List(c *gin.Context) {
	var filter models.ViolationFilter
	if grade, err := strconv.Atoi(c.Query("grade")); err == nil {
		filter.Grade = grade
	}
	filter.ViolatingClass = c.Query("class")
	if target := c.Query("targetType"); target != "" {
		t := models.TargetType(target)
		if !t.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid targetType"))
			return
		}
		filter.TargetType = &t
	}
	if status := c.Query("status"); status != "" {
		st := models.ViolationStatus(status)
		if !st.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid status"))
			return
		}
		filter.Status = &st
	}
	if from, ok := parseDateQuery(c, "from"); ok {
		filter.DateFrom = &from
	}
	if to, ok := parseDateQuery(c, "to"); ok {
		filter.DateTo = &to
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	violations, pagination, err := h.violations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, violations, pagination)
}

// Get godoc
// @Summary Get violation detail
// @Tags Violations
// @Produce json
// @Param id path string true "Violation ID"
// @Success 200 {object} response.Envelope
// @Router /violations/{id} [get]
func (h *ViolationHandler) Get(c *gin.Context) {
	violation, err := h.violations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, violation, nil)
}

// Report godoc
// @Summary File a single violation
// @Tags Violations
// @Accept json
// @Produce json
// @Param payload body service.ReportViolationRequest true "Violation payload"
// @Success 201 {object} response.Envelope
// @Router /violations [post]
func (h *ViolationHandler) Report(c *gin.Context) {
	var req service.ReportViolationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	violation, err := h.violations.Report(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, violation)
}

// Edit godoc
// @Summary Edit violation fields
// @Tags Violations
// @Accept json
// @Produce json
// @Param id path string true "Violation ID"
// @Param payload body service.EditViolationRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /violations/{id} [patch]
func (h *ViolationHandler) Edit(c *gin.Context) {
	var req service.EditViolationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	violation, err := h.violations.Edit(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, violation, nil)
}

type appealRequest struct {
	Reason string `json:"reason"`
}

// Appeal godoc
// @Summary Appeal a reported violation
// @Tags Violations
// @Accept json
// @Produce json
// @Param id path string true "Violation ID"
// @Param payload body appealRequest true "Appeal reason"
// @Success 200 {object} response.Envelope
// @Router /violations/{id}/appeal [post]
func (h *ViolationHandler) Appeal(c *gin.Context) {
	var req appealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	violation, err := h.violations.Appeal(c.Request.Context(), claimsFromContext(c), c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, violation, nil)
}

// Resolve godoc
// @Summary Resolve an appealed violation
// @Tags Violations
// @Produce json
// @Param id path string true "Violation ID"
// @Success 200 {object} response.Envelope
// @Router /violations/{id}/resolve [post]
func (h *ViolationHandler) Resolve(c *gin.Context) {
	violation, err := h.violations.Resolve(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, violation, nil)
}

// Delete godoc
// @Summary Delete a violation
// @Tags Violations
// @Produce json
// @Param id path string true "Violation ID"
// @Success 204
// @Router /violations/{id} [delete]
func (h *ViolationHandler) Delete(c *gin.Context) {
	if err := h.violations.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Logs godoc
// @Summary Audit trail for a violation
// @Tags Violations
// @Produce json
// @Param id path string true "Violation ID"
// @Success 200 {object} response.Envelope
// @Router /violations/{id}/logs [get]
func (h *ViolationHandler) Logs(c *gin.Context) {
	logs, err := h.violations.Logs(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

func parseDateQuery(c *gin.Context, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, service.SchoolZone); err == nil {
		return t, true
	}
	return time.Time{}, false
}
