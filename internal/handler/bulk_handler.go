package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thpt-conduct-api/internal/service"
	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
	"github.com/noah-isme/thpt-conduct-api/pkg/response"
)

// BulkViolationHandler exposes the bulk candidate import channel.
type BulkViolationHandler struct {
	bulk *service.BulkViolationService
}

// NewBulkViolationHandler constructs BulkViolationHandler.
func NewBulkViolationHandler(bulk *service.BulkViolationService) *BulkViolationHandler {
	return &BulkViolationHandler{bulk: bulk}
}

// Submit godoc
// @Summary Submit a bulk violation batch
// @Tags Violations
// @Accept json
// @Produce json
// @Param payload body service.BulkSubmitRequest true "Candidate batch"
// @Success 200 {object} response.Envelope
// @Router /violations/bulk [post]
func (h *BulkViolationHandler) Submit(c *gin.Context) {
	var req service.BulkSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.bulk.Submit(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
