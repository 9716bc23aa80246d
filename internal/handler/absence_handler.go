package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thpt-conduct-api/internal/service"
	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
	"github.com/noah-isme/thpt-conduct-api/pkg/response"
)

// AbsenceHandler exposes the absence-request submission channel.
type AbsenceHandler struct {
	absences *service.AbsenceService
}

// NewAbsenceHandler constructs AbsenceHandler.
func NewAbsenceHandler(absences *service.AbsenceService) *AbsenceHandler {
	return &AbsenceHandler{absences: absences}
}

type absenceSubmitRequest struct {
	RequesterName string                   `json:"requester_name"`
	Students      []service.AbsenceStudent `json:"students"`
}

// Submit godoc
// @Summary Submit an absence-request batch
// @Tags Absences
// @Accept json
// @Produce json
// @Param payload body absenceSubmitRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Router /absences [post]
func (h *AbsenceHandler) Submit(c *gin.Context) {
	var req absenceSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.absences.Submit(c.Request.Context(), req.RequesterName, req.Students, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
