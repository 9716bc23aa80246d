package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thpt-conduct-api/internal/service"
	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
	"github.com/noah-isme/thpt-conduct-api/pkg/response"
)

// WindowHandler reports the current submission window state so clients can
// render the gate before attempting a batch.
type WindowHandler struct {
	window   *service.SubmissionWindow
	settings *service.ConfigurationService
}

// NewWindowHandler constructs WindowHandler.
func NewWindowHandler(window *service.SubmissionWindow, settings *service.ConfigurationService) *WindowHandler {
	return &WindowHandler{window: window, settings: settings}
}

// Status godoc
// @Summary Current absence submission window state
// @Tags Absences
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /absences/window [get]
func (h *WindowHandler) Status(c *gin.Context) {
	snapshot, err := h.settings.SubmissionSnapshot(c.Request.Context())
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission settings"))
		return
	}
	decision := h.window.Evaluate(time.Now(), snapshot.DebugMode)
	response.JSON(c, http.StatusOK, decision, nil, map[string]interface{}{"debug_mode": snapshot.DebugMode})
}
