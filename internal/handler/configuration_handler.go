package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thpt-conduct-api/internal/service"
	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
	"github.com/noah-isme/thpt-conduct-api/pkg/response"
)

// ConfigurationHandler exposes the typed settings store.
type ConfigurationHandler struct {
	settings *service.ConfigurationService
}

// NewConfigurationHandler constructs ConfigurationHandler.
func NewConfigurationHandler(settings *service.ConfigurationService) *ConfigurationHandler {
	return &ConfigurationHandler{settings: settings}
}

// Get godoc
// @Summary Read one setting
// @Tags Settings
// @Produce json
// @Param key path string true "Setting key"
// @Success 200 {object} response.Envelope
// @Router /settings/{key} [get]
func (h *ConfigurationHandler) Get(c *gin.Context) {
	cfg, err := h.settings.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

type upsertSettingRequest struct {
	Value string `json:"value"`
}

// Upsert godoc
// @Summary Store one setting
// @Tags Settings
// @Accept json
// @Produce json
// @Param key path string true "Setting key"
// @Param payload body upsertSettingRequest true "Setting value"
// @Success 200 {object} response.Envelope
// @Router /settings/{key} [put]
func (h *ConfigurationHandler) Upsert(c *gin.Context) {
	var req upsertSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cfg, err := h.settings.Upsert(c.Request.Context(), claimsFromContext(c), c.Param("key"), req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}
