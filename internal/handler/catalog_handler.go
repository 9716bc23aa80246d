package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thpt-conduct-api/internal/catalog"
	"github.com/noah-isme/thpt-conduct-api/pkg/response"
)

// CatalogHandler exposes the violation-type tier table.
type CatalogHandler struct {
	catalog catalog.Catalog
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(cat catalog.Catalog) *CatalogHandler {
	if cat == nil {
		cat = catalog.Default()
	}
	return &CatalogHandler{catalog: cat}
}

// Tiers godoc
// @Summary Violation type tiers and point values
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/tiers [get]
func (h *CatalogHandler) Tiers(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.catalog.Tiers(), nil)
}
