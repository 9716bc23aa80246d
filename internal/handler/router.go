package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thpt-conduct-api/internal/middleware"
	"github.com/noah-isme/thpt-conduct-api/internal/models"
	"github.com/noah-isme/thpt-conduct-api/internal/service"
)

// Handlers bundles every handler mounted by the router.
type Handlers struct {
	Auth          *AuthHandler
	Violations    *ViolationHandler
	Bulk          *BulkViolationHandler
	Absences      *AbsenceHandler
	Window        *WindowHandler
	Reports       *ReportHandler
	Catalog       *CatalogHandler
	Configuration *ConfigurationHandler
}

// RegisterRoutes mounts the API surface. The write paths here are the only
// mutation entry points into the violation store.
func RegisterRoutes(r *gin.RouterGroup, h Handlers, auth *service.AuthService, metrics *service.MetricsService) {
	if metrics != nil {
		r.Use(middleware.Metrics(metrics))
	}

	r.POST("/auth/login", h.Auth.Login)

	// The absence channel authenticates by the submission windows, not by a
	// logged-in reporter: records carry the synthetic system identity.
	r.POST("/absences", h.Absences.Submit)
	r.GET("/absences/window", h.Window.Status)

	r.GET("/catalog/tiers", h.Catalog.Tiers)

	authed := r.Group("")
	authed.Use(middleware.JWT(auth))

	staff := authed.Group("")
	staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleGradeManager))
	{
		staff.GET("/violations", h.Violations.List)
		staff.GET("/violations/:id", h.Violations.Get)
		staff.GET("/violations/:id/logs", h.Violations.Logs)
		staff.POST("/violations", h.Violations.Report)
		staff.POST("/violations/bulk", h.Bulk.Submit)
		staff.PATCH("/violations/:id", h.Violations.Edit)
		staff.POST("/violations/:id/appeal", h.Violations.Appeal)
		staff.GET("/reports/points", h.Reports.Aggregate)
	}

	admin := authed.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/violations/:id/resolve", h.Violations.Resolve)
		admin.DELETE("/violations/:id", h.Violations.Delete)
		admin.GET("/settings/:key", h.Configuration.Get)
		admin.PUT("/settings/:key", h.Configuration.Upsert)
	}
}
