package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thpt-conduct-api/internal/middleware"
	"github.com/noah-isme/thpt-conduct-api/internal/models"
)

// claimsFromContext returns the authenticated actor, nil on public routes or
// when the JWT middleware did not run.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
