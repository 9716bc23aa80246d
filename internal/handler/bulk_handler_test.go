package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/thpt-conduct-api/internal/middleware"
	"github.com/noah-isme/thpt-conduct-api/internal/models"
	"github.com/noah-isme/thpt-conduct-api/internal/service"
	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
)

func newBulkRouter(repo *fakeViolationRepo, actor *models.JWTClaims) *gin.Engine {
	guard := service.NewDuplicateGuard(repo, nil)
	svc := service.NewBulkViolationService(repo, guard, nil, nil, nil, nil)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if actor != nil {
			c.Set(middleware.ContextUserKey, actor)
		}
	})
	router.POST("/violations/bulk", NewBulkViolationHandler(svc).Submit)
	return router
}

func TestBulkHandlerSubmit(t *testing.T) {
	repo := &fakeViolationRepo{}
	actor := &models.JWTClaims{UserID: "teacher-1", Role: models.RoleGradeManager}
	router := newBulkRouter(repo, actor)

	resp := postJSON(t, router, "/violations/bulk", `{
		"candidates": [
			{"student_name": "Nguyễn Văn An", "class_name": "10A1", "violation_type": "Mất trật tự"},
			{"student_name": "Trần Bình", "class_name": "99Z9", "violation_type": "Mất trật tự"},
			{"class_name": "11B3", "violation_type": "Không tồn tại"}
		]
	}`)

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data service.BulkSubmitResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, 1, envelope.Data.SuccessCount)
	assert.Equal(t, 0, envelope.Data.DuplicateCount)
	assert.Len(t, envelope.Data.Skipped, 2)
	require.Len(t, envelope.Data.Accepted, 1)
	assert.Equal(t, 5, envelope.Data.Accepted[0].Points)
	assert.Equal(t, "teacher-1", envelope.Data.Accepted[0].Violation.ReporterID)
}

func TestBulkHandlerUnauthenticated(t *testing.T) {
	router := newBulkRouter(&fakeViolationRepo{}, nil)

	resp := postJSON(t, router, "/violations/bulk", `{"candidates": [{"class_name": "10A1", "violation_type": "Xả rác"}]}`)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), appErrors.ErrUnauthorized.Code)
}

func TestBulkHandlerEmptyBatch(t *testing.T) {
	actor := &models.JWTClaims{UserID: "teacher-1", Role: models.RoleGradeManager}
	router := newBulkRouter(&fakeViolationRepo{}, actor)

	resp := postJSON(t, router, "/violations/bulk", `{"candidates": []}`)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), appErrors.ErrEmptyBatch.Code)
}
