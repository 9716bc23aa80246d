package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/thpt-conduct-api/internal/models"
	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
)

func TestConfigurationRepositoryGet(t *testing.T) {
	db, mock, cleanup := newViolationMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	rows := sqlmock.NewRows([]string{"key", "value", "type", "updated_by", "updated_at"}).
		AddRow("system_reporter_id", "bot-1", "id", "admin-1", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, value, type, updated_by, updated_at FROM configurations WHERE key = $1")).
		WithArgs("system_reporter_id").
		WillReturnRows(rows)

	cfg, err := repo.Get(context.Background(), "system_reporter_id")
	require.NoError(t, err)
	assert.Equal(t, "bot-1", cfg.Value)
	assert.Equal(t, models.ConfigurationTypeID, cfg.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurationRepositoryGetNotFound(t *testing.T) {
	db, mock, cleanup := newViolationMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, value, type, updated_by, updated_at FROM configurations WHERE key = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "type", "updated_by", "updated_at"}))

	_, err := repo.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurationRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newViolationMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	updatedBy := "admin-1"
	mock.ExpectExec("INSERT INTO configurations").
		WithArgs("submission_debug_mode", "true", models.ConfigurationTypeBoolean, &updatedBy, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Upsert(context.Background(), &models.Configuration{
		Key:       "submission_debug_mode",
		Value:     "true",
		Type:      models.ConfigurationTypeBoolean,
		UpdatedBy: &updatedBy,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
