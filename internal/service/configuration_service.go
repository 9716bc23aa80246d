package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/thpt-conduct-api/internal/models"
	"github.com/noah-isme/thpt-conduct-api/pkg/config"
	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
)

// Settings keys known to this service. Values are typed at the read
// boundary instead of flowing through as untyped strings.
const (
	SettingSubmissionDebugMode = "submission_debug_mode"
	SettingSystemReporterID    = "system_reporter_id"
)

type allowedSetting struct {
	Key         string
	Type        models.ConfigurationType
	Description string
}

var allowedSettings = map[string]allowedSetting{
	SettingSubmissionDebugMode: {
		Key:         SettingSubmissionDebugMode,
		Type:        models.ConfigurationTypeBoolean,
		Description: "Force the morning submission window for operational testing",
	},
	SettingSystemReporterID: {
		Key:         SettingSystemReporterID,
		Type:        models.ConfigurationTypeID,
		Description: "Synthetic reporter identity attached to absence-derived records",
	},
}

type configurationRepository interface {
	Get(ctx context.Context, key string) (*models.Configuration, error)
	Upsert(ctx context.Context, cfg *models.Configuration) error
}

// SubmissionSettings is the per-request snapshot handed to the absence flow:
// fetched once, never read ad hoc from mutable global state.
type SubmissionSettings struct {
	DebugMode        bool
	SystemReporterID string
}

// ConfigurationService reads and writes the typed settings store.
type ConfigurationService struct {
	repo     configurationRepository
	fallback config.SubmissionConfig
	logger   *zap.Logger
}

// NewConfigurationService constructs the service. Environment values act as
// fallbacks when no stored row exists.
func NewConfigurationService(repo configurationRepository, fallback config.SubmissionConfig, logger *zap.Logger) *ConfigurationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigurationService{repo: repo, fallback: fallback, logger: logger}
}

// SubmissionSnapshot resolves the settings the absence flow needs for one
// request. A missing reporter identity is reported by the caller as
// SYSTEM_NOT_CONFIGURED, not here, so the snapshot itself never fails on it.
func (s *ConfigurationService) SubmissionSnapshot(ctx context.Context) (SubmissionSettings, error) {
	snapshot := SubmissionSettings{
		DebugMode:        s.fallback.DebugMode,
		SystemReporterID: s.fallback.SystemReporterID,
	}

	if debug, err := s.boolSetting(ctx, SettingSubmissionDebugMode); err == nil {
		snapshot.DebugMode = debug
	} else if !errors.Is(err, appErrors.ErrNotFound) {
		return snapshot, err
	}

	if id, err := s.idSetting(ctx, SettingSystemReporterID); err == nil {
		snapshot.SystemReporterID = id
	} else if !errors.Is(err, appErrors.ErrNotFound) {
		return snapshot, err
	}

	return snapshot, nil
}

// Get returns one setting, validated against the allow-list.
func (s *ConfigurationService) Get(ctx context.Context, key string) (*models.Configuration, error) {
	if _, ok := allowedSettings[key]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown setting: "+key)
	}
	return s.repo.Get(ctx, key)
}

// Upsert stores a setting after validating key and value shape.
func (s *ConfigurationService) Upsert(ctx context.Context, actor *models.JWTClaims, key, value string) (*models.Configuration, error) {
	if actor == nil || actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only an admin may change settings")
	}
	allowed, ok := allowedSettings[key]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown setting: "+key)
	}
	value = strings.TrimSpace(value)
	switch allowed.Type {
	case models.ConfigurationTypeBoolean:
		if _, err := strconv.ParseBool(value); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be a boolean")
		}
	case models.ConfigurationTypeID:
		if value == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, key+" must not be empty")
		}
	}
	cfg := &models.Configuration{Key: key, Value: value, Type: allowed.Type, UpdatedBy: &actor.UserID}
	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store setting")
	}
	s.logger.Info("setting updated", zap.String("key", key), zap.String("updated_by", actor.UserID))
	return cfg, nil
}

func (s *ConfigurationService) boolSetting(ctx context.Context, key string) (bool, error) {
	cfg, err := s.repo.Get(ctx, key)
	if err != nil {
		return false, err
	}
	parsed, err := strconv.ParseBool(cfg.Value)
	if err != nil {
		s.logger.Warn("stored setting is not a boolean", zap.String("key", key), zap.String("value", cfg.Value))
		return false, appErrors.Clone(appErrors.ErrValidation, key+" holds a non-boolean value")
	}
	return parsed, nil
}

func (s *ConfigurationService) idSetting(ctx context.Context, key string) (string, error) {
	cfg, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(cfg.Value), nil
}
