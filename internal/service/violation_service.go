package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/thpt-conduct-api/internal/catalog"
	"github.com/noah-isme/thpt-conduct-api/internal/models"
	"github.com/noah-isme/thpt-conduct-api/pkg/classcode"
	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
)

type violationRepository interface {
	Create(ctx context.Context, v *models.Violation) error
	Update(ctx context.Context, v *models.Violation) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.Violation, error)
	List(ctx context.Context, filter models.ViolationFilter) ([]models.Violation, int, error)
}

type violationLogRepository interface {
	Append(ctx context.Context, entry *models.ViolationLog) error
	ListByViolation(ctx context.Context, violationID string) ([]models.ViolationLog, error)
}

// evidenceStore is the external storage collaborator. This core only holds
// opaque refs and asks the collaborator to release them on delete.
type evidenceStore interface {
	Release(ctx context.Context, refs []string) error
}

type summaryCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ViolationService owns the single-record write paths: direct reports,
// audited edits, the appeal/resolve state machine and admin deletion.
type ViolationService struct {
	repo      violationRepository
	logs      violationLogRepository
	guard     *DuplicateGuard
	catalog   catalog.Catalog
	evidence  evidenceStore
	cache     summaryCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewViolationService constructs the service.
func NewViolationService(repo violationRepository, logs violationLogRepository, guard *DuplicateGuard, cat catalog.Catalog, evidence evidenceStore, cache summaryCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ViolationService {
	if cat == nil {
		cat = catalog.Default()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ViolationService{
		repo:      repo,
		logs:      logs,
		guard:     guard,
		catalog:   cat,
		evidence:  evidence,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
	svc.validator.RegisterValidation("violation_type", func(fl validator.FieldLevel) bool {
		return cat.Known(fl.Field().String())
	})
	return svc
}

// ReportViolationRequest describes a direct single-violation report.
type ReportViolationRequest struct {
	TargetType     string    `json:"target_type" validate:"required,oneof=student class"`
	StudentName    string    `json:"student_name"`
	ViolatingClass string    `json:"violating_class" validate:"required"`
	ViolationDate  time.Time `json:"violation_date" validate:"required"`
	ViolationType  string    `json:"violation_type" validate:"required,violation_type"`
	Details        string    `json:"details"`
	EvidenceRefs   []string  `json:"evidence_refs"`
}

// Report files one violation. A duplicate for the same subject and day is a
// rejection with an explanation, never a silent skip.
func (s *ViolationService) Report(ctx context.Context, actor *models.JWTClaims, req ReportViolationRequest) (*models.Violation, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if models.TargetType(req.TargetType) == models.TargetStudent && strings.TrimSpace(req.StudentName) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_name is required for student violations")
	}

	code, err := classcode.Normalize(req.ViolatingClass)
	if err != nil {
		return nil, err
	}

	v := &models.Violation{
		ReporterID:     actor.UserID,
		TargetType:     models.TargetType(req.TargetType),
		ViolatingClass: code,
		Grade:          classcode.Grade(code),
		ViolationDate:  req.ViolationDate,
		ViolationType:  req.ViolationType,
		DedupBucket:    s.guard.Bucket(req.ViolationType),
		Status:         models.StatusReported,
		EvidenceRefs:   req.EvidenceRefs,
	}
	if v.TargetType == models.TargetStudent {
		name := strings.TrimSpace(req.StudentName)
		v.StudentName = &name
	}
	if details := strings.TrimSpace(req.Details); details != "" {
		v.Details = &details
	}

	exists, err := s.guard.Exists(ctx, v, v.ViolationDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check duplicates")
	}
	if exists {
		return nil, appErrors.ErrDuplicateViolation
	}

	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	s.invalidateSummaries(ctx)
	return v, nil
}

// EditViolationRequest carries the editable non-status fields. Nil pointers
// leave a field untouched.
type EditViolationRequest struct {
	StudentName    *string    `json:"student_name"`
	ViolatingClass *string    `json:"violating_class"`
	ViolationDate  *time.Time `json:"violation_date"`
	ViolationType  *string    `json:"violation_type"`
	Details        *string    `json:"details"`
	EvidenceRefs   []string   `json:"evidence_refs"`
}

// Edit updates non-status fields. Only the original reporter or an admin may
// edit, at any status. Every edit that changes at least one field appends
// exactly one audit entry listing only the fields that actually changed;
// re-saving identical values appends nothing.
func (s *ViolationService) Edit(ctx context.Context, actor *models.JWTClaims, id string, req EditViolationRequest) (*models.Violation, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil || (actor.Role != models.RoleAdmin && actor.UserID != v.ReporterID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the original reporter or an admin may edit")
	}

	var changes []models.FieldChange

	if req.StudentName != nil {
		name := strings.TrimSpace(*req.StudentName)
		if v.TargetType != models.TargetStudent {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student_name only applies to student violations")
		}
		if v.StudentName == nil || *v.StudentName != name {
			changes = append(changes, models.FieldChange{Field: "studentName", OldValue: strPtrValue(v.StudentName), NewValue: name})
			v.StudentName = &name
		}
	}
	if req.ViolatingClass != nil {
		code, err := classcode.Normalize(*req.ViolatingClass)
		if err != nil {
			return nil, err
		}
		if v.ViolatingClass != code {
			changes = append(changes, models.FieldChange{Field: "violatingClass", OldValue: v.ViolatingClass, NewValue: code})
			v.ViolatingClass = code
			v.Grade = classcode.Grade(code)
		}
	}
	if req.ViolationDate != nil && !v.ViolationDate.Equal(*req.ViolationDate) {
		changes = append(changes, models.FieldChange{
			Field:    "violationDate",
			OldValue: v.ViolationDate.In(SchoolZone).Format(time.RFC3339),
			NewValue: req.ViolationDate.In(SchoolZone).Format(time.RFC3339),
		})
		v.ViolationDate = *req.ViolationDate
	}
	if req.ViolationType != nil && v.ViolationType != *req.ViolationType {
		if !s.catalog.Known(*req.ViolationType) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown violation type: "+*req.ViolationType)
		}
		changes = append(changes, models.FieldChange{Field: "violationType", OldValue: v.ViolationType, NewValue: *req.ViolationType})
		v.ViolationType = *req.ViolationType
		v.DedupBucket = s.guard.Bucket(v.ViolationType)
	}
	if req.Details != nil {
		details := strings.TrimSpace(*req.Details)
		if strPtrValue(v.Details) != details {
			changes = append(changes, models.FieldChange{Field: "details", OldValue: strPtrValue(v.Details), NewValue: details})
			if details == "" {
				v.Details = nil
			} else {
				v.Details = &details
			}
		}
	}
	if req.EvidenceRefs != nil {
		old := strings.Join(v.EvidenceRefs, ",")
		updated := strings.Join(req.EvidenceRefs, ",")
		if old != updated {
			changes = append(changes, models.FieldChange{Field: "evidenceRefs", OldValue: old, NewValue: updated})
			v.EvidenceRefs = req.EvidenceRefs
		}
	}

	if len(changes) == 0 {
		return v, nil
	}

	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	if err := s.logs.Append(ctx, &models.ViolationLog{ViolationID: v.ID, EditorID: actor.UserID, Changes: changes}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append audit log")
	}
	s.invalidateSummaries(ctx)
	return v, nil
}

// Appeal moves a reported violation to appealed. Only the grade manager of
// the violation's grade may appeal, and only from the reported status.
func (s *ViolationService) Appeal(ctx context.Context, actor *models.JWTClaims, id, reason string) (*models.Violation, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil || actor.Role != models.RoleGradeManager || actor.ManagedGrade != v.Grade {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the managing grade manager may appeal")
	}
	if err := s.transition(v, models.StatusAppealed); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "appeal reason is required")
	}
	v.AppealReason = &trimmed
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	changes := []models.FieldChange{
		{Field: "status", OldValue: string(models.StatusReported), NewValue: string(models.StatusAppealed)},
		{Field: "appealReason", OldValue: "", NewValue: trimmed},
	}
	if err := s.logs.Append(ctx, &models.ViolationLog{ViolationID: v.ID, EditorID: actor.UserID, Changes: changes}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append audit log")
	}
	return v, nil
}

// Resolve moves an appealed violation to resolved. Admin only.
func (s *ViolationService) Resolve(ctx context.Context, actor *models.JWTClaims, id string) (*models.Violation, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil || actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only an admin may resolve")
	}
	if err := s.transition(v, models.StatusResolved); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	changes := []models.FieldChange{{Field: "status", OldValue: string(models.StatusAppealed), NewValue: string(models.StatusResolved)}}
	if err := s.logs.Append(ctx, &models.ViolationLog{ViolationID: v.ID, EditorID: actor.UserID, Changes: changes}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append audit log")
	}
	return v, nil
}

// Delete removes a violation and releases its evidence refs. Admin only.
func (s *ViolationService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if actor == nil || actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only an admin may delete")
	}
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if len(v.EvidenceRefs) > 0 && s.evidence != nil {
		if err := s.evidence.Release(ctx, v.EvidenceRefs); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release evidence")
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateSummaries(ctx)
	return nil
}

// Get returns one violation.
func (s *ViolationService) Get(ctx context.Context, id string) (*models.Violation, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns violations matching the filter.
func (s *ViolationService) List(ctx context.Context, filter models.ViolationFilter) ([]models.Violation, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	violations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list violations")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return violations, pagination, nil
}

// Logs returns the audit trail for one violation.
func (s *ViolationService) Logs(ctx context.Context, id string) ([]models.ViolationLog, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.logs.ListByViolation(ctx, id)
}

// transition validates the one-directional status machine:
// reported -> appealed -> resolved. Nothing moves into or out of pending;
// an attempt is flagged loudly since it should be unreachable.
func (s *ViolationService) transition(v *models.Violation, next models.ViolationStatus) error {
	if next == models.StatusPending || v.Status == models.StatusPending {
		s.logger.Warn("transition touching reserved pending status",
			zap.String("violation_id", v.ID),
			zap.String("from", string(v.Status)),
			zap.String("to", string(next)))
		return appErrors.Clone(appErrors.ErrInvalidTransition, "pending is a reserved status")
	}
	switch {
	case v.Status == models.StatusReported && next == models.StatusAppealed:
	case v.Status == models.StatusAppealed && next == models.StatusResolved:
	default:
		return appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move violation from %s to %s", v.Status, next))
	}
	v.Status = next
	return nil
}

func (s *ViolationService) invalidateSummaries(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, summaryCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate summary cache", zap.Error(err))
	}
}

func strPtrValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
