package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/thpt-conduct-api/internal/catalog"
	"github.com/noah-isme/thpt-conduct-api/internal/models"
	"github.com/noah-isme/thpt-conduct-api/pkg/classcode"
	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
)

const skipReasonUnknownType = "unknown violation type"

// BulkCandidate is one AI-or-manual-produced violation candidate.
type BulkCandidate struct {
	TargetType    string   `json:"target_type"`
	StudentName   string   `json:"student_name"`
	ClassName     string   `json:"class_name"`
	ViolationType string   `json:"violation_type"`
	Details       string   `json:"details"`
	EvidenceRefs  []string `json:"evidence_refs"`
}

// BulkSubmitRequest carries a candidate batch plus optional overrides.
type BulkSubmitRequest struct {
	Candidates []BulkCandidate `json:"candidates"`
	// OverrideDate replaces "now" as the effective violation timestamp.
	// Unlike the absence flow it is not snapped to a day boundary;
	// candidates keep their own timestamp granularity.
	OverrideDate *time.Time `json:"override_date"`
	// OverrideReporterID is honored only for actors with the super flag.
	OverrideReporterID string `json:"override_reporter_id"`
}

// AcceptedCandidate echoes an inserted violation with its transient point
// value. Points are response shaping only and never stored on the record.
type AcceptedCandidate struct {
	Violation *models.Violation `json:"violation"`
	Points    int               `json:"points"`
}

// SkippedCandidate reports one rejected candidate and why. Invalid items are
// reported here rather than silently dropped so batch callers can always
// enumerate exactly which inputs failed.
type SkippedCandidate struct {
	Subject   string `json:"subject"`
	ClassName string `json:"class_name"`
	Reason    string `json:"reason"`
}

// BulkSubmitResult aggregates a bulk import outcome.
type BulkSubmitResult struct {
	SuccessCount   int                 `json:"success_count"`
	DuplicateCount int                 `json:"duplicate_count"`
	Duplicates     []string            `json:"duplicates"`
	Skipped        []SkippedCandidate  `json:"skipped"`
	Accepted       []AcceptedCandidate `json:"accepted"`
}

// BulkViolationService ingests candidate batches, deduplicating per subject
// and reporting duplicates and successes separately.
type BulkViolationService struct {
	repo    violationRepository
	guard   *DuplicateGuard
	catalog catalog.Catalog
	cache   summaryCacheInvalidator
	metrics *MetricsService
	logger  *zap.Logger
}

// NewBulkViolationService constructs the service.
func NewBulkViolationService(repo violationRepository, guard *DuplicateGuard, cat catalog.Catalog, cache summaryCacheInvalidator, metrics *MetricsService, logger *zap.Logger) *BulkViolationService {
	if cat == nil {
		cat = catalog.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkViolationService{repo: repo, guard: guard, catalog: cat, cache: cache, metrics: metrics, logger: logger}
}

// Submit processes a candidate batch. Role gating (no PENDING submitters)
// sits in the route middleware; the reporter override check lives here
// because it must not be trusted from the input.
func (s *BulkViolationService) Submit(ctx context.Context, actor *models.JWTClaims, req BulkSubmitRequest) (*BulkSubmitResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if len(req.Candidates) == 0 {
		return nil, appErrors.ErrEmptyBatch
	}

	reporterID := actor.UserID
	if req.OverrideReporterID != "" && actor.Super {
		reporterID = req.OverrideReporterID
	}

	effectiveDate := time.Now()
	if req.OverrideDate != nil {
		effectiveDate = *req.OverrideDate
	}

	result := &BulkSubmitResult{}
	seen := make(map[string]struct{}, len(req.Candidates))

	for _, candidate := range req.Candidates {
		subject := strings.TrimSpace(candidate.StudentName)
		if subject == "" {
			subject = strings.TrimSpace(candidate.ClassName)
		}

		code, err := classcode.Normalize(candidate.ClassName)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedCandidate{Subject: subject, ClassName: candidate.ClassName, Reason: skipReasonInvalidClass})
			continue
		}
		if !s.catalog.Known(candidate.ViolationType) {
			result.Skipped = append(result.Skipped, SkippedCandidate{Subject: subject, ClassName: code, Reason: skipReasonUnknownType})
			continue
		}

		targetType := models.TargetType(candidate.TargetType)
		if !targetType.Valid() {
			targetType = models.TargetStudent
			if strings.TrimSpace(candidate.StudentName) == "" {
				targetType = models.TargetClass
			}
		}

		v := &models.Violation{
			ReporterID:     reporterID,
			TargetType:     targetType,
			ViolatingClass: code,
			Grade:          classcode.Grade(code),
			ViolationDate:  effectiveDate,
			ViolationType:  candidate.ViolationType,
			DedupBucket:    s.guard.Bucket(candidate.ViolationType),
			Status:         models.StatusReported,
			EvidenceRefs:   candidate.EvidenceRefs,
		}
		if targetType == models.TargetStudent {
			name := strings.TrimSpace(candidate.StudentName)
			v.StudentName = &name
		}
		if details := strings.TrimSpace(candidate.Details); details != "" {
			v.Details = &details
		}

		key := s.guard.Key(v, effectiveDate)
		if _, dup := seen[key]; dup {
			result.duplicate(v)
			continue
		}
		exists, err := s.guard.Exists(ctx, v, effectiveDate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check duplicates")
		}
		if exists {
			result.duplicate(v)
			continue
		}

		if err := s.repo.Create(ctx, v); err != nil {
			if errors.Is(err, appErrors.ErrDuplicateViolation) {
				result.duplicate(v)
				continue
			}
			return nil, err
		}
		seen[key] = struct{}{}
		result.SuccessCount++
		result.Accepted = append(result.Accepted, AcceptedCandidate{Violation: v, Points: s.catalog.PointsFor(v.ViolationType)})
	}

	if result.SuccessCount > 0 {
		s.invalidateSummaries(ctx)
	}
	if s.metrics != nil {
		s.metrics.BulkProcessed(result.SuccessCount, result.DuplicateCount, len(result.Skipped))
	}
	s.logger.Info("bulk violation batch processed",
		zap.String("reporter_id", reporterID),
		zap.Int("accepted", result.SuccessCount),
		zap.Int("duplicates", result.DuplicateCount),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

func (r *BulkSubmitResult) duplicate(v *models.Violation) {
	r.DuplicateCount++
	r.Duplicates = append(r.Duplicates, fmt.Sprintf("%s: %s", v.Subject(), v.ViolationType))
}

func (s *BulkViolationService) invalidateSummaries(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, summaryCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate summary cache", zap.Error(err))
	}
}
