package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/thpt-conduct-api/internal/catalog"
	"github.com/noah-isme/thpt-conduct-api/internal/models"
	"github.com/noah-isme/thpt-conduct-api/pkg/classcode"
	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
)

const (
	skipReasonInvalidClass = "invalid class"
	skipReasonDuplicate    = "duplicate request today"
)

type submissionSettingsReader interface {
	SubmissionSnapshot(ctx context.Context) (SubmissionSettings, error)
}

// AbsenceStudent is one student inside an absence-request batch.
type AbsenceStudent struct {
	Name         string   `json:"name" validate:"required"`
	ClassName    string   `json:"class_name" validate:"required"`
	Reason       string   `json:"reason"`
	EvidenceRefs []string `json:"evidence_refs"`
}

// SkippedStudent reports one per-student skip and why.
type SkippedStudent struct {
	Name      string `json:"name"`
	ClassName string `json:"class_name"`
	Reason    string `json:"reason"`
}

// AbsenceSubmitResult aggregates a batch outcome.
type AbsenceSubmitResult struct {
	SuccessCount       int              `json:"success_count"`
	SkippedCount       int              `json:"skipped_count"`
	SuccessfulStudents []string         `json:"successful_students"`
	SkippedStudents    []SkippedStudent `json:"skipped_students"`
	ViolationDate      time.Time        `json:"violation_date"`
}

// AbsenceService is the absence-request submission channel: time-window
// gated, deduplicated per student, written under a synthetic system
// reporter identity.
type AbsenceService struct {
	repo     violationRepository
	guard    *DuplicateGuard
	window   *SubmissionWindow
	settings submissionSettingsReader
	cache    summaryCacheInvalidator
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewAbsenceService constructs the service.
func NewAbsenceService(repo violationRepository, guard *DuplicateGuard, window *SubmissionWindow, settings submissionSettingsReader, cache summaryCacheInvalidator, metrics *MetricsService, logger *zap.Logger) *AbsenceService {
	if window == nil {
		window = NewSubmissionWindow()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AbsenceService{
		repo:     repo,
		guard:    guard,
		window:   window,
		settings: settings,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// Submit validates and writes an absence batch. Batch preconditions abort
// the whole call in order: submission window, requester name, empty batch,
// missing system identity. Per-student failures never abort siblings; each
// is recorded with its reason. Every accepted student is a single atomic
// row insert.
func (s *AbsenceService) Submit(ctx context.Context, requesterName string, students []AbsenceStudent, now time.Time) (*AbsenceSubmitResult, error) {
	snapshot, err := s.settings.SubmissionSnapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission settings")
	}

	decision, err := s.window.Permit(now, snapshot.DebugMode)
	if err != nil {
		if s.metrics != nil {
			s.metrics.AbsenceWindowRejected()
		}
		return nil, err
	}

	requester := strings.TrimSpace(requesterName)
	if len([]rune(requester)) < 2 || len([]rune(requester)) > 100 {
		return nil, appErrors.ErrInvalidRequesterName
	}
	if len(students) == 0 {
		return nil, appErrors.ErrEmptyBatch
	}
	if snapshot.SystemReporterID == "" {
		return nil, appErrors.ErrSystemNotConfigured
	}

	result := &AbsenceSubmitResult{ViolationDate: decision.TargetDate}
	seen := make(map[string]struct{}, len(students))

	for _, student := range students {
		name := strings.TrimSpace(student.Name)

		code, err := classcode.Normalize(student.ClassName)
		if err != nil {
			result.skip(name, student.ClassName, skipReasonInvalidClass)
			continue
		}

		v := &models.Violation{
			ReporterID:     snapshot.SystemReporterID,
			TargetType:     models.TargetStudent,
			StudentName:    &name,
			ViolatingClass: code,
			Grade:          classcode.Grade(code),
			ViolationDate:  decision.TargetDate,
			ViolationType:  catalog.AbsenceExcusedType,
			DedupBucket:    s.guard.Bucket(catalog.AbsenceExcusedType),
			Status:         models.StatusReported,
			EvidenceRefs:   student.EvidenceRefs,
			RequesterName:  &requester,
		}
		if reason := strings.TrimSpace(student.Reason); reason != "" {
			v.Details = &reason
		}

		// The guard only sees committed rows; the seen set catches sibling
		// duplicates inside this batch.
		key := s.guard.Key(v, decision.TargetDate)
		if _, dup := seen[key]; dup {
			result.skip(name, code, skipReasonDuplicate)
			continue
		}
		exists, err := s.guard.Exists(ctx, v, decision.TargetDate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check duplicates")
		}
		if exists {
			result.skip(name, code, skipReasonDuplicate)
			continue
		}

		if err := s.repo.Create(ctx, v); err != nil {
			// The unique index catches a race lost to a concurrent request.
			if errors.Is(err, appErrors.ErrDuplicateViolation) {
				result.skip(name, code, skipReasonDuplicate)
				continue
			}
			return nil, err
		}
		seen[key] = struct{}{}
		result.SuccessCount++
		result.SuccessfulStudents = append(result.SuccessfulStudents, name)
	}

	if result.SuccessCount > 0 {
		s.invalidateSummaries(ctx)
	}
	if s.metrics != nil {
		s.metrics.AbsenceProcessed(result.SuccessCount, result.SkippedCount)
	}
	s.logger.Info("absence batch processed",
		zap.String("requester", requester),
		zap.Int("accepted", result.SuccessCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Time("violation_date", decision.TargetDate))
	return result, nil
}

func (r *AbsenceSubmitResult) skip(name, class, reason string) {
	r.SkippedCount++
	r.SkippedStudents = append(r.SkippedStudents, SkippedStudent{Name: name, ClassName: class, Reason: reason})
}

func (s *AbsenceService) invalidateSummaries(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, summaryCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate summary cache", zap.Error(err))
	}
}
