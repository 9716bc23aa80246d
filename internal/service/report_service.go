package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/thpt-conduct-api/internal/catalog"
	"github.com/noah-isme/thpt-conduct-api/internal/models"
	"github.com/noah-isme/thpt-conduct-api/pkg/classcode"
	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
)

const summaryCachePrefix = "conduct:summary:"

type rangeViolationRepository interface {
	ListInRange(ctx context.Context, from, to time.Time) ([]models.Violation, error)
	DistinctClasses(ctx context.Context) ([]string, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ReportService is the point aggregator: per-class deducted point totals and
// itemized violation lists over a date range, read-only.
type ReportService struct {
	repo     rangeViolationRepository
	catalog  catalog.Catalog
	cache    summaryCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewReportService constructs the service.
func NewReportService(repo rangeViolationRepository, cat catalog.Catalog, cache summaryCache, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	if cat == nil {
		cat = catalog.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{repo: repo, catalog: cat, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Aggregate computes one summary per known class over the inclusive range.
// Classes without violations appear zero-filled. Points are recomputed from
// the catalog on every call, so catalog edits reprice history. The second
// return value reports whether the result came from cache.
func (s *ReportService) Aggregate(ctx context.Context, from, to time.Time, classes []string) ([]models.ClassPointSummary, bool, error) {
	known := classes
	if len(known) == 0 {
		discovered, err := s.repo.DistinctClasses(ctx)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to discover classes")
		}
		known = discovered
	}

	key := s.cacheKey(from, to, known)
	if s.cache != nil {
		var cached []models.ClassPointSummary
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return cached, true, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("summary cache read failed", zap.Error(err))
		}
	}

	violations, err := s.repo.ListInRange(ctx, from, to)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load violations")
	}

	byClass := make(map[string][]models.Violation, len(known))
	for _, name := range known {
		byClass[name] = nil
	}
	for _, v := range violations {
		if _, ok := byClass[v.ViolatingClass]; !ok {
			continue
		}
		byClass[v.ViolatingClass] = append(byClass[v.ViolatingClass], v)
	}

	summaries := make([]models.ClassPointSummary, 0, len(byClass))
	for name, items := range byClass {
		// Stable per-class ordering keeps exports reproducible.
		sort.SliceStable(items, func(i, j int) bool {
			if !items[i].ViolationDate.Equal(items[j].ViolationDate) {
				return items[i].ViolationDate.Before(items[j].ViolationDate)
			}
			return items[i].ID < items[j].ID
		})
		total := 0
		for _, v := range items {
			total += s.catalog.PointsFor(v.ViolationType)
		}
		if items == nil {
			items = []models.Violation{}
		}
		summaries = append(summaries, models.ClassPointSummary{ClassName: name, TotalPoints: total, Violations: items})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return classcode.Compare(summaries[i].ClassName, summaries[j].ClassName) < 0
	})

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summaries, s.cacheTTL); err != nil {
			s.logger.Warn("summary cache write failed", zap.Error(err))
		}
	}
	return summaries, false, nil
}

func (s *ReportService) cacheKey(from, to time.Time, classes []string) string {
	sorted := append([]string(nil), classes...)
	sort.Strings(sorted)
	sum := sha1.Sum([]byte(strings.Join(sorted, ",")))
	return fmt.Sprintf("%s%s:%s:%s", summaryCachePrefix,
		from.In(SchoolZone).Format("2006-01-02"),
		to.In(SchoolZone).Format("2006-01-02"),
		hex.EncodeToString(sum[:8]))
}
