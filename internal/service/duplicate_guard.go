package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/thpt-conduct-api/internal/catalog"
	"github.com/noah-isme/thpt-conduct-api/internal/models"
)

type duplicateProbeRepository interface {
	CountMatching(ctx context.Context, probe models.DuplicateProbe) (int, error)
}

// DuplicateGuard decides whether an equivalent violation already exists for
// a subject on a calendar day. Attendance-type candidates collide with the
// whole attendance bucket; everything else collides only with its exact
// type. Class-level and student-level records never collide with each other.
type DuplicateGuard struct {
	repo    duplicateProbeRepository
	catalog catalog.Catalog
}

// NewDuplicateGuard constructs the guard.
func NewDuplicateGuard(repo duplicateProbeRepository, cat catalog.Catalog) *DuplicateGuard {
	if cat == nil {
		cat = catalog.Default()
	}
	return &DuplicateGuard{repo: repo, catalog: cat}
}

// Exists reports whether a committed violation collides with the candidate
// on asOfDay's calendar day in the school timezone.
func (g *DuplicateGuard) Exists(ctx context.Context, candidate *models.Violation, asOfDay time.Time) (bool, error) {
	probe := g.probeFor(candidate, asOfDay)
	count, err := g.repo.CountMatching(ctx, probe)
	if err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}
	return count > 0, nil
}

// Bucket returns the dedup bucket stored alongside a violation: the shared
// attendance sentinel for attendance-type records, the type itself otherwise.
func (g *DuplicateGuard) Bucket(violationType string) string {
	if g.catalog.IsAttendanceType(violationType) {
		return models.AttendanceBucket
	}
	return violationType
}

// Key renders the in-batch dedup key for a candidate. Batch processors track
// seen keys so two sibling items in one request cannot both pass the guard:
// the guard only sees committed rows, not in-flight siblings.
func (g *DuplicateGuard) Key(candidate *models.Violation, asOfDay time.Time) string {
	start, _ := DayBounds(asOfDay)
	subject := string(candidate.TargetType)
	if candidate.TargetType == models.TargetStudent && candidate.StudentName != nil {
		subject += "/" + strings.ToLower(strings.TrimSpace(*candidate.StudentName))
	}
	return strings.Join([]string{
		candidate.ViolatingClass,
		start.Format("2006-01-02"),
		g.Bucket(candidate.ViolationType),
		subject,
	}, "|")
}

func (g *DuplicateGuard) probeFor(candidate *models.Violation, asOfDay time.Time) models.DuplicateProbe {
	start, end := DayBounds(asOfDay)
	types := []string{candidate.ViolationType}
	if g.catalog.IsAttendanceType(candidate.ViolationType) {
		types = g.catalog.AttendanceTypes()
	}
	return models.DuplicateProbe{
		ViolatingClass: candidate.ViolatingClass,
		TargetType:     candidate.TargetType,
		StudentName:    candidate.StudentName,
		DayStart:       start,
		DayEnd:         end,
		Types:          types,
	}
}
