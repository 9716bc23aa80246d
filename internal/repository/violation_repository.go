package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/thpt-conduct-api/internal/models"
	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
)

const violationColumns = `id, reporter_id, target_type, student_name, violating_class, grade, violation_date, violation_type, dedup_bucket, details, status, evidence_refs, appeal_reason, requester_name, created_at, updated_at`

// ViolationRepository is the system of record for violations.
type ViolationRepository struct {
	db *sqlx.DB
}

// NewViolationRepository constructs a new repository.
func NewViolationRepository(db *sqlx.DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

// Create inserts a new violation. The violations_dedup_key unique index is
// the storage-level backstop for the duplicate guard: a concurrent insert of
// the same (class, day, bucket, student) key surfaces as DUPLICATE_VIOLATION
// here even when both requests passed the guard's read.
func (r *ViolationRepository) Create(ctx context.Context, v *models.Violation) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	query := `INSERT INTO violations (` + violationColumns + `)
VALUES (:id, :reporter_id, :target_type, :student_name, :violating_class, :grade, :violation_date, :violation_type, :dedup_bucket, :details, :status, :evidence_refs, :appeal_reason, :requester_name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, v); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return appErrors.ErrDuplicateViolation
		}
		return fmt.Errorf("create violation: %w", err)
	}
	return nil
}

// Update persists every mutable field of an existing violation.
func (r *ViolationRepository) Update(ctx context.Context, v *models.Violation) error {
	v.UpdatedAt = time.Now().UTC()
	query := `UPDATE violations SET reporter_id = :reporter_id, target_type = :target_type, student_name = :student_name,
violating_class = :violating_class, grade = :grade, violation_date = :violation_date, violation_type = :violation_type,
dedup_bucket = :dedup_bucket, details = :details, status = :status, evidence_refs = :evidence_refs,
appeal_reason = :appeal_reason, requester_name = :requester_name, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, v)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return appErrors.ErrDuplicateViolation
		}
		return fmt.Errorf("update violation: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErrors.ErrNotFound
	}
	return nil
}

// Delete removes a violation; its audit log rows cascade with it.
func (r *ViolationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM violations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete violation: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErrors.ErrNotFound
	}
	return nil
}

// FindByID returns a single violation.
func (r *ViolationRepository) FindByID(ctx context.Context, id string) (*models.Violation, error) {
	var v models.Violation
	query := `SELECT ` + violationColumns + ` FROM violations WHERE id = $1`
	if err := r.db.GetContext(ctx, &v, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find violation: %w", err)
	}
	return &v, nil
}

// List returns violations per provided filter.
func (r *ViolationRepository) List(ctx context.Context, filter models.ViolationFilter) ([]models.Violation, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Grade != 0 {
		where = append(where, fmt.Sprintf("grade = $%d", len(args)+1))
		args = append(args, filter.Grade)
	}
	if filter.ViolatingClass != "" {
		where = append(where, fmt.Sprintf("violating_class = $%d", len(args)+1))
		args = append(args, filter.ViolatingClass)
	}
	if filter.TargetType != nil {
		where = append(where, fmt.Sprintf("target_type = $%d", len(args)+1))
		args = append(args, *filter.TargetType)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("violation_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("violation_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM violations WHERE %s ORDER BY violation_date DESC, created_at DESC LIMIT %d OFFSET %d`,
		violationColumns, whereClause, size, offset)
	var violations []models.Violation
	if err := r.db.SelectContext(ctx, &violations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list violations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM violations WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count violations: %w", err)
	}
	return violations, total, nil
}

// CountMatching counts committed violations colliding with a dedup probe.
func (r *ViolationRepository) CountMatching(ctx context.Context, probe models.DuplicateProbe) (int, error) {
	where := []string{
		"violating_class = $1",
		"violation_date >= $2",
		"violation_date <= $3",
	}
	args := []interface{}{probe.ViolatingClass, probe.DayStart, probe.DayEnd}

	args = append(args, pq.Array(probe.Types))
	where = append(where, fmt.Sprintf("violation_type = ANY($%d)", len(args)))

	// Class-level and student-level records never collide with each other.
	if probe.TargetType == models.TargetStudent {
		args = append(args, models.TargetStudent)
		where = append(where, fmt.Sprintf("target_type = $%d", len(args)))
		name := ""
		if probe.StudentName != nil {
			name = *probe.StudentName
		}
		args = append(args, name)
		where = append(where, fmt.Sprintf("student_name = $%d", len(args)))
	} else {
		args = append(args, models.TargetClass)
		where = append(where, fmt.Sprintf("target_type = $%d", len(args)))
	}

	query := "SELECT COUNT(*) FROM violations WHERE " + strings.Join(where, " AND ")
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count matching violations: %w", err)
	}
	return count, nil
}

// ListInRange returns every violation within the inclusive date range,
// ordered stably for aggregation and export.
func (r *ViolationRepository) ListInRange(ctx context.Context, from, to time.Time) ([]models.Violation, error) {
	query := `SELECT ` + violationColumns + ` FROM violations
WHERE violation_date >= $1 AND violation_date <= $2
ORDER BY violating_class, violation_date, id`
	var violations []models.Violation
	if err := r.db.SelectContext(ctx, &violations, query, from, to); err != nil {
		return nil, fmt.Errorf("list violations in range: %w", err)
	}
	return violations, nil
}

// DistinctClasses returns every class that has at least one violation.
func (r *ViolationRepository) DistinctClasses(ctx context.Context) ([]string, error) {
	var classes []string
	if err := r.db.SelectContext(ctx, &classes, "SELECT DISTINCT violating_class FROM violations"); err != nil {
		return nil, fmt.Errorf("distinct classes: %w", err)
	}
	return classes, nil
}
