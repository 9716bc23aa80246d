package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/thpt-conduct-api/internal/models"
)

// ViolationLogRepository persists the append-only edit audit trail.
// Entries are never updated or removed; they disappear only through the
// ON DELETE CASCADE on their parent violation.
type ViolationLogRepository struct {
	db *sqlx.DB
}

// NewViolationLogRepository constructs a new repository.
func NewViolationLogRepository(db *sqlx.DB) *ViolationLogRepository {
	return &ViolationLogRepository{db: db}
}

// Append writes one audit entry for a successful edit.
func (r *ViolationLogRepository) Append(ctx context.Context, entry *models.ViolationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(entry.Changes)
	if err != nil {
		return fmt.Errorf("marshal violation log changes: %w", err)
	}
	entry.RawChanges = raw
	query := `INSERT INTO violation_logs (id, violation_id, editor_id, changes, created_at)
VALUES (:id, :violation_id, :editor_id, :changes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append violation log: %w", err)
	}
	return nil
}

// ListByViolation returns the audit trail for one violation, oldest first.
func (r *ViolationLogRepository) ListByViolation(ctx context.Context, violationID string) ([]models.ViolationLog, error) {
	query := `SELECT id, violation_id, editor_id, changes, created_at FROM violation_logs
WHERE violation_id = $1 ORDER BY created_at ASC`
	var entries []models.ViolationLog
	if err := r.db.SelectContext(ctx, &entries, query, violationID); err != nil {
		return nil, fmt.Errorf("list violation logs: %w", err)
	}
	for i := range entries {
		if len(entries[i].RawChanges) == 0 {
			continue
		}
		if err := json.Unmarshal(entries[i].RawChanges, &entries[i].Changes); err != nil {
			return nil, fmt.Errorf("unmarshal violation log changes: %w", err)
		}
	}
	return entries, nil
}
