package models

import (
	"time"

	"github.com/lib/pq"
)

// TargetType says whether a violation targets one student or a whole class.
type TargetType string

const (
	TargetStudent TargetType = "student"
	TargetClass   TargetType = "class"
)

// Valid returns true when the target type is a supported value.
func (t TargetType) Valid() bool {
	return t == TargetStudent || t == TargetClass
}

// ViolationStatus tracks the review state of a violation.
type ViolationStatus string

const (
	StatusReported ViolationStatus = "reported"
	StatusAppealed ViolationStatus = "appealed"
	StatusResolved ViolationStatus = "resolved"
	// StatusPending is reserved for forward compatibility; no transition
	// into or out of it exists.
	StatusPending ViolationStatus = "pending"
)

// Valid returns true when the status is a supported value.
func (s ViolationStatus) Valid() bool {
	switch s {
	case StatusReported, StatusAppealed, StatusResolved, StatusPending:
		return true
	default:
		return false
	}
}

// AttendanceBucket is the dedup bucket shared by every attendance-type
// violation: any attendance record blocks any other for the same subject/day.
const AttendanceBucket = "ATTENDANCE"

// Violation is a recorded disciplinary or attendance event attributed to a
// student or a whole class on a specific calendar day.
type Violation struct {
	ID             string          `db:"id" json:"id"`
	ReporterID     string          `db:"reporter_id" json:"reporter_id"`
	TargetType     TargetType      `db:"target_type" json:"target_type"`
	StudentName    *string         `db:"student_name" json:"student_name,omitempty"`
	ViolatingClass string          `db:"violating_class" json:"violating_class"`
	Grade          int             `db:"grade" json:"grade"`
	ViolationDate  time.Time       `db:"violation_date" json:"violation_date"`
	ViolationType  string          `db:"violation_type" json:"violation_type"`
	DedupBucket    string          `db:"dedup_bucket" json:"-"`
	Details        *string         `db:"details" json:"details,omitempty"`
	Status         ViolationStatus `db:"status" json:"status"`
	EvidenceRefs   pq.StringArray  `db:"evidence_refs" json:"evidence_refs,omitempty"`
	AppealReason   *string         `db:"appeal_reason" json:"appeal_reason,omitempty"`
	RequesterName  *string         `db:"requester_name" json:"requester_name,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Subject renders the dedup subject for humans: the student name for
// individual violations, otherwise the class code.
func (v *Violation) Subject() string {
	if v.TargetType == TargetStudent && v.StudentName != nil {
		return *v.StudentName
	}
	return v.ViolatingClass
}

// ViolationFilter scopes listing queries.
type ViolationFilter struct {
	Grade          int
	ViolatingClass string
	TargetType     *TargetType
	Status         *ViolationStatus
	DateFrom       *time.Time
	DateTo         *time.Time
	Page           int
	PageSize       int
}

// DuplicateProbe carries the dedup key for an existence check: class, day
// bounds, candidate type bucket and optional student scoping.
type DuplicateProbe struct {
	ViolatingClass string
	TargetType     TargetType
	StudentName    *string
	DayStart       time.Time
	DayEnd         time.Time
	// Types holds every violation type that collides with the candidate:
	// the whole attendance set for attendance-type candidates, otherwise
	// just the candidate's own type.
	Types []string
}

// FieldChange records a single field edit inside a log entry.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// ViolationLog is one append-only audit entry per successful edit.
type ViolationLog struct {
	ID          string        `db:"id" json:"id"`
	ViolationID string        `db:"violation_id" json:"violation_id"`
	EditorID    string        `db:"editor_id" json:"editor_id"`
	Changes     []FieldChange `db:"-" json:"changes"`
	RawChanges  []byte        `db:"changes" json:"-"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// ClassPointSummary aggregates deducted points for one class over a range.
type ClassPointSummary struct {
	ClassName   string      `json:"class_name"`
	TotalPoints int         `json:"total_points"`
	Violations  []Violation `json:"violations"`
}
