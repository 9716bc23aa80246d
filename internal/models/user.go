package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin        UserRole = "ADMIN"
	RoleGradeManager UserRole = "GRADE_MANAGER"
	RolePending      UserRole = "PENDING"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string   `db:"id" json:"id"`
	Email        string   `db:"email" json:"email"`
	PasswordHash string   `db:"password_hash" json:"-"`
	FullName     string   `db:"full_name" json:"full_name"`
	Role         UserRole `db:"role" json:"role"`
	// ManagedGrade scopes GRADE_MANAGER users to one grade (10, 11 or 12);
	// zero for other roles.
	ManagedGrade int `db:"managed_grade" json:"managed_grade,omitempty"`
	// Super marks users allowed to file violations on behalf of someone else.
	Super     bool      `db:"super" json:"super"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
