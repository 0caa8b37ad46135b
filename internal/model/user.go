package model

import "time"

// Role controls what a user may do through the API.
type Role string

const (
	RoleResident  Role = "resident"
	RoleAttending Role = "attending"
	RoleAdmin     Role = "admin"
)

// User is an application account. PasswordHash is a bcrypt hash and is never
// serialized into API responses.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name,omitempty"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditEntry records one successful mutating API call. Writing it is
// fire-and-forget: a failed audit write never fails the call it audits.
type AuditEntry struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Action        string    `json:"action"` // HTTP method
	Resource      string    `json:"resource"`
	ResourceID    string    `json:"resource_id,omitempty"`
	SanitizedBody string    `json:"sanitized_body,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
