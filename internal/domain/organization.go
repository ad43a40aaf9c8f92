package domain

import "time"

// Organization is the tenant root. Every admin, employee and session belongs to exactly one.
type Organization struct {
	ID            string
	Name          string // globally unique
	Email         string // globally unique
	Phone         string
	Address       string
	City          string
	Country       string
	Industry      string
	PracticeAreas []string
	SuperAdminID  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Admin is an organization administrator. Admins and employees live in separate
// identity spaces; an admin is never looked up in the employee store or vice versa.
type Admin struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	Role           Role
	OrganizationID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Role is the principal kind embedded in a session token
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Principal is the verified caller identity of a request
type Principal struct {
	ID             string
	Email          string
	OrganizationID string
	Role           Role
}

// IsAdmin reports whether the principal authenticated as an organization admin
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
