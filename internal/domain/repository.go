package domain

import (
	"context"
	"time"
)

// OrganizationRepository defines data access for tenants
type OrganizationRepository interface {
	// CreateWithAdmin persists an organization and its super-admin atomically
	CreateWithAdmin(ctx context.Context, org *Organization, admin *Admin) error
	GetByID(ctx context.Context, id string) (*Organization, error)
}

// AdminRepository defines data access for the admin identity space
type AdminRepository interface {
	GetByID(ctx context.Context, id string) (*Admin, error)
	GetByEmail(ctx context.Context, email string) (*Admin, error)
}

// EmployeeRepository defines data access for the employee identity space.
// Every lookup by id is scoped to an organization.
type EmployeeRepository interface {
	Create(ctx context.Context, e *Employee) error
	// Update saves e if its Version still matches the stored row and bumps Version.
	// A stale version yields ErrConcurrentUpdate.
	Update(ctx context.Context, e *Employee) error
	GetByID(ctx context.Context, orgID, id string) (*Employee, error)
	GetByEmail(ctx context.Context, orgID, email string) (*Employee, error)
	// FindByEmail searches every organization; used by login only
	FindByEmail(ctx context.Context, email string) (*Employee, error)
	GetByInvitationToken(ctx context.Context, token string) (*Employee, error)
	List(ctx context.Context, q ListQuery) (*ListResult, error)
}

// SortField is an allowed ordering column for employee listings
type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
	SortFirstName SortField = "firstName"
	SortLastName  SortField = "lastName"
	SortEmail     SortField = "email"
	SortSalary    SortField = "salary"
	SortStatus    SortField = "status"
)

// ParseSortField validates a sort field
func ParseSortField(s string) (SortField, bool) {
	switch f := SortField(s); f {
	case SortCreatedAt, SortUpdatedAt, SortFirstName, SortLastName, SortEmail, SortSalary, SortStatus:
		return f, true
	}
	return "", false
}

// SortDirection is asc or desc
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

const MaxPageSize = 100

// ListQuery is a validated employee listing request
type ListQuery struct {
	OrganizationID  string
	Page            int
	PageSize        int
	SortField       SortField
	SortDir         SortDirection
	Status          Status
	Search          string
	IncludeDeleted  bool
	IncludeArchived bool
}

// Offset returns the number of rows skipped for the requested page
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// ListResult is one page of employees
type ListResult struct {
	Items      []*Employee
	TotalCount int
	TotalPages int
	Page       int
	PageSize   int
}

// TotalPagesFor computes the page count for total items at the given page size
func TotalPagesFor(total, pageSize int) int {
	if pageSize <= 0 || total == 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// InvitationMessage is what the notification port needs to send an invitation email
type InvitationMessage struct {
	EmployeeID       string
	OrganizationID   string
	OrganizationName string
	To               string
	FirstName        string
	Link             string
	ExpiresAt        time.Time
}

// Notifier is the outbound invitation channel (SMTP, queue, log)
type Notifier interface {
	SendInvitation(ctx context.Context, msg InvitationMessage) error
	Name() string
}

// EventType names a committed lifecycle mutation
type EventType string

const (
	EventEmployeeInvited           EventType = "employee.invited"
	EventEmployeeRegistered        EventType = "employee.registered"
	EventEmployeeUpdated           EventType = "employee.updated"
	EventEmployeeStatusChanged     EventType = "employee.status_changed"
	EventEmployeeArchived          EventType = "employee.archived"
	EventEmployeeUnarchived        EventType = "employee.unarchived"
	EventEmployeeDeleted           EventType = "employee.deleted"
	EventEmployeeRestored          EventType = "employee.restored"
	EventEmployeeInvitationExpired EventType = "employee.invitation_expired"
)

// Event is published after a lifecycle mutation commits
type Event struct {
	Type           EventType         `json:"type"`
	OrganizationID string            `json:"organizationId"`
	EmployeeID     string            `json:"employeeId"`
	ActorID        string            `json:"actorId,omitempty"`
	At             time.Time         `json:"at"`
	Data           map[string]string `json:"data,omitempty"`
}

// EventPublisher fans lifecycle events out to interested sinks
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
