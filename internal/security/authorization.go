package security

import (
	"log/slog"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
)

// Permission represents an action permission
type Permission string

const (
	PermInviteEmployee    Permission = "invite_employee"
	PermListEmployees     Permission = "list_employees"
	PermReadEmployee      Permission = "read_employee"
	PermManageEmployee    Permission = "manage_employee"
	PermReadOwnProfile    Permission = "read_own_profile"
	PermUpdateOwnProfile  Permission = "update_own_profile"
	PermReadOrganization  Permission = "read_organization"
	PermStreamOrgEvents   Permission = "stream_org_events"
	PermChangeOwnPassword Permission = "change_own_password"
	PermResendInvitation  Permission = "resend_invitation"
)

// RolePermissions maps roles to their permissions. Employees only ever act on their own record.
var RolePermissions = map[domain.Role][]Permission{
	domain.RoleAdmin: {
		PermInviteEmployee,
		PermListEmployees,
		PermReadEmployee,
		PermManageEmployee,
		PermResendInvitation,
		PermReadOrganization,
		PermStreamOrgEvents,
	},
	domain.RoleEmployee: {
		PermReadOwnProfile,
		PermUpdateOwnProfile,
		PermChangeOwnPassword,
		PermReadOrganization,
	},
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role domain.Role, permission Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidatePermission validates that a principal's token role carries a permission
func (as *AuthorizationService) ValidatePermission(p domain.Principal, permission Permission) error {
	if !as.HasPermission(p.Role, permission) {
		as.logger.Warn("permission denied",
			slog.String("principal_id", p.ID),
			slog.String("role", string(p.Role)),
			slog.String("permission", string(permission)),
		)
		return domain.ErrForbidden
	}
	return nil
}

// RequireRole fails with Forbidden unless the token role is one of roles
func (as *AuthorizationService) RequireRole(p domain.Principal, roles ...domain.Role) error {
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	as.logger.Warn("role denied",
		slog.String("principal_id", p.ID),
		slog.String("role", string(p.Role)),
	)
	return domain.ErrForbidden
}

// ValidateTenantAccess hides resources of other organizations behind NotFound
func (as *AuthorizationService) ValidateTenantAccess(p domain.Principal, organizationID string) error {
	if p.OrganizationID == "" || p.OrganizationID != organizationID {
		as.logger.Warn("tenant access denied",
			slog.String("principal_id", p.ID),
			slog.String("principal_org", p.OrganizationID),
			slog.String("requested_org", organizationID),
		)
		return domain.ErrNotFound
	}
	return nil
}

// ValidateSelfAccess lets admins through and restricts employees to their own record
func (as *AuthorizationService) ValidateSelfAccess(p domain.Principal, employeeID string) error {
	if p.IsAdmin() {
		return nil
	}
	if p.Role != domain.RoleEmployee || p.ID != employeeID {
		as.logger.Warn("self access denied",
			slog.String("principal_id", p.ID),
			slog.String("employee_id", employeeID),
		)
		return domain.ErrForbidden
	}
	return nil
}
