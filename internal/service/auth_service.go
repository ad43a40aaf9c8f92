package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
	"github.com/aryan0dhankhar/onboardhr/internal/observability/metrics"
	"github.com/aryan0dhankhar/onboardhr/internal/security/audit"
	"github.com/aryan0dhankhar/onboardhr/internal/security/auth"
)

// AuthService handles organization setup, login and session resolution
type AuthService struct {
	orgs      domain.OrganizationRepository
	admins    domain.AdminRepository
	employees domain.EmployeeRepository
	tokens    *auth.TokenManager
	hasher    auth.PasswordHasher
	audit     *audit.Logger
	validate  *validator.Validate
	now       func() time.Time
	logger    *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	orgs domain.OrganizationRepository,
	admins domain.AdminRepository,
	employees domain.EmployeeRepository,
	tokens *auth.TokenManager,
	hasher auth.PasswordHasher,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}

	return &AuthService{
		orgs:      orgs,
		admins:    admins,
		employees: employees,
		tokens:    tokens,
		hasher:    hasher,
		audit:     auditLog,
		validate:  newValidator(),
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock replaces the time source; used by tests
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// OrganizationInput is the organization half of the setup request
type OrganizationInput struct {
	Name          string   `json:"name" validate:"required,max=200"`
	Email         string   `json:"email" validate:"required,email"`
	Phone         string   `json:"phone" validate:"max=50"`
	Address       string   `json:"address" validate:"max=500"`
	City          string   `json:"city" validate:"max=100"`
	Country       string   `json:"country" validate:"max=100"`
	Industry      string   `json:"industry" validate:"max=100"`
	PracticeAreas []string `json:"practiceAreas" validate:"max=50,dive,max=100"`
}

// SuperAdminInput is the first admin created with the organization
type SuperAdminInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// SetupInput creates a tenant and its super-admin
type SetupInput struct {
	Organization OrganizationInput `json:"organization"`
	SuperAdmin   SuperAdminInput   `json:"superAdmin"`
}

// LoginInput is a credential pair for either identity space
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is an issued session token with the principal it asserts
type Session struct {
	Token     string
	ExpiresAt time.Time
	Principal domain.Principal
	Admin     *domain.Admin
	Employee  *domain.Employee
}

// Setup creates an organization and its super-admin atomically and signs the admin in
func (s *AuthService) Setup(ctx context.Context, in SetupInput) (*Session, *domain.Organization, error) {
	in.Organization.Name = strings.TrimSpace(in.Organization.Name)
	in.Organization.Email = domain.NormalizeEmail(in.Organization.Email)
	in.SuperAdmin.Username = strings.TrimSpace(in.SuperAdmin.Username)
	in.SuperAdmin.Email = domain.NormalizeEmail(in.SuperAdmin.Email)
	if err := validateStruct(s.validate, in); err != nil {
		return nil, nil, err
	}

	if _, err := s.admins.GetByEmail(ctx, in.SuperAdmin.Email); err == nil {
		return nil, nil, domain.Conflict("email")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, fmt.Errorf("failed to check admin email: %w", err)
	}

	hash, err := s.hasher.Hash(in.SuperAdmin.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, nil, fmt.Errorf("failed to set up organization: %w", err)
	}

	now := s.now()
	org := &domain.Organization{
		ID:            uuid.NewString(),
		Name:          in.Organization.Name,
		Email:         in.Organization.Email,
		Phone:         strings.TrimSpace(in.Organization.Phone),
		Address:       strings.TrimSpace(in.Organization.Address),
		City:          strings.TrimSpace(in.Organization.City),
		Country:       strings.TrimSpace(in.Organization.Country),
		Industry:      strings.TrimSpace(in.Organization.Industry),
		PracticeAreas: in.Organization.PracticeAreas,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	admin := &domain.Admin{
		ID:             uuid.NewString(),
		Username:       in.SuperAdmin.Username,
		Email:          in.SuperAdmin.Email,
		PasswordHash:   hash,
		Role:           domain.RoleAdmin,
		OrganizationID: org.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	org.SuperAdminID = admin.ID

	if err := s.orgs.CreateWithAdmin(ctx, org, admin); err != nil {
		s.audit.LogAction(ctx, "", "", "setup", "organization", "", "failed", err.Error())
		return nil, nil, err
	}

	session, err := s.issue(domain.Principal{ID: admin.ID, Email: admin.Email, OrganizationID: org.ID, Role: domain.RoleAdmin})
	if err != nil {
		return nil, nil, err
	}
	session.Admin = admin

	s.audit.LogAction(ctx, org.ID, admin.ID, "setup", "organization", org.ID, "success", "")
	s.logger.Info("organization created",
		slog.String("organization_id", org.ID),
		slog.String("admin_id", admin.ID),
	)
	return session, org, nil
}

// Login resolves credentials against the admin store first and the employee store second
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	admin, err := s.admins.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return s.loginAdmin(ctx, admin, in.Password)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}

	employee, err := s.employees.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("login attempt with unknown email")
			metrics.ObserveLogin("unknown", "invalid_credentials")
			s.audit.LogLogin(ctx, "", "", in.Email, domain.ErrInvalidCredentials)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up employee: %w", err)
	}
	return s.loginEmployee(ctx, employee, in.Password)
}

func (s *AuthService) loginAdmin(ctx context.Context, admin *domain.Admin, password string) (*Session, error) {
	if !s.hasher.Compare(admin.PasswordHash, password) {
		metrics.ObserveLogin(string(domain.RoleAdmin), "invalid_credentials")
		s.audit.LogLogin(ctx, admin.OrganizationID, admin.ID, admin.Email, domain.ErrInvalidCredentials)
		return nil, domain.ErrInvalidCredentials
	}
	session, err := s.issue(domain.Principal{ID: admin.ID, Email: admin.Email, OrganizationID: admin.OrganizationID, Role: domain.RoleAdmin})
	if err != nil {
		return nil, err
	}
	session.Admin = admin
	metrics.ObserveLogin(string(domain.RoleAdmin), "success")
	s.audit.LogLogin(ctx, admin.OrganizationID, admin.ID, "", nil)
	return session, nil
}

// loginEmployee checks the password before the account state so a wrong
// password never reveals whether the account is active
func (s *AuthService) loginEmployee(ctx context.Context, e *domain.Employee, password string) (*Session, error) {
	if !s.hasher.Compare(e.PasswordHash, password) {
		metrics.ObserveLogin(string(domain.RoleEmployee), "invalid_credentials")
		s.audit.LogLogin(ctx, e.OrganizationID, e.ID, e.Email, domain.ErrInvalidCredentials)
		return nil, domain.ErrInvalidCredentials
	}
	if !e.CanAuthenticate() {
		metrics.ObserveLogin(string(domain.RoleEmployee), "not_active")
		s.audit.LogLogin(ctx, e.OrganizationID, e.ID, e.Email, domain.ErrAccountNotActive)
		return nil, domain.ErrAccountNotActive
	}
	session, err := s.issue(domain.Principal{ID: e.ID, Email: e.Email, OrganizationID: e.OrganizationID, Role: domain.RoleEmployee})
	if err != nil {
		return nil, err
	}
	session.Employee = e
	metrics.ObserveLogin(string(domain.RoleEmployee), "success")
	s.audit.LogLogin(ctx, e.OrganizationID, e.ID, "", nil)
	return session, nil
}

// Authenticate verifies a session token and checks the principal still exists.
// Employees must also still be active. The role comes from the token only and
// selects which identity space is consulted.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	p, err := s.tokens.VerifySession(token)
	if err != nil {
		return domain.Principal{}, err
	}

	switch p.Role {
	case domain.RoleAdmin:
		admin, err := s.admins.GetByID(ctx, p.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Principal{}, domain.ErrUnauthenticated
			}
			return domain.Principal{}, fmt.Errorf("failed to resolve admin: %w", err)
		}
		if admin.OrganizationID != p.OrganizationID {
			return domain.Principal{}, domain.ErrUnauthenticated
		}
	case domain.RoleEmployee:
		e, err := s.employees.GetByID(ctx, p.OrganizationID, p.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Principal{}, domain.ErrUnauthenticated
			}
			return domain.Principal{}, fmt.Errorf("failed to resolve employee: %w", err)
		}
		if e.IsDeleted {
			return domain.Principal{}, domain.ErrUnauthenticated
		}
		// sessions outlive status changes, so activation is checked on every request
		if e.Status != domain.StatusActive {
			return domain.Principal{}, domain.ErrAccountNotActive
		}
	default:
		return domain.Principal{}, domain.ErrInvalidToken
	}
	return p, nil
}

// Me returns the stored record behind an authenticated principal
func (s *AuthService) Me(ctx context.Context, p domain.Principal) (*Session, error) {
	out := &Session{Principal: p}
	switch p.Role {
	case domain.RoleAdmin:
		admin, err := s.admins.GetByID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		out.Admin = admin
	case domain.RoleEmployee:
		e, err := s.employees.GetByID(ctx, p.OrganizationID, p.ID)
		if err != nil {
			return nil, err
		}
		out.Employee = e
	default:
		return nil, domain.ErrForbidden
	}
	return out, nil
}

func (s *AuthService) issue(p domain.Principal) (*Session, error) {
	token, err := s.tokens.IssueSession(p)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	return &Session{Token: token, ExpiresAt: s.now().Add(s.tokens.TTL()), Principal: p}, nil
}
