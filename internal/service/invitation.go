package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
	"github.com/aryan0dhankhar/onboardhr/internal/observability/metrics"
)

const dateLayout = "2006-01-02"

// InviteInput is an admin's invitation request. A missing salary becomes 0.
type InviteInput struct {
	FirstName string   `json:"firstName" validate:"required,max=100"`
	LastName  string   `json:"lastName" validate:"required,max=100"`
	Email     string   `json:"email" validate:"required,email"`
	Salary    *float64 `json:"salary" validate:"omitempty,gte=0"`
}

// InviteResult is the invited record and the link mailed to the employee
type InviteResult struct {
	Employee       *domain.Employee
	InvitationLink string
}

type reinviteFields struct {
	FirstName string
	LastName  string
	Salary    float64
}

// Invite creates a pending invitation, or re-invites when the previous one expired
func (s *EmployeeService) Invite(ctx context.Context, p domain.Principal, in InviteInput) (*InviteResult, error) {
	if err := s.requireAdmin(p); err != nil {
		return nil, err
	}
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = domain.NormalizeEmail(in.Email)
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}
	salary := 0.0
	if in.Salary != nil {
		salary = *in.Salary
	}

	secret, err := s.newSecret()
	if err != nil {
		s.logger.Error("failed to generate invitation secret", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to invite employee: %w", err)
	}

	existing, err := s.employees.GetByEmail(ctx, p.OrganizationID, in.Email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up employee: %w", err)
	}

	if existing == nil {
		e := domain.NewInvitedEmployee(p.OrganizationID, p.ID, in.FirstName, in.LastName, in.Email, salary, secret, s.now(), s.cfg.InvitationTTL)
		if err := s.employees.Create(ctx, e); err != nil {
			metrics.ObserveLifecycle("invite", "failed")
			s.audit.LogEmployeeAction(ctx, p.OrganizationID, p.ID, "invite", "", err)
			return nil, err
		}
		metrics.ObserveLifecycle("invite", "success")
		return s.invited(ctx, p, e, secret, false), nil
	}
	if existing.IsDeleted {
		return nil, domain.Conflict("email")
	}

	e, err := s.reinvite(ctx, p, existing.ID, secret, &reinviteFields{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Salary:    salary,
	})
	if err != nil {
		s.audit.LogEmployeeAction(ctx, p.OrganizationID, p.ID, "invite", existing.ID, err)
		return nil, err
	}
	return s.invited(ctx, p, e, secret, true), nil
}

// ResendInvitation issues a fresh secret for an expired invitation, keeping names and salary
func (s *EmployeeService) ResendInvitation(ctx context.Context, p domain.Principal, employeeID string) (*InviteResult, error) {
	if err := s.requireAdmin(p); err != nil {
		return nil, err
	}
	secret, err := s.newSecret()
	if err != nil {
		s.logger.Error("failed to generate invitation secret", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to resend invitation: %w", err)
	}
	e, err := s.reinvite(ctx, p, employeeID, secret, nil)
	if err != nil {
		s.audit.LogEmployeeAction(ctx, p.OrganizationID, p.ID, "resend_invitation", employeeID, err)
		return nil, err
	}
	return s.invited(ctx, p, e, secret, true), nil
}

// reinvite loops an expired invitation back to pending. A national id left over from
// an earlier partial registration that now collides is cleared instead of failing.
func (s *EmployeeService) reinvite(ctx context.Context, p domain.Principal, id, secret string, fields *reinviteFields) (*domain.Employee, error) {
	return s.mutateWith(ctx, "reinvite", p.OrganizationID, id,
		func(e *domain.Employee, now time.Time) error {
			if e.IsDeleted {
				return domain.ErrNotFound
			}
			f := fields
			if f == nil {
				f = &reinviteFields{FirstName: e.FirstName, LastName: e.LastName, Salary: e.Salary}
			}
			return e.Reinvite(p.ID, f.FirstName, f.LastName, f.Salary, secret, now, s.cfg.InvitationTTL)
		},
		func(ctx context.Context, e *domain.Employee) error {
			err := s.employees.Update(ctx, e)
			if !domain.IsConflictOn(err, "nationalId") {
				return err
			}
			s.logger.Warn("clearing conflicting national id on re-invite",
				slog.String("organization_id", e.OrganizationID),
				slog.String("employee_id", e.ID),
			)
			e.NationalID = ""
			return s.employees.Update(ctx, e)
		},
	)
}

// invited runs the post-commit side effects of an invitation. None of them can fail the invite.
func (s *EmployeeService) invited(ctx context.Context, p domain.Principal, e *domain.Employee, secret string, reinvite bool) *InviteResult {
	link := s.invitationLink(secret)

	if s.queue != nil {
		msg := domain.InvitationMessage{
			EmployeeID:     e.ID,
			OrganizationID: e.OrganizationID,
			To:             e.Email,
			FirstName:      e.FirstName,
			Link:           link,
			ExpiresAt:      e.InvitationExpires,
		}
		if org, err := s.orgs.GetByID(ctx, e.OrganizationID); err == nil {
			msg.OrganizationName = org.Name
		}
		if !s.queue.Enqueue(ctx, msg) {
			s.logger.Warn("invitation email not queued",
				slog.String("organization_id", e.OrganizationID),
				slog.String("employee_id", e.ID),
			)
		}
	}

	s.publish(ctx, domain.EventEmployeeInvited, e, p.ID, map[string]string{
		"email":    e.Email,
		"reinvite": strconv.FormatBool(reinvite),
	})
	s.audit.LogEmployeeAction(ctx, p.OrganizationID, p.ID, "invite", e.ID, nil)
	s.logger.Info("employee invited",
		slog.String("organization_id", e.OrganizationID),
		slog.String("employee_id", e.ID),
		slog.Bool("reinvite", reinvite),
	)
	return &InviteResult{Employee: e, InvitationLink: link}
}

func (s *EmployeeService) invitationLink(secret string) string {
	return strings.TrimRight(s.cfg.FrontendURL, "/") + "/register/" + secret
}

// Invitation is what an invitee sees before registering
type Invitation struct {
	Employee     *domain.Employee
	Organization *domain.Organization
}

// GetInvitation resolves a pending invitation secret. Observing an expired one persists the expiry.
func (s *EmployeeService) GetInvitation(ctx context.Context, secret string) (*Invitation, error) {
	e, err := s.lookupInvitation(ctx, secret)
	if err != nil {
		return nil, err
	}
	if e.InvitationDue(s.now()) {
		s.observe(ctx, e)
		return nil, domain.ErrInvitationExpired
	}
	if e.InvitationStatus != domain.InvitationPending {
		return nil, domain.ErrInvalidInvitation
	}

	inv := &Invitation{Employee: e}
	if org, err := s.orgs.GetByID(ctx, e.OrganizationID); err == nil {
		inv.Organization = org
	}
	return inv, nil
}

func (s *EmployeeService) lookupInvitation(ctx context.Context, secret string) (*domain.Employee, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, domain.ErrInvalidInvitation
	}
	e, err := s.employees.GetByInvitationToken(ctx, secret)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidInvitation
		}
		return nil, fmt.Errorf("failed to look up invitation: %w", err)
	}
	if e.IsDeleted {
		return nil, domain.ErrInvalidInvitation
	}
	return e, nil
}

// EmergencyContactInput is the emergency contact triplet
type EmergencyContactInput struct {
	Name         string `json:"name" validate:"required,max=100"`
	Phone        string `json:"phone" validate:"required,max=50"`
	Relationship string `json:"relationship" validate:"required,max=50"`
}

func (c EmergencyContactInput) toDomain() domain.EmergencyContact {
	return domain.EmergencyContact{
		Name:         strings.TrimSpace(c.Name),
		Phone:        strings.TrimSpace(c.Phone),
		Relationship: strings.TrimSpace(c.Relationship),
	}
}

// RegistrationInput is the profile an invitee submits. Dates use YYYY-MM-DD.
type RegistrationInput struct {
	Phone            string                `json:"phone" validate:"required,max=50"`
	Address          string                `json:"address" validate:"required,max=500"`
	Gender           string                `json:"gender" validate:"required,oneof=male female other"`
	DateOfBirth      string                `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Age              int                   `json:"age" validate:"gte=0,lte=150"`
	NationalID       string                `json:"nationalId" validate:"required,max=50"`
	EmployeeType     string                `json:"employeeType" validate:"required,oneof=advocate intern staff other"`
	LicenseNumber    string                `json:"licenseNumber" validate:"max=100"`
	InternYear       int                   `json:"internYear" validate:"gte=0,lte=10"`
	Department       string                `json:"department" validate:"required,max=100"`
	Position         string                `json:"position" validate:"required,max=100"`
	StartDate        string                `json:"startDate" validate:"required,datetime=2006-01-02"`
	EmergencyContact EmergencyContactInput `json:"emergencyContact"`
	Salary           *float64              `json:"salary" validate:"omitempty,gte=0"`
	Password         string                `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword  string                `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// RegistrationResult is the registered record plus a session for it
type RegistrationResult struct {
	Employee  *domain.Employee
	Token     string
	ExpiresAt time.Time
}

// CompleteRegistration validates the submitted profile and completes a pending invitation.
// Nothing is written when validation fails.
func (s *EmployeeService) CompleteRegistration(ctx context.Context, secret string, in RegistrationInput) (*RegistrationResult, error) {
	reg, err := s.parseRegistration(in)
	if err != nil {
		return nil, err
	}

	found, err := s.lookupInvitation(ctx, secret)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to complete registration: %w", err)
	}

	e, err := s.mutate(ctx, "register", found.OrganizationID, found.ID, func(e *domain.Employee, now time.Time) error {
		if e.IsDeleted {
			return domain.ErrInvalidInvitation
		}
		if e.InvitationStatus == domain.InvitationPending && e.InvitationToken != secret {
			return domain.ErrInvalidInvitation
		}
		return e.CompleteRegistration(reg, hash, now)
	})
	if err != nil {
		s.audit.LogEmployeeAction(ctx, found.OrganizationID, found.ID, "register", found.ID, err)
		return nil, err
	}

	principal := domain.Principal{ID: e.ID, Email: e.Email, OrganizationID: e.OrganizationID, Role: domain.RoleEmployee}
	token, err := s.tokens.IssueSession(principal)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	s.publish(ctx, domain.EventEmployeeRegistered, e, e.ID, nil)
	s.audit.LogEmployeeAction(ctx, e.OrganizationID, e.ID, "register", e.ID, nil)
	s.logger.Info("employee registered",
		slog.String("organization_id", e.OrganizationID),
		slog.String("employee_id", e.ID),
	)
	return &RegistrationResult{Employee: e, Token: token, ExpiresAt: s.now().Add(s.tokens.TTL())}, nil
}

func (s *EmployeeService) parseRegistration(in RegistrationInput) (domain.Registration, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.NationalID = strings.TrimSpace(in.NationalID)
	in.Department = strings.TrimSpace(in.Department)
	in.Position = strings.TrimSpace(in.Position)
	if err := validateStruct(s.validate, in); err != nil {
		return domain.Registration{}, err
	}

	dob, err := time.Parse(dateLayout, in.DateOfBirth)
	if err != nil {
		return domain.Registration{}, domain.Validation("dateOfBirth", "dateOfBirth must be a date formatted as 2006-01-02")
	}
	start, err := time.Parse(dateLayout, in.StartDate)
	if err != nil {
		return domain.Registration{}, domain.Validation("startDate", "startDate must be a date formatted as 2006-01-02")
	}
	now := s.now()
	if dob.After(now) {
		return domain.Registration{}, domain.Validation("dateOfBirth", "dateOfBirth cannot be in the future")
	}
	if in.Age != domain.ComputeAge(dob, now) {
		return domain.Registration{}, domain.Validation("age", "age does not match dateOfBirth")
	}

	employeeType, _ := domain.ParseEmployeeType(in.EmployeeType)
	if err := domain.ValidateTypeFields(employeeType, in.LicenseNumber, in.InternYear); err != nil {
		return domain.Registration{}, err
	}

	return domain.Registration{
		Phone:            in.Phone,
		Address:          in.Address,
		Gender:           in.Gender,
		DateOfBirth:      dob,
		Age:              in.Age,
		NationalID:       in.NationalID,
		EmployeeType:     employeeType,
		LicenseNumber:    in.LicenseNumber,
		InternYear:       in.InternYear,
		Department:       in.Department,
		Position:         in.Position,
		StartDate:        start,
		EmergencyContact: in.EmergencyContact.toDomain(),
		Salary:           in.Salary,
	}, nil
}
