package service

import (
	"context"
	"strings"
	"time"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
)

// ProfileUpdateInput is the subset of fields an employee may edit on their own record
type ProfileUpdateInput struct {
	Phone            *string                `json:"phone" validate:"omitnil,min=1,max=50"`
	Address          *string                `json:"address" validate:"omitnil,min=1,max=500"`
	EmergencyContact *EmergencyContactInput `json:"emergencyContact"`
}

// ChangePasswordInput rotates the caller's own password
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// GetProfile returns the caller's own employee record
func (s *EmployeeService) GetProfile(ctx context.Context, p domain.Principal) (*domain.Employee, error) {
	if err := s.authz.RequireRole(p, domain.RoleEmployee); err != nil {
		return nil, err
	}
	e, err := s.employees.GetByID(ctx, p.OrganizationID, p.ID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.ValidateSelfAccess(p, e.ID); err != nil {
		return nil, err
	}
	if e.IsDeleted {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

// UpdateProfile applies a self-service edit
func (s *EmployeeService) UpdateProfile(ctx context.Context, p domain.Principal, in ProfileUpdateInput) (*domain.Employee, error) {
	if err := s.authz.RequireRole(p, domain.RoleEmployee); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	var changed []string
	e, err := s.mutate(ctx, "profile_update", p.OrganizationID, p.ID, func(e *domain.Employee, now time.Time) error {
		if e.IsDeleted {
			return domain.ErrNotFound
		}
		changed = changed[:0]
		if in.Phone != nil {
			e.Phone = strings.TrimSpace(*in.Phone)
			changed = append(changed, "phone")
		}
		if in.Address != nil {
			e.Address = strings.TrimSpace(*in.Address)
			changed = append(changed, "address")
		}
		if in.EmergencyContact != nil {
			e.EmergencyContact = in.EmergencyContact.toDomain()
			changed = append(changed, "emergencyContact")
		}
		e.UpdatedAt = now
		return nil
	})
	s.audit.LogEmployeeAction(ctx, p.OrganizationID, p.ID, "profile_update", p.ID, err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventEmployeeUpdated, e, p.ID, map[string]string{"fields": strings.Join(changed, ",")})
	return e, nil
}

// ChangePassword verifies the current password and stores a new hash
func (s *EmployeeService) ChangePassword(ctx context.Context, p domain.Principal, in ChangePasswordInput) error {
	if err := s.authz.RequireRole(p, domain.RoleEmployee); err != nil {
		return err
	}
	if err := validateStruct(s.validate, in); err != nil {
		return err
	}

	current, err := s.employees.GetByID(ctx, p.OrganizationID, p.ID)
	if err != nil {
		return err
	}
	if current.IsDeleted {
		return domain.ErrNotFound
	}
	if !s.hasher.Compare(current.PasswordHash, in.CurrentPassword) {
		return domain.Validation("currentPassword", "current password is incorrect")
	}
	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return err
	}

	_, err = s.mutate(ctx, "password_change", p.OrganizationID, p.ID, func(e *domain.Employee, now time.Time) error {
		if e.IsDeleted {
			return domain.ErrNotFound
		}
		e.PasswordHash = hash
		e.UpdatedAt = now
		return nil
	})
	s.audit.LogEmployeeAction(ctx, p.OrganizationID, p.ID, "password_change", p.ID, err)
	return err
}
