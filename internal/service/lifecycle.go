package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
)

// StatusInput changes the activation status of an employee
type StatusInput struct {
	Status string `json:"status" validate:"required,oneof=pending active inactive terminated"`
	Reason string `json:"reason" validate:"max=500"`
	Notes  string `json:"notes" validate:"max=1000"`
}

// ArchiveInput marks an employee as a former employee. Reason length is checked by the domain.
type ArchiveInput struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes" validate:"max=1000"`
}

// UnarchiveInput returns an archived employee to review
type UnarchiveInput struct {
	Notes string `json:"notes" validate:"max=1000"`
}

// UnarchiveResult carries the archive details that were cleared
type UnarchiveResult struct {
	Employee *domain.Employee
	Previous domain.ArchiveInfo
}

// Get returns one employee of the caller's organization with its full status history
func (s *EmployeeService) Get(ctx context.Context, p domain.Principal, id string) (*domain.Employee, error) {
	if err := s.requireAdmin(p); err != nil {
		return nil, err
	}
	e, err := s.employees.GetByID(ctx, p.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.ValidateTenantAccess(p, e.OrganizationID); err != nil {
		return nil, err
	}
	return s.observe(ctx, e), nil
}

// UpdateStatus moves an employee to any of the four statuses and records the change.
// Soft-deleted records are hidden from this operation.
func (s *EmployeeService) UpdateStatus(ctx context.Context, p domain.Principal, id string, in StatusInput) (*domain.Employee, error) {
	if err := s.requireAdmin(p); err != nil {
		return nil, err
	}
	in.Reason = strings.TrimSpace(in.Reason)
	in.Notes = strings.TrimSpace(in.Notes)
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	var from domain.Status
	e, err := s.mutate(ctx, "status_change", p.OrganizationID, id, func(e *domain.Employee, now time.Time) error {
		if e.IsDeleted {
			return domain.ErrNotFound
		}
		from = e.Status
		return e.ChangeStatus(domain.Status(in.Status), p.ID, in.Reason, in.Notes, now, s.cfg.StrictStatusTransitions)
	})
	s.audit.LogEmployeeAction(ctx, p.OrganizationID, p.ID, "status_change", id, err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventEmployeeStatusChanged, e, p.ID, map[string]string{
		"from": string(from),
		"to":   string(e.Status),
	})
	s.logger.Info("employee status changed",
		slog.String("organization_id", e.OrganizationID),
		slog.String("employee_id", e.ID),
		slog.String("from", string(from)),
		slog.String("to", string(e.Status)),
	)
	return e, nil
}

// Archive marks an employee as former and terminates it
func (s *EmployeeService) Archive(ctx context.Context, p domain.Principal, id string, in ArchiveInput) (*domain.Employee, error) {
	if err := s.requireAdmin(p); err != nil {
		return nil, err
	}
	in.Notes = strings.TrimSpace(in.Notes)
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	e, err := s.mutate(ctx, "archive", p.OrganizationID, id, func(e *domain.Employee, now time.Time) error {
		return e.Archive(p.ID, in.Reason, in.Notes, now)
	})
	s.audit.LogEmployeeAction(ctx, p.OrganizationID, p.ID, "archive", id, err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventEmployeeArchived, e, p.ID, map[string]string{"reason": e.ArchiveReason})
	return e, nil
}

// Unarchive returns an archived employee to employed with status pending
func (s *EmployeeService) Unarchive(ctx context.Context, p domain.Principal, id string, in UnarchiveInput) (*UnarchiveResult, error) {
	if err := s.requireAdmin(p); err != nil {
		return nil, err
	}
	in.Notes = strings.TrimSpace(in.Notes)
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	var prev domain.ArchiveInfo
	e, err := s.mutate(ctx, "unarchive", p.OrganizationID, id, func(e *domain.Employee, now time.Time) error {
		info, err := e.Unarchive(p.ID, in.Notes, now)
		prev = info
		return err
	})
	s.audit.LogEmployeeAction(ctx, p.OrganizationID, p.ID, "unarchive", id, err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventEmployeeUnarchived, e, p.ID, nil)
	return &UnarchiveResult{Employee: e, Previous: prev}, nil
}

// Delete soft-deletes an erroneous record
func (s *EmployeeService) Delete(ctx context.Context, p domain.Principal, id string) (*domain.Employee, error) {
	if err := s.requireAdmin(p); err != nil {
		return nil, err
	}
	e, err := s.mutate(ctx, "delete", p.OrganizationID, id, func(e *domain.Employee, now time.Time) error {
		return e.SoftDelete(p.ID, now)
	})
	s.audit.LogEmployeeAction(ctx, p.OrganizationID, p.ID, "delete", id, err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventEmployeeDeleted, e, p.ID, nil)
	return e, nil
}

// Restore undoes a soft delete
func (s *EmployeeService) Restore(ctx context.Context, p domain.Principal, id string) (*domain.Employee, error) {
	if err := s.requireAdmin(p); err != nil {
		return nil, err
	}
	e, err := s.mutate(ctx, "restore", p.OrganizationID, id, func(e *domain.Employee, now time.Time) error {
		return e.Restore(p.ID, now)
	})
	s.audit.LogEmployeeAction(ctx, p.OrganizationID, p.ID, "restore", id, err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventEmployeeRestored, e, p.ID, nil)
	return e, nil
}

// AdminUpdateInput edits identity, profile and compensation fields. Nil fields are left alone.
// Lifecycle axes are never touched here.
type AdminUpdateInput struct {
	FirstName        *string                `json:"firstName" validate:"omitnil,min=1,max=100"`
	LastName         *string                `json:"lastName" validate:"omitnil,min=1,max=100"`
	Email            *string                `json:"email" validate:"omitnil,email"`
	Phone            *string                `json:"phone" validate:"omitnil,max=50"`
	Address          *string                `json:"address" validate:"omitnil,max=500"`
	Gender           *string                `json:"gender" validate:"omitnil,oneof=male female other"`
	DateOfBirth      *string                `json:"dateOfBirth" validate:"omitnil,datetime=2006-01-02"`
	NationalID       *string                `json:"nationalId" validate:"omitnil,max=50"`
	EmployeeType     *string                `json:"employeeType" validate:"omitnil,oneof=advocate intern staff other"`
	LicenseNumber    *string                `json:"licenseNumber" validate:"omitnil,max=100"`
	InternYear       *int                   `json:"internYear" validate:"omitnil,gte=0,lte=10"`
	Department       *string                `json:"department" validate:"omitnil,max=100"`
	Position         *string                `json:"position" validate:"omitnil,max=100"`
	StartDate        *string                `json:"startDate" validate:"omitnil,datetime=2006-01-02"`
	Salary           *float64               `json:"salary" validate:"omitnil,gte=0"`
	EmergencyContact *EmergencyContactInput `json:"emergencyContact"`
}

// AdminUpdate applies an admin's edit to an employee record
func (s *EmployeeService) AdminUpdate(ctx context.Context, p domain.Principal, id string, in AdminUpdateInput) (*domain.Employee, error) {
	if err := s.requireAdmin(p); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	var changed []string
	e, err := s.mutate(ctx, "update", p.OrganizationID, id, func(e *domain.Employee, now time.Time) error {
		if e.IsDeleted {
			return domain.ErrNotFound
		}
		fields, err := applyAdminUpdate(e, in, now)
		if err != nil {
			return err
		}
		changed = fields
		e.UpdatedAt = now
		return nil
	})
	s.audit.LogEmployeeAction(ctx, p.OrganizationID, p.ID, "update", id, err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventEmployeeUpdated, e, p.ID, map[string]string{"fields": strings.Join(changed, ",")})
	return e, nil
}

func applyAdminUpdate(e *domain.Employee, in AdminUpdateInput, now time.Time) ([]string, error) {
	changed := map[string]bool{}
	setString := func(field string, dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
			changed[field] = true
		}
	}

	if in.FirstName != nil && strings.TrimSpace(*in.FirstName) == "" {
		return nil, domain.Validation("firstName", "firstName is required")
	}
	if in.LastName != nil && strings.TrimSpace(*in.LastName) == "" {
		return nil, domain.Validation("lastName", "lastName is required")
	}
	setString("firstName", &e.FirstName, in.FirstName)
	setString("lastName", &e.LastName, in.LastName)
	if in.Email != nil {
		e.Email = domain.NormalizeEmail(*in.Email)
		changed["email"] = true
	}
	setString("phone", &e.Phone, in.Phone)
	setString("address", &e.Address, in.Address)
	setString("gender", &e.Gender, in.Gender)
	setString("nationalId", &e.NationalID, in.NationalID)
	setString("department", &e.Department, in.Department)
	setString("position", &e.Position, in.Position)

	if in.DateOfBirth != nil {
		dob, err := time.Parse(dateLayout, *in.DateOfBirth)
		if err != nil {
			return nil, domain.Validation("dateOfBirth", "dateOfBirth must be a date formatted as 2006-01-02")
		}
		if dob.After(now) {
			return nil, domain.Validation("dateOfBirth", "dateOfBirth cannot be in the future")
		}
		e.DateOfBirth = &dob
		e.Age = domain.ComputeAge(dob, now)
		changed["dateOfBirth"] = true
	}
	if in.StartDate != nil {
		start, err := time.Parse(dateLayout, *in.StartDate)
		if err != nil {
			return nil, domain.Validation("startDate", "startDate must be a date formatted as 2006-01-02")
		}
		e.StartDate = &start
		changed["startDate"] = true
	}
	if in.Salary != nil {
		e.Salary = *in.Salary
		changed["salary"] = true
	}
	if in.EmergencyContact != nil {
		e.EmergencyContact = in.EmergencyContact.toDomain()
		changed["emergencyContact"] = true
	}

	typeTouched := in.EmployeeType != nil || in.LicenseNumber != nil || in.InternYear != nil
	if in.EmployeeType != nil {
		e.EmployeeType = domain.EmployeeType(*in.EmployeeType)
		changed["employeeType"] = true
	}
	setString("licenseNumber", &e.LicenseNumber, in.LicenseNumber)
	if in.InternYear != nil {
		e.InternYear = *in.InternYear
		changed["internYear"] = true
	}
	if typeTouched {
		if err := domain.ValidateTypeFields(e.EmployeeType, e.LicenseNumber, e.InternYear); err != nil {
			return nil, err
		}
		switch e.EmployeeType {
		case domain.EmployeeTypeAdvocate:
			e.InternYear = 0
		case domain.EmployeeTypeIntern:
			e.LicenseNumber = ""
		default:
			e.InternYear = 0
			e.LicenseNumber = ""
		}
	}

	fields := make([]string, 0, len(changed))
	for f := range changed {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields, nil
}
