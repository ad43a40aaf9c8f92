package service

import (
	"context"
	"strings"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
	"github.com/aryan0dhankhar/onboardhr/internal/observability/tracing"
)

// ListInput is an unvalidated listing request as it arrives from the query string
type ListInput struct {
	Page            int
	Limit           int
	SortBy          string
	SortOrder       string
	Status          string
	Search          string
	IncludeDeleted  bool
	IncludeArchived bool
}

// DefaultListInput mirrors the query defaults of the admin listing endpoint
func DefaultListInput() ListInput {
	return ListInput{
		Page:      1,
		Limit:     10,
		SortBy:    string(domain.SortCreatedAt),
		SortOrder: string(domain.SortDesc),
	}
}

// List returns one page of the caller's organization. Arguments are rejected
// before any query runs.
func (s *EmployeeService) List(ctx context.Context, p domain.Principal, in ListInput) (*domain.ListResult, error) {
	if err := s.requireAdmin(p); err != nil {
		return nil, err
	}
	q, err := buildListQuery(p.OrganizationID, in)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.Start(ctx, "employee.list")
	defer span.End()

	res, err := s.employees.List(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for i, e := range res.Items {
		if e.InvitationDue(s.now()) {
			res.Items[i] = s.observe(ctx, e)
			res.Items[i].StatusHistory = nil
		}
	}
	return res, nil
}

func buildListQuery(orgID string, in ListInput) (domain.ListQuery, error) {
	if in.Page < 1 {
		return domain.ListQuery{}, domain.Validation("page", "page must be at least 1")
	}
	if in.Limit < 1 || in.Limit > domain.MaxPageSize {
		return domain.ListQuery{}, domain.Validation("limit", "limit must be between 1 and 100")
	}
	field, ok := domain.ParseSortField(in.SortBy)
	if !ok {
		return domain.ListQuery{}, domain.Validation("sortBy", "sortBy must be one of createdAt, updatedAt, firstName, lastName, email, salary, status")
	}
	dir := domain.SortDirection(strings.ToLower(in.SortOrder))
	if dir != domain.SortAsc && dir != domain.SortDesc {
		return domain.ListQuery{}, domain.Validation("sortOrder", "sortOrder must be asc or desc")
	}
	var status domain.Status
	if in.Status != "" {
		st, ok := domain.ParseStatus(in.Status)
		if !ok {
			return domain.ListQuery{}, domain.Validation("status", "status must be one of pending, active, inactive, terminated")
		}
		status = st
	}

	return domain.ListQuery{
		OrganizationID:  orgID,
		Page:            in.Page,
		PageSize:        in.Limit,
		SortField:       field,
		SortDir:         dir,
		Status:          status,
		Search:          strings.TrimSpace(in.Search),
		IncludeDeleted:  in.IncludeDeleted,
		IncludeArchived: in.IncludeArchived,
	}, nil
}
