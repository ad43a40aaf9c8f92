package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
)

// MemoryStore is an in-process implementation of the organization, admin and
// employee repositories. It enforces the same uniqueness and version rules as
// the Postgres schema and hands out copies so callers never alias stored rows.
type MemoryStore struct {
	mu        sync.RWMutex
	orgs      map[string]*domain.Organization
	admins    map[string]*domain.Admin
	employees map[string]*domain.Employee
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orgs:      make(map[string]*domain.Organization),
		admins:    make(map[string]*domain.Admin),
		employees: make(map[string]*domain.Employee),
	}
}

// Organizations returns the store as a domain.OrganizationRepository
func (s *MemoryStore) Organizations() domain.OrganizationRepository { return memoryOrganizations{s} }

// Admins returns the store as a domain.AdminRepository
func (s *MemoryStore) Admins() domain.AdminRepository { return memoryAdmins{s} }

// Employees returns the store as a domain.EmployeeRepository
func (s *MemoryStore) Employees() domain.EmployeeRepository { return memoryEmployees{s} }

type memoryOrganizations struct{ s *MemoryStore }

func (m memoryOrganizations) CreateWithAdmin(_ context.Context, org *domain.Organization, admin *domain.Admin) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orgs {
		if strings.EqualFold(o.Name, org.Name) {
			return domain.Conflict("organizationName")
		}
		if strings.EqualFold(o.Email, org.Email) {
			return domain.Conflict("organizationEmail")
		}
	}
	for _, a := range s.admins {
		if strings.EqualFold(a.Email, admin.Email) {
			return domain.Conflict("email")
		}
		if strings.EqualFold(a.Username, admin.Username) {
			return domain.Conflict("username")
		}
	}

	o := *org
	o.PracticeAreas = append([]string(nil), org.PracticeAreas...)
	a := *admin
	s.orgs[o.ID] = &o
	s.admins[a.ID] = &a
	return nil
}

func (m memoryOrganizations) GetByID(_ context.Context, id string) (*domain.Organization, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	o, ok := m.s.orgs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *o
	out.PracticeAreas = append([]string(nil), o.PracticeAreas...)
	return &out, nil
}

type memoryAdmins struct{ s *MemoryStore }

func (m memoryAdmins) GetByID(_ context.Context, id string) (*domain.Admin, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if a, ok := m.s.admins[id]; ok {
		out := *a
		return &out, nil
	}
	return nil, domain.ErrNotFound
}

func (m memoryAdmins) GetByEmail(_ context.Context, email string) (*domain.Admin, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, a := range m.s.admins {
		if strings.EqualFold(a.Email, email) {
			out := *a
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memoryEmployees struct{ s *MemoryStore }

func (m memoryEmployees) Create(_ context.Context, e *domain.Employee) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEmployeeUnique(e); err != nil {
		return err
	}
	e.Version = 1
	s.employees[e.ID] = cloneEmployee(e)
	return nil
}

func (m memoryEmployees) Update(_ context.Context, e *domain.Employee) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.employees[e.ID]
	if !ok || stored.OrganizationID != e.OrganizationID {
		return domain.ErrNotFound
	}
	if stored.Version != e.Version {
		return domain.ErrConcurrentUpdate
	}
	if err := s.checkEmployeeUnique(e); err != nil {
		return err
	}
	// history is append-only: keep stored entries and add the new tail
	next := cloneEmployee(e)
	if len(next.StatusHistory) < len(stored.StatusHistory) {
		next.StatusHistory = append([]domain.StatusChange(nil), stored.StatusHistory...)
	}
	next.Version = stored.Version + 1
	s.employees[e.ID] = next
	e.Version = next.Version
	return nil
}

// checkEmployeeUnique mirrors the unique indexes on email, national id and invitation token
func (s *MemoryStore) checkEmployeeUnique(e *domain.Employee) error {
	for id, other := range s.employees {
		if id == e.ID {
			continue
		}
		if strings.EqualFold(other.Email, e.Email) {
			return domain.Conflict("email")
		}
		if e.NationalID != "" && other.NationalID == e.NationalID {
			return domain.Conflict("nationalId")
		}
		if e.InvitationToken != "" && other.InvitationToken == e.InvitationToken {
			return domain.Conflict("invitationToken")
		}
	}
	return nil
}

func (m memoryEmployees) GetByID(_ context.Context, orgID, id string) (*domain.Employee, error) {
	return m.find(func(e *domain.Employee) bool { return e.ID == id && e.OrganizationID == orgID })
}

func (m memoryEmployees) GetByEmail(_ context.Context, orgID, email string) (*domain.Employee, error) {
	return m.find(func(e *domain.Employee) bool {
		return e.OrganizationID == orgID && strings.EqualFold(e.Email, email)
	})
}

func (m memoryEmployees) FindByEmail(_ context.Context, email string) (*domain.Employee, error) {
	return m.find(func(e *domain.Employee) bool { return strings.EqualFold(e.Email, email) })
}

func (m memoryEmployees) GetByInvitationToken(_ context.Context, token string) (*domain.Employee, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}
	return m.find(func(e *domain.Employee) bool { return e.InvitationToken == token })
}

func (m memoryEmployees) find(match func(*domain.Employee) bool) (*domain.Employee, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, e := range m.s.employees {
		if match(e) {
			return cloneEmployee(e), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m memoryEmployees) List(_ context.Context, q domain.ListQuery) (*domain.ListResult, error) {
	m.s.mu.RLock()
	var matched []*domain.Employee
	for _, e := range m.s.employees {
		if matchesQuery(e, q) {
			matched = append(matched, cloneEmployee(e))
		}
	}
	m.s.mu.RUnlock()

	less, ok := sortLess[q.SortField]
	if !ok {
		return nil, domain.Validation("sortBy", "unsupported sort field")
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch {
		case less(a, b):
			return q.SortDir == domain.SortAsc
		case less(b, a):
			return q.SortDir != domain.SortAsc
		default:
			return a.ID < b.ID
		}
	})

	total := len(matched)
	start := min(q.Offset(), total)
	end := min(start+q.PageSize, total)
	items := make([]*domain.Employee, 0, end-start)
	for _, e := range matched[start:end] {
		e.StatusHistory = nil
		items = append(items, e)
	}

	return &domain.ListResult{
		Items:      items,
		TotalCount: total,
		TotalPages: domain.TotalPagesFor(total, q.PageSize),
		Page:       q.Page,
		PageSize:   q.PageSize,
	}, nil
}

func matchesQuery(e *domain.Employee, q domain.ListQuery) bool {
	if e.OrganizationID != q.OrganizationID {
		return false
	}
	if e.IsDeleted && !q.IncludeDeleted {
		return false
	}
	if e.EmploymentStatus == domain.EmploymentArchived && !q.IncludeArchived {
		return false
	}
	if q.Status != "" && e.Status != q.Status {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		for _, field := range []string{e.FirstName, e.LastName, e.Email, e.Department, e.Position} {
			if strings.Contains(strings.ToLower(field), term) {
				return true
			}
		}
		return false
	}
	return true
}

var sortLess = map[domain.SortField]func(a, b *domain.Employee) bool{
	domain.SortCreatedAt: func(a, b *domain.Employee) bool { return a.CreatedAt.Before(b.CreatedAt) },
	domain.SortUpdatedAt: func(a, b *domain.Employee) bool { return a.UpdatedAt.Before(b.UpdatedAt) },
	domain.SortFirstName: func(a, b *domain.Employee) bool { return a.FirstName < b.FirstName },
	domain.SortLastName:  func(a, b *domain.Employee) bool { return a.LastName < b.LastName },
	domain.SortEmail:     func(a, b *domain.Employee) bool { return a.Email < b.Email },
	domain.SortSalary:    func(a, b *domain.Employee) bool { return a.Salary < b.Salary },
	domain.SortStatus:    func(a, b *domain.Employee) bool { return a.Status < b.Status },
}

func cloneEmployee(e *domain.Employee) *domain.Employee {
	out := *e
	out.DateOfBirth = cloneTime(e.DateOfBirth)
	out.StartDate = cloneTime(e.StartDate)
	out.ArchivedAt = cloneTime(e.ArchivedAt)
	out.DeletedAt = cloneTime(e.DeletedAt)
	out.StatusHistory = append([]domain.StatusChange(nil), e.StatusHistory...)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
