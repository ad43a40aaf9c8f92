package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
)

var base = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func newEmployee(org, email string, n int) *domain.Employee {
	return domain.NewInvitedEmployee(org, "adm-1", fmt.Sprintf("First%02d", n), "Last", email, float64(n*100),
		fmt.Sprintf("secret-%s", email), base.Add(time.Duration(n)*time.Minute), 7*24*time.Hour)
}

func TestSetupUniqueness(t *testing.T) {
	ctx := context.Background()
	orgs := NewMemoryStore().Organizations()

	org := &domain.Organization{ID: "o1", Name: "Acme Law", Email: "hq@acme.test"}
	admin := &domain.Admin{ID: "a1", Username: "root", Email: "root@acme.test", OrganizationID: "o1", Role: domain.RoleAdmin}
	require.NoError(t, orgs.CreateWithAdmin(ctx, org, admin))

	err := orgs.CreateWithAdmin(ctx,
		&domain.Organization{ID: "o2", Name: "ACME LAW", Email: "other@acme.test"},
		&domain.Admin{ID: "a2", Username: "x", Email: "x@acme.test"})
	assert.True(t, domain.IsConflictOn(err, "organizationName"))

	err = orgs.CreateWithAdmin(ctx,
		&domain.Organization{ID: "o3", Name: "Other", Email: "o@other.test"},
		&domain.Admin{ID: "a3", Username: "y", Email: "ROOT@acme.test"})
	assert.True(t, domain.IsConflictOn(err, "email"))

	got, err := orgs.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Law", got.Name)
	_, err = orgs.GetByID(ctx, "o3")
	assert.ErrorIs(t, err, domain.ErrNotFound, "failed setup must not leave a partial organization")
}

func TestEmployeeTenantScoping(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Employees()
	e := newEmployee("org-a", "jane@x.com", 1)
	require.NoError(t, repo.Create(ctx, e))

	_, err := repo.GetByID(ctx, "org-b", e.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.GetByEmail(ctx, "org-b", "jane@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := repo.GetByEmail(ctx, "org-a", "JANE@x.com")
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
}

func TestEmployeeUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Employees()
	a := newEmployee("org-a", "a@x.com", 1)
	a.NationalID = "NID-1"
	require.NoError(t, repo.Create(ctx, a))

	dup := newEmployee("org-b", "A@X.com", 2)
	assert.True(t, domain.IsConflictOn(repo.Create(ctx, dup), "email"))

	b := newEmployee("org-a", "b@x.com", 3)
	require.NoError(t, repo.Create(ctx, b))
	b.NationalID = "NID-1"
	assert.True(t, domain.IsConflictOn(repo.Update(ctx, b), "nationalId"))
}

func TestUpdateCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Employees()
	e := newEmployee("org-a", "a@x.com", 1)
	require.NoError(t, repo.Create(ctx, e))
	assert.Equal(t, 1, e.Version)

	first, err := repo.GetByID(ctx, "org-a", e.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, "org-a", e.ID)
	require.NoError(t, err)

	require.NoError(t, first.ChangeStatus(domain.StatusActive, "adm", "", "", base, false))
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, 2, first.Version)

	require.NoError(t, second.Archive("adm", "", "", base))
	assert.ErrorIs(t, repo.Update(ctx, second), domain.ErrConcurrentUpdate)

	stored, err := repo.GetByID(ctx, "org-a", e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, stored.Status)
	assert.Equal(t, domain.EmploymentEmployed, stored.EmploymentStatus)
	assert.Len(t, stored.StatusHistory, 1)

	other := *stored
	other.OrganizationID = "org-b"
	assert.ErrorIs(t, repo.Update(ctx, &other), domain.ErrNotFound)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Employees()
	e := newEmployee("org-a", "a@x.com", 1)
	require.NoError(t, repo.Create(ctx, e))

	got, err := repo.GetByID(ctx, "org-a", e.ID)
	require.NoError(t, err)
	got.FirstName = "Mutated"

	again, err := repo.GetByID(ctx, "org-a", e.ID)
	require.NoError(t, err)
	assert.Equal(t, "First01", again.FirstName)
}

func TestListVisibilityAndPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Employees()
	var all []*domain.Employee
	for i := 1; i <= 5; i++ {
		e := newEmployee("org-a", fmt.Sprintf("e%d@x.com", i), i)
		require.NoError(t, repo.Create(ctx, e))
		all = append(all, e)
	}
	require.NoError(t, repo.Create(ctx, newEmployee("org-b", "foreign@x.com", 9)))

	require.NoError(t, all[0].SoftDelete("adm", base))
	require.NoError(t, repo.Update(ctx, all[0]))
	require.NoError(t, all[1].Archive("adm", "", "", base))
	require.NoError(t, repo.Update(ctx, all[1]))

	q := domain.ListQuery{OrganizationID: "org-a", Page: 1, PageSize: 10, SortField: domain.SortCreatedAt, SortDir: domain.SortAsc}
	res, err := repo.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCount)
	for _, e := range res.Items {
		assert.False(t, e.IsDeleted)
		assert.Equal(t, domain.EmploymentEmployed, e.EmploymentStatus)
		assert.Equal(t, "org-a", e.OrganizationID)
	}

	q.IncludeDeleted, q.IncludeArchived = true, true
	q.PageSize = 2
	res, err = repo.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalCount)
	assert.Equal(t, 3, res.TotalPages)
	require.Len(t, res.Items, 2)
	assert.Equal(t, all[0].ID, res.Items[0].ID)

	q.Page = 3
	res, err = repo.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, all[4].ID, res.Items[0].ID)
}

func TestListSearchSortAndStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Employees()
	for i := 1; i <= 3; i++ {
		e := newEmployee("org-a", fmt.Sprintf("e%d@x.com", i), i)
		if i == 2 {
			e.Department = "Litigation"
			require.NoError(t, e.ChangeStatus(domain.StatusActive, "adm", "", "", base, false))
		}
		require.NoError(t, repo.Create(ctx, e))
	}

	res, err := repo.List(ctx, domain.ListQuery{OrganizationID: "org-a", Page: 1, PageSize: 10,
		SortField: domain.SortSalary, SortDir: domain.SortDesc, Search: "LITIG"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "e2@x.com", res.Items[0].Email)

	res, err = repo.List(ctx, domain.ListQuery{OrganizationID: "org-a", Page: 1, PageSize: 10,
		SortField: domain.SortSalary, SortDir: domain.SortDesc})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, 300.0, res.Items[0].Salary)
	assert.Equal(t, 100.0, res.Items[2].Salary)

	res, err = repo.List(ctx, domain.ListQuery{OrganizationID: "org-a", Page: 1, PageSize: 10,
		SortField: domain.SortEmail, SortDir: domain.SortAsc, Status: domain.StatusActive})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "e2@x.com", res.Items[0].Email)
}
