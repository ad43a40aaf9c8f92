package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
)

func TestListRejectsBadArguments(t *testing.T) {
	f := newFixture(t)
	admin := f.newOrg(t, "acme")

	tests := []struct {
		name  string
		edit  func(*ListInput)
		field string
	}{
		{"page zero", func(in *ListInput) { in.Page = 0 }, "page"},
		{"limit zero", func(in *ListInput) { in.Limit = 0 }, "limit"},
		{"limit too large", func(in *ListInput) { in.Limit = 101 }, "limit"},
		{"unknown sort field", func(in *ListInput) { in.SortBy = "password" }, "sortBy"},
		{"unknown sort order", func(in *ListInput) { in.SortOrder = "sideways" }, "sortOrder"},
		{"unknown status", func(in *ListInput) { in.Status = "retired" }, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := DefaultListInput()
			tt.edit(&in)
			_, err := f.employees.List(context.Background(), admin, in)
			var de *domain.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, domain.KindValidation, de.Kind)
			assert.Equal(t, tt.field, de.Field)
		})
	}
}

func TestListVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.newOrg(t, "acme")

	active := f.invite(t, admin, "active@x.com").Employee
	archived := f.invite(t, admin, "archived@x.com").Employee
	deleted := f.invite(t, admin, "deleted@x.com").Employee
	_, err := f.employees.Archive(ctx, admin, archived.ID, ArchiveInput{})
	require.NoError(t, err)
	_, err = f.employees.Delete(ctx, admin, deleted.ID)
	require.NoError(t, err)

	res, err := f.employees.List(ctx, admin, DefaultListInput())
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, active.ID, res.Items[0].ID)
	assert.Equal(t, 1, res.TotalCount)

	in := DefaultListInput()
	in.IncludeDeleted = true
	in.IncludeArchived = true
	res, err = f.employees.List(ctx, admin, in)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCount)

	in = DefaultListInput()
	in.IncludeArchived = true
	res, err = f.employees.List(ctx, admin, in)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalCount)
	for _, e := range res.Items {
		assert.False(t, e.IsDeleted)
	}
}

func TestListIsScopedToOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.newOrg(t, "acme")
	globex := f.newOrg(t, "globex")
	f.invite(t, acme, "jane@acme.test")

	res, err := f.employees.List(ctx, globex, DefaultListInput())
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Zero(t, res.TotalPages)
}

func TestListPagingSortAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.newOrg(t, "acme")
	for i := 0; i < 12; i++ {
		salary := float64(1000 * (i + 1))
		_, err := f.employees.Invite(ctx, admin, InviteInput{
			FirstName: fmt.Sprintf("Person%02d", i),
			LastName:  "Smith",
			Email:     fmt.Sprintf("p%02d@x.com", i),
			Salary:    &salary,
		})
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	in := DefaultListInput()
	in.Limit = 5
	in.Page = 3
	res, err := f.employees.List(ctx, admin, in)
	require.NoError(t, err)
	assert.Equal(t, 12, res.TotalCount)
	assert.Equal(t, 3, res.TotalPages)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Person01", res.Items[0].FirstName, "default order is newest first")

	in = DefaultListInput()
	in.SortBy = "salary"
	in.SortOrder = "ASC"
	in.Limit = 1
	res, err = f.employees.List(ctx, admin, in)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, res.Items[0].Salary)

	in = DefaultListInput()
	in.Search = "PERSON07"
	res, err = f.employees.List(ctx, admin, in)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "p07@x.com", res.Items[0].Email)
}

func TestListAppliesLazyExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.newOrg(t, "acme")
	inv := f.invite(t, admin, "jane@x.com")

	f.clock.Advance(DefaultInvitationTTL + time.Second)
	res, err := f.employees.List(ctx, admin, DefaultListInput())
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, domain.InvitationExpired, res.Items[0].InvitationStatus)

	stored, err := f.store.Employees().GetByID(ctx, admin.OrganizationID, inv.Employee.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationExpired, stored.InvitationStatus)
}

func TestListStatusFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.newOrg(t, "acme")
	e := f.registered(t, admin, "jane@x.com", "NID-1")
	f.invite(t, admin, "max@x.com")
	_, err := f.employees.UpdateStatus(ctx, admin, e.ID, StatusInput{Status: "active"})
	require.NoError(t, err)

	in := DefaultListInput()
	in.Status = "active"
	res, err := f.employees.List(ctx, admin, in)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, e.ID, res.Items[0].ID)
}
