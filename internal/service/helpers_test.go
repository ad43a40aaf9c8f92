package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
	"github.com/aryan0dhankhar/onboardhr/internal/repository"
	"github.com/aryan0dhankhar/onboardhr/internal/security/audit"
	"github.com/aryan0dhankhar/onboardhr/internal/security/auth"
)

var baseTime = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeQueue struct {
	mu   sync.Mutex
	msgs []domain.InvitationMessage
}

func (q *fakeQueue) Enqueue(_ context.Context, msg domain.InvitationMessage) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, msg)
	return true
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (f *fakeEvents) Publish(_ context.Context, e domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEvents) types() []domain.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store     *repository.MemoryStore
	clock     *testClock
	tokens    *auth.TokenManager
	auth      *AuthService
	employees *EmployeeService
	orgs      *OrganizationService
	queue     *fakeQueue
	events    *fakeEvents
	secrets   int
}

type fixtureOption func(*EmployeeServiceConfig)

func strictTransitions(cfg *EmployeeServiceConfig) { cfg.StrictStatusTransitions = true }

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, nil, opts...)
}

// newFixtureWithRepo lets a test wrap the employee repository
func newFixtureWithRepo(t *testing.T, wrap func(domain.EmployeeRepository) domain.EmployeeRepository, opts ...fixtureOption) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		store:  repository.NewMemoryStore(),
		clock:  &testClock{now: baseTime},
		queue:  &fakeQueue{},
		events: &fakeEvents{},
	}
	f.tokens = auth.NewTokenManager("test-signing-secret", "onboardhr-test", 0).WithClock(f.clock.Now)
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	auditLog := audit.NewLogger(logger)

	employees := f.store.Employees()
	if wrap != nil {
		employees = wrap(employees)
	}

	f.auth = NewAuthService(f.store.Organizations(), f.store.Admins(), employees, f.tokens, hasher, auditLog, logger)
	f.auth.SetClock(f.clock.Now)

	cfg := EmployeeServiceConfig{FrontendURL: "https://hr.example.com/"}
	for _, opt := range opts {
		opt(&cfg)
	}
	f.employees = NewEmployeeService(employees, f.store.Organizations(), f.tokens, hasher, f.queue, f.events, auditLog, cfg, logger)
	f.employees.SetClock(f.clock.Now)
	f.employees.SetSecretSource(func() (string, error) {
		f.secrets++
		return fmt.Sprintf("invite-secret-%03d", f.secrets), nil
	})
	f.orgs = NewOrganizationService(f.store.Organizations(), logger)
	return f
}

func setupInput(name string) SetupInput {
	return SetupInput{
		Organization: OrganizationInput{
			Name:          name,
			Email:         "contact@" + name + ".test",
			Country:       "KE",
			Industry:      "legal",
			PracticeAreas: []string{"corporate", "tax"},
		},
		SuperAdmin: SuperAdminInput{
			Username: name + "-admin",
			Email:    "admin@" + name + ".test",
			Password: "correct-horse",
		},
	}
}

// newOrg creates an organization and returns its super-admin principal
func (f *fixture) newOrg(t *testing.T, name string) domain.Principal {
	t.Helper()
	session, _, err := f.auth.Setup(context.Background(), setupInput(name))
	require.NoError(t, err)
	return session.Principal
}

func (f *fixture) invite(t *testing.T, admin domain.Principal, email string) *InviteResult {
	t.Helper()
	res, err := f.employees.Invite(context.Background(), admin, InviteInput{FirstName: "Jane", LastName: "Doe", Email: email})
	require.NoError(t, err)
	return res
}

func validRegistration() RegistrationInput {
	return RegistrationInput{
		Phone:        "+254700000000",
		Address:      "1 Harambee Ave",
		Gender:       "female",
		DateOfBirth:  "1990-05-20",
		Age:          35,
		NationalID:   "NID-1001",
		EmployeeType: "staff",
		Department:   "Litigation",
		Position:     "Paralegal",
		StartDate:    "2026-02-01",
		EmergencyContact: EmergencyContactInput{
			Name:         "John Doe",
			Phone:        "+254711111111",
			Relationship: "spouse",
		},
		Password:        "s3cret-pass",
		ConfirmPassword: "s3cret-pass",
	}
}

func secretOf(link string) string {
	return link[strings.LastIndex(link, "/")+1:]
}

// registered invites and registers an employee, returning its record
func (f *fixture) registered(t *testing.T, admin domain.Principal, email, nationalID string) *domain.Employee {
	t.Helper()
	inv := f.invite(t, admin, email)
	in := validRegistration()
	in.NationalID = nationalID
	res, err := f.employees.CompleteRegistration(context.Background(), secretOf(inv.InvitationLink), in)
	require.NoError(t, err)
	return res.Employee
}

func employeePrincipal(e *domain.Employee) domain.Principal {
	return domain.Principal{ID: e.ID, Email: e.Email, OrganizationID: e.OrganizationID, Role: domain.RoleEmployee}
}
