package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
	"github.com/aryan0dhankhar/onboardhr/internal/events"
	"github.com/aryan0dhankhar/onboardhr/internal/repository"
	"github.com/aryan0dhankhar/onboardhr/internal/security/audit"
	"github.com/aryan0dhankhar/onboardhr/internal/security/auth"
	"github.com/aryan0dhankhar/onboardhr/internal/security/ratelimit"
	"github.com/aryan0dhankhar/onboardhr/internal/service"
)

var baseTime = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

type testServer struct {
	handler http.Handler
	hub     *events.Hub
	secrets int
}

func newTestServer(t *testing.T, throttle ratelimit.Throttle, checks map[string]Pinger) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := func() time.Time { return baseTime }

	store := repository.NewMemoryStore()
	tokens := auth.NewTokenManager("handler-test-secret", "onboardhr-test", 0).WithClock(now)
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	auditLog := audit.NewLogger(logger)
	ts := &testServer{hub: events.NewHub(logger)}

	authService := service.NewAuthService(store.Organizations(), store.Admins(), store.Employees(), tokens, hasher, auditLog, logger)
	authService.SetClock(now)
	employeeService := service.NewEmployeeService(store.Employees(), store.Organizations(), tokens, hasher, nil, ts.hub, auditLog,
		service.EmployeeServiceConfig{FrontendURL: "https://hr.example.com"}, logger)
	employeeService.SetClock(now)
	employeeService.SetSecretSource(func() (string, error) {
		ts.secrets++
		return fmt.Sprintf("secret-%03d", ts.secrets), nil
	})

	ts.handler = NewRouter(RouterConfig{
		AuthService:         authService,
		EmployeeService:     employeeService,
		OrganizationService: service.NewOrganizationService(store.Organizations(), logger),
		Hub:                 ts.hub,
		AuditLogger:         auditLog,
		Throttle:            throttle,
		HealthChecks:        checks,
		AllowedOrigins:      []string{"http://localhost:3000"},
		Logger:              logger,
	})
	return ts
}

type apiResponse struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Code       string          `json:"code"`
	Field      string          `json:"field"`
	TotalCount int             `json:"totalCount"`
	TotalPages int             `json:"totalPages"`
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func setupBody(name string) map[string]any {
	return map[string]any{
		"organization": map[string]any{
			"name":          name,
			"email":         "contact@" + name + ".test",
			"practiceAreas": []string{"corporate"},
		},
		"superAdmin": map[string]any{
			"username": name + "-admin",
			"email":    "admin@" + name + ".test",
			"password": "correct-horse",
		},
	}
}

// setupOrg initializes an organization and returns its admin token
func (ts *testServer) setupOrg(t *testing.T, name string) string {
	t.Helper()
	code, resp := ts.do(t, http.MethodPost, "/api/setup/initialize", "", setupBody(name))
	require.Equal(t, http.StatusCreated, code, resp.Error)
	var data SessionResponse
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func (ts *testServer) invite(t *testing.T, adminToken, email string, salary any) (string, EmployeeResponse) {
	t.Helper()
	body := map[string]any{"firstName": "Jane", "lastName": "Doe", "email": email}
	if salary != nil {
		body["salary"] = salary
	}
	code, resp := ts.do(t, http.MethodPost, "/api/employees/invite", adminToken, body)
	require.Equal(t, http.StatusCreated, code, resp.Error)
	var data struct {
		Employee       EmployeeResponse `json:"employee"`
		InvitationLink string           `json:"invitationLink"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data.InvitationLink[strings.LastIndex(data.InvitationLink, "/")+1:], data.Employee
}

func registrationBody(nationalID string) map[string]any {
	return map[string]any{
		"phone":         "+254700000000",
		"address":       "1 Harambee Ave",
		"gender":        "female",
		"dateOfBirth":   "1990-05-20",
		"age":           35,
		"nationalId":    nationalID,
		"employeeType":  "advocate",
		"licenseNumber": "LSK-42",
		"department":    "Litigation",
		"position":      "Associate",
		"startDate":     "2026-02-01",
		"emergencyContact": map[string]any{
			"name":         "John Doe",
			"phone":        "+254711111111",
			"relationship": "spouse",
		},
		"password":        "s3cret-pass",
		"confirmPassword": "s3cret-pass",
	}
}

// register completes an invitation and returns the employee session token
func (ts *testServer) register(t *testing.T, secret, nationalID string) (string, EmployeeResponse) {
	t.Helper()
	code, resp := ts.do(t, http.MethodPost, "/api/employees/register/"+secret, "", registrationBody(nationalID))
	require.Equal(t, http.StatusCreated, code, resp.Error)
	var data RegistrationResponse
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data.Token, *data.Employee
}

// activate moves a registered employee to active so their session is accepted
func (ts *testServer) activate(t *testing.T, adminToken, id string) {
	t.Helper()
	code, resp := ts.do(t, http.MethodPost, "/api/employees/"+id+"/status", adminToken, map[string]string{"status": "active"})
	require.Equal(t, http.StatusOK, code, resp.Error)
}

func TestSetupAndMe(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	token := ts.setupOrg(t, "acme")

	code, resp := ts.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	var me struct {
		Role string        `json:"role"`
		User AdminResponse `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &me))
	assert.Equal(t, "admin", me.Role)
	assert.Equal(t, "admin@acme.test", me.User.Email)

	code, resp = ts.do(t, http.MethodPost, "/api/setup/initialize", "", setupBody("acme"))
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Conflict", resp.Code)
}

func TestSetupValidation(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	body := setupBody("acme")
	body["superAdmin"].(map[string]any)["password"] = "short"

	code, resp := ts.do(t, http.MethodPost, "/api/setup/initialize", "", body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "ValidationError", resp.Code)
	assert.Equal(t, "superAdmin.password", resp.Field)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	ts.setupOrg(t, "acme")

	code, resp := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ADMIN@acme.test", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, code, resp.Error)
	var session SessionResponse
	require.NoError(t, json.Unmarshal(resp.Data, &session))
	assert.Equal(t, "admin", session.Role)
	assert.NotEmpty(t, session.Token)

	code, resp = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "admin@acme.test", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "InvalidCredentials", resp.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	code, resp := ts.do(t, http.MethodGet, "/api/employees/admin/all", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, resp.Success)

	code, _ = ts.do(t, http.MethodGet, "/api/employees/admin/all", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestEmployeeTokenCannotListEmployees(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	admin := ts.setupOrg(t, "acme")
	secret, _ := ts.invite(t, admin, "jane@acme.test", nil)
	employeeToken, e := ts.register(t, secret, "NID-1")
	ts.activate(t, admin, e.ID)

	code, resp := ts.do(t, http.MethodGet, "/api/employees/admin/all", employeeToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Forbidden", resp.Code)

	code, _ = ts.do(t, http.MethodPost, "/api/employees/invite", employeeToken, map[string]string{"firstName": "A", "lastName": "B", "email": "a@b.test"})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestAdminTokenCannotUseProfile(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	admin := ts.setupOrg(t, "acme")

	code, _ := ts.do(t, http.MethodGet, "/api/employees/profile", admin, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestCrossTenantAccessIsNotFound(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	adminA := ts.setupOrg(t, "acme")
	adminB := ts.setupOrg(t, "globex")
	_, employeeB := ts.invite(t, adminB, "bob@globex.test", nil)

	code, resp := ts.do(t, http.MethodGet, "/api/employees/admin/"+employeeB.ID, adminA, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NotFound", resp.Code)

	code, _ = ts.do(t, http.MethodDelete, "/api/employees/admin/"+employeeB.ID, adminA, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = ts.do(t, http.MethodPost, "/api/employees/"+employeeB.ID+"/status", adminA, map[string]string{"status": "active"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = ts.do(t, http.MethodGet, "/api/employees/admin/"+employeeB.ID, adminB, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestInviteSalaryInput(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	admin := ts.setupOrg(t, "acme")

	_, e := ts.invite(t, admin, "none@acme.test", nil)
	assert.Equal(t, 0.0, e.Salary)
	assert.Equal(t, "pending", e.InvitationStatus)
	assert.Equal(t, "pending", e.Status)
	assert.NotNil(t, e.InvitationExpires)

	_, e = ts.invite(t, admin, "blank@acme.test", "")
	assert.Equal(t, 0.0, e.Salary)

	_, e = ts.invite(t, admin, "string@acme.test", "1500.50")
	assert.Equal(t, 1500.5, e.Salary)

	_, e = ts.invite(t, admin, "number@acme.test", 42000)
	assert.Equal(t, 42000.0, e.Salary)

	code, resp := ts.do(t, http.MethodPost, "/api/employees/invite", admin, map[string]any{
		"firstName": "Jane", "lastName": "Doe", "email": "bad@acme.test", "salary": "lots",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "salary", resp.Field)

	code, resp = ts.do(t, http.MethodPost, "/api/employees/invite", admin, map[string]any{
		"firstName": "Jane", "lastName": "Doe", "email": "neg@acme.test", "salary": -1,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "salary", resp.Field)
}

func TestInviteRegisterFlow(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	admin := ts.setupOrg(t, "acme")
	secret, invited := ts.invite(t, admin, "jane@acme.test", 1000)

	code, resp := ts.do(t, http.MethodPost, "/api/employees/invite", admin, map[string]string{"firstName": "Jane", "lastName": "Doe", "email": "jane@acme.test"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "InvitationAlreadySent", resp.Code)

	code, resp = ts.do(t, http.MethodGet, "/api/employees/register/"+secret, "", nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	var inv InvitationResponse
	require.NoError(t, json.Unmarshal(resp.Data, &inv))
	assert.Equal(t, "jane@acme.test", inv.Employee.Email)
	require.NotNil(t, inv.Organization)
	assert.Equal(t, "acme", inv.Organization.Name)

	code, resp = ts.do(t, http.MethodGet, "/api/employees/register/unknown-secret", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "InvalidInvitation", resp.Code)

	bad := registrationBody("NID-1")
	bad["age"] = 30
	code, resp = ts.do(t, http.MethodPost, "/api/employees/register/"+secret, "", bad)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "age", resp.Field)

	token, e := ts.register(t, secret, "NID-1")
	assert.Equal(t, invited.ID, e.ID)
	assert.Equal(t, "completed", e.InvitationStatus)
	assert.Equal(t, "pending", e.Status)
	assert.Equal(t, 1000.0, e.Salary)
	assert.Equal(t, "1990-05-20", e.DateOfBirth)
	assert.Nil(t, e.InvitationExpires)

	code, _ = ts.do(t, http.MethodPost, "/api/employees/register/"+secret, "", registrationBody("NID-1"))
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = ts.do(t, http.MethodGet, "/api/employees/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "AccountNotActive", resp.Code)

	code, resp = ts.do(t, http.MethodPost, "/api/employees/invite", admin, map[string]string{"firstName": "Jane", "lastName": "Doe", "email": "jane@acme.test"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "AlreadyRegistered", resp.Code)

	// pending status blocks password login until an admin activates the account
	code, resp = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "jane@acme.test", "password": "s3cret-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "AccountNotActive", resp.Code)

	code, _ = ts.do(t, http.MethodPost, "/api/employees/"+e.ID+"/status", admin, map[string]string{"status": "active", "reason": "approved"})
	require.Equal(t, http.StatusOK, code)

	// the registration session becomes usable once the account is active
	code, resp = ts.do(t, http.MethodGet, "/api/employees/profile", token, nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	var profile EmployeeResponse
	require.NoError(t, json.Unmarshal(resp.Data, &profile))
	assert.Equal(t, "LSK-42", profile.LicenseNumber)

	code, _ = ts.do(t, http.MethodPost, "/api/employees/"+e.ID+"/status", admin, map[string]string{"status": "inactive"})
	require.Equal(t, http.StatusOK, code)
	code, resp = ts.do(t, http.MethodGet, "/api/employees/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "AccountNotActive", resp.Code)

	code, _ = ts.do(t, http.MethodPost, "/api/employees/"+e.ID+"/status", admin, map[string]string{"status": "active"})
	require.Equal(t, http.StatusOK, code)

	code, resp = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "jane@acme.test", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, code, resp.Error)
	var session SessionResponse
	require.NoError(t, json.Unmarshal(resp.Data, &session))
	assert.Equal(t, "employee", session.Role)
}

func TestProfileSelfService(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	admin := ts.setupOrg(t, "acme")
	secret, _ := ts.invite(t, admin, "jane@acme.test", nil)
	token, e := ts.register(t, secret, "NID-1")
	ts.activate(t, admin, e.ID)

	code, resp := ts.do(t, http.MethodPut, "/api/employees/profile", token, map[string]any{"phone": "+254722222222"})
	require.Equal(t, http.StatusOK, code, resp.Error)
	var profile EmployeeResponse
	require.NoError(t, json.Unmarshal(resp.Data, &profile))
	assert.Equal(t, "+254722222222", profile.Phone)
	assert.Equal(t, "1 Harambee Ave", profile.Address)

	code, resp = ts.do(t, http.MethodPut, "/api/employees/profile/password", token, map[string]string{
		"currentPassword": "wrong", "newPassword": "new-secret-1", "confirmPassword": "new-secret-1",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "currentPassword", resp.Field)

	code, resp = ts.do(t, http.MethodPut, "/api/employees/profile/password", token, map[string]string{
		"currentPassword": "s3cret-pass", "newPassword": "new-secret-1", "confirmPassword": "new-secret-1",
	})
	assert.Equal(t, http.StatusOK, code, resp.Error)
}

func TestLifecycleRoutes(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	admin := ts.setupOrg(t, "acme")
	secret, _ := ts.invite(t, admin, "jane@acme.test", nil)
	_, e := ts.register(t, secret, "NID-1")
	base := "/api/employees/admin/" + e.ID

	code, resp := ts.do(t, http.MethodPost, base+"/archive", admin, map[string]string{"reason": "resigned"})
	require.Equal(t, http.StatusOK, code, resp.Error)
	var archived EmployeeResponse
	require.NoError(t, json.Unmarshal(resp.Data, &archived))
	assert.Equal(t, "archived", archived.EmploymentStatus)
	assert.Equal(t, "terminated", archived.Status)
	assert.Equal(t, "resigned", archived.ArchiveReason)

	code, resp = ts.do(t, http.MethodPost, base+"/archive", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "AlreadyArchived", resp.Code)

	code, resp = ts.do(t, http.MethodPost, "/api/employees/"+e.ID+"/status", admin, map[string]string{"status": "active"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "EmployeeArchived", resp.Code)

	code, resp = ts.do(t, http.MethodPut, base+"/unarchive", admin, nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	var unarchived UnarchiveResponse
	require.NoError(t, json.Unmarshal(resp.Data, &unarchived))
	assert.Equal(t, "employed", unarchived.Employee.EmploymentStatus)
	assert.Equal(t, "pending", unarchived.Employee.Status)
	assert.Equal(t, "resigned", unarchived.PreviousArchiveReason)

	code, _ = ts.do(t, http.MethodDelete, base, admin, nil)
	require.Equal(t, http.StatusOK, code)

	code, resp = ts.do(t, http.MethodGet, "/api/employees/admin/all", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, resp.TotalCount)

	code, resp = ts.do(t, http.MethodGet, "/api/employees/admin/all?includeDeleted=true", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, resp.TotalCount)
	assert.Equal(t, 1, resp.TotalPages)

	code, resp = ts.do(t, http.MethodDelete, base, admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "AlreadyDeleted", resp.Code)

	code, _ = ts.do(t, http.MethodPut, base+"/restore", admin, nil)
	require.Equal(t, http.StatusOK, code)

	code, resp = ts.do(t, http.MethodGet, base, admin, nil)
	require.Equal(t, http.StatusOK, code)
	var got EmployeeResponse
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.False(t, got.IsDeleted)
	assert.NotEmpty(t, got.StatusHistory)
}

func TestEmployeeActionRouting(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	admin := ts.setupOrg(t, "acme")
	secret, _ := ts.invite(t, admin, "jane@acme.test", nil)
	_, e := ts.register(t, secret, "NID-1")

	code, resp := ts.do(t, http.MethodPost, "/api/employees/"+e.ID+"/status", admin, map[string]string{"status": "active"})
	require.Equal(t, http.StatusOK, code, resp.Error)
	var updated EmployeeResponse
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.Equal(t, "active", updated.Status)

	code, _ = ts.do(t, http.MethodPost, "/api/employees/"+e.ID+"/status", "", map[string]string{"status": "inactive"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, resp = ts.do(t, http.MethodPost, "/api/employees/register/status", "", registrationBody("NID-2"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "InvalidInvitation", resp.Code)

	code, resp = ts.do(t, http.MethodPost, "/api/employees/"+e.ID+"/promote", admin, map[string]string{})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NotFound", resp.Code)
}

func TestAdminUpdate(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	admin := ts.setupOrg(t, "acme")
	secret, _ := ts.invite(t, admin, "jane@acme.test", nil)
	_, e := ts.register(t, secret, "NID-1")

	code, resp := ts.do(t, http.MethodPut, "/api/employees/admin/"+e.ID, admin, map[string]any{"salary": "2500", "position": "Partner"})
	require.Equal(t, http.StatusOK, code, resp.Error)
	var updated EmployeeResponse
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.Equal(t, 2500.0, updated.Salary)
	assert.Equal(t, "Partner", updated.Position)
	assert.Equal(t, "pending", updated.Status)
}

func TestListQueryValidation(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	admin := ts.setupOrg(t, "acme")

	cases := map[string]string{
		"/api/employees/admin/all?limit=500":            "limit",
		"/api/employees/admin/all?page=0":               "page",
		"/api/employees/admin/all?page=abc":             "page",
		"/api/employees/admin/all?sortBy=password":      "sortBy",
		"/api/employees/admin/all?sortOrder=sideways":   "sortOrder",
		"/api/employees/admin/all?status=retired":       "status",
		"/api/employees/admin/all?includeDeleted=maybe": "includeDeleted",
	}
	for path, field := range cases {
		code, resp := ts.do(t, http.MethodGet, path, admin, nil)
		assert.Equal(t, http.StatusBadRequest, code, path)
		assert.Equal(t, field, resp.Field, path)
	}
}

func TestListPagination(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	admin := ts.setupOrg(t, "acme")
	for i := 0; i < 3; i++ {
		ts.invite(t, admin, fmt.Sprintf("e%d@acme.test", i), nil)
	}

	code, resp := ts.do(t, http.MethodGet, "/api/employees/admin/all?limit=2&page=2&sortBy=email&sortOrder=asc", admin, nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, 3, resp.TotalCount)
	assert.Equal(t, 2, resp.TotalPages)
	var items []EmployeeResponse
	require.NoError(t, json.Unmarshal(resp.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "e2@acme.test", items[0].Email)
}

func TestOrganizationEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	admin := ts.setupOrg(t, "acme")

	code, resp := ts.do(t, http.MethodGet, "/api/organization", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var org OrganizationResponse
	require.NoError(t, json.Unmarshal(resp.Data, &org))
	assert.Equal(t, "acme", org.Name)
	assert.Equal(t, []string{"corporate"}, org.PracticeAreas)
}

func TestLoginIsThrottled(t *testing.T) {
	limiter := ratelimit.NewLimiter(1000, time.Minute)
	t.Cleanup(limiter.Stop)
	ts := newTestServer(t, ratelimit.NewMemoryThrottle(limiter, 2, time.Minute), nil)

	creds := map[string]string{"email": "nobody@acme.test", "password": "whatever"}
	for i := 0; i < 2; i++ {
		code, _ := ts.do(t, http.MethodPost, "/api/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, code)
	}
	code, resp := ts.do(t, http.MethodPost, "/api/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "RateLimited", resp.Code)
}

func TestContentTypeIsEnforced(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@b.test"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestMalformedBody(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndReadiness(t *testing.T) {
	ts := newTestServer(t, nil, map[string]Pinger{
		"database": PingFunc(func(context.Context) error { return nil }),
		"redis":    nil,
	})

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var ready ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, "ok", ready.Checks["database"])
	assert.Equal(t, "not configured", ready.Checks["redis"])

	down := newTestServer(t, nil, map[string]Pinger{
		"database": PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	rec = httptest.NewRecorder()
	down.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWriteErrorHidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	writeError(rec, req, slog.New(slog.NewTextHandler(io.Discard, nil)), fmt.Errorf("failed to query: %w", errors.New("pq: password authentication failed")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq:")
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestStatusForKinds(t *testing.T) {
	cases := map[domain.Kind]int{
		domain.KindValidation:      http.StatusBadRequest,
		domain.KindInvalidState:    http.StatusBadRequest,
		domain.KindUnauthenticated: http.StatusUnauthorized,
		domain.KindForbidden:       http.StatusForbidden,
		domain.KindNotFound:        http.StatusNotFound,
		domain.KindConflict:        http.StatusConflict,
		domain.KindFatal:           http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, statusFor(kind), string(kind))
	}
}

func TestEventStream(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	admin := ts.setupOrg(t, "acme")
	orgID := mustOrgID(t, ts, admin)
	srv := httptest.NewServer(ts.handler)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events?token=" + admin
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool {
		return ts.hub.Subscribers(orgID) == 1
	}, time.Second, 10*time.Millisecond)

	ts.invite(t, admin, "jane@acme.test", nil)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event domain.Event
	require.NoError(t, ws.ReadJSON(&event))
	assert.Equal(t, domain.EventEmployeeInvited, event.Type)
}

func TestEventStreamRequiresAdmin(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	srv := httptest.NewServer(ts.handler)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func mustOrgID(t *testing.T, ts *testServer, token string) string {
	t.Helper()
	code, resp := ts.do(t, http.MethodGet, "/api/organization", token, nil)
	require.Equal(t, http.StatusOK, code)
	var org OrganizationResponse
	require.NoError(t, json.Unmarshal(resp.Data, &org))
	return org.ID
}
