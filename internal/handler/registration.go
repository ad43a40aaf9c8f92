package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aryan0dhankhar/onboardhr/internal/service"
)

// RegistrationHandler serves the public invitation endpoints
type RegistrationHandler struct {
	employeeService *service.EmployeeService
	logger          *slog.Logger
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(employeeService *service.EmployeeService, logger *slog.Logger) *RegistrationHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &RegistrationHandler{
		employeeService: employeeService,
		logger:          logger,
	}
}

// InvitationResponse is what an invitee sees before registering
type InvitationResponse struct {
	Employee struct {
		FirstName string    `json:"firstName"`
		LastName  string    `json:"lastName"`
		Email     string    `json:"email"`
		Salary    float64   `json:"salary"`
		ExpiresAt time.Time `json:"expiresAt"`
	} `json:"employee"`
	Organization *OrganizationResponse `json:"organization,omitempty"`
}

// GetInvitation handles GET /api/employees/register/{token}
func (h *RegistrationHandler) GetInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := h.employeeService.GetInvitation(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var resp InvitationResponse
	resp.Employee.FirstName = inv.Employee.FirstName
	resp.Employee.LastName = inv.Employee.LastName
	resp.Employee.Email = inv.Employee.Email
	resp.Employee.Salary = inv.Employee.Salary
	resp.Employee.ExpiresAt = inv.Employee.InvitationExpires
	resp.Organization = newOrganizationResponse(inv.Organization)
	writeData(w, http.StatusOK, resp)
}

type registrationRequest struct {
	service.RegistrationInput
	Salary optionalNumber `json:"salary"`
}

// RegistrationResponse carries the registered record and its first session
type RegistrationResponse struct {
	Employee  *EmployeeResponse `json:"employee"`
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// Register handles POST /api/employees/register/{token}
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	in := req.RegistrationInput
	in.Salary = req.Salary.Ptr()

	result, err := h.employeeService.CompleteRegistration(r.Context(), r.PathValue("token"), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeData(w, http.StatusCreated, RegistrationResponse{
		Employee:  newEmployeeResponse(result.Employee),
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}
