package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/onboardhr/internal/service"
)

// ProfileHandler serves an employee's own record
type ProfileHandler struct {
	employeeService *service.EmployeeService
	logger          *slog.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(employeeService *service.EmployeeService, logger *slog.Logger) *ProfileHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &ProfileHandler{
		employeeService: employeeService,
		logger:          logger,
	}
}

// Get handles GET /api/employees/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.employeeService.GetProfile(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newEmployeeResponse(e))
}

// Update handles PUT /api/employees/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.ProfileUpdateInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	e, err := h.employeeService.UpdateProfile(r.Context(), principal(r), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newEmployeeResponse(e))
}

// ChangePassword handles PUT /api/employees/profile/password
func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req service.ChangePasswordInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.employeeService.ChangePassword(r.Context(), principal(r), req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"message": "password updated"})
}
