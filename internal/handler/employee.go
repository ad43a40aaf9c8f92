package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
	"github.com/aryan0dhankhar/onboardhr/internal/service"
)

// EmployeeHandler handles the admin side of the employee lifecycle
type EmployeeHandler struct {
	employeeService *service.EmployeeService
	logger          *slog.Logger
}

// NewEmployeeHandler creates a new employee handler
func NewEmployeeHandler(employeeService *service.EmployeeService, logger *slog.Logger) *EmployeeHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &EmployeeHandler{
		employeeService: employeeService,
		logger:          logger,
	}
}

// InviteRequest is the body of POST /api/employees/invite
type InviteRequest struct {
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	Email     string         `json:"email"`
	Salary    optionalNumber `json:"salary"`
}

// InviteResponse carries the invited record and its registration link
type InviteResponse struct {
	Employee       *EmployeeResponse `json:"employee"`
	InvitationLink string            `json:"invitationLink"`
}

// Invite handles POST /api/employees/invite
func (h *EmployeeHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req InviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.employeeService.Invite(r.Context(), principal(r), service.InviteInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Salary:    req.Salary.Ptr(),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeData(w, http.StatusCreated, InviteResponse{
		Employee:       newEmployeeResponse(result.Employee),
		InvitationLink: result.InvitationLink,
	})
}

// ResendInvitation handles POST /api/employees/admin/{id}/resend-invitation
func (h *EmployeeHandler) ResendInvitation(w http.ResponseWriter, r *http.Request) {
	result, err := h.employeeService.ResendInvitation(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeData(w, http.StatusOK, InviteResponse{
		Employee:       newEmployeeResponse(result.Employee),
		InvitationLink: result.InvitationLink,
	})
}

// List handles GET /api/employees/admin/all
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	in, err := parseListQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.employeeService.List(r.Context(), principal(r), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	items := make([]*EmployeeResponse, 0, len(result.Items))
	for _, e := range result.Items {
		items = append(items, newEmployeeResponse(e))
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Success:    true,
		Data:       items,
		TotalCount: result.TotalCount,
		TotalPages: result.TotalPages,
		Page:       result.Page,
		Limit:      result.PageSize,
	})
}

// parseListQuery applies the listing defaults; range checks happen in the service
func parseListQuery(r *http.Request) (service.ListInput, error) {
	q := r.URL.Query()
	in := service.DefaultListInput()

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, domain.Validation("page", "page must be a positive integer")
		}
		in.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, domain.Validation("limit", "limit must be a positive integer")
		}
		in.Limit = n
	}
	if v := q.Get("sortBy"); v != "" {
		in.SortBy = v
	}
	if v := q.Get("sortOrder"); v != "" {
		in.SortOrder = v
	}
	in.Status = q.Get("status")
	in.Search = strings.TrimSpace(q.Get("search"))

	var err error
	if in.IncludeDeleted, err = parseBoolParam(q.Get("includeDeleted"), "includeDeleted"); err != nil {
		return in, err
	}
	if in.IncludeArchived, err = parseBoolParam(q.Get("includeArchived"), "includeArchived"); err != nil {
		return in, err
	}
	return in, nil
}

func parseBoolParam(v, field string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, domain.Validation(field, field+" must be true or false")
	}
	return b, nil
}

// Get handles GET /api/employees/admin/{id}
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.employeeService.Get(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newEmployeeResponse(e))
}

// updateRequest lets salary arrive as a number or a numeric string
type updateRequest struct {
	service.AdminUpdateInput
	Salary optionalNumber `json:"salary"`
}

// Update handles PUT /api/employees/admin/{id}
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	in := req.AdminUpdateInput
	in.Salary = req.Salary.Ptr()

	e, err := h.employeeService.AdminUpdate(r.Context(), principal(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newEmployeeResponse(e))
}

// UpdateStatus handles POST /api/employees/{id}/status
func (h *EmployeeHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req service.StatusInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	e, err := h.employeeService.UpdateStatus(r.Context(), principal(r), r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newEmployeeResponse(e))
}

// Archive handles POST /api/employees/admin/{id}/archive
func (h *EmployeeHandler) Archive(w http.ResponseWriter, r *http.Request) {
	var req service.ArchiveInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	e, err := h.employeeService.Archive(r.Context(), principal(r), r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newEmployeeResponse(e))
}

// UnarchiveResponse reports the archive details that were cleared
type UnarchiveResponse struct {
	Employee              *EmployeeResponse `json:"employee"`
	PreviousArchivedAt    *time.Time        `json:"previousArchivedAt,omitempty"`
	PreviousArchivedBy    string            `json:"previousArchivedBy,omitempty"`
	PreviousArchiveReason string            `json:"previousArchiveReason,omitempty"`
}

// Unarchive handles PUT /api/employees/admin/{id}/unarchive
func (h *EmployeeHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	var req service.UnarchiveInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.employeeService.Unarchive(r.Context(), principal(r), r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeData(w, http.StatusOK, UnarchiveResponse{
		Employee:              newEmployeeResponse(result.Employee),
		PreviousArchivedAt:    result.Previous.ArchivedAt,
		PreviousArchivedBy:    result.Previous.ArchivedBy,
		PreviousArchiveReason: result.Previous.ArchiveReason,
	})
}

// Delete handles DELETE /api/employees/admin/{id}
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	e, err := h.employeeService.Delete(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newEmployeeResponse(e))
}

// Restore handles PUT /api/employees/admin/{id}/restore
func (h *EmployeeHandler) Restore(w http.ResponseWriter, r *http.Request) {
	e, err := h.employeeService.Restore(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newEmployeeResponse(e))
}
