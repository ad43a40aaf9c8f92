package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/onboardhr/internal/service"
)

// OrganizationHandler serves the caller's tenant record
type OrganizationHandler struct {
	orgService *service.OrganizationService
	logger     *slog.Logger
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(orgService *service.OrganizationService, logger *slog.Logger) *OrganizationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrganizationHandler{orgService: orgService, logger: logger}
}

// ServeHTTP handles GET /api/organization
func (h *OrganizationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	org, err := h.orgService.Get(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newOrganizationResponse(org))
}
