package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/onboardhr/internal/service"
)

// AuthHandler handles organization setup and session endpoints
type AuthHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// SetupResponse is returned once an organization has been initialized
type SetupResponse struct {
	SessionResponse
	Organization *OrganizationResponse `json:"organization"`
}

// Setup handles POST /api/setup/initialize
func (h *AuthHandler) Setup(w http.ResponseWriter, r *http.Request) {
	var req service.SetupInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	session, org, err := h.authService.Setup(r.Context(), req)
	if err != nil {
		h.logger.Info("organization setup failed", slog.String("error", err.Error()))
		writeError(w, r, h.logger, err)
		return
	}

	writeData(w, http.StatusCreated, SetupResponse{
		SessionResponse: sessionResponse(session),
		Organization:    newOrganizationResponse(org),
	})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	session, err := h.authService.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user logged in",
		slog.String("principal_id", session.Principal.ID),
		slog.String("role", string(session.Principal.Role)),
	)
	writeData(w, http.StatusOK, sessionResponse(session))
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, err := h.authService.Me(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{
		"role": string(session.Principal.Role),
		"user": userView(session.Admin, session.Employee),
	})
}

func sessionResponse(s *service.Session) SessionResponse {
	return SessionResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		Role:      string(s.Principal.Role),
		User:      userView(s.Admin, s.Employee),
	}
}
