package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/autonoos/intake-gateway/internal/apierr"
	"github.com/autonoos/intake-gateway/internal/domain/provider"
)

// SignupService runs the two-phase provider signup.
type SignupService interface {
	SignUp(ctx context.Context, in provider.SignupInput) (*provider.SignupResult, error)
}

// ProviderHandler handles provider onboarding endpoints
type ProviderHandler struct {
	svc    SignupService
	logger *zap.Logger
}

// NewProviderHandler creates a new handler
func NewProviderHandler(svc SignupService, logger *zap.Logger) *ProviderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderHandler{svc: svc, logger: logger}
}

// Routes returns the handler routes
func (h *ProviderHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/signup", h.Signup)
	return r
}

// Signup handles POST /api/provider/signup
func (h *ProviderHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in provider.SignupInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, h.logger, apierr.Validation("invalid request body"))
		return
	}

	result, err := h.svc.SignUp(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
