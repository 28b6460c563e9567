package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ipede/mfa-service/internal/domain"
	"github.com/ipede/mfa-service/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

// UserHandler serves user metadata
type UserHandler struct {
	service domain.UserService
	logger  *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(service domain.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger,
	}
}

// GetMetadata returns the metadata of a user. The mfa field is only present
// while the factor is active.
// @Summary Get user metadata
// @Tags users
// @Produce json
// @Param username path string true "username"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /api/users/{username} [get]
func (h *UserHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		errors.RespondWithError(w, domain.ErrInvalidField)
		return
	}

	meta, err := h.service.GetMetadata(r.Context(), username)
	if err != nil {
		if errors.StatusOf(err) >= http.StatusInternalServerError {
			h.logger.Error("Failed to get user metadata",
				zap.String("username", username),
				zap.Error(err))
		}
		errors.RespondWithError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, meta)
}
