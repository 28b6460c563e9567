package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ipede/mfa-service/internal/domain"
	"github.com/ipede/mfa-service/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

// MFAHandler exposes the MFA actions over HTTP
type MFAHandler struct {
	service domain.MFAService
	logger  *zap.Logger
}

// NewMFAHandler creates a new MFA handler
func NewMFAHandler(service domain.MFAService, logger *zap.Logger) *MFAHandler {
	return &MFAHandler{
		service: service,
		logger:  logger,
	}
}

// GenerateKey handles mfa.generate-key
// @Summary Provision a TOTP secret
// @Tags mfa
// @Accept json
// @Produce json
// @Param request body GenerateKeyRequest true "username"
// @Success 200 {object} domain.GeneratedKey
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /api/mfa/generate-key [post]
func (h *MFAHandler) GenerateKey(w http.ResponseWriter, r *http.Request) {
	var req GenerateKeyRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	key, err := h.service.GenerateKey(r.Context(), req.Username)
	if err != nil {
		h.fail(w, r, "mfa.generate-key", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, key)
}

// Attach handles mfa.attach
// @Summary Activate the TOTP factor
// @Tags mfa
// @Accept json
// @Produce json
// @Param request body AttachRequest true "username, secret and current TOTP"
// @Success 200 {object} domain.AttachResult
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /api/mfa/attach [post]
func (h *MFAHandler) Attach(w http.ResponseWriter, r *http.Request) {
	var req AttachRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	result, err := h.service.Attach(r.Context(), req.Username, req.Secret, req.TOTP)
	if err != nil {
		h.fail(w, r, "mfa.attach", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

// Verify handles mfa.verify
// @Summary Verify a TOTP or recovery code
// @Tags mfa
// @Accept json
// @Produce json
// @Param request body CodeRequest true "username and code"
// @Success 200 {object} domain.VerifyResult
// @Failure 403 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /api/mfa/verify [post]
func (h *MFAHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req CodeRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	result, err := h.service.Verify(r.Context(), req.Username, req.TOTP)
	if err != nil {
		h.fail(w, r, "mfa.verify", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

// RegenerateCodes handles mfa.regenerate-codes
// @Summary Replace all recovery codes
// @Tags mfa
// @Accept json
// @Produce json
// @Param request body CodeRequest true "username and current TOTP"
// @Success 200 {object} domain.RegenerateResult
// @Failure 403 {object} errors.ErrorResponse
// @Failure 412 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /api/mfa/regenerate-codes [post]
func (h *MFAHandler) RegenerateCodes(w http.ResponseWriter, r *http.Request) {
	var req CodeRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	result, err := h.service.RegenerateCodes(r.Context(), req.Username, req.TOTP)
	if err != nil {
		h.fail(w, r, "mfa.regenerate-codes", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

// Detach handles mfa.detach
// @Summary Deactivate the TOTP factor
// @Tags mfa
// @Accept json
// @Produce json
// @Param request body CodeRequest true "username and current TOTP"
// @Success 200 {object} domain.DetachResult
// @Failure 403 {object} errors.ErrorResponse
// @Failure 412 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /api/mfa/detach [post]
func (h *MFAHandler) Detach(w http.ResponseWriter, r *http.Request) {
	var req CodeRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	result, err := h.service.Detach(r.Context(), req.Username, req.TOTP)
	if err != nil {
		h.fail(w, r, "mfa.detach", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

// Purge drops the MFA record of a deleted account
// @Summary Delete the MFA record of an account
// @Tags mfa
// @Param username path string true "username"
// @Success 204
// @Security BearerAuth
// @Router /api/mfa/{username} [delete]
func (h *MFAHandler) Purge(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		errors.RespondWithError(w, domain.ErrInvalidField)
		return
	}

	if err := h.service.Purge(r.Context(), username); err != nil {
		h.fail(w, r, "mfa.purge", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MFAHandler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	subject, _ := domain.GetSubject(r.Context())
	fields := []zap.Field{
		zap.String("action", action),
		zap.String("caller", subject),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
	if errors.StatusOf(err) >= http.StatusInternalServerError {
		h.logger.Error("MFA action failed", fields...)
	} else {
		h.logger.Info("MFA action rejected", fields...)
	}
	errors.RespondWithError(w, err)
}
