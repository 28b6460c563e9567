package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ipede/mfa-service/internal/domain"
	"github.com/ipede/mfa-service/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 16

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeRequest reads and validates a JSON body, writing the error response
// itself when it fails
func decodeRequest(w http.ResponseWriter, r *http.Request, logger *zap.Logger, req interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		logger.Debug("Failed to decode request body", zap.Error(err))
		errors.RespondWithError(w, domain.ErrInvalidRequestBody)
		return false
	}

	if err := validate.Struct(req); err != nil {
		logger.Debug("Request validation failed", zap.Error(err))
		errors.RespondErrorWithDetails(w, domain.ErrInvalidField, errors.ValidationDetails(err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
