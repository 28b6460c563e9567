package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ipede/mfa-service/internal/domain"
)

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail represents a validation error detail
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func getStatus(err *domain.Error) int {
	if err.Code == domain.ErrRateLimited.Code {
		return http.StatusTooManyRequests
	}

	switch err.Kind {
	case domain.KindInvalidFactor:
		return http.StatusForbidden
	case domain.KindAlreadyEnabled:
		return http.StatusConflict
	case domain.KindNotEnabled:
		return http.StatusPreconditionFailed
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindTransient:
		return http.StatusServiceUnavailable
	case domain.KindInvalidRequest:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	}

	return http.StatusInternalServerError
}

// StatusOf returns the HTTP status err is reported with
func StatusOf(err error) int {
	return getStatus(domain.AsError(err))
}

// RespondWithError sends a standardized error response. Errors that are not
// domain errors are reported as internal errors without their text.
func RespondWithError(w http.ResponseWriter, err error) {
	RespondErrorWithDetails(w, err, nil)
}

// RespondErrorWithDetails sends a standardized error response with details
func RespondErrorWithDetails(w http.ResponseWriter, err error, details []ErrorDetail) {
	derr := domain.AsError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(getStatus(derr))
	json.NewEncoder(w).Encode(ErrorResponse{
		Code:    derr.GetCode(),
		Message: derr.GetMessage(),
		Details: details,
	})
}

// ValidationDetails converts validator failures into response details
func ValidationDetails(err error) []ErrorDetail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	details := make([]ErrorDetail, len(verrs))
	for i, fe := range verrs {
		details[i] = ErrorDetail{
			Field:   fe.Field(),
			Message: validationMessage(fe),
		}
	}
	return details
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	default:
		return fe.Field() + " is invalid (" + strings.TrimSpace(fe.Tag()) + ")"
	}
}
