package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/leasehold/internal/apperror"
	"github.com/smallbiznis/leasehold/internal/lock"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrUnauthenticated = errors.New("unauthenticated")

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if errors.Is(err, ErrUnauthenticated) {
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthenticated",
			Message: "missing or invalid caller identity",
		}
	}

	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	switch appErr.Kind {
	case apperror.KindNotFound:
		return http.StatusNotFound, publicPayload("not_found", appErr)
	case apperror.KindConflict:
		return http.StatusConflict, publicPayload("conflict", appErr)
	case apperror.KindUnauthorized:
		return http.StatusForbidden, publicPayload("forbidden", appErr)
	case apperror.KindBadRequest:
		return http.StatusBadRequest, publicPayload("bad_request", appErr)
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// publicPayload never includes the wrapped cause.
func publicPayload(errorType string, appErr *apperror.Error) errorPayload {
	message := appErr.Message
	if message == "" {
		message = appErr.Code
	}
	return errorPayload{
		Type:    errorType,
		Message: message,
		Code:    appErr.Code,
	}
}

func classifyErrorForLog(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case errors.Is(err, lock.ErrOperationInProgress):
		return "conflict", "operation_in_progress"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated", "missing_caller"
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return "validation_error", "invalid_request"
	}
	return string(apperror.KindOf(err)), apperror.CodeOf(err)
}
