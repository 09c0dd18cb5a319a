package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/avirajsharma-ops/DTPS-sub004/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents an API error. Kind names the failure class so the
// client can pick a recovery action: re-fetch slots on slot_unavailable,
// retry the same request on storage_unavailable.
type Error struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// RespondWithSuccess sends a 200 success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithCreated sends a 201 success response
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError maps an application error to an HTTP response
func RespondWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	kind := "internal"
	message := "internal server error"

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		switch appErr.Code {
		case apperrors.ErrNotFound:
			status, kind = http.StatusNotFound, "not_found"
		case apperrors.ErrBadRequest:
			status, kind = http.StatusBadRequest, "invalid_input"
		case apperrors.ErrConflict:
			status, kind = http.StatusConflict, "slot_unavailable"
		case apperrors.ErrUnavailable:
			status, kind = http.StatusServiceUnavailable, "storage_unavailable"
		case apperrors.ErrUnauthorized:
			status, kind = http.StatusUnauthorized, "unauthorized"
		}
	}

	c.JSON(status, Response{
		Success: false,
		Error: &Error{
			Code:    status,
			Kind:    kind,
			Message: message,
		},
	})
}
