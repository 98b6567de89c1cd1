package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Stable machine-readable error codes.
const (
	CodeAuthMissingKey      = "AUTH_MISSING_API_KEY"
	CodeAuthInvalidKey      = "AUTH_INVALID_API_KEY"
	CodeAuthInternalError   = "AUTH_INTERNAL_ERROR"
	CodeRegisterInvalid     = "REGISTER_INVALID_EMAIL"
	CodeCheckInvalidContent = "CHECK_INVALID_CONTENT"
	CodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	CodeInternalError       = "INTERNAL_ERROR"
)

// ErrorBody is the uniform error envelope: {error:{code,message,status,details?}}.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the coded failure description.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Details any    `json:"details,omitempty"`
}

func (s *Server) renderError(c *gin.Context, status int, code, message string) {
	s.renderErrorDetails(c, status, code, message, nil)
}

func (s *Server) renderErrorDetails(c *gin.Context, status int, code, message string, details any) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{
		Code:    code,
		Message: message,
		Status:  status,
		Details: details,
	}})
}

func (s *Server) renderInternal(c *gin.Context) {
	s.renderError(c, http.StatusInternalServerError, CodeInternalError, "internal server error")
}
