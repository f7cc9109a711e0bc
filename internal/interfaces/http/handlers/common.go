// Package handlers contains the gin HTTP handlers for the scoring and
// recommendation APIs.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dropsight/dropsight/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps an application error to its HTTP status and writes the
// standard error body.  Server-side failures are masked with the code's
// default message so internals never leak to callers.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = errors.DefaultMessageForCode(code)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Code: string(code), Message: msg})
}

// respondValidation writes a 400 with a validation code, for malformed
// request bodies that never reach the domain layer.
func respondValidation(c *gin.Context, message string) {
	respondError(c, errors.Validation(message))
}
