// Package handlers implements the HTTP endpoints of the screening API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ligandscreen/internal/interfaces/http/middleware"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

// writeError writes the standard error body and aborts the chain.
func writeError(c *gin.Context, status int, code errors.ErrorCode, message string) {
	middleware.AbortWithError(c, status, code, message)
}

// writeAppError maps err to an HTTP status through its error code.  Server
// side failures are masked.
func writeAppError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		if code == errors.CodeUnknown {
			code = errors.ErrCodeInternal
		}
		writeError(c, status, code, "internal server error")
		return
	}
	writeError(c, status, code, appMessage(err))
}

func appMessage(err error) string {
	var ae *errors.AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

//Personal.AI order the ending
