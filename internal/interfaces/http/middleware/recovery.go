package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscreen/pkg/errors"
	"github.com/turtacn/ligandscreen/pkg/types/common"
)

// Recovery turns a handler panic into a logged 500.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered",
					logging.String("path", c.Request.URL.Path),
					logging.String("panic", fmt.Sprint(rec)),
					logging.String("stack", string(debug.Stack())),
					logging.String("request_id", GetRequestID(c)))
				AbortWithError(c, http.StatusInternalServerError, errors.ErrCodeInternal, "internal server error")
			}
		}()
		c.Next()
	}
}

// AbortWithError stops the chain with the standard error body.
func AbortWithError(c *gin.Context, status int, code errors.ErrorCode, message string) {
	c.AbortWithStatusJSON(status, common.ErrorResponse{
		Error:     common.ErrorDetail{Code: code.String(), Message: message},
		RequestID: GetRequestID(c),
	})
}

//Personal.AI order the ending
