package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/usage-metrics-api/pkg/api"
	"go.uber.org/zap"
)

// ErrorHandler converts errors attached by handlers into RFC 9457 problem
// responses.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		if problem, ok := err.(*api.Problem); ok {
			if problem.Log != nil {
				logger.Error("Request failed",
					zap.String("path", c.Request.URL.Path),
					zap.Int("status", problem.Status),
					zap.Error(problem.Log),
				)
			}

			// RFC 9457 dictates the json is at the root
			c.JSON(problem.Status, problem)
			c.Abort()
			return
		}

		// unknown error, catch-all 500
		logger.Error("Unhandled error", zap.String("path", c.Request.URL.Path), zap.Error(err))

		c.JSON(http.StatusInternalServerError, api.NewError(
			http.StatusInternalServerError,
			"Internal Server Error",
			"An unexpected error occurred.",
		))
		c.Abort()
	}
}
