package middleware

import (
	"github.com/gin-gonic/gin"
)

// OrgContextKey is the gin context key holding the caller's organization id.
const OrgContextKey = "org_id"

// Identity resolves the organization an authenticated request acts for: the
// X-Org-ID header wins, otherwise the org_id query parameter.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		org := c.GetHeader("X-Org-ID")
		if org == "" {
			org = c.Query("org_id")
		}
		if org != "" {
			c.Set(OrgContextKey, org)
		}
		c.Next()
	}
}

// OrgID returns the resolved organization id for the request, if any.
func OrgID(c *gin.Context) string {
	return c.GetString(OrgContextKey)
}
