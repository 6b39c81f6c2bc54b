package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminKeyHeader carries the admin key for non-browser clients.
const AdminKeyHeader = "X-Admin-Key"

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// AdminAuthMiddleware accepts either basic auth as admin:<password> or the
// admin key header. An empty password or key disables that method.
func AdminAuthMiddleware(adminPassword, adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey != "" {
			if key := c.GetHeader(AdminKeyHeader); key != "" && equal(key, adminKey) {
				c.Next()
				return
			}
		}

		if adminPassword != "" {
			user, password, hasAuth := c.Request.BasicAuth()
			if hasAuth && equal(user, "admin") && equal(password, adminPassword) {
				c.Next()
				return
			}
		}

		c.Header("WWW-Authenticate", `Basic realm="Restricted"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
}
