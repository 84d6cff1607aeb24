package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/johnbean393/openrouter-inference-stats/internal/pkg/response"
)

// AdminAuth guards the mutating endpoints with a static bearer token. An
// empty configured token disables the admin surface entirely.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			response.Error(c, http.StatusForbidden, "admin API is disabled; set admin.token to enable it")
			c.Abort()
			return
		}

		presented := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			response.Unauthorized(c, "invalid admin token")
			c.Abort()
			return
		}
		c.Next()
	}
}
