package backend

import (
	"net/http"
	"strings"

	"github.com/agribenchmark/farmsync/utils"
	"github.com/gin-gonic/gin"
)

// CheckAuth fails when tokens are required but no API_SECRET is configured to
// verify them.
func (o Options) CheckAuth() error {
	if !o.RequireToken {
		return nil
	}
	_, err := utils.ApiSecret()
	return err
}

// authMiddleware requires a valid bearer token on every route but /healthz
// when required is set.
func authMiddleware(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !required || c.Request.URL.Path == "/healthz" || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		auth := strings.TrimSpace(c.GetHeader("Authorization"))
		bearer := "bearer "
		if len(auth) <= len(bearer) || !strings.EqualFold(auth[:len(bearer)], bearer) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		auth = strings.TrimSpace(auth[len(bearer):])

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Request = c.Request.WithContext(utils.SetTokenInContext(c.Request.Context(), auth))
		c.Next()
	}
}
