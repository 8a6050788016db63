package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/timesheet-approval/internal/application/service"
)

const (
	// TokenCookie is the cookie consulted when no Authorization header is sent.
	TokenCookie = "timesheet_token"

	requesterKey = "requester"
)

// authMiddleware resolves the requester from a bearer token or the token cookie.
func authMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			cookie, err := c.Cookie(TokenCookie)
			if err != nil || cookie == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Error: "missing credentials"})
				return
			}
			tokenStr = cookie
		} else {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Error: "malformed authorization header"})
				return
			}
			tokenStr = strings.TrimSpace(parts[1])
		}

		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Error: "invalid or expired token"})
			return
		}

		c.Set(requesterKey, service.Requester{
			AccountID:      claims.AccountID(),
			OrganizationID: claims.OrganizationID,
		})
		c.Next()
	}
}

// timeoutMiddleware bounds the request context. Lookups that outlive it
// surface as 503.
func timeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requesterFrom(c *gin.Context) service.Requester {
	if v, ok := c.Get(requesterKey); ok {
		if req, ok := v.(service.Requester); ok {
			return req
		}
	}
	return service.Requester{}
}
