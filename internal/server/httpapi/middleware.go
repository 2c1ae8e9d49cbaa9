package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/logging"
	"github.com/dmitrijs2005/sharekeeper/internal/server/auth"
	"github.com/dmitrijs2005/sharekeeper/internal/server/metrics"
	"github.com/gin-gonic/gin"
)

const ctxUserID = "userID"

// AuthMiddleware accepts "Authorization: Bearer <jwt>" and records the
// caller in the user directory.
func AuthMiddleware(secret []byte, users UserDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithCode(c, http.StatusUnauthorized, common.CodeUnauthorized, "missing Authorization header")
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			abortWithCode(c, http.StatusUnauthorized, common.CodeUnauthorized, "invalid token format")
			return
		}

		claims, err := auth.ParseToken(tokenStr, secret)
		if err != nil {
			abortWithCode(c, http.StatusUnauthorized, common.CodeUnauthorized, "invalid token")
			return
		}

		if err := users.EnsureUser(c.Request.Context(), claims.UserID, claims.UserName); err != nil {
			abortWithCode(c, http.StatusInternalServerError, common.CodeInternal, "internal error")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Next()
	}
}

// RequestLog logs every request after it completes and counts it by route
// and status.
func RequestLog(logger logging.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == RouteMetrics {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.HTTPRequest(route, strconv.Itoa(status))

		logger.Info(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
			"user_id", c.GetString(ctxUserID),
		)
	}
}
