package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agritrust-workers/internal/common/auth"
	"agritrust-workers/internal/common/errors"
	"agritrust-workers/internal/common/logger"
	"agritrust-workers/internal/common/metrics"
	"agritrust-workers/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderAPIKey    = "X-API-Key"

	ctxRequestID = "requestId"
	ctxUser      = "user"
)

// RequestID propagates an inbound X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// AccessLog records one log line and the HTTP metrics per request.
func AccessLog(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"route":      route,
			"status":     status,
			"durationMs": elapsed.Milliseconds(),
			"requestId":  c.GetString(ctxRequestID),
		}
		if status >= http.StatusInternalServerError {
			log.Error("request failed", fields)
		} else {
			log.Debug("request handled", fields)
		}
	}
}

// APIKeyAuth guards machine-to-machine routes.
func APIKeyAuth(keys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(HeaderAPIKey)
		for _, k := range keys {
			if provided != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(k)) == 1 {
				c.Next()
				return
			}
		}
		abortWithError(c, errors.NewAuthenticationError("missing or invalid API key"))
	}
}

// BearerAuth verifies the session token and stores the user in the context.
func BearerAuth(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			abortWithError(c, errors.NewAuthenticationError("Authorization header must be Bearer <token>"))
			return
		}

		user, err := tokens.Verify(parts[1])
		if err != nil {
			abortWithError(c, errors.NewAuthenticationError(err.Error()))
			return
		}

		c.Set(ctxUser, user)
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "admin role required",
				},
				"requestId": c.GetString(ctxRequestID),
			})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
