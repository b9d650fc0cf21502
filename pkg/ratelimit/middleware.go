package ratelimit

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"boxoffice/internal/shared/utils/response"
	"boxoffice/pkg/logger"
)

// Middleware limits every request by the type its route falls into.
func Middleware(rateLimiter *RateLimiter, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		enforce(c, rateLimiter, log, getRateLimitType(c.Request.Method, c.FullPath()))
	}
}

// For applies one specific limit type. Routes that allocate tickets or move
// money use it on top of Middleware.
func For(rateLimiter *RateLimiter, log *logger.Logger, limitType RateLimitType) gin.HandlerFunc {
	return func(c *gin.Context) {
		enforce(c, rateLimiter, log, limitType)
	}
}

func enforce(c *gin.Context, rateLimiter *RateLimiter, log *logger.Logger, limitType RateLimitType) {
	// Forwarding headers only count when the engine trusts the peer.
	clientIP := c.ClientIP()

	result, err := rateLimiter.IsAllowed(c.Request.Context(), clientIP, limitType)
	if err != nil {
		log.ErrorWithContext(c.Request.Context(), "rate limit check failed", err, map[string]interface{}{
			"client_ip":  clientIP,
			"limit_type": string(limitType),
		})
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Rate limit check failed", nil, nil)
		c.Abort()
		return
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime, 10))

	if !result.Allowed {
		log.LogRateLimitExceeded(c.Request.Context(), clientIP, c.FullPath())
		response.RespondJSON(c, "error", http.StatusTooManyRequests, "Rate limit exceeded", nil, map[string]interface{}{
			"limit":      result.Limit,
			"reset_time": result.ResetTime,
		})
		c.Abort()
		return
	}

	c.Next()
}

func getRateLimitType(method, path string) RateLimitType {
	switch {
	case strings.HasPrefix(path, "/health"),
		strings.HasPrefix(path, "/ping"),
		strings.HasPrefix(path, "/status"):
		return RateLimitTypeHealth

	case strings.Contains(path, "/admin/"):
		return RateLimitTypeAdmin

	case method == http.MethodGet && (strings.Contains(path, "/shows") ||
		strings.Contains(path, "/events") ||
		strings.Contains(path, "/halls") ||
		strings.Contains(path, "/seats") ||
		strings.Contains(path, "/standing-sectors")):
		return RateLimitTypePublic

	default:
		return RateLimitTypeDefault
	}
}
