package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/soundshelf/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxRequestIDLength = 128

// assignRequestID reuses a caller-supplied X-Request-ID or mints a UUIDv7.
func (h *httpHandler) assignRequestID(c *gin.Context) {
	requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
	if requestID == "" || len(requestID) > maxRequestIDLength {
		requestID = newRequestID()
	}
	c.Set(requestIDContextKey, requestID)
	c.Header(requestIDHeader, requestID)
	c.Next()
}

func newRequestID() string {
	identifier, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return identifier.String()
}

func (h *httpHandler) observeRequest(c *gin.Context) {
	startedAt := time.Now()
	c.Next()

	elapsed := time.Since(startedAt)
	route := c.FullPath()
	if route == "" {
		route = unmatchedRoute
	}
	status := c.Writer.Status()
	metrics.RecordHTTPRequest(c.Request.Method, route, status, elapsed)

	h.logger.Debug("http request",
		zap.String("request_id", c.GetString(requestIDContextKey)),
		zap.String("method", c.Request.Method),
		zap.String("route", route),
		zap.Int("status", status),
		zap.Duration("elapsed", elapsed))
}

func (h *httpHandler) limitVotes(c *gin.Context) {
	if !h.voteLimiter.Allow(c.ClientIP()) {
		h.logger.Warn("vote rate limit exceeded",
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.String("client_ip", c.ClientIP()))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
		return
	}
	c.Next()
}
