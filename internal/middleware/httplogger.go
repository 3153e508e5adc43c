package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Brownie44l1/medscan-api/internal/metric"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const HeaderRequestID = "X-Request-ID"

// HTTPLogger tags the request with an ID, logs an access line and records
// request metrics.
func HTTPLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method
		statusCode := c.Writer.Status()

		tags := []string{
			metric.TagAsString(metric.TagPath, path),
			metric.TagAsString(metric.TagMethod, method),
			metric.TagAsString(metric.TagHttpStatusCode, strconv.Itoa(statusCode)),
		}
		metric.Incr(metric.ApiRequestCount, tags)
		metric.Timing(metric.ApiRequestLatency, latency, tags)

		log.Info().Str("request_id", requestID).
			Msgf("[access] [%s] %s %s %d %v", c.ClientIP(), method, c.Request.URL.Path, statusCode, latency)
	}
}

// HTTPRecovery turns a panic in a handler into a JSON 500.
func HTTPRecovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		log.Error().Interface("panic", err).Msgf("Recovered from panic on %s %s", c.Request.Method, c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}
