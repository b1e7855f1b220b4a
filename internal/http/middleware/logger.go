package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pawel-modine/AsanaBot/common/logger"
)

// deliveryHeaders are checked in order to tag request logs with the upstream delivery id.
var deliveryHeaders = []string{"X-GitHub-Delivery", "X-Gitlab-Event-UUID"}

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		for _, h := range deliveryHeaders {
			if v := c.GetHeader(h); v != "" {
				ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{DeliveryID: &v})
				c.Request = c.Request.WithContext(ctx)
				break
			}
		}

		c.Next()

		status := c.Writer.Status()
		ctx := c.Request.Context()

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}

		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			slog.ErrorContext(ctx, "request failed", attrs...)
		case status >= 400:
			slog.WarnContext(ctx, "request error", attrs...)
		default:
			slog.InfoContext(ctx, "request", attrs...)
		}
	}
}
