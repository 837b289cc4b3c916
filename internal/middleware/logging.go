package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware 日志中间件
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)

		log.Printf("[%s] %s | Status: %d | IP: %s | Latency: %v",
			c.Request.Method,
			path,
			c.Writer.Status(),
			c.ClientIP(),
			latency,
		)
	}
}
