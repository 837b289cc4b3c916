package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// RecoveryMiddleware 恢复中间件
// 崩溃时返回与业务错误一致的响应格式，避免挂件端解析失败
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("panic recovered on %s %s: %v\n%s",
					c.Request.Method, c.Request.URL.Path, err, debug.Stack())
				c.JSON(http.StatusInternalServerError, gin.H{
					"code": 500,
					"msg":  "internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
