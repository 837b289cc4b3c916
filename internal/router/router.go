package router

import (
	"github.com/gin-gonic/gin"

	"github.com/tidechat/widget-gateway/internal/handler"
	"github.com/tidechat/widget-gateway/internal/middleware"
	"github.com/tidechat/widget-gateway/internal/service"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, svc *service.Services) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware(originResolver(svc)))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		widget := v1.Group("/widget")
		{
			widget.GET("/config/:slug", h.Widget.GetConfig)
			widget.POST("/session/create/:slug", h.Widget.CreateSession)

			sess := widget.Group("/session/:id")
			{
				sess.POST("/send", h.Widget.SendMessage)
				sess.GET("/messages", h.Widget.ListMessages)
				sess.POST("/upload", h.Widget.UploadFile)
				sess.GET("/status", h.Widget.GetStatus)
				sess.PUT("/close", h.Widget.CloseSession)
				sess.POST("/clear", h.Widget.ClearSession)
			}
		}
	}

	return r
}

// originResolver 从路径参数解析租户，返回其允许的跨域来源
// 解析失败时返回 nil 放行，让业务层给出明确的错误响应
func originResolver(svc *service.Services) middleware.OriginResolver {
	return func(c *gin.Context) []string {
		ctx := c.Request.Context()

		if slug := c.Param("slug"); slug != "" {
			tenant, err := svc.Tenant.Resolve(ctx, slug)
			if err != nil {
				return nil
			}
			return tenant.EffectiveWidgetSettings().AllowedOrigins
		}

		if id := c.Param("id"); id != "" {
			sess, err := svc.Session.Get(ctx, id)
			if err != nil {
				return nil
			}
			tenant, err := svc.Tenant.ResolveByID(ctx, sess.TenantID)
			if err != nil {
				return nil
			}
			return tenant.EffectiveWidgetSettings().AllowedOrigins
		}

		return nil
	}
}
