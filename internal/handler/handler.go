package handler

import (
	"github.com/tidechat/widget-gateway/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Widget *WidgetHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Widget: NewWidgetHandler(svc),
	}
}
