// Package testutil 提供测试辅助工具
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/tidechat/widget-gateway/internal/model"
)

// NewTenant 创建测试租户
func NewTenant(slug string, opts ...func(*model.Tenant)) *model.Tenant {
	t := &model.Tenant{
		ID:            uuid.New().String(),
		Slug:          slug,
		Name:          "Test Tenant",
		Active:        true,
		RateLimitTier: "standard",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithWidgetSettings 设置租户的挂件配置
func WithWidgetSettings(s *model.WidgetSettings) func(*model.Tenant) {
	return func(t *model.Tenant) {
		t.WidgetSettings = s
	}
}

// WithAssistantSettings 设置租户的助手配置
func WithAssistantSettings(s *model.AssistantSettings) func(*model.Tenant) {
	return func(t *model.Tenant) {
		t.AssistantSettings = s
	}
}

// Inactive 将租户标记为停用
func Inactive() func(*model.Tenant) {
	return func(t *model.Tenant) {
		t.Active = false
	}
}

// NewSession 为租户创建测试会话
func NewSession(tenant *model.Tenant, opts ...func(*model.WidgetSession)) *model.WidgetSession {
	now := time.Now()
	s := &model.WidgetSession{
		ID:             uuid.New().String(),
		TenantID:       tenant.ID,
		Status:         model.SessionStatusActive,
		VisitorIP:      "203.0.113.10",
		StartedAt:      now,
		LastActivityAt: now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IdleFor 将会话的最后活跃时间回拨
func IdleFor(d time.Duration) func(*model.WidgetSession) {
	return func(s *model.WidgetSession) {
		s.LastActivityAt = time.Now().Add(-d)
	}
}

// Closed 将会话标记为已关闭
func Closed(reason string) func(*model.WidgetSession) {
	return func(s *model.WidgetSession) {
		now := time.Now()
		s.Status = model.SessionStatusClosed
		s.CloseReason = reason
		s.ClosedAt = &now
	}
}
