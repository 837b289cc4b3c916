// Package ratelimit 提供多层级固定窗口限流
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/tidechat/widget-gateway/internal/config"
	"github.com/tidechat/widget-gateway/internal/gateway"
)

// Class 端点限流类别
type Class string

const (
	ClassConfigRead    Class = "config-read"
	ClassSessionCreate Class = "session-create"
	ClassMessageSend   Class = "message-send"
	ClassFileUpload    Class = "file-upload"
)

// Limit 窗口内允许的请求数
type Limit struct {
	Requests int
	Window   time.Duration
}

// Options 限流参数
type Options struct {
	Limits        map[Class]Limit
	TenantCeiling Limit // 租户全部流量的全局上限

	// 租户等级倍率，未配置的等级按 1.0 处理
	TierMultipliers map[string]float64
}

// DefaultOptions 默认限流参数
func DefaultOptions() Options {
	return Options{
		Limits: map[Class]Limit{
			ClassConfigRead:    {Requests: 60, Window: time.Minute},
			ClassSessionCreate: {Requests: 10, Window: time.Minute},
			ClassMessageSend:   {Requests: 20, Window: time.Minute},
			ClassFileUpload:    {Requests: 5, Window: time.Minute},
		},
		TenantCeiling: Limit{Requests: 600, Window: time.Minute},
		TierMultipliers: map[string]float64{
			"standard": 1.0,
			"premium":  2.0,
		},
	}
}

// OptionsFromConfig 从应用配置构造限流参数
func OptionsFromConfig(cfg config.RateLimitConfig) Options {
	opts := DefaultOptions()
	if cfg.ConfigRead > 0 {
		opts.Limits[ClassConfigRead] = Limit{Requests: cfg.ConfigRead, Window: time.Minute}
	}
	if cfg.SessionCreate > 0 {
		opts.Limits[ClassSessionCreate] = Limit{Requests: cfg.SessionCreate, Window: time.Minute}
	}
	if cfg.MessageSend > 0 {
		opts.Limits[ClassMessageSend] = Limit{Requests: cfg.MessageSend, Window: time.Minute}
	}
	if cfg.FileUpload > 0 {
		opts.Limits[ClassFileUpload] = Limit{Requests: cfg.FileUpload, Window: time.Minute}
	}
	if cfg.TenantCeiling > 0 {
		opts.TenantCeiling = Limit{Requests: cfg.TenantCeiling, Window: time.Minute}
	}
	return opts
}

// Limiter 多层级限流器
// 依次检查三个作用域，任一超限即拒绝：
//  1. (租户, 访客IP, 类别)
//  2. (会话, 类别)，无会话的端点跳过
//  3. 租户全局
type Limiter struct {
	store Store
	opts  Options
}

// NewLimiter 创建限流器
func NewLimiter(store Store, opts Options) *Limiter {
	return &Limiter{store: store, opts: opts}
}

// Request 一次待检查的请求
type Request struct {
	Class     Class
	TenantKey string // 租户 slug 或 ID
	Tier      string // 租户限流等级
	VisitorIP string
	SessionID string // 无会话上下文时为空
}

// Check 检查请求是否放行，超限返回 KindRateLimited 错误
func (l *Limiter) Check(ctx context.Context, req Request) error {
	limit, ok := l.opts.Limits[req.Class]
	if !ok {
		return nil
	}
	limit = l.scaled(limit, req.Tier)

	// 作用域 1：租户 + 访客 IP + 类别
	key := fmt.Sprintf("rl:%s:%s:%s", req.Class, req.TenantKey, req.VisitorIP)
	if err := l.check(ctx, key, limit); err != nil {
		return err
	}

	// 作用域 2：会话 + 类别
	if req.SessionID != "" {
		key = fmt.Sprintf("rl:%s:sess:%s", req.Class, req.SessionID)
		if err := l.check(ctx, key, limit); err != nil {
			return err
		}
	}

	// 作用域 3：租户全局
	ceiling := l.scaled(l.opts.TenantCeiling, req.Tier)
	key = fmt.Sprintf("rl:tenant:%s", req.TenantKey)
	return l.check(ctx, key, ceiling)
}

func (l *Limiter) check(ctx context.Context, key string, limit Limit) error {
	count, remaining, err := l.store.Incr(ctx, key, limit.Window)
	if err != nil {
		// 计数存储不可用时放行，限流不应成为单点故障
		return nil
	}
	if count > int64(limit.Requests) {
		if remaining <= 0 {
			remaining = limit.Window
		}
		return gateway.RateLimited(remaining)
	}
	return nil
}

func (l *Limiter) scaled(limit Limit, tier string) Limit {
	mult, ok := l.opts.TierMultipliers[tier]
	if !ok || mult <= 0 {
		return limit
	}
	limit.Requests = int(float64(limit.Requests) * mult)
	return limit
}
