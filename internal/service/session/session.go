// Package session 管理挂件会话的生命周期
package session

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tidechat/widget-gateway/internal/gateway"
	"github.com/tidechat/widget-gateway/internal/model"
	"github.com/tidechat/widget-gateway/internal/service/sanitize"
)

// Repository 会话数据访问
type Repository interface {
	Create(session *model.WidgetSession) error
	GetByID(id string) (*model.WidgetSession, error)
	Close(id, status, reason string, closedAt time.Time) error
	CloseAndCreate(old *model.WidgetSession, reason string, fresh *model.WidgetSession) error
	ExpireIdle(cutoff time.Time) (int64, error)
}

// Service 会话服务
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService 创建会话服务
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// CreateRequest 创建会话的访客上下文
type CreateRequest struct {
	VisitorIP   string
	UserAgent   string
	ReferrerURL string
}

// Create 为租户创建新会话
func (s *Service) Create(ctx context.Context, tenant *model.Tenant, req CreateRequest) (*model.WidgetSession, error) {
	now := s.now()
	session := &model.WidgetSession{
		ID:             uuid.New().String(),
		TenantID:       tenant.ID,
		Status:         model.SessionStatusActive,
		VisitorIP:      req.VisitorIP,
		UserAgent:      req.UserAgent,
		ReferrerURL:    req.ReferrerURL,
		StartedAt:      now,
		LastActivityAt: now,
	}

	if err := s.repo.Create(session); err != nil {
		return nil, gateway.StorageFailure(err)
	}
	return session, nil
}

// Get 加载会话，ID 非法或不存在均返回 KindSessionNotFound
func (s *Service) Get(ctx context.Context, id string) (*model.WidgetSession, error) {
	if !sanitize.ValidSessionID(id) {
		return nil, gateway.SessionNotFound(id)
	}

	session, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gateway.SessionNotFound(id)
		}
		return nil, gateway.StorageFailure(err)
	}
	return session, nil
}

// EnsureUsable 校验会话可继续对话
// 空闲超时的活跃会话在此惰性转为过期态
func (s *Service) EnsureUsable(session *model.WidgetSession, timeout time.Duration) error {
	switch session.Status {
	case model.SessionStatusExpired:
		return gateway.SessionExpired(session.ID)
	case model.SessionStatusClosed:
		return gateway.SessionClosed(session.ID)
	}

	now := s.now()
	if session.IdleSince(now) > timeout {
		if err := s.repo.Close(session.ID, model.SessionStatusExpired, "idle timeout", now); err != nil {
			return gateway.StorageFailure(err)
		}
		session.Status = model.SessionStatusExpired
		session.CloseReason = "idle timeout"
		session.ClosedAt = &now
		return gateway.SessionExpired(session.ID)
	}
	return nil
}

// Close 关闭会话，对已终态的会话幂等
func (s *Service) Close(ctx context.Context, session *model.WidgetSession, reason string) error {
	if !session.IsActive() {
		return nil
	}
	if reason == "" {
		reason = "visitor closed"
	}

	now := s.now()
	if err := s.repo.Close(session.ID, model.SessionStatusClosed, reason, now); err != nil {
		return gateway.StorageFailure(err)
	}
	session.Status = model.SessionStatusClosed
	session.CloseReason = reason
	session.ClosedAt = &now
	return nil
}

// Clear 关闭当前会话并在同一事务中创建接替会话
// 旧会话的历史保留为只读
func (s *Service) Clear(ctx context.Context, tenant *model.Tenant, session *model.WidgetSession) (*model.WidgetSession, error) {
	now := s.now()
	fresh := &model.WidgetSession{
		ID:             uuid.New().String(),
		TenantID:       tenant.ID,
		Status:         model.SessionStatusActive,
		VisitorIP:      session.VisitorIP,
		UserAgent:      session.UserAgent,
		ReferrerURL:    session.ReferrerURL,
		StartedAt:      now,
		LastActivityAt: now,
	}

	if err := s.repo.CloseAndCreate(session, "conversation cleared", fresh); err != nil {
		return nil, gateway.StorageFailure(err)
	}
	return fresh, nil
}

// StartSweeper 启动过期会话清扫协程，返回停止函数
// 清扫使用全局默认超时，租户级超时由惰性检查兜底
func (s *Service) StartSweeper(interval, timeout time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				count, err := s.repo.ExpireIdle(s.now().Add(-timeout))
				if err != nil {
					log.Printf("session sweeper failed: %v", err)
					continue
				}
				if count > 0 {
					log.Printf("session sweeper expired %d idle sessions", count)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}
