// Package conversation 维护会话的有序消息记录
package conversation

import (
	"context"

	"github.com/google/uuid"

	"github.com/tidechat/widget-gateway/internal/gateway"
	"github.com/tidechat/widget-gateway/internal/model"
)

// 分页参数边界
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Repository 消息数据访问
type Repository interface {
	Append(msg *model.Message) error
	ListBySession(sessionID string, limit, offset int) ([]*model.Message, int64, error)
	RecentBySession(sessionID string, limit int) ([]*model.Message, error)
}

// Service 对话记录服务
type Service struct {
	repo Repository
}

// NewService 创建对话记录服务
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// AppendUser 追加访客消息
func (s *Service) AppendUser(ctx context.Context, sessionID, content, attachmentID string) (*model.Message, error) {
	return s.append(ctx, sessionID, model.MessageRoleUser, content, attachmentID)
}

// AppendAssistant 追加助手消息
func (s *Service) AppendAssistant(ctx context.Context, sessionID, content string) (*model.Message, error) {
	return s.append(ctx, sessionID, model.MessageRoleAssistant, content, "")
}

// AppendSystem 追加系统消息
func (s *Service) AppendSystem(ctx context.Context, sessionID, content string) (*model.Message, error) {
	return s.append(ctx, sessionID, model.MessageRoleSystem, content, "")
}

func (s *Service) append(ctx context.Context, sessionID, role, content, attachmentID string) (*model.Message, error) {
	msg := &model.Message{
		ID:           uuid.New().String(),
		SessionID:    sessionID,
		Role:         role,
		Content:      content,
		AttachmentID: attachmentID,
	}
	if err := s.repo.Append(msg); err != nil {
		return nil, gateway.StorageFailure(err)
	}
	return msg, nil
}

// History 按序号升序分页获取消息
// limit 超过上限时按上限截断，非法值回退默认值
func (s *Service) History(ctx context.Context, sessionID string, limit, offset int) ([]*model.Message, int64, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	messages, total, err := s.repo.ListBySession(sessionID, limit, offset)
	if err != nil {
		return nil, 0, gateway.StorageFailure(err)
	}
	return messages, total, nil
}

// Recent 获取最近 N 条消息，供助手构建上下文
func (s *Service) Recent(ctx context.Context, sessionID string, limit int) ([]*model.Message, error) {
	messages, err := s.repo.RecentBySession(sessionID, limit)
	if err != nil {
		return nil, gateway.StorageFailure(err)
	}
	return messages, nil
}
