package repository

import (
	"time"

	"github.com/tidechat/widget-gateway/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository 消息仓库
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息仓库
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append 追加消息并分配会话内序号
// 事务内对会话行加锁，保证序号连续无间隙，
// 同时刷新会话的消息计数与最后活动时间
func (r *MessageRepository) Append(msg *model.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var session model.WidgetSession
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", msg.SessionID).
			First(&session).Error
		if err != nil {
			return err
		}

		var maxSeq int64
		err = tx.Model(&model.Message{}).
			Where("session_id = ?", msg.SessionID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error
		if err != nil {
			return err
		}
		msg.Seq = maxSeq + 1

		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		return tx.Model(&session).Updates(map[string]interface{}{
			"message_count":    gorm.Expr("message_count + 1"),
			"last_activity_at": time.Now(),
		}).Error
	})
}

// ListBySession 按序号升序分页获取会话消息
func (r *MessageRepository) ListBySession(sessionID string, limit, offset int) ([]*model.Message, int64, error) {
	var total int64
	err := r.db.Model(&model.Message{}).
		Where("session_id = ?", sessionID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var messages []*model.Message
	err = r.db.Where("session_id = ?", sessionID).
		Order("seq ASC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error
	return messages, total, err
}

// RecentBySession 获取会话最近的 N 条消息，按序号升序返回
func (r *MessageRepository) RecentBySession(sessionID string, limit int) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.Where("session_id = ?", sessionID).
		Order("seq DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	// 反转为升序
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
