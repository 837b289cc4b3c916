package repository

import (
	"time"

	"github.com/tidechat/widget-gateway/internal/model"
	"gorm.io/gorm"
)

// SessionRepository 挂件会话仓库
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建会话仓库
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create 创建会话
func (r *SessionRepository) Create(session *model.WidgetSession) error {
	return r.db.Create(session).Error
}

// GetByID 获取会话
func (r *SessionRepository) GetByID(id string) (*model.WidgetSession, error) {
	var session model.WidgetSession
	err := r.db.Where("id = ?", id).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Update 更新会话
func (r *SessionRepository) Update(session *model.WidgetSession) error {
	return r.db.Save(session).Error
}

// Close 将会话置为终态
// 已处于终态的会话不会被覆盖，关闭操作幂等
func (r *SessionRepository) Close(id, status, reason string, closedAt time.Time) error {
	return r.db.Model(&model.WidgetSession{}).
		Where("id = ? AND status = ?", id, model.SessionStatusActive).
		Updates(map[string]interface{}{
			"status":       status,
			"close_reason": reason,
			"closed_at":    closedAt,
		}).Error
}

// CloseAndCreate 在同一事务中关闭旧会话并创建新会话
func (r *SessionRepository) CloseAndCreate(old *model.WidgetSession, reason string, fresh *model.WidgetSession) error {
	now := time.Now()
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.WidgetSession{}).
			Where("id = ? AND status = ?", old.ID, model.SessionStatusActive).
			Updates(map[string]interface{}{
				"status":       model.SessionStatusClosed,
				"close_reason": reason,
				"closed_at":    now,
			}).Error
		if err != nil {
			return err
		}
		return tx.Create(fresh).Error
	})
}

// ExpireIdle 批量过期空闲会话，返回受影响的行数
func (r *SessionRepository) ExpireIdle(cutoff time.Time) (int64, error) {
	result := r.db.Model(&model.WidgetSession{}).
		Where("status = ? AND last_activity_at < ?", model.SessionStatusActive, cutoff).
		Updates(map[string]interface{}{
			"status":       model.SessionStatusExpired,
			"close_reason": "idle timeout",
			"closed_at":    time.Now(),
		})
	return result.RowsAffected, result.Error
}
