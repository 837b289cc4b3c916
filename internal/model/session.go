package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 会话状态
const (
	SessionStatusActive  = "active"
	SessionStatusClosed  = "closed"
	SessionStatusExpired = "expired"
)

// WidgetSession 挂件会话
type WidgetSession struct {
	ID             string         `json:"id" gorm:"type:varchar(36);primaryKey"`
	TenantID       string         `json:"tenant_id" gorm:"type:varchar(36);index;not null"`
	Status         string         `json:"status" gorm:"type:varchar(20);default:'active';index"`
	VisitorIP      string         `json:"-" gorm:"type:varchar(64)"`
	UserAgent      string         `json:"-" gorm:"type:varchar(512)"`
	ReferrerURL    string         `json:"-" gorm:"type:varchar(1024)"`
	MessageCount   int            `json:"message_count" gorm:"default:0"`
	CloseReason    string         `json:"close_reason,omitempty" gorm:"type:varchar(255)"`
	StartedAt      time.Time      `json:"started_at" gorm:"autoCreateTime"`
	LastActivityAt time.Time      `json:"last_activity_at" gorm:"index"`
	ClosedAt       *time.Time     `json:"closed_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate GORM 钩子
func (s *WidgetSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.LastActivityAt.IsZero() {
		s.LastActivityAt = time.Now()
	}
	return nil
}

// TableName 指定表名
func (WidgetSession) TableName() string {
	return "widget_sessions"
}

// IsActive 会话是否可继续对话
func (s *WidgetSession) IsActive() bool {
	return s.Status == SessionStatusActive
}

// IdleSince 距最后活动的空闲时长
func (s *WidgetSession) IdleSince(now time.Time) time.Duration {
	return now.Sub(s.LastActivityAt)
}

// DurationMinutes 会话持续时长（分钟），关闭后以关闭时间为终点
func (s *WidgetSession) DurationMinutes(now time.Time) float64 {
	end := now
	if s.ClosedAt != nil {
		end = *s.ClosedAt
	}
	return end.Sub(s.StartedAt).Minutes()
}
