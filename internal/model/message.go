package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 消息角色
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"
)

// Message 会话消息，Seq 为会话内连续递增序号
type Message struct {
	ID           string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	SessionID    string    `json:"session_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_session_seq,priority:1"`
	Seq          int64     `json:"seq" gorm:"not null;uniqueIndex:idx_session_seq,priority:2"`
	Role         string    `json:"role" gorm:"type:varchar(20);not null"`
	Content      string    `json:"content" gorm:"type:text"`
	AttachmentID string    `json:"attachment_id,omitempty" gorm:"type:varchar(36)"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate GORM 钩子
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}

// Attachment 会话附件
type Attachment struct {
	ID          string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	TenantID    string    `json:"tenant_id" gorm:"type:varchar(36);index;not null"`
	SessionID   string    `json:"session_id" gorm:"type:varchar(36);index;not null"`
	FileName    string    `json:"file_name" gorm:"type:varchar(255);not null"`
	ContentType string    `json:"content_type" gorm:"type:varchar(100)"`
	FileSize    int64     `json:"file_size"`
	Purpose     string    `json:"purpose,omitempty" gorm:"type:varchar(50)"`
	StorageType string    `json:"storage_type" gorm:"type:varchar(20)"`
	FilePath    string    `json:"-" gorm:"type:varchar(512)"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate GORM 钩子
func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (Attachment) TableName() string {
	return "attachments"
}
