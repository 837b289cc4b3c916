package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KnowledgeArticle 知识库文章，作为 ES 不可用时的关键词检索数据源
type KnowledgeArticle struct {
	ID        string         `json:"id" gorm:"type:varchar(36);primaryKey"`
	TenantID  string         `json:"tenant_id" gorm:"type:varchar(36);index;not null"`
	Title     string         `json:"title" gorm:"type:varchar(512);not null"`
	Content   string         `json:"content" gorm:"type:text"`
	Category  string         `json:"category,omitempty" gorm:"type:varchar(100);index"`
	Published bool           `json:"published" gorm:"default:true;index"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate GORM 钩子
func (a *KnowledgeArticle) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (KnowledgeArticle) TableName() string {
	return "knowledge_articles"
}
