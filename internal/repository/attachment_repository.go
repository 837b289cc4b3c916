package repository

import (
	"github.com/tidechat/widget-gateway/internal/model"
	"gorm.io/gorm"
)

// AttachmentRepository 附件仓库
type AttachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository 创建附件仓库
func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// Create 创建附件记录
func (r *AttachmentRepository) Create(attachment *model.Attachment) error {
	return r.db.Create(attachment).Error
}

// GetByID 获取附件
func (r *AttachmentRepository) GetByID(id string) (*model.Attachment, error) {
	var attachment model.Attachment
	err := r.db.Where("id = ?", id).First(&attachment).Error
	if err != nil {
		return nil, err
	}
	return &attachment, nil
}

// ListBySession 列出会话的所有附件
func (r *AttachmentRepository) ListBySession(sessionID string) ([]*model.Attachment, error) {
	var attachments []*model.Attachment
	err := r.db.Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&attachments).Error
	return attachments, err
}

// Delete 删除附件记录
func (r *AttachmentRepository) Delete(id string) error {
	return r.db.Delete(&model.Attachment{}, "id = ?", id).Error
}
