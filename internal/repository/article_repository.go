package repository

import (
	"github.com/tidechat/widget-gateway/internal/model"
	"gorm.io/gorm"
)

// ArticleRepository 知识库文章仓库
type ArticleRepository struct {
	db *gorm.DB
}

// NewArticleRepository 创建文章仓库
func NewArticleRepository(db *gorm.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Create 创建文章
func (r *ArticleRepository) Create(article *model.KnowledgeArticle) error {
	return r.db.Create(article).Error
}

// GetByID 获取文章
func (r *ArticleRepository) GetByID(id string) (*model.KnowledgeArticle, error) {
	var article model.KnowledgeArticle
	err := r.db.Where("id = ?", id).First(&article).Error
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// SearchKeyword 按关键词在租户范围内检索已发布文章
// 任一关键词命中标题或正文即返回
func (r *ArticleRepository) SearchKeyword(tenantID string, terms []string, limit int) ([]*model.KnowledgeArticle, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	query := r.db.Where("tenant_id = ? AND published = ?", tenantID, true)

	cond := r.db.Where("title ILIKE ?", "%"+terms[0]+"%").
		Or("content ILIKE ?", "%"+terms[0]+"%")
	for _, term := range terms[1:] {
		cond = cond.Or("title ILIKE ?", "%"+term+"%").
			Or("content ILIKE ?", "%"+term+"%")
	}

	var articles []*model.KnowledgeArticle
	err := query.Where(cond).
		Order("updated_at DESC").
		Limit(limit).
		Find(&articles).Error
	return articles, err
}

// ListByTenant 列出租户的已发布文章
func (r *ArticleRepository) ListByTenant(tenantID string, limit, offset int) ([]*model.KnowledgeArticle, error) {
	var articles []*model.KnowledgeArticle
	err := r.db.Where("tenant_id = ? AND published = ?", tenantID, true).
		Order("updated_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&articles).Error
	return articles, err
}
