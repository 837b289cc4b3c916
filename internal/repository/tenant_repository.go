// Package repository 数据访问层
package repository

import (
	"github.com/tidechat/widget-gateway/internal/model"
	"gorm.io/gorm"
)

// TenantRepository 租户仓库
type TenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository 创建租户仓库
func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Create 创建租户
func (r *TenantRepository) Create(tenant *model.Tenant) error {
	return r.db.Create(tenant).Error
}

// GetByID 根据 ID 获取租户
func (r *TenantRepository) GetByID(id string) (*model.Tenant, error) {
	var tenant model.Tenant
	err := r.db.Where("id = ?", id).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetBySlug 根据 slug 获取租户，忽略大小写
func (r *TenantRepository) GetBySlug(slug string) (*model.Tenant, error) {
	var tenant model.Tenant
	err := r.db.Where("LOWER(slug) = LOWER(?)", slug).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// List 列出所有租户
func (r *TenantRepository) List() ([]*model.Tenant, error) {
	var tenants []*model.Tenant
	err := r.db.Find(&tenants).Error
	return tenants, err
}

// Update 更新租户
func (r *TenantRepository) Update(tenant *model.Tenant) error {
	return r.db.Save(tenant).Error
}

// Delete 删除租户（软删除）
func (r *TenantRepository) Delete(id string) error {
	return r.db.Delete(&model.Tenant{}, "id = ?", id).Error
}
