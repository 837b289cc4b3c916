// Package tenant 提供租户解析与配置缓存
package tenant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"gorm.io/gorm"

	"github.com/tidechat/widget-gateway/internal/gateway"
	"github.com/tidechat/widget-gateway/internal/model"
	"github.com/tidechat/widget-gateway/internal/service/sanitize"
)

// Repository 租户数据访问
type Repository interface {
	GetBySlug(slug string) (*model.Tenant, error)
	GetByID(id string) (*model.Tenant, error)
}

// Service 租户服务
// 解析结果缓存一段时间，租户配置变更最迟在 TTL 后生效
type Service struct {
	repo  Repository
	cache *ristretto.Cache[string, *model.Tenant]
	ttl   time.Duration
}

// NewService 创建租户服务
func NewService(repo Repository, ttl time.Duration) (*Service, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *model.Tenant]{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}, nil
}

// Resolve 根据 slug 解析租户
// slug 不区分大小写，首尾空白被忽略
func (s *Service) Resolve(ctx context.Context, slug string) (*model.Tenant, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !sanitize.ValidSlug(slug) {
		return nil, gateway.ValidationFailed("invalid tenant identifier")
	}

	if tenant, ok := s.cache.Get("slug:" + slug); ok {
		return s.checkActive(tenant, slug)
	}

	tenant, err := s.repo.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gateway.TenantNotFound(slug)
		}
		return nil, gateway.StorageFailure(err)
	}

	s.cache.SetWithTTL("slug:"+slug, tenant, 1, s.ttl)
	return s.checkActive(tenant, slug)
}

// ResolveByID 根据 ID 解析租户，用于会话路由
func (s *Service) ResolveByID(ctx context.Context, id string) (*model.Tenant, error) {
	if tenant, ok := s.cache.Get("id:" + id); ok {
		return s.checkActive(tenant, tenant.Slug)
	}

	tenant, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gateway.TenantNotFound(id)
		}
		return nil, gateway.StorageFailure(err)
	}

	s.cache.SetWithTTL("id:"+id, tenant, 1, s.ttl)
	return s.checkActive(tenant, tenant.Slug)
}

// 停用的租户也会被缓存，避免反复穿透到数据库
func (s *Service) checkActive(tenant *model.Tenant, slug string) (*model.Tenant, error) {
	if !tenant.Active {
		return nil, gateway.TenantInactive(slug)
	}
	return tenant, nil
}

// Invalidate 清除指定租户的缓存
func (s *Service) Invalidate(tenant *model.Tenant) {
	s.cache.Del("slug:" + strings.ToLower(tenant.Slug))
	s.cache.Del("id:" + tenant.ID)
}

// Close 释放缓存资源
func (s *Service) Close() {
	s.cache.Close()
}
