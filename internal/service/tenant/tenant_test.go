package tenant

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tidechat/widget-gateway/internal/gateway"
	"github.com/tidechat/widget-gateway/internal/model"
)

// mockTenantRepository 内存租户仓库
type mockTenantRepository struct {
	tenants map[string]*model.Tenant // key 为 slug
	calls   int
	getErr  error
}

func (m *mockTenantRepository) GetBySlug(slug string) (*model.Tenant, error) {
	m.calls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	t, ok := m.tenants[slug]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (m *mockTenantRepository) GetByID(id string) (*model.Tenant, error) {
	m.calls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, t := range m.tenants {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	svc, err := NewService(repo, 30*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Close)
	return svc
}

// TestResolve 测试租户解析
func TestResolve(t *testing.T) {
	repo := &mockTenantRepository{tenants: map[string]*model.Tenant{
		"acme": {ID: "t1", Slug: "acme", Name: "Acme", Active: true},
		"gone": {ID: "t2", Slug: "gone", Name: "Gone", Active: false},
	}}
	svc := newTestService(t, repo)

	t.Run("正常解析", func(t *testing.T) {
		tenant, err := svc.Resolve(context.Background(), "acme")
		if err != nil {
			t.Fatal(err)
		}
		if tenant.ID != "t1" {
			t.Errorf("ID = %q", tenant.ID)
		}
	})

	t.Run("slug 大小写和空白被归一化", func(t *testing.T) {
		tenant, err := svc.Resolve(context.Background(), "  ACME ")
		if err != nil {
			t.Fatal(err)
		}
		if tenant.ID != "t1" {
			t.Errorf("ID = %q", tenant.ID)
		}
	})

	t.Run("不存在的租户", func(t *testing.T) {
		_, err := svc.Resolve(context.Background(), "nope")
		if !gateway.IsKind(err, gateway.KindTenantNotFound) {
			t.Errorf("err = %v, want KindTenantNotFound", err)
		}
	})

	t.Run("停用的租户", func(t *testing.T) {
		_, err := svc.Resolve(context.Background(), "gone")
		if !gateway.IsKind(err, gateway.KindTenantInactive) {
			t.Errorf("err = %v, want KindTenantInactive", err)
		}
	})

	t.Run("非法 slug 不访问仓库", func(t *testing.T) {
		before := repo.calls
		_, err := svc.Resolve(context.Background(), "a b/c")
		if !gateway.IsKind(err, gateway.KindValidationFailed) {
			t.Errorf("err = %v, want KindValidationFailed", err)
		}
		if repo.calls != before {
			t.Error("非法 slug 不应触发仓库查询")
		}
	})
}

// TestResolveCached 测试缓存命中不再访问仓库
func TestResolveCached(t *testing.T) {
	repo := &mockTenantRepository{tenants: map[string]*model.Tenant{
		"acme": {ID: "t1", Slug: "acme", Name: "Acme", Active: true},
	}}
	svc := newTestService(t, repo)

	if _, err := svc.Resolve(context.Background(), "acme"); err != nil {
		t.Fatal(err)
	}
	// ristretto 写入经过异步缓冲
	time.Sleep(10 * time.Millisecond)

	before := repo.calls
	for i := 0; i < 5; i++ {
		if _, err := svc.Resolve(context.Background(), "acme"); err != nil {
			t.Fatal(err)
		}
	}
	if repo.calls != before {
		t.Errorf("缓存命中后仓库查询次数增加了 %d 次", repo.calls-before)
	}
}
