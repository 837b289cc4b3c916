package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/tidechat/widget-gateway/internal/model"
)

// mockArticleRepository 内存文章仓库
type mockArticleRepository struct {
	articles  []*model.KnowledgeArticle
	lastTerms []string
	searchErr error
}

func (m *mockArticleRepository) SearchKeyword(tenantID string, terms []string, limit int) ([]*model.KnowledgeArticle, error) {
	m.lastTerms = terms
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	var matched []*model.KnowledgeArticle
	for _, a := range m.articles {
		if a.TenantID != tenantID {
			continue
		}
		for _, term := range terms {
			if strings.Contains(strings.ToLower(a.Title), term) ||
				strings.Contains(strings.ToLower(a.Content), term) {
				matched = append(matched, a)
				break
			}
		}
		if len(matched) >= limit {
			break
		}
	}
	return matched, nil
}

func esResponse(hits []map[string]interface{}) *ESResponse {
	body := map[string]interface{}{
		"hits": map[string]interface{}{"hits": hits},
	}
	data, _ := json.Marshal(body)
	return &ESResponse{
		IsError: false,
		Body:    io.NopCloser(bytes.NewReader(data)),
	}
}

// TestExtractTerms 测试关键词提取
func TestExtractTerms(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"停用词被过滤", "how can I reset my password", []string{"reset", "password"}},
		{"短词被过滤", "is it ok to go", []string{}},
		{"去重保序", "billing billing invoice billing", []string{"billing", "invoice"}},
		{"标点被拆分", "refund, shipping & returns!", []string{"refund", "shipping", "returns"}},
		{"大小写归一", "RESET Password", []string{"reset", "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTerms(tt.query)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractTerms(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

// TestSearchES 测试 ES 检索命中
func TestSearchES(t *testing.T) {
	var capturedQuery []byte
	es := newMockESSearcher(func(ctx context.Context, index string, queryJSON []byte) (*ESResponse, error) {
		capturedQuery = queryJSON
		return esResponse([]map[string]interface{}{
			{"_id": "a1", "_score": 2.5, "_source": map[string]interface{}{"title": "Refund policy", "content": "..."}},
			{"_id": "a2", "_score": 1.2, "_source": map[string]interface{}{"title": "Shipping", "content": "..."}},
		}), nil
	})

	svc := NewService(es, "articles", &mockArticleRepository{})

	results, err := svc.Search(context.Background(), "t1", "refund", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("len = %d, want 2", len(results))
	}
	if results[0].ID != "a1" || results[0].Score != 2.5 {
		t.Errorf("首条结果 = %+v", results[0])
	}

	// 查询必须限定租户
	if !bytes.Contains(capturedQuery, []byte(`"tenant_id":"t1"`)) {
		t.Errorf("ES 查询缺少租户过滤: %s", capturedQuery)
	}
}

// TestSearchFallbackOnESError 测试 ES 出错时回退关键词检索
func TestSearchFallbackOnESError(t *testing.T) {
	es := newMockESSearcher(func(ctx context.Context, index string, queryJSON []byte) (*ESResponse, error) {
		return nil, errors.New("es unreachable")
	})
	repo := &mockArticleRepository{articles: []*model.KnowledgeArticle{
		{ID: "a1", TenantID: "t1", Title: "Password reset guide", Published: true},
	}}

	svc := NewService(es, "articles", repo)

	results, err := svc.Search(context.Background(), "t1", "how to reset password", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "a1" {
		t.Fatalf("results = %+v", results)
	}
	if !reflect.DeepEqual(repo.lastTerms, []string{"reset", "password"}) {
		t.Errorf("关键词 = %v", repo.lastTerms)
	}
}

// TestSearchFallbackOnZeroHits 测试 ES 无命中时回退关键词检索
func TestSearchFallbackOnZeroHits(t *testing.T) {
	es := newMockESSearcher(func(ctx context.Context, index string, queryJSON []byte) (*ESResponse, error) {
		return esResponse(nil), nil
	})
	repo := &mockArticleRepository{articles: []*model.KnowledgeArticle{
		{ID: "a1", TenantID: "t1", Title: "Billing FAQ", Published: true},
	}}

	svc := NewService(es, "articles", repo)

	results, err := svc.Search(context.Background(), "t1", "billing question", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %+v", results)
	}
}

// TestSearchTenantScoped 测试关键词检索不跨租户
func TestSearchTenantScoped(t *testing.T) {
	repo := &mockArticleRepository{articles: []*model.KnowledgeArticle{
		{ID: "a1", TenantID: "t1", Title: "Refund policy", Published: true},
		{ID: "a2", TenantID: "t2", Title: "Refund policy", Published: true},
	}}

	svc := NewService(nil, "", repo)

	results, err := svc.Search(context.Background(), "t1", "refund", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "a1" {
		t.Fatalf("results = %+v", results)
	}
}

// TestSearchEmptyQuery 测试空查询
func TestSearchEmptyQuery(t *testing.T) {
	svc := NewService(nil, "", &mockArticleRepository{})

	results, err := svc.Search(context.Background(), "t1", "   ", 5)
	if err != nil {
		t.Fatal(err)
	}
	if results != nil {
		t.Errorf("空查询应返回 nil, got %+v", results)
	}
}

// TestSearchLimitClamped 测试结果条数上限
func TestSearchLimitClamped(t *testing.T) {
	es := newMockESSearcher(func(ctx context.Context, index string, queryJSON []byte) (*ESResponse, error) {
		var q struct {
			Size int `json:"size"`
		}
		json.Unmarshal(queryJSON, &q)
		if q.Size != MaxResults {
			t.Errorf("size = %d, want %d", q.Size, MaxResults)
		}
		return esResponse(nil), nil
	})

	svc := NewService(es, "articles", &mockArticleRepository{})
	svc.Search(context.Background(), "t1", "anything", 50)
}
