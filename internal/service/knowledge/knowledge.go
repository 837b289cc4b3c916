// Package knowledge 提供租户范围内的知识库检索
// 优先走 Elasticsearch 相关性检索，不可用或无命中时回退数据库关键词检索
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/tidechat/widget-gateway/internal/model"
)

// MaxResults 单次检索返回条数上限
const MaxResults = 10

// Result 检索结果
type Result struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Category string  `json:"category,omitempty"`
	Score    float64 `json:"score"`
}

// ArticleRepository 文章关键词检索
type ArticleRepository interface {
	SearchKeyword(tenantID string, terms []string, limit int) ([]*model.KnowledgeArticle, error)
}

// Service 知识库检索服务
// es 为 nil 时只使用关键词检索
type Service struct {
	es    ESSearcher
	index string
	repo  ArticleRepository
}

// NewService 创建检索服务
func NewService(es ESSearcher, index string, repo ArticleRepository) *Service {
	return &Service{
		es:    es,
		index: index,
		repo:  repo,
	}
}

// Search 在租户范围内检索知识库
// 空查询直接返回空结果
func (s *Service) Search(ctx context.Context, tenantID, query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 || limit > MaxResults {
		limit = MaxResults
	}

	if s.es != nil {
		results, err := s.searchES(ctx, tenantID, query, limit)
		if err != nil {
			log.Printf("es search failed, falling back to keyword search: %v", err)
		} else if len(results) > 0 {
			return results, nil
		}
	}

	return s.searchKeyword(tenantID, query, limit)
}

// esSearchResult ES 响应结构
type esSearchResult struct {
	Hits struct {
		Hits []struct {
			ID     string  `json:"_id"`
			Score  float64 `json:"_score"`
			Source struct {
				Title    string `json:"title"`
				Content  string `json:"content"`
				Category string `json:"category"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *Service) searchES(ctx context.Context, tenantID, query string, limit int) ([]Result, error) {
	esQuery := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":  query,
							"fields": []string{"title^2", "content"},
						},
					},
				},
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"tenant_id": tenantID}},
					map[string]interface{}{"term": map[string]interface{}{"published": true}},
				},
			},
		},
	}

	queryJSON, err := json.Marshal(esQuery)
	if err != nil {
		return nil, err
	}

	resp, err := s.es.DoSearch(ctx, s.index, queryJSON)
	if err != nil {
		return nil, err
	}
	if resp.Body != nil {
		defer resp.Body.Close()
	}
	if resp.IsError {
		return nil, fmt.Errorf("es returned error: %s", resp.String)
	}

	var result esSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		results = append(results, Result{
			ID:       hit.ID,
			Title:    hit.Source.Title,
			Content:  hit.Source.Content,
			Category: hit.Source.Category,
			Score:    hit.Score,
		})
	}
	return results, nil
}

func (s *Service) searchKeyword(tenantID, query string, limit int) ([]Result, error) {
	terms := ExtractTerms(query)
	if len(terms) == 0 {
		terms = []string{strings.ToLower(query)}
	}

	articles, err := s.repo.SearchKeyword(tenantID, terms, limit)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(articles))
	for i, article := range articles {
		results = append(results, Result{
			ID:       article.ID,
			Title:    article.Title,
			Content:  article.Content,
			Category: article.Category,
			Score:    1.0 / float64(i+1),
		})
	}
	return results, nil
}

// 检索时忽略的常见词
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true,
	"can": true, "how": true, "why": true, "what": true, "when": true,
	"where": true, "who": true, "will": true, "with": true, "you": true,
	"your": true, "this": true, "that": true, "have": true, "has": true,
	"does": true, "did": true, "not": true, "but": true, "all": true,
	"get": true, "about": true, "from": true, "into": true, "would": true,
	"could": true, "should": true, "there": true, "their": true,
}

// ExtractTerms 从查询中提取检索关键词
// 只保留长度超过 2 的非停用词，结果去重并保持出现顺序
func ExtractTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	seen := make(map[string]bool)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) <= 2 && !isCJK(f) {
			continue
		}
		if stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

// 中日韩文无空格分词，短词也保留
func isCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
