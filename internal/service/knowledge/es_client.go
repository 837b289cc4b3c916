package knowledge

import (
	"bytes"
	"context"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
)

// ESSearcher Elasticsearch 搜索接口，用于抽象 ES 客户端
type ESSearcher interface {
	// DoSearch 执行搜索请求并返回响应
	DoSearch(ctx context.Context, index string, queryJSON []byte) (*ESResponse, error)
}

// ESResponse Elasticsearch 搜索响应
type ESResponse struct {
	IsError bool
	Body    io.ReadCloser
	String  string
}

// esClientSearcher go-elasticsearch 客户端适配器
type esClientSearcher struct {
	client *elasticsearch.Client
}

// NewESSearcher 包装真实 ES 客户端
func NewESSearcher(client *elasticsearch.Client) ESSearcher {
	return &esClientSearcher{client: client}
}

func (s *esClientSearcher) DoSearch(ctx context.Context, index string, queryJSON []byte) (*ESResponse, error) {
	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(index),
		s.client.Search.WithBody(bytes.NewReader(queryJSON)),
	)
	if err != nil {
		return nil, err
	}
	return &ESResponse{
		IsError: res.IsError(),
		Body:    res.Body,
		String:  res.String(),
	}, nil
}

// mockESSearcher 用于测试的 mock ES 搜索器
type mockESSearcher struct {
	searchFunc func(ctx context.Context, index string, queryJSON []byte) (*ESResponse, error)
}

// newMockESSearcher 创建 mock ES 搜索器
func newMockESSearcher(searchFunc func(ctx context.Context, index string, queryJSON []byte) (*ESResponse, error)) ESSearcher {
	return &mockESSearcher{searchFunc: searchFunc}
}

func (m *mockESSearcher) DoSearch(ctx context.Context, index string, queryJSON []byte) (*ESResponse, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, index, queryJSON)
	}
	return &ESResponse{
		IsError: false,
		Body:    io.NopCloser(bytes.NewReader([]byte("{}"))),
		String:  "{}",
	}, nil
}
