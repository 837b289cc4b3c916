package assistant

import (
	"context"
	"encoding/json"
	"log"

	"github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/tidechat/widget-gateway/internal/model"
	"github.com/tidechat/widget-gateway/internal/service/knowledge"
)

// ToolFactory 按租户构造工具实例
type ToolFactory func(ctx context.Context, tenant *model.Tenant) tool.InvokableTool

// Registry 工具注册表
// 所有工具按注册顺序提供给助手，未启用的工具以拒绝形式出现
type Registry struct {
	order     []string
	factories map[string]ToolFactory
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ToolFactory)}
}

// Register 注册工具
func (r *Registry) Register(name string, factory ToolFactory) {
	if _, ok := r.factories[name]; !ok {
		r.order = append(r.order, name)
	}
	r.factories[name] = factory
}

// Names 返回注册的工具名
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Build 为一次回合构造工具集
// 启用的工具带预算计数，未启用的工具返回拒绝信息且不消耗预算
func (r *Registry) Build(ctx context.Context, tenant *model.Tenant, enabled []string, budget *Budget) []tool.BaseTool {
	enabledSet := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		enabledSet[name] = true
	}

	tools := make([]tool.BaseTool, 0, len(r.order))
	for _, name := range r.order {
		inner := r.factories[name](ctx, tenant)
		if enabledSet[name] {
			tools = append(tools, &budgetedTool{inner: inner, budget: budget})
		} else {
			tools = append(tools, &disabledTool{inner: inner, name: name})
		}
	}
	return tools
}

// DefaultRegistry 标准工具集
func DefaultRegistry(knowledgeSvc *knowledge.Service) *Registry {
	r := NewRegistry()
	r.Register("knowledge_search", func(ctx context.Context, tenant *model.Tenant) tool.InvokableTool {
		return &knowledgeSearchTool{svc: knowledgeSvc, tenantID: tenant.ID}
	})
	r.Register("web_search", func(ctx context.Context, tenant *model.Tenant) tool.InvokableTool {
		return newWebSearchTool(ctx)
	})
	return r
}

// budgetedTool 工具调用前扣减预算
type budgetedTool struct {
	inner  tool.InvokableTool
	budget *Budget
}

func (t *budgetedTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return t.inner.Info(ctx)
}

func (t *budgetedTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	if err := t.budget.ConsumeToolCall(); err != nil {
		return "", err
	}
	// 每次工具调用同时占一个推理步
	if err := t.budget.ConsumeStep(); err != nil {
		return "", err
	}
	return t.inner.InvokableRun(ctx, argumentsInJSON, opts...)
}

// disabledTool 未启用工具的拒绝封装
// 返回给模型的是描述性提示而非原始错误，也不计入预算
type disabledTool struct {
	inner tool.InvokableTool
	name  string
}

func (t *disabledTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return t.inner.Info(ctx)
}

func (t *disabledTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	resp := map[string]string{
		"error": "the " + t.name + " tool is not enabled for this assistant, answer without it",
	}
	data, _ := json.Marshal(resp)
	return string(data), nil
}

// knowledgeSearchTool 租户范围的知识库搜索工具
type knowledgeSearchTool struct {
	svc      *knowledge.Service
	tenantID string
}

type knowledgeSearchInput struct {
	Query string `json:"query"`
}

func (t *knowledgeSearchTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: "knowledge_search",
		Desc: "Searches the tenant's knowledge base for relevant help articles. Use this first for questions about products, policies, or services.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "The search query",
				Required: true,
			},
		}),
	}, nil
}

func (t *knowledgeSearchTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var input knowledgeSearchInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return `{"error":"invalid arguments"}`, nil
	}

	results, err := t.svc.Search(ctx, t.tenantID, input.Query, 5)
	if err != nil {
		// 检索失败不终止回合，让模型自行兜底
		log.Printf("knowledge search tool failed: %v", err)
		return `{"error":"knowledge base is unavailable"}`, nil
	}

	data, err := json.Marshal(map[string]interface{}{"results": results})
	if err != nil {
		return `{"error":"failed to encode results"}`, nil
	}
	return string(data), nil
}

// stubTool 占位工具
type stubTool struct {
	name string
}

func (t *stubTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.name,
		Desc: t.name + " (unavailable)",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "The query string",
				Required: true,
			},
		}),
	}, nil
}

func (t *stubTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	return `{"error":"` + t.name + ` is not available"}`, nil
}

// newWebSearchTool 创建网络搜索工具
func newWebSearchTool(ctx context.Context) tool.InvokableTool {
	searchTool, err := duckduckgo.NewTextSearchTool(ctx, &duckduckgo.Config{
		ToolName:   "web_search",
		ToolDesc:   "Search the web for current information using DuckDuckGo. Use this when the knowledge base doesn't have the answer.",
		MaxResults: 10,
	})
	if err != nil {
		log.Printf("Warning: failed to create web search tool: %v", err)
		return &stubTool{name: "web_search"}
	}

	return searchTool
}
