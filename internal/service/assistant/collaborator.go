package assistant

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/tidechat/widget-gateway/internal/config"
)

// Invocation 一次助手回合的完整输入
type Invocation struct {
	AgentName    string
	Instructions string
	Temperature  float64
	Tools        []tool.BaseTool
	History      []*schema.Message
	Content      string
	MaxSteps     int
}

// Reply 助手回合的结果
type Reply struct {
	Content string
}

// Collaborator 模型侧执行器，隔离 eino 依赖便于测试
type Collaborator interface {
	Invoke(ctx context.Context, inv *Invocation) (*Reply, error)
}

// einoCollaborator 基于 eino adk 的生产实现
type einoCollaborator struct {
	apiKey    string
	baseURL   string
	modelName string
}

// NewEinoCollaborator 创建 eino 执行器
func NewEinoCollaborator(cfg config.OpenAIConfig) (Collaborator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required")
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	return &einoCollaborator{
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		modelName: modelName,
	}, nil
}

// Invoke 执行一次回合
// 温度等参数随租户配置变化，模型与 Agent 按回合构造
func (c *einoCollaborator) Invoke(ctx context.Context, inv *Invocation) (*Reply, error) {
	temperature := float32(inv.Temperature)
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      c.apiKey,
		BaseURL:     c.baseURL,
		Model:       c.modelName,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	maxSteps := inv.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 10
	}

	agentCfg := &adk.ChatModelAgentConfig{
		Name:          inv.AgentName,
		Description:   "Customer support assistant",
		Instruction:   inv.Instructions,
		Model:         chatModel,
		MaxIterations: maxSteps,
	}
	if len(inv.Tools) > 0 {
		agentCfg.ToolsConfig = adk.ToolsConfig{
			ToolsNodeConfig: compose.ToolsNodeConfig{
				Tools: inv.Tools,
			},
		}
	}

	agent, err := adk.NewChatModelAgent(ctx, agentCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	messages := make([]*schema.Message, 0, len(inv.History)+1)
	messages = append(messages, inv.History...)
	messages = append(messages, schema.UserMessage(inv.Content))

	iter := agent.Run(ctx, &adk.AgentInput{
		Messages:        messages,
		EnableStreaming: false,
	})

	var result string
	for {
		event, ok := iter.Next()
		if !ok {
			break
		}
		if event.Err != nil {
			return nil, event.Err
		}
		if event.Output != nil && event.Output.MessageOutput != nil {
			msg, err := event.Output.MessageOutput.GetMessage()
			if err != nil {
				continue
			}
			if msg.Role == schema.Assistant && msg.Content != "" {
				result = msg.Content
			}
		}
	}

	if result == "" {
		return nil, fmt.Errorf("agent produced no answer")
	}
	return &Reply{Content: result}, nil
}
