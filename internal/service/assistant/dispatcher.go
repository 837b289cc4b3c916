// Package assistant 调度助手回合：串行化会话内的并发请求，
// 为每个回合分配预算并在失败时落地兜底回复
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/tidechat/widget-gateway/internal/gateway"
	"github.com/tidechat/widget-gateway/internal/model"
	"github.com/tidechat/widget-gateway/internal/service/conversation"
)

// 构建模型上下文时回看的消息条数
const historyWindow = 20

// Dispatcher 助手回合调度器
type Dispatcher struct {
	collab   Collaborator
	registry *Registry
	conv     *conversation.Service
	timeout  time.Duration

	// 进行中的回合，key 为会话 ID
	active sync.Map
}

// NewDispatcher 创建调度器
// collab 为 nil 时所有回合直接走兜底回复
func NewDispatcher(collab Collaborator, registry *Registry, conv *conversation.Service, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Dispatcher{
		collab:   collab,
		registry: registry,
		conv:     conv,
		timeout:  timeout,
	}
}

// Result 一次回合的产出
type Result struct {
	UserMessage      *model.Message
	AssistantMessage *model.Message
	Fallback         bool // 助手失败时为 true，回复为兜底文案
}

// Dispatch 执行一个助手回合
// 同一会话同时只允许一个回合，后到的请求立即拒绝而不是排队；
// 访客消息先于模型调用持久化，模型失败不丢访客输入
func (d *Dispatcher) Dispatch(ctx context.Context, tenant *model.Tenant, session *model.WidgetSession, content, attachmentID string) (*Result, error) {
	if _, loaded := d.active.LoadOrStore(session.ID, struct{}{}); loaded {
		return nil, gateway.TurnInProgress(session.ID)
	}
	defer d.active.Delete(session.ID)

	// 访客断开不应中断已开始的回合
	detached := context.WithoutCancel(ctx)

	history, err := d.conv.Recent(detached, session.ID, historyWindow)
	if err != nil {
		return nil, err
	}

	userMsg, err := d.conv.AppendUser(detached, session.ID, content, attachmentID)
	if err != nil {
		return nil, err
	}

	settings := tenant.EffectiveAssistantSettings()
	reply, invokeErr := d.invoke(detached, tenant, session, settings, history, content)
	if invokeErr != nil {
		log.Printf("assistant turn failed for session %s: %v", session.ID, invokeErr)

		fallbackMsg, appendErr := d.conv.AppendAssistant(detached, session.ID, settings.FallbackMessage)
		if appendErr != nil {
			return nil, appendErr
		}
		return &Result{
			UserMessage:      userMsg,
			AssistantMessage: fallbackMsg,
			Fallback:         true,
		}, gateway.AssistantFailure(invokeErr)
	}

	assistantMsg, err := d.conv.AppendAssistant(detached, session.ID, reply.Content)
	if err != nil {
		return nil, err
	}

	return &Result{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	}, nil
}

func (d *Dispatcher) invoke(ctx context.Context, tenant *model.Tenant, session *model.WidgetSession, settings model.AssistantSettings, history []*model.Message, content string) (*Reply, error) {
	if d.collab == nil {
		return nil, errors.New("assistant is not configured")
	}

	budget := NewBudget(settings.MaxToolCalls, settings.MaxSteps)

	inv := &Invocation{
		AgentName:    tenant.Slug + "-assistant",
		Instructions: buildInstructions(tenant, settings),
		Temperature:  *settings.Temperature,
		History:      toSchemaMessages(history),
		Content:      content,
		MaxSteps:     budget.MaxSteps(),
	}
	if d.registry != nil {
		inv.Tools = d.registry.Build(ctx, tenant, settings.EnabledTools, budget)
	}

	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	reply, err := d.collab.Invoke(runCtx, inv)
	if err != nil {
		return nil, err
	}
	if used := budget.ToolCallsUsed(); used > 0 {
		log.Printf("assistant turn for session %s used %d tool calls", session.ID, used)
	}
	return reply, nil
}

// buildInstructions 拼装系统指令
func buildInstructions(tenant *model.Tenant, settings model.AssistantSettings) string {
	base := settings.SystemPrompt
	if base == "" {
		base = fmt.Sprintf("You are a helpful customer support assistant for %s. Be concise and friendly.", tenant.Name)
	}
	if settings.Language != "" {
		base += fmt.Sprintf("\nRespond in the visitor's language when clear, otherwise use %q.", settings.Language)
	}
	return base
}

// toSchemaMessages 将持久化消息转换为模型输入
func toSchemaMessages(messages []*model.Message) []*schema.Message {
	result := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case model.MessageRoleUser:
			result = append(result, schema.UserMessage(m.Content))
		case model.MessageRoleAssistant:
			result = append(result, schema.AssistantMessage(m.Content, nil))
		case model.MessageRoleSystem:
			result = append(result, schema.SystemMessage(m.Content))
		}
	}
	return result
}
