package assistant

import (
	"errors"
	"sync/atomic"
)

// 预算耗尽错误，触发后当前回合终止并走兜底回复
var (
	ErrToolBudgetExhausted = errors.New("tool call budget exhausted")
	ErrStepBudgetExhausted = errors.New("step budget exhausted")
)

// Budget 单次助手回合的资源预算
// 工具调用与推理步数分别计数，跨回合不共享
type Budget struct {
	toolCalls    atomic.Int32
	steps        atomic.Int32
	maxToolCalls int32
	maxSteps     int32
}

// NewBudget 创建回合预算
func NewBudget(maxToolCalls, maxSteps int) *Budget {
	return &Budget{
		maxToolCalls: int32(maxToolCalls),
		maxSteps:     int32(maxSteps),
	}
}

// ConsumeToolCall 消耗一次工具调用额度
func (b *Budget) ConsumeToolCall() error {
	if b.toolCalls.Add(1) > b.maxToolCalls {
		return ErrToolBudgetExhausted
	}
	return nil
}

// ConsumeStep 消耗一个推理步
func (b *Budget) ConsumeStep() error {
	if b.steps.Add(1) > b.maxSteps {
		return ErrStepBudgetExhausted
	}
	return nil
}

// ToolCallsUsed 已消耗的工具调用数
func (b *Budget) ToolCallsUsed() int {
	used := int(b.toolCalls.Load())
	if used > int(b.maxToolCalls) {
		return int(b.maxToolCalls)
	}
	return used
}

// MaxSteps 步数上限
func (b *Budget) MaxSteps() int {
	return int(b.maxSteps)
}
