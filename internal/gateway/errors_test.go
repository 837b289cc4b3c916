package gateway

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// TestKindOf 测试错误分类提取
func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"租户不存在", TenantNotFound("acme"), KindTenantNotFound},
		{"会话过期", SessionExpired("abc"), KindSessionExpired},
		{"限流", RateLimited(time.Second), KindRateLimited},
		{"包装后仍可识别", fmt.Errorf("handler: %w", TurnInProgress("s1")), KindTurnInProgress},
		{"普通错误", errors.New("boom"), KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestErrorUnwrap 测试底层错误可被 errors.Is 追溯
func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := AssistantFailure(cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if !IsKind(err, KindAssistantFailure) {
		t.Error("expected KindAssistantFailure")
	}
}

// TestRateLimitedRetryAfter 测试限流错误的重试间隔
func TestRateLimitedRetryAfter(t *testing.T) {
	err := RateLimited(30 * time.Second)

	var ge *Error
	if !errors.As(err, &ge) {
		t.Fatal("expected *Error")
	}
	if ge.RetryAfter != 30*time.Second {
		t.Errorf("RetryAfter = %v, want 30s", ge.RetryAfter)
	}
}
