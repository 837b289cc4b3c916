// Package gateway 定义网关层的错误分类，handler 据此映射 HTTP 状态码
package gateway

import (
	"errors"
	"fmt"
	"time"
)

// Kind 错误分类
type Kind int

const (
	KindUnknown Kind = iota
	KindTenantNotFound
	KindTenantInactive
	KindSessionNotFound
	KindSessionExpired
	KindSessionClosed
	KindRateLimited
	KindTurnInProgress
	KindValidationFailed
	KindFileTooLarge
	KindUnsupportedFileType
	KindAssistantFailure
	KindStorageFailure
)

// String 返回分类名称，用于日志和响应体
func (k Kind) String() string {
	switch k {
	case KindTenantNotFound:
		return "tenant_not_found"
	case KindTenantInactive:
		return "tenant_inactive"
	case KindSessionNotFound:
		return "session_not_found"
	case KindSessionExpired:
		return "session_expired"
	case KindSessionClosed:
		return "session_closed"
	case KindRateLimited:
		return "rate_limited"
	case KindTurnInProgress:
		return "turn_in_progress"
	case KindValidationFailed:
		return "validation_failed"
	case KindFileTooLarge:
		return "file_too_large"
	case KindUnsupportedFileType:
		return "unsupported_file_type"
	case KindAssistantFailure:
		return "assistant_failure"
	case KindStorageFailure:
		return "storage_failure"
	default:
		return "unknown"
	}
}

// Error 携带分类的网关错误
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration // 仅限流错误使用
	cause      error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap 返回底层错误
func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf 提取错误分类，非网关错误返回 KindUnknown
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}

// IsKind 判断错误是否属于指定分类
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ========== 错误构造函数 ==========

// TenantNotFound 租户不存在
func TenantNotFound(slug string) *Error {
	return &Error{Kind: KindTenantNotFound, Message: fmt.Sprintf("tenant %q not found", slug)}
}

// TenantInactive 租户已停用
func TenantInactive(slug string) *Error {
	return &Error{Kind: KindTenantInactive, Message: fmt.Sprintf("tenant %q is inactive", slug)}
}

// SessionNotFound 会话不存在
func SessionNotFound(id string) *Error {
	return &Error{Kind: KindSessionNotFound, Message: fmt.Sprintf("session %q not found", id)}
}

// SessionExpired 会话已过期
func SessionExpired(id string) *Error {
	return &Error{Kind: KindSessionExpired, Message: fmt.Sprintf("session %q has expired", id)}
}

// SessionClosed 会话已关闭
func SessionClosed(id string) *Error {
	return &Error{Kind: KindSessionClosed, Message: fmt.Sprintf("session %q is closed", id)}
}

// RateLimited 触发限流，retryAfter 为建议的重试间隔
func RateLimited(retryAfter time.Duration) *Error {
	return &Error{
		Kind:       KindRateLimited,
		Message:    "rate limit exceeded",
		RetryAfter: retryAfter,
	}
}

// TurnInProgress 该会话已有助手回合在执行
func TurnInProgress(sessionID string) *Error {
	return &Error{Kind: KindTurnInProgress, Message: fmt.Sprintf("session %q already has a turn in progress", sessionID)}
}

// ValidationFailed 请求校验失败
func ValidationFailed(msg string) *Error {
	return &Error{Kind: KindValidationFailed, Message: msg}
}

// FileTooLarge 文件超过大小限制
func FileTooLarge(size, max int64) *Error {
	return &Error{Kind: KindFileTooLarge, Message: fmt.Sprintf("file size %d exceeds limit %d", size, max)}
}

// UnsupportedFileType 文件类型不在允许列表内
func UnsupportedFileType(fileType string) *Error {
	return &Error{Kind: KindUnsupportedFileType, Message: fmt.Sprintf("file type %q is not allowed", fileType)}
}

// AssistantFailure 助手调用失败
func AssistantFailure(cause error) *Error {
	return &Error{Kind: KindAssistantFailure, Message: "assistant invocation failed", cause: cause}
}

// StorageFailure 存储层失败
func StorageFailure(cause error) *Error {
	return &Error{Kind: KindStorageFailure, Message: "storage operation failed", cause: cause}
}
