// Package sanitize 提供访客输入的清洗与校验
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	// 危险的 URI scheme，出现即删除
	schemePattern = regexp.MustCompile(`(?i)(javascript|vbscript|data)\s*:`)

	// 租户 slug 仅允许字母、数字、连字符和下划线
	slugPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// Content 清洗消息内容
// 先还原已有实体再整体转义，重复调用结果不变
func Content(s string) string {
	unescaped := html.UnescapeString(s)
	unescaped = schemePattern.ReplaceAllString(unescaped, "")
	return strings.TrimSpace(html.EscapeString(unescaped))
}

// ExceedsLimit 判断内容字符数是否超限，按 rune 计数
func ExceedsLimit(s string, max int) bool {
	return utf8.RuneCountInString(s) > max
}

// ValidSlug 校验租户 slug 格式
func ValidSlug(slug string) bool {
	return slug != "" && len(slug) <= 100 && slugPattern.MatchString(slug)
}

// ValidSessionID 校验会话 ID 为合法 UUID
func ValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
