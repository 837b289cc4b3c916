// Package model 提供挂件网关的数据模型
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 租户配置默认值
const (
	DefaultSessionTimeoutMinutes = 30
	DefaultMaxMessageLength      = 2000
	DefaultMaxImageSizeMB        = 5
	DefaultMaxFileSizeMB         = 10
	DefaultTemperature           = 0.3
	DefaultMaxToolCalls          = 3
	DefaultMaxSteps              = 100
	DefaultWidgetPosition        = "bottom-right"
	DefaultLanguage              = "en"
)

// DefaultEnabledTools 基础档位的工具列表，未配置工具的租户使用
func DefaultEnabledTools() []string {
	return []string{"knowledge_search"}
}

// Tenant 租户
type Tenant struct {
	ID            string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Slug          string `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
	Name          string `json:"name" gorm:"type:varchar(255);not null"`
	Active        bool   `json:"active" gorm:"default:true"`
	RateLimitTier string `json:"rate_limit_tier" gorm:"type:varchar(50);default:'standard'"`

	// 配置字段（JSON）
	WidgetSettings    *WidgetSettings    `json:"widget_settings,omitempty" gorm:"type:jsonb"`
	AssistantSettings *AssistantSettings `json:"assistant_settings,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate GORM 钩子
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (Tenant) TableName() string {
	return "tenants"
}

// WidgetSettings 挂件外观与行为配置
type WidgetSettings struct {
	WelcomeMessage        string         `json:"welcome_message,omitempty"`
	Position              string         `json:"position,omitempty"`
	Theme                 map[string]any `json:"theme,omitempty"`
	AllowedOrigins        []string       `json:"allowed_origins,omitempty"`
	SessionTimeoutMinutes int            `json:"session_timeout_minutes,omitempty"`
	MaxMessageLength      int            `json:"max_message_length,omitempty"`
	AllowedFileTypes      []string       `json:"allowed_file_types,omitempty"`
	MaxImageSizeMB        int            `json:"max_image_size_mb,omitempty"`
	MaxFileSizeMB         int            `json:"max_file_size_mb,omitempty"`
}

// AssistantSettings 助手行为配置
type AssistantSettings struct {
	SystemPrompt    string   `json:"system_prompt,omitempty"`
	Language        string   `json:"language,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	EnabledTools    []string `json:"enabled_tools,omitempty"`
	MaxToolCalls    int      `json:"max_tool_calls,omitempty"`
	MaxSteps        int      `json:"max_steps,omitempty"`
	FallbackMessage string   `json:"fallback_message,omitempty"`
}

// Value 实现 driver.Valuer for WidgetSettings
func (s *WidgetSettings) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan 实现 sql.Scanner for WidgetSettings
func (s *WidgetSettings) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(b, s)
}

// Value 实现 driver.Valuer for AssistantSettings
func (s *AssistantSettings) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan 实现 sql.Scanner for AssistantSettings
func (s *AssistantSettings) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(b, s)
}

// EffectiveWidgetSettings 返回补全默认值后的挂件配置，
// 部分配置未设置时逐字段回退默认值
func (t *Tenant) EffectiveWidgetSettings() WidgetSettings {
	var s WidgetSettings
	if t.WidgetSettings != nil {
		s = *t.WidgetSettings
	}
	if s.WelcomeMessage == "" {
		s.WelcomeMessage = fmt.Sprintf("Hello! How can %s help you today?", t.Name)
	}
	if s.Position == "" {
		s.Position = DefaultWidgetPosition
	}
	if s.SessionTimeoutMinutes <= 0 {
		s.SessionTimeoutMinutes = DefaultSessionTimeoutMinutes
	}
	if s.MaxMessageLength <= 0 {
		s.MaxMessageLength = DefaultMaxMessageLength
	}
	if s.MaxImageSizeMB <= 0 {
		s.MaxImageSizeMB = DefaultMaxImageSizeMB
	}
	if s.MaxFileSizeMB <= 0 {
		s.MaxFileSizeMB = DefaultMaxFileSizeMB
	}
	return s
}

// EffectiveAssistantSettings 返回补全默认值后的助手配置
func (t *Tenant) EffectiveAssistantSettings() AssistantSettings {
	var s AssistantSettings
	if t.AssistantSettings != nil {
		s = *t.AssistantSettings
	}
	if s.Language == "" {
		s.Language = DefaultLanguage
	}
	if s.Temperature == nil {
		temp := DefaultTemperature
		s.Temperature = &temp
	}
	if len(s.EnabledTools) == 0 {
		s.EnabledTools = DefaultEnabledTools()
	}
	if s.MaxToolCalls <= 0 {
		s.MaxToolCalls = DefaultMaxToolCalls
	}
	if s.MaxSteps <= 0 {
		s.MaxSteps = DefaultMaxSteps
	}
	if s.FallbackMessage == "" {
		s.FallbackMessage = "Sorry, I'm having trouble responding right now. Please try again in a moment."
	}
	return s
}

// SessionTimeout 会话空闲超时
func (t *Tenant) SessionTimeout() time.Duration {
	return time.Duration(t.EffectiveWidgetSettings().SessionTimeoutMinutes) * time.Minute
}
