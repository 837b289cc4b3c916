package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tidechat/widget-gateway/internal/gateway"
	"github.com/tidechat/widget-gateway/internal/model"
	"github.com/tidechat/widget-gateway/internal/service"
	"github.com/tidechat/widget-gateway/internal/service/conversation"
	"github.com/tidechat/widget-gateway/internal/service/file"
	"github.com/tidechat/widget-gateway/internal/service/ratelimit"
	"github.com/tidechat/widget-gateway/internal/service/sanitize"
	"github.com/tidechat/widget-gateway/internal/service/session"
)

// WidgetHandler 挂件处理器，承载访客侧的全部接口
type WidgetHandler struct {
	svc *service.Services
}

// NewWidgetHandler 创建挂件处理器
func NewWidgetHandler(svc *service.Services) *WidgetHandler {
	return &WidgetHandler{svc: svc}
}

// ========== 响应结构 ==========

// ConfigResponse 挂件初始化配置
type ConfigResponse struct {
	TenantName string               `json:"tenant_name"`
	Settings   model.WidgetSettings `json:"settings"`
	RateLimits RateLimitHints       `json:"rate_limits"`
}

// RateLimitHints 告知挂件的限流提示，单位为每分钟请求数
type RateLimitHints struct {
	ConfigRead    int `json:"config_read"`
	SessionCreate int `json:"session_create"`
	MessageSend   int `json:"message_send"`
	FileUpload    int `json:"file_upload"`
}

// SessionResponse 会话信息
type SessionResponse struct {
	SessionID       string  `json:"session_id"`
	Status          string  `json:"status"`
	MessageCount    int     `json:"message_count"`
	StartedAt       string  `json:"started_at"`
	LastActivityAt  string  `json:"last_activity_at"`
	DurationMinutes float64 `json:"duration_minutes"`
	WelcomeMessage  string  `json:"welcome_message,omitempty"`
}

// MessageResponse 消息
type MessageResponse struct {
	ID           string `json:"id"`
	Seq          int64  `json:"seq"`
	Role         string `json:"role"`
	Content      string `json:"content"`
	AttachmentID string `json:"attachment_id,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// SendResponse 一次助手回合产生的消息对
type SendResponse struct {
	UserMessage      *MessageResponse `json:"user_message"`
	AssistantMessage *MessageResponse `json:"assistant_message"`
	Fallback         bool             `json:"fallback,omitempty"`
}

func toSessionResponse(s *model.WidgetSession, welcome string) *SessionResponse {
	return &SessionResponse{
		SessionID:       s.ID,
		Status:          s.Status,
		MessageCount:    s.MessageCount,
		StartedAt:       s.StartedAt.Format(time.RFC3339),
		LastActivityAt:  s.LastActivityAt.Format(time.RFC3339),
		DurationMinutes: s.DurationMinutes(time.Now()),
		WelcomeMessage:  welcome,
	}
}

func toMessageResponse(m *model.Message) *MessageResponse {
	if m == nil {
		return nil
	}
	return &MessageResponse{
		ID:           m.ID,
		Seq:          m.Seq,
		Role:         m.Role,
		Content:      m.Content,
		AttachmentID: m.AttachmentID,
		CreatedAt:    m.CreatedAt.Format(time.RFC3339),
	}
}

// ========== 公共逻辑 ==========

// limit 执行限流检查
func (h *WidgetHandler) limit(c *gin.Context, class ratelimit.Class, tenant *model.Tenant, sessionID string) error {
	return h.svc.RateLimit.Check(c.Request.Context(), ratelimit.Request{
		Class:     class,
		TenantKey: tenant.ID,
		Tier:      tenant.RateLimitTier,
		VisitorIP: c.ClientIP(),
		SessionID: sessionID,
	})
}

// resolveSession 加载会话及其租户
// ensure 为 true 时执行空闲超时检查，过期会话返回 KindSessionExpired
func (h *WidgetHandler) resolveSession(c *gin.Context, ensure bool) (*model.Tenant, *model.WidgetSession, error) {
	ctx := c.Request.Context()

	sess, err := h.svc.Session.Get(ctx, c.Param("id"))
	if err != nil {
		return nil, nil, err
	}

	tenant, err := h.svc.Tenant.ResolveByID(ctx, sess.TenantID)
	if err != nil {
		return nil, nil, err
	}

	if ensure {
		if err := h.svc.Session.EnsureUsable(sess, tenant.SessionTimeout()); err != nil {
			return nil, nil, err
		}
	}
	return tenant, sess, nil
}

// ========== 接口 ==========

// GetConfig 获取挂件配置
// GET /api/v1/widget/config/:slug
func (h *WidgetHandler) GetConfig(c *gin.Context) {
	tenant, err := h.svc.Tenant.Resolve(c.Request.Context(), c.Param("slug"))
	if err != nil {
		Error(c, err)
		return
	}
	if err := h.limit(c, ratelimit.ClassConfigRead, tenant, ""); err != nil {
		Error(c, err)
		return
	}

	rl := h.svc.Config.RateLimit
	Success(c, ConfigResponse{
		TenantName: tenant.Name,
		Settings:   tenant.EffectiveWidgetSettings(),
		RateLimits: RateLimitHints{
			ConfigRead:    rl.ConfigRead,
			SessionCreate: rl.SessionCreate,
			MessageSend:   rl.MessageSend,
			FileUpload:    rl.FileUpload,
		},
	})
}

// CreateSession 创建会话
// POST /api/v1/widget/session/create/:slug
func (h *WidgetHandler) CreateSession(c *gin.Context) {
	ctx := c.Request.Context()

	tenant, err := h.svc.Tenant.Resolve(ctx, c.Param("slug"))
	if err != nil {
		Error(c, err)
		return
	}
	if err := h.limit(c, ratelimit.ClassSessionCreate, tenant, ""); err != nil {
		Error(c, err)
		return
	}

	sess, err := h.svc.Session.Create(ctx, tenant, session.CreateRequest{
		VisitorIP:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
		ReferrerURL: c.Request.Referer(),
	})
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, toSessionResponse(sess, tenant.EffectiveWidgetSettings().WelcomeMessage))
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	Content      string `json:"content"`
	AttachmentID string `json:"attachment_id"`
}

// SendMessage 发送访客消息并执行助手回合
// POST /api/v1/widget/session/:id/send
func (h *WidgetHandler) SendMessage(c *gin.Context) {
	tenant, sess, err := h.resolveSession(c, true)
	if err != nil {
		Error(c, err)
		return
	}
	if err := h.limit(c, ratelimit.ClassMessageSend, tenant, sess.ID); err != nil {
		Error(c, err)
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	content := sanitize.Content(req.Content)
	if content == "" && req.AttachmentID == "" {
		BadRequest(c, "message content is empty")
		return
	}
	settings := tenant.EffectiveWidgetSettings()
	if sanitize.ExceedsLimit(content, settings.MaxMessageLength) {
		BadRequest(c, "message content exceeds length limit")
		return
	}

	result, err := h.svc.Assistant.Dispatch(c.Request.Context(), tenant, sess, content, req.AttachmentID)
	if err != nil {
		// 助手失败但兜底回复已持久化时，连同消息对一起返回
		if result != nil && result.Fallback {
			c.JSON(http.StatusBadGateway, SuccessResponse{
				Success: false,
				Data: SendResponse{
					UserMessage:      toMessageResponse(result.UserMessage),
					AssistantMessage: toMessageResponse(result.AssistantMessage),
					Fallback:         true,
				},
			})
			return
		}
		Error(c, err)
		return
	}

	Success(c, SendResponse{
		UserMessage:      toMessageResponse(result.UserMessage),
		AssistantMessage: toMessageResponse(result.AssistantMessage),
	})
}

// ListMessages 分页获取会话消息，按序号升序
// GET /api/v1/widget/session/:id/messages
func (h *WidgetHandler) ListMessages(c *gin.Context) {
	tenant, sess, err := h.resolveSession(c, false)
	if err != nil {
		Error(c, err)
		return
	}
	if err := h.limit(c, ratelimit.ClassConfigRead, tenant, sess.ID); err != nil {
		Error(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(conversation.DefaultPageSize)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 {
		limit = conversation.DefaultPageSize
	}
	if limit > conversation.MaxPageSize {
		limit = conversation.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	messages, total, err := h.svc.Conversation.History(c.Request.Context(), sess.ID, limit, offset)
	if err != nil {
		Error(c, err)
		return
	}

	items := make([]*MessageResponse, 0, len(messages))
	for _, m := range messages {
		items = append(items, toMessageResponse(m))
	}
	SuccessWithPage(c, items, total, limit, offset)
}

// UploadFile 上传会话附件
// POST /api/v1/widget/session/:id/upload
func (h *WidgetHandler) UploadFile(c *gin.Context) {
	tenant, sess, err := h.resolveSession(c, true)
	if err != nil {
		Error(c, err)
		return
	}
	if err := h.limit(c, ratelimit.ClassFileUpload, tenant, sess.ID); err != nil {
		Error(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		Error(c, gateway.StorageFailure(err))
		return
	}
	defer src.Close()

	purpose := c.DefaultPostForm("purpose", "attachment")
	attachment, err := h.svc.File.SaveAttachment(c.Request.Context(), tenant, sess, &file.SaveAttachmentRequest{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Purpose:     purpose,
		Reader:      src,
	})
	if err != nil {
		Error(c, err)
		return
	}

	resp := gin.H{
		"attachment_id": attachment.ID,
		"file_name":     attachment.FileName,
		"content_type":  attachment.ContentType,
		"file_size":     attachment.FileSize,
		"url":           h.svc.File.AttachmentURL(attachment),
	}

	// purpose 为 question 时文件本身就是一次提问，附带执行助手回合
	// 回合失败不影响上传结果，附件已保存
	if purpose == "question" {
		content := sanitize.Content(c.PostForm("message"))
		if content == "" {
			content = fmt.Sprintf("The visitor uploaded a file: %s", attachment.FileName)
		}
		result, dispatchErr := h.svc.Assistant.Dispatch(c.Request.Context(), tenant, sess, content, attachment.ID)
		if result != nil {
			resp["user_message"] = toMessageResponse(result.UserMessage)
			resp["assistant_message"] = toMessageResponse(result.AssistantMessage)
			if result.Fallback {
				resp["fallback"] = true
			}
		} else if dispatchErr != nil {
			resp["assistant_error"] = gateway.KindOf(dispatchErr).String()
		}
	}

	Created(c, resp)
}

// GetStatus 获取会话状态
// GET /api/v1/widget/session/:id/status
func (h *WidgetHandler) GetStatus(c *gin.Context) {
	tenant, sess, err := h.resolveSession(c, false)
	if err != nil {
		Error(c, err)
		return
	}
	if err := h.limit(c, ratelimit.ClassConfigRead, tenant, sess.ID); err != nil {
		Error(c, err)
		return
	}

	// 惰性过期检查只更新状态，过期会话仍然返回状态信息
	if err := h.svc.Session.EnsureUsable(sess, tenant.SessionTimeout()); err != nil && !gateway.IsKind(err, gateway.KindSessionExpired) && !gateway.IsKind(err, gateway.KindSessionClosed) {
		Error(c, err)
		return
	}

	Success(c, toSessionResponse(sess, ""))
}

// CloseSessionRequest 关闭会话请求
type CloseSessionRequest struct {
	Reason string `json:"reason"`
}

// CloseSession 关闭会话，重复关闭幂等
// PUT /api/v1/widget/session/:id/close
func (h *WidgetHandler) CloseSession(c *gin.Context) {
	_, sess, err := h.resolveSession(c, false)
	if err != nil {
		Error(c, err)
		return
	}

	var req CloseSessionRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.svc.Session.Close(c.Request.Context(), sess, req.Reason); err != nil {
		Error(c, err)
		return
	}
	Success(c, toSessionResponse(sess, ""))
}

// ClearSession 清空会话，关闭旧会话并返回同租户的新会话
// POST /api/v1/widget/session/:id/clear
func (h *WidgetHandler) ClearSession(c *gin.Context) {
	tenant, sess, err := h.resolveSession(c, false)
	if err != nil {
		Error(c, err)
		return
	}
	if err := h.limit(c, ratelimit.ClassSessionCreate, tenant, sess.ID); err != nil {
		Error(c, err)
		return
	}

	fresh, err := h.svc.Session.Clear(c.Request.Context(), tenant, sess)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, toSessionResponse(fresh, tenant.EffectiveWidgetSettings().WelcomeMessage))
}
