package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tidechat/widget-gateway/internal/gateway"
)

// ========== 统一响应格式 ==========

// SuccessResponse 成功响应
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Kind string `json:"kind,omitempty"`
}

// Success 成功响应 (200)
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// Created 创建成功响应 (201)
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{Success: true, Data: data})
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Msg: msg, Kind: gateway.KindValidationFailed.String()})
}

// statusOf 网关错误分类到 HTTP 状态码的映射
func statusOf(kind gateway.Kind) int {
	switch kind {
	case gateway.KindTenantNotFound, gateway.KindSessionNotFound:
		return http.StatusNotFound
	case gateway.KindTenantInactive:
		return http.StatusForbidden
	case gateway.KindSessionExpired:
		return http.StatusGone
	case gateway.KindSessionClosed, gateway.KindTurnInProgress:
		return http.StatusConflict
	case gateway.KindRateLimited:
		return http.StatusTooManyRequests
	case gateway.KindValidationFailed:
		return http.StatusBadRequest
	case gateway.KindFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case gateway.KindUnsupportedFileType:
		return http.StatusUnsupportedMediaType
	case gateway.KindAssistantFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error 根据错误分类返回相应的错误响应
func Error(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var ge *gateway.Error
	if !errors.As(err, &ge) {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Msg: "internal server error"})
		return
	}

	status := statusOf(ge.Kind)
	if ge.Kind == gateway.KindRateLimited && ge.RetryAfter > 0 {
		c.Header("Retry-After", fmt.Sprintf("%d", int(ge.RetryAfter.Seconds())))
	}
	c.JSON(status, ErrorResponse{Code: status, Msg: ge.Message, Kind: ge.Kind.String()})
}

// PageData 分页响应数据结构
type PageData struct {
	Items  interface{} `json:"items"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, items interface{}, total int64, limit, offset int) {
	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data: PageData{
			Items:  items,
			Total:  total,
			Limit:  limit,
			Offset: offset,
		},
	})
}
