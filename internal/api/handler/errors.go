package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/feedback_tag_server/internal/pkg/response"
	"github.com/qs3c/feedback_tag_server/internal/service"
)

// handleServiceError 将服务层错误映射为统一响应，未知错误交给请求日志记录
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrQuestionNotFound),
		errors.Is(err, service.ErrNoMoreQuestions),
		errors.Is(err, service.ErrExportJobNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrInvalidPassword),
		errors.Is(err, service.ErrInvalidSession),
		errors.Is(err, service.ErrSessionRevoked):
		response.AuthError(c, err.Error())
	case errors.Is(err, service.ErrGateNotConfigured):
		response.ServerError(c, err.Error())
	default:
		_ = c.Error(err)
		response.ServerError(c, "")
	}
}

// queryInt64 读取可选的整数查询参数，缺省为 0
func queryInt64(c *gin.Context, key string) (int64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
