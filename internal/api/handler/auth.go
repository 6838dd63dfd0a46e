package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/feedback_tag_server/internal/api/middleware"
	"github.com/qs3c/feedback_tag_server/internal/model/dto"
	"github.com/qs3c/feedback_tag_server/internal/pkg/response"
	"github.com/qs3c/feedback_tag_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login 访问密码登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "登录成功", resp)
}

// Logout 注销当前会话
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		response.AuthError(c, "请提供认证信息")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		handleServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已退出", nil)
}

// Session 查询会话状态，无效令牌返回 valid=false
// GET /api/v1/auth/session
func (h *AuthHandler) Session(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		response.Success(c, &dto.SessionInfo{Valid: false})
		return
	}

	info, err := h.authService.Session(c.Request.Context(), token)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, info)
}
