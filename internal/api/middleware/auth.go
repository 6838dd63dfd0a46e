package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/feedback_tag_server/internal/pkg/jwt"
	"github.com/qs3c/feedback_tag_server/internal/pkg/response"
	"github.com/qs3c/feedback_tag_server/internal/service"
)

const (
	SessionIDKey = "sessionID"
)

// SessionAuthenticator 校验会话令牌（签名、有效期、注销状态）
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*jwt.Claims, error)
}

// Auth 会话认证中间件
func Auth(auth SessionAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "请提供认证信息")
			c.Abort()
			return
		}

		tokenString, ok := BearerToken(c)
		if !ok {
			response.AuthError(c, "认证格式错误")
			c.Abort()
			return
		}

		claims, err := auth.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrBackend):
				response.ServerError(c, "")
			case errors.Is(err, service.ErrSessionRevoked):
				response.AuthError(c, err.Error())
			default:
				response.AuthError(c, "认证失败或已过期")
			}
			c.Abort()
			return
		}

		c.Set(SessionIDKey, claims.SessionID())
		c.Next()
	}
}

// BearerToken 从 Authorization 头取出令牌
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if authHeader == "" || tokenString == authHeader || tokenString == "" {
		return "", false
	}
	return tokenString, true
}

// GetSessionID 从上下文获取会话 ID
func GetSessionID(c *gin.Context) (string, bool) {
	sessionID, exists := c.Get(SessionIDKey)
	if !exists {
		return "", false
	}
	id, ok := sessionID.(string)
	return id, ok
}
