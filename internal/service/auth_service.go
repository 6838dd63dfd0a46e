package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/qs3c/feedback_tag_server/config"
	"github.com/qs3c/feedback_tag_server/internal/model/dto"
	"github.com/qs3c/feedback_tag_server/internal/pkg/jwt"
)

const revokedKeyPrefix = "session:revoked:"

// AuthService 共享访问密码登录，会话以 JWT 表示，注销后的 jti 记录在 Redis 中
type AuthService struct {
	cfg   *config.Config
	redis *redis.Client
}

func NewAuthService(cfg *config.Config, redisClient *redis.Client) *AuthService {
	return &AuthService{
		cfg:   cfg,
		redis: redisClient,
	}
}

// Login 校验访问密码并签发会话令牌
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if s.cfg.Gate.PasswordHash == "" {
		return nil, ErrGateNotConfigured
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.Gate.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidPassword
	}

	token, expiresAt, err := jwt.GenerateToken(uuid.NewString(), s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Authenticate 校验令牌签名、有效期与注销状态
func (s *AuthService) Authenticate(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := jwt.ParseToken(token, s.cfg.JWT.Secret)
	if err != nil {
		return nil, ErrInvalidSession
	}

	revoked, err := s.IsRevoked(ctx, claims.SessionID())
	if err != nil {
		return nil, backendError("check revocation", err)
	}
	if revoked {
		return nil, ErrSessionRevoked
	}

	return claims, nil
}

// Logout 注销会话，记录保留到令牌自然过期
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, revokedKeyPrefix+claims.SessionID(), 1, ttl).Err(); err != nil {
		return backendError("revoke session", err)
	}
	return nil
}

// IsRevoked 会话是否已注销
func (s *AuthService) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.redis.Exists(ctx, revokedKeyPrefix+sessionID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Session 查询会话状态，无效会话返回 Valid=false 而不是错误
func (s *AuthService) Session(ctx context.Context, token string) (*dto.SessionInfo, error) {
	claims, err := s.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, ErrBackend) {
			return nil, err
		}
		return &dto.SessionInfo{Valid: false}, nil
	}

	return &dto.SessionInfo{
		Valid:     true,
		SessionID: claims.SessionID(),
		ExpiresAt: claims.ExpiresAt.Time.UTC().Format(time.RFC3339),
	}, nil
}

// HashPassword 生成访问密码的 bcrypt 哈希，写入 gate.password_hash
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
