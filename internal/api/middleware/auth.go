package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/esl365/aijox.com-sub004/internal/model"
	"github.com/esl365/aijox.com-sub004/internal/onboarding"
	"github.com/esl365/aijox.com-sub004/pkg/jwt"
	"github.com/esl365/aijox.com-sub004/pkg/response"
)

// gin.Context 中的键
const (
	CtxUserID     = "user_id"
	CtxTokenJTI   = "token_jti"
	CtxTokenExp   = "token_exp"
	CtxSession    = "session"
	CtxSessionErr = "session_err"
)

// AccessTokenCookie 浏览器页面导航携带访问令牌的 Cookie 名
const AccessTokenCookie = "access_token"

// Blacklist Token 黑名单查询
type Blacklist interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// SessionLoader 按用户 ID 读取会话快照
type SessionLoader interface {
	Current(ctx context.Context, userID string) (onboarding.Session, error)
}

// Authenticate 访问令牌解析中间件
// 依次从 Authorization: Bearer <token> 与 access_token Cookie 中读取。
// 不拦截请求：令牌缺失或无效时按匿名继续，由页面守卫或 RequireAuth 决定去向。
// blacklist 为 nil 时不检查注销状态
func Authenticate(jwtMgr *jwt.Manager, blacklist Blacklist, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := jwtMgr.ParseToken(token)
		if err != nil || claims.TokenType != jwt.TokenTypeAccess {
			c.Next()
			return
		}

		if blacklist != nil {
			revoked, err := blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			if err != nil {
				// Redis 出错时降级放行，令牌本身仍有过期时间兜底
				logger.Warn("检查 Token 黑名单失败", zap.Error(err))
			} else if revoked {
				c.Next()
				return
			}
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxTokenJTI, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(CtxTokenExp, claims.ExpiresAt.Time)
		} else {
			c.Set(CtxTokenExp, time.Now())
		}

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if v, err := c.Cookie(AccessTokenCookie); err == nil {
		return v
	}
	return ""
}

// LoadSession 读取会话快照注入上下文
// 存储不可用时注入匿名会话并记录错误，由下游按“失败即未登录”处理
func LoadSession(sessions SessionLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(CtxUserID)
		sess, err := sessions.Current(c.Request.Context(), userID)
		if err != nil {
			c.Set(CtxSessionErr, err)
			sess = onboarding.Anonymous()
		}
		c.Set(CtxSession, sess)
		c.Next()
	}
}

// SessionFrom 读取 LoadSession 注入的会话；未注入时返回匿名会话
func SessionFrom(c *gin.Context) (onboarding.Session, error) {
	var err error
	if v, ok := c.Get(CtxSessionErr); ok {
		err, _ = v.(error)
	}
	if v, ok := c.Get(CtxSession); ok {
		if s, ok := v.(onboarding.Session); ok {
			return s, err
		}
	}
	return onboarding.Anonymous(), err
}

// RequireAuth 要求已登录，API 路由使用
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := SessionFrom(c)
		if errors.Is(err, onboarding.ErrStoreUnavailable) {
			response.ServiceUnavailable(c, 10006, "Service temporarily unavailable, please try again")
			c.Abort()
			return
		}
		if !sess.Authenticated {
			response.Unauthorized(c, 10002, "Authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 角色取自会话快照而非令牌
func RoleAuth(allowedRoles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, _ := SessionFrom(c)
		if !sess.Authenticated {
			response.Unauthorized(c, 10002, "Authentication required")
			c.Abort()
			return
		}

		for _, r := range allowedRoles {
			if sess.Role == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "Access denied")
		c.Abort()
	}
}
