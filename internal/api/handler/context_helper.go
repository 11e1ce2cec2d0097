package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/esl365/aijox.com-sub004/internal/api/middleware"
	"github.com/esl365/aijox.com-sub004/internal/onboarding"
	"github.com/esl365/aijox.com-sub004/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果认证中间件未注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.CtxUserID)
	if s == "" {
		response.Unauthorized(c, 10002, "Authentication required")
		return "", false
	}
	return s, true
}

// MustGetSession 提取已登录的会话快照；存储不可用时写入 503
func MustGetSession(c *gin.Context) (onboarding.Session, bool) {
	sess, err := middleware.SessionFrom(c)
	if errors.Is(err, onboarding.ErrStoreUnavailable) {
		response.ServiceUnavailable(c, 10006, "Service temporarily unavailable, please try again")
		return sess, false
	}
	if !sess.Authenticated {
		response.Unauthorized(c, 10002, "Authentication required")
		return sess, false
	}
	return sess, true
}

// bindJSON 绑定请求体，失败时写入 400（超出大小限制写入 413）
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "Request body too large")
			return false
		}
		response.Error(c, http.StatusBadRequest, 10001, "Invalid request parameters")
		return false
	}
	return true
}
