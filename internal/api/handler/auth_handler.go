package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/esl365/aijox.com-sub004/config"
	"github.com/esl365/aijox.com-sub004/internal/api/middleware"
	"github.com/esl365/aijox.com-sub004/internal/dto"
	"github.com/esl365/aijox.com-sub004/internal/service"
	"github.com/esl365/aijox.com-sub004/pkg/response"
)

const refreshTokenCookie = "refresh_token"

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc    service.AuthService
	cookie     config.CookieConfig
	refreshTTL func(rememberMe bool) time.Duration
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService, cookie config.CookieConfig, refreshTTL func(bool) time.Duration) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, cookie: cookie, refreshTTL: refreshTTL}
}

// Signup 注册
// POST /api/v1/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authSvc.Signup(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailExists) {
			response.Conflict(c, 11002, "Email is already registered")
			return
		}
		response.InternalError(c)
		return
	}

	h.setTokenCookies(c, result)
	response.Created(c, result)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, 11001, "Invalid email or password")
			return
		}
		response.InternalError(c)
		return
	}

	h.setTokenCookies(c, result)
	response.OK(c, result)
}

// RefreshToken 刷新 Token
// POST /api/v1/auth/refresh
// 优先读取 Cookie，非浏览器客户端可放在请求体中
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, _ := c.Cookie(refreshTokenCookie)
	if token == "" {
		var req dto.RefreshTokenRequest
		_ = c.ShouldBindJSON(&req)
		token = strings.TrimSpace(req.RefreshToken)
	}
	if token == "" {
		response.Unauthorized(c, 11003, "Refresh token is missing")
		return
	}

	result, err := h.authSvc.RefreshToken(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrRefreshInvalid) || errors.Is(err, service.ErrTokenRevoked) {
			h.clearTokenCookies(c)
			response.Unauthorized(c, 11003, "Session expired, please log in again")
			return
		}
		response.InternalError(c)
		return
	}

	h.setTokenCookies(c, result)
	response.OK(c, result)
}

// Logout 用户登出
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	exp, _ := c.Get(middleware.CtxTokenExp)
	expiresAt, _ := exp.(time.Time)

	if err := h.authSvc.Logout(c.Request.Context(), userID, c.GetString(middleware.CtxTokenJTI), expiresAt); err != nil {
		response.InternalError(c)
		return
	}

	h.clearTokenCookies(c)
	response.OK(c, nil)
}

// Me 当前会话
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}
	response.OK(c, gin.H{
		"session": sess,
		"state":   sess.State(),
	})
}

func (h *AuthHandler) setTokenCookies(c *gin.Context, t *dto.TokenResponse) {
	c.SetSameSite(parseSameSite(h.cookie.SameSite))
	c.SetCookie(middleware.AccessTokenCookie, t.AccessToken, t.ExpiresIn, "/", h.cookie.Domain, h.cookie.Secure, true)
	c.SetCookie(refreshTokenCookie, t.RefreshToken, int(h.refreshTTL(t.RememberMe).Seconds()), "/api/v1/auth", h.cookie.Domain, h.cookie.Secure, true)
}

func (h *AuthHandler) clearTokenCookies(c *gin.Context) {
	c.SetSameSite(parseSameSite(h.cookie.SameSite))
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", h.cookie.Domain, h.cookie.Secure, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/api/v1/auth", h.cookie.Domain, h.cookie.Secure, true)
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
