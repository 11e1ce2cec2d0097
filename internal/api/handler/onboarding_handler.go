package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/esl365/aijox.com-sub004/internal/api/middleware"
	"github.com/esl365/aijox.com-sub004/internal/dto"
	"github.com/esl365/aijox.com-sub004/internal/model"
	"github.com/esl365/aijox.com-sub004/internal/onboarding"
	"github.com/esl365/aijox.com-sub004/internal/service"
	"github.com/esl365/aijox.com-sub004/pkg/metrics"
	"github.com/esl365/aijox.com-sub004/pkg/response"
)

// OnboardingHandler 入驻流程 API 处理器
type OnboardingHandler struct {
	onboardingSvc service.OnboardingService
	sessions      service.SessionService
	logger        *zap.Logger
}

// NewOnboardingHandler 创建 OnboardingHandler
func NewOnboardingHandler(onboardingSvc service.OnboardingService, sessions service.SessionService, logger *zap.Logger) *OnboardingHandler {
	return &OnboardingHandler{onboardingSvc: onboardingSvc, sessions: sessions, logger: logger}
}

// SelectRole 选择角色
// POST /api/v1/onboarding/role
// 响应体与角色选择表单约定一致：{success, redirectUrl?, error?}
func (h *OnboardingHandler) SelectRole(c *gin.Context) {
	sess, err := middleware.SessionFrom(c)
	if errors.Is(err, onboarding.ErrStoreUnavailable) {
		c.JSON(http.StatusServiceUnavailable, dto.SelectRoleResult{Error: "Failed to set role, please try again"})
		return
	}
	if !sess.Authenticated {
		c.JSON(http.StatusUnauthorized, dto.SelectRoleResult{Error: "Please log in to continue"})
		return
	}

	var req dto.SelectRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.SelectRoleResult{Error: "Invalid role"})
		return
	}

	redirectURL, err := h.onboardingSvc.AssignRole(c.Request.Context(), sess, model.Role(req.Role), h.sessions.Invalidate)
	if err != nil {
		status, msg := selectRoleError(err)
		c.JSON(status, dto.SelectRoleResult{Error: msg})
		return
	}

	c.JSON(http.StatusOK, dto.SelectRoleResult{Success: true, RedirectURL: redirectURL})
}

func selectRoleError(err error) (int, string) {
	switch {
	case errors.Is(err, onboarding.ErrUnauthenticated):
		return http.StatusUnauthorized, "Please log in to continue"
	case errors.Is(err, onboarding.ErrRoleAlreadySet):
		return http.StatusConflict, "Role already set"
	case errors.Is(err, onboarding.ErrInvalidRole):
		return http.StatusBadRequest, "Invalid role"
	default:
		return http.StatusServiceUnavailable, "Failed to set role, please try again"
	}
}

// Resolve 查询某个入口页的守卫判定（供 SPA 路由使用）
// GET /api/v1/onboarding/resolve?path=/dashboard&callbackUrl=
func (h *OnboardingHandler) Resolve(c *gin.Context) {
	var req dto.ResolveRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Invalid request parameters")
		return
	}
	u, err := url.Parse(req.Path)
	if err != nil {
		response.BadRequest(c, 10001, "Invalid path")
		return
	}

	sess, sessErr := middleware.SessionFrom(c)
	if sessErr != nil {
		h.logger.Warn("读取会话失败，按未登录判定", zap.Error(sessErr))
	}

	page := onboarding.PageForPath(u.Path)
	decision := onboarding.Resolve(sess, onboarding.PageContext{
		Page:        page,
		RequestURI:  req.Path,
		CallbackURL: req.CallbackURL,
	})
	metrics.OnboardingDecisions.WithLabelValues(page.Name, string(decision.Kind)).Inc()

	response.OK(c, dto.ResolveResponse{
		Page:     page.Name,
		State:    sess.State(),
		Decision: decision,
	})
}
