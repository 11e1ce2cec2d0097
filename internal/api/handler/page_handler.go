package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/esl365/aijox.com-sub004/internal/api/middleware"
	"github.com/esl365/aijox.com-sub004/internal/dto"
	"github.com/esl365/aijox.com-sub004/internal/onboarding"
	"github.com/esl365/aijox.com-sub004/internal/service"
	"github.com/esl365/aijox.com-sub004/pkg/metrics"
	"github.com/esl365/aijox.com-sub004/pkg/response"
)

const (
	noticeRetry      = "We couldn't load your account right now. Please try again in a moment."
	noticeSchoolFail = "We couldn't finish setting up your school profile. Please try again."
)

// PageHandler 入口页守卫
//
// 每个入口页先经过 onboarding.Resolve：重定向直接返回 302，
// 放行时返回页面数据，由前端负责渲染。
type PageHandler struct {
	onboardingSvc service.OnboardingService
	sessions      service.SessionService
	logger        *zap.Logger
}

// NewPageHandler 创建 PageHandler
func NewPageHandler(onboardingSvc service.OnboardingService, sessions service.SessionService, logger *zap.Logger) *PageHandler {
	return &PageHandler{onboardingSvc: onboardingSvc, sessions: sessions, logger: logger}
}

// Guard 返回指定入口页的处理函数
func (h *PageHandler) Guard(page onboarding.Page) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, decision, notice := h.resolve(c, page)
		if !decision.IsAllow() {
			c.Redirect(http.StatusFound, decision.Target)
			return
		}
		h.render(c, page, sess, notice)
	}
}

// SchoolSetup 学校资料设置页
// GET /school/setup
// 放行时在同一请求内自动创建学校资料并跳转到学校主页
func (h *PageHandler) SchoolSetup(c *gin.Context) {
	page := onboarding.PageSchoolSetup
	sess, decision, _ := h.resolve(c, page)
	if !decision.IsAllow() {
		c.Redirect(http.StatusFound, decision.Target)
		return
	}

	target, err := h.onboardingSvc.ProvisionSchool(c.Request.Context(), sess, h.sessions.Invalidate)
	if err != nil {
		if errors.Is(err, onboarding.ErrUnauthenticated) {
			c.Redirect(http.StatusFound, onboarding.LoginRedirectURL(c.Request.URL.RequestURI()))
			return
		}
		h.logger.Warn("学校资料自动创建失败",
			zap.String("user_id", sess.UserID),
			zap.Error(err),
		)
		h.render(c, page, sess, noticeSchoolFail)
		return
	}
	c.Redirect(http.StatusFound, target)
}

// resolve 读取会话并计算判定
// 存储不可用时会话为匿名：受保护页面被送往登录页，公开页面附带重试提示
func (h *PageHandler) resolve(c *gin.Context, page onboarding.Page) (onboarding.Session, onboarding.Decision, string) {
	sess, err := middleware.SessionFrom(c)
	notice := ""
	if err != nil {
		h.logger.Warn("读取会话失败，按未登录处理",
			zap.String("page", page.Name),
			zap.Error(err),
		)
		sess = onboarding.Anonymous()
		notice = noticeRetry
	}

	decision := onboarding.Resolve(sess, onboarding.PageContext{
		Page:        page,
		RequestURI:  c.Request.URL.RequestURI(),
		CallbackURL: c.Query(onboarding.CallbackParam),
	})
	metrics.OnboardingDecisions.WithLabelValues(page.Name, string(decision.Kind)).Inc()

	if decision.Reason != nil {
		h.logger.Debug("入口页重定向",
			zap.String("page", page.Name),
			zap.String("target", decision.Target),
			zap.NamedError("reason", decision.Reason),
		)
	}
	return sess, decision, notice
}

func (h *PageHandler) render(c *gin.Context, page onboarding.Page, sess onboarding.Session, notice string) {
	response.OK(c, dto.PageResponse{
		Page:    page.Name,
		Session: sess,
		Notice:  notice,
	})
}
