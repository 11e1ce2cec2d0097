package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/esl365/aijox.com-sub004/config"
	"github.com/esl365/aijox.com-sub004/internal/api/handler"
	"github.com/esl365/aijox.com-sub004/internal/api/middleware"
	"github.com/esl365/aijox.com-sub004/internal/model"
	"github.com/esl365/aijox.com-sub004/internal/onboarding"
	"github.com/esl365/aijox.com-sub004/internal/service"
	"github.com/esl365/aijox.com-sub004/pkg/jwt"
	"github.com/esl365/aijox.com-sub004/pkg/redis"
)

// maxBodyBytes 表单类接口的请求体上限
const maxBodyBytes = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时不做 Token 黑名单检查与限流
func Setup(cfg *config.Config, h *handler.Handler, svc *service.Service, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	var (
		blacklist middleware.Blacklist
		limiter   middleware.Limiter
	)
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 运维 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 以下路由都需要会话快照
	withSession := r.Group("")
	withSession.Use(middleware.Authenticate(jwtMgr, blacklist, logger))
	withSession.Use(middleware.LoadSession(svc.Session))

	// ── 入口页守卫 ──
	for _, page := range onboarding.Pages {
		if page.Path == onboarding.SchoolSetupURL {
			continue
		}
		withSession.GET(page.Path, h.Page.Guard(page))
	}
	withSession.GET(onboarding.SchoolSetupURL, h.Page.SchoolSetup)

	rateLimit := middleware.RateLimit(limiter, cfg.RateLimit.Requests, cfg.RateLimit.Window, logger)

	// ── API v1 ──
	v1 := withSession.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", rateLimit, h.Auth.Signup)
			auth.POST("/login", rateLimit, h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		v1.GET("/onboarding/resolve", h.Onboarding.Resolve)

		// 表单类变更接口自行校验会话，错误统一以 {success:false, error} 返回
		v1.POST("/onboarding/role", rateLimit, h.Onboarding.SelectRole)
		profile := v1.Group("/profile")
		{
			profile.POST("/teacher", rateLimit, h.Profile.CompleteTeacher)
			profile.POST("/recruiter", rateLimit, h.Profile.CompleteRecruiter)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.RequireAuth())
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			admin := authorized.Group("/admin", middleware.RoleAuth(model.RoleAdmin))
			{
				admin.GET("/onboarding/export", h.Export.ExportOnboarding)
				admin.GET("/users", h.User.ListUsers)
				admin.GET("/users/:id", h.User.GetUser)
			}
		}
	}

	return r
}
