package handler

import (
	"go.uber.org/zap"

	"github.com/esl365/aijox.com-sub004/config"
	"github.com/esl365/aijox.com-sub004/internal/service"
	"github.com/esl365/aijox.com-sub004/pkg/jwt"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Onboarding *OnboardingHandler
	Page       *PageHandler
	Profile    *ProfileHandler
	Export     *ExportHandler
	User       *UserHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service, jwtMgr *jwt.Manager, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth, cfg.Auth.Cookie, jwtMgr.RefreshTokenTTL),
		Onboarding: NewOnboardingHandler(svc.Onboarding, svc.Session, logger),
		Page:       NewPageHandler(svc.Onboarding, svc.Session, logger),
		Profile:    NewProfileHandler(svc.Onboarding, svc.Session),
		Export:     NewExportHandler(svc.Export),
		User:       NewUserHandler(svc.User),
	}
}
