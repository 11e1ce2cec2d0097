package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/esl365/aijox.com-sub004/config"
	"github.com/esl365/aijox.com-sub004/internal/repository"
	"github.com/esl365/aijox.com-sub004/pkg/jwt"
	"github.com/esl365/aijox.com-sub004/pkg/redis"
)

// SessionCache 会话快照缓存（由 pkg/redis.Client 实现）
//
// DeleteSession 必须推进代数；SetSession 只在代数未变时写入，
// 保证失效之后不会被并发的回源读取写回旧快照。
type SessionCache interface {
	SessionGeneration(ctx context.Context, userID string) (int64, error)
	GetSession(ctx context.Context, userID string, dst interface{}) (bool, error)
	SetSession(ctx context.Context, userID string, generation int64, v interface{}, ttl time.Duration) (bool, error)
	DeleteSession(ctx context.Context, userID string) error
}

// TokenBlacklist Token 黑名单（由 pkg/redis.Client 实现）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	User       UserService
	Session    SessionService
	Onboarding OnboardingService
	Export     ExportService
}

// NewService 创建 Service 聚合
// rdb 为 nil 时降级运行：不缓存会话，不维护 Token 黑名单
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	var (
		cache     SessionCache
		blacklist TokenBlacklist
	)
	if rdb != nil {
		cache = rdb
		blacklist = rdb
	}

	sessions := NewSessionService(repo, cache, cfg.Session.CacheTTL, logger)
	return &Service{
		Auth:       NewAuthService(cfg, repo, jwtMgr, blacklist, sessions, logger),
		User:       NewUserService(repo, logger),
		Session:    sessions,
		Onboarding: NewOnboardingService(&cfg.Onboarding, repo, logger),
		Export:     NewExportService(repo, logger),
	}
}
