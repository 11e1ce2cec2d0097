package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/esl365/aijox.com-sub004/internal/onboarding"
	"github.com/esl365/aijox.com-sub004/internal/repository"
)

// invalidateTimeout 缓存失效的独立超时，不受请求取消影响
const invalidateTimeout = 2 * time.Second

// SessionService 会话提供者
//
// 会话快照 = users 行 + 角色资料是否存在，读取后缓存 cacheTTL。
// 写入角色或资料后必须调用 Invalidate，否则在 TTL 内会读到旧状态。
type SessionService interface {
	// Current 读取用户会话快照；userID 为空或用户不存在时返回匿名会话
	Current(ctx context.Context, userID string) (onboarding.Session, error)
	// Invalidate 尽力删除缓存的会话快照，失败只记录日志
	Invalidate(ctx context.Context, userID string)
}

type sessionService struct {
	repo     *repository.Repository
	cache    SessionCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewSessionService 创建 SessionService 实例
// cache 为 nil 时每次都从存储读取
func NewSessionService(repo *repository.Repository, cache SessionCache, cacheTTL time.Duration, logger *zap.Logger) SessionService {
	return &sessionService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

func (s *sessionService) Current(ctx context.Context, userID string) (onboarding.Session, error) {
	if userID == "" {
		return onboarding.Anonymous(), nil
	}

	// 代数必须在回源读取之前取得
	cacheable := s.cache != nil && s.cacheTTL > 0
	var generation int64
	if cacheable {
		gen, err := s.cache.SessionGeneration(ctx, userID)
		if err != nil {
			s.logger.Warn("读取会话代数失败，回源存储且不写缓存", zap.String("user_id", userID), zap.Error(err))
			cacheable = false
		} else {
			generation = gen
			var cached onboarding.Session
			hit, err := s.cache.GetSession(ctx, userID, &cached)
			if err != nil {
				s.logger.Warn("读取会话缓存失败，回源存储", zap.String("user_id", userID), zap.Error(err))
			} else if hit {
				return cached, nil
			}
		}
	}

	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Token 有效但用户已不存在，按未登录处理
			return onboarding.Anonymous(), nil
		}
		s.logger.Error("读取用户失败", zap.String("user_id", userID), zap.Error(err))
		return onboarding.Anonymous(), fmt.Errorf("%w: %v", onboarding.ErrStoreUnavailable, err)
	}

	hasProfile, err := s.repo.Profile.Exists(ctx, user.Role, user.UserID)
	if err != nil {
		s.logger.Error("查询角色资料失败", zap.String("user_id", userID), zap.Error(err))
		return onboarding.Anonymous(), fmt.Errorf("%w: %v", onboarding.ErrStoreUnavailable, err)
	}

	sess := onboarding.Session{
		Authenticated: true,
		UserID:        user.UserID,
		Name:          user.Name,
		Role:          user.Role,
		HasProfile:    hasProfile,
	}

	if cacheable {
		stored, err := s.cache.SetSession(ctx, userID, generation, sess, s.cacheTTL)
		switch {
		case err != nil:
			s.logger.Warn("写入会话缓存失败", zap.String("user_id", userID), zap.Error(err))
		case !stored:
			s.logger.Debug("会话已在读取期间失效，跳过写缓存", zap.String("user_id", userID))
		}
	}

	return sess, nil
}

func (s *sessionService) Invalidate(ctx context.Context, userID string) {
	if s.cache == nil || userID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()

	if err := s.cache.DeleteSession(ctx, userID); err != nil {
		// 不阻断业务：缓存到期后自然恢复
		s.logger.Warn("会话缓存失效失败", zap.String("user_id", userID), zap.Error(err))
	}
}
