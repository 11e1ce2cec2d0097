package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/esl365/aijox.com-sub004/config"
	"github.com/esl365/aijox.com-sub004/internal/dto"
	"github.com/esl365/aijox.com-sub004/internal/model"
	"github.com/esl365/aijox.com-sub004/internal/onboarding"
	"github.com/esl365/aijox.com-sub004/internal/repository"
	pkgerrors "github.com/esl365/aijox.com-sub004/pkg/errors"
	"github.com/esl365/aijox.com-sub004/pkg/metrics"
)

// OnboardingService 入驻流程中的写操作
//
// 所有方法都以调用方读取的会话快照作为身份来源，
// 写入成功（或发现数据已被并发写入）后通过 invalidate 使会话缓存失效。
type OnboardingService interface {
	// AssignRole 为当前用户设置角色，仅在角色未设置时生效，返回对应的资料设置页
	AssignRole(ctx context.Context, actor onboarding.Session, role model.Role, invalidate onboarding.InvalidateFunc) (string, error)
	// ProvisionSchool 为 SCHOOL 用户创建默认学校资料（已存在时不覆盖），返回学校主页
	ProvisionSchool(ctx context.Context, actor onboarding.Session, invalidate onboarding.InvalidateFunc) (string, error)
	// CompleteTeacherProfile 提交教师资料
	CompleteTeacherProfile(ctx context.Context, actor onboarding.Session, req *dto.TeacherProfileRequest, invalidate onboarding.InvalidateFunc) (string, error)
	// CompleteRecruiterProfile 提交招聘方资料
	CompleteRecruiterProfile(ctx context.Context, actor onboarding.Session, req *dto.RecruiterProfileRequest, invalidate onboarding.InvalidateFunc) (string, error)
}

type onboardingService struct {
	cfg    *config.OnboardingConfig
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewOnboardingService 创建 OnboardingService 实例
func NewOnboardingService(cfg *config.OnboardingConfig, repo *repository.Repository, logger *zap.Logger) OnboardingService {
	return &onboardingService{cfg: cfg, repo: repo, logger: logger, now: time.Now}
}

// ═══════════════════════════════════════════════════════════
// AssignRole — 选择角色
// ═══════════════════════════════════════════════════════════
//
// 检查与写入由存储层的单条条件 UPDATE 完成；
// 会话中的 Role 只用于提前拒绝，不作为并发判定依据。

func (s *onboardingService) AssignRole(ctx context.Context, actor onboarding.Session, role model.Role, invalidate onboarding.InvalidateFunc) (string, error) {
	if !actor.Authenticated || actor.UserID == "" {
		metrics.RoleAssignments.WithLabelValues("unauthenticated").Inc()
		return "", onboarding.ErrUnauthenticated
	}
	if !role.SelfAssignable() {
		metrics.RoleAssignments.WithLabelValues("invalid_role").Inc()
		return "", onboarding.ErrInvalidRole
	}
	if actor.Role.IsSet() {
		metrics.RoleAssignments.WithLabelValues("already_set").Inc()
		return "", onboarding.ErrRoleAlreadySet
	}

	err := s.repo.User.AssignRoleIfUnset(ctx, actor.UserID, role)
	switch {
	case err == nil:
	case errors.Is(err, pkgerrors.ErrConditionalUpdate):
		// 并发请求已先写入；会话快照可能仍是旧的，一并失效
		invalidate(ctx, actor.UserID)
		metrics.RoleAssignments.WithLabelValues("already_set").Inc()
		return "", onboarding.ErrRoleAlreadySet
	case errors.Is(err, gorm.ErrRecordNotFound):
		metrics.RoleAssignments.WithLabelValues("unauthenticated").Inc()
		return "", onboarding.ErrUnauthenticated
	default:
		s.logger.Error("写入角色失败", zap.String("user_id", actor.UserID), zap.Error(err))
		metrics.RoleAssignments.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: %v", onboarding.ErrStoreUnavailable, err)
	}

	invalidate(ctx, actor.UserID)
	metrics.RoleAssignments.WithLabelValues("assigned").Inc()
	s.logger.Info("用户选择角色",
		zap.String("user_id", actor.UserID),
		zap.String("role", role.String()),
	)
	return onboarding.SetupURLFor(role, onboarding.SelectRoleURL), nil
}

// ═══════════════════════════════════════════════════════════
// ProvisionSchool — 学校资料自动创建
// ═══════════════════════════════════════════════════════════
//
// 学校名取用户显示名，地区取配置默认值，直接标记为已认证。
// 并发的两次首访由 user_id 唯一约束保证只插入一条。

func (s *onboardingService) ProvisionSchool(ctx context.Context, actor onboarding.Session, invalidate onboarding.InvalidateFunc) (string, error) {
	if !actor.Authenticated || actor.UserID == "" {
		return "", onboarding.ErrUnauthenticated
	}
	if actor.Role != model.RoleSchool {
		return "", onboarding.ErrRoleMismatch
	}

	user, err := s.repo.User.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", onboarding.ErrUnauthenticated
		}
		s.logger.Error("读取学校用户失败", zap.String("user_id", actor.UserID), zap.Error(err))
		metrics.SchoolAutoProvision.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("%w: %v", onboarding.ErrProfileCreateFailed, err)
	}

	name := strings.TrimSpace(user.Name)
	if name == "" {
		name = user.Email
	}
	now := s.now()
	profile := &model.SchoolProfile{
		UserID:     user.UserID,
		SchoolName: name,
		Country:    s.cfg.SchoolDefaultCountry,
		City:       s.cfg.SchoolDefaultCity,
		IsVerified: true,
		VerifiedAt: &now,
	}

	created, err := s.repo.Profile.CreateIfAbsent(ctx, profile)
	if err != nil {
		s.logger.Error("自动创建学校资料失败", zap.String("user_id", actor.UserID), zap.Error(err))
		metrics.SchoolAutoProvision.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("%w: %v", onboarding.ErrProfileCreateFailed, err)
	}

	invalidate(ctx, actor.UserID)
	if created {
		metrics.SchoolAutoProvision.WithLabelValues("created").Inc()
		s.logger.Info("已自动创建学校资料", zap.String("user_id", actor.UserID))
	} else {
		metrics.SchoolAutoProvision.WithLabelValues("existing").Inc()
	}
	return onboarding.SchoolDashboardURL, nil
}

// ── 教师 / 招聘方资料 ──

func (s *onboardingService) CompleteTeacherProfile(ctx context.Context, actor onboarding.Session, req *dto.TeacherProfileRequest, invalidate onboarding.InvalidateFunc) (string, error) {
	return s.completeProfile(ctx, actor, &model.TeacherProfile{
		UserID:          actor.UserID,
		FullName:        strings.TrimSpace(req.FullName),
		Nationality:     strings.TrimSpace(req.Nationality),
		YearsExperience: req.YearsExperience,
		Subjects:        strings.TrimSpace(req.Subjects),
		Bio:             strings.TrimSpace(req.Bio),
	}, invalidate)
}

func (s *onboardingService) CompleteRecruiterProfile(ctx context.Context, actor onboarding.Session, req *dto.RecruiterProfileRequest, invalidate onboarding.InvalidateFunc) (string, error) {
	return s.completeProfile(ctx, actor, &model.RecruiterProfile{
		UserID:      actor.UserID,
		CompanyName: strings.TrimSpace(req.CompanyName),
		Phone:       strings.TrimSpace(req.Phone),
		Website:     strings.TrimSpace(req.Website),
	}, invalidate)
}

func (s *onboardingService) completeProfile(ctx context.Context, actor onboarding.Session, profile model.Profile, invalidate onboarding.InvalidateFunc) (string, error) {
	if !actor.Authenticated || actor.UserID == "" {
		return "", onboarding.ErrUnauthenticated
	}
	if actor.Role != profile.ProfileRole() {
		return "", onboarding.ErrRoleMismatch
	}

	created, err := s.repo.Profile.CreateIfAbsent(ctx, profile)
	if err != nil {
		s.logger.Error("创建角色资料失败",
			zap.String("user_id", actor.UserID),
			zap.String("role", actor.Role.String()),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %v", onboarding.ErrProfileCreateFailed, err)
	}

	// 无论是否新建都失效：已存在说明快照中的 HasProfile 已过期
	invalidate(ctx, actor.UserID)
	if !created {
		return "", onboarding.ErrProfileExists
	}

	s.logger.Info("角色资料已创建",
		zap.String("user_id", actor.UserID),
		zap.String("role", actor.Role.String()),
	)
	return onboarding.HomeURLFor(actor.Role), nil
}
