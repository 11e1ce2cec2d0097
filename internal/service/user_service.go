package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/esl365/aijox.com-sub004/internal/dto"
	"github.com/esl365/aijox.com-sub004/internal/model"
	"github.com/esl365/aijox.com-sub004/internal/onboarding"
	"github.com/esl365/aijox.com-sub004/internal/repository"
)

var ErrUserNotFound = errors.New("用户不存在")

// UserService 管理端用户查询
// 角色只能由用户自助选择一次，这里不提供修改入口
type UserService interface {
	List(ctx context.Context, page *dto.PaginationRequest) ([]dto.AdminUserResponse, int64, error)
	GetByID(ctx context.Context, id string) (*dto.AdminUserResponse, error)
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

func (s *userService) List(ctx context.Context, page *dto.PaginationRequest) ([]dto.AdminUserResponse, int64, error) {
	users, total, err := s.repo.User.List(ctx, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询用户列表失败", zap.Error(err))
		return nil, 0, fmt.Errorf("%w: %v", onboarding.ErrStoreUnavailable, err)
	}

	owners, err := profileOwners(ctx, s.repo, users)
	if err != nil {
		s.logger.Error("批量查询角色资料失败", zap.Error(err))
		return nil, 0, fmt.Errorf("%w: %v", onboarding.ErrStoreUnavailable, err)
	}

	list := make([]dto.AdminUserResponse, 0, len(users))
	for i := range users {
		list = append(list, toAdminUserResponse(&users[i], owners[users[i].UserID]))
	}
	return list, total, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*dto.AdminUserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", onboarding.ErrStoreUnavailable, err)
	}

	hasProfile, err := s.repo.Profile.Exists(ctx, user.Role, user.UserID)
	if err != nil {
		s.logger.Error("查询角色资料失败", zap.String("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", onboarding.ErrStoreUnavailable, err)
	}

	resp := toAdminUserResponse(user, hasProfile)
	return &resp, nil
}

// profileOwners 按角色分组批量查询资料，返回已有资料的用户集合
func profileOwners(ctx context.Context, repo *repository.Repository, users []model.User) (map[string]bool, error) {
	byRole := make(map[model.Role][]string)
	for _, u := range users {
		if u.Role.RequiresProfile() {
			byRole[u.Role] = append(byRole[u.Role], u.UserID)
		}
	}

	owners := make(map[string]bool)
	for role, ids := range byRole {
		got, err := repo.Profile.OwnersWithProfile(ctx, role, ids)
		if err != nil {
			return nil, err
		}
		for id := range got {
			owners[id] = true
		}
	}
	return owners, nil
}

func toAdminUserResponse(u *model.User, hasProfile bool) dto.AdminUserResponse {
	sess := onboarding.Session{Authenticated: true, UserID: u.UserID, Role: u.Role, HasProfile: hasProfile}
	return dto.AdminUserResponse{
		ID:         u.UserID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role.String(),
		HasProfile: hasProfile,
		State:      sess.State(),
		CreatedAt:  u.CreatedAt.Format(time.RFC3339),
	}
}
