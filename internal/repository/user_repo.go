package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/esl365/aijox.com-sub004/internal/model"
	pkgerrors "github.com/esl365/aijox.com-sub004/pkg/errors"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// AssignRoleIfUnset 原子条件更新：仅当 role 仍未设置时写入
	// 未命中时返回 pkgerrors.ErrConditionalUpdate；用户不存在返回 gorm.ErrRecordNotFound
	AssignRoleIfUnset(ctx context.Context, id string, role model.Role) error
	List(ctx context.Context, offset, limit int) ([]model.User, int64, error)
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	conn
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	db, cancel := r.with(ctx)
	defer cancel()
	return db.Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	var user model.User
	if err := db.Where("user_id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	var user model.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// AssignRoleIfUnset 以单条带 role 为空条件的 UPDATE 完成检查与写入
// 并发的重复提交中只有一条能命中，其余看到已设置的角色
func (r *userRepo) AssignRoleIfUnset(ctx context.Context, id string, role model.Role) error {
	db, cancel := r.with(ctx)
	defer cancel()

	result := db.Model(&model.User{}).
		Where("user_id = ? AND role = ?", id, model.RoleUnset).
		Updates(map[string]interface{}{
			"role":       role,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	// 未命中：区分“用户不存在”与“角色已设置”，不影响上面写入的原子性
	var count int64
	if err := db.Model(&model.User{}).Where("user_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return pkgerrors.ErrConditionalUpdate
}

func (r *userRepo) List(ctx context.Context, offset, limit int) ([]model.User, int64, error) {
	db, cancel := r.with(ctx)
	defer cancel()

	var users []model.User
	var total int64

	q := db.Model(&model.User{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := q.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}
