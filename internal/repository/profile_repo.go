package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/esl365/aijox.com-sub004/internal/model"
)

// ProfileRepository 角色专属资料数据访问接口
type ProfileRepository interface {
	// Exists 判断用户是否已有该角色的资料；无专属资料的角色返回 false
	Exists(ctx context.Context, role model.Role, userID string) (bool, error)
	// Get 查询资料，不存在时返回 gorm.ErrRecordNotFound
	Get(ctx context.Context, role model.Role, userID string) (model.Profile, error)
	// CreateIfAbsent 按 user_id 唯一约束插入，已存在时不覆盖并返回 false
	CreateIfAbsent(ctx context.Context, profile model.Profile) (bool, error)
	// OwnersWithProfile 批量返回 userIDs 中已有该角色资料的用户集合
	OwnersWithProfile(ctx context.Context, role model.Role, userIDs []string) (map[string]bool, error)
}

type profileRepo struct {
	conn
}

func (r *profileRepo) Exists(ctx context.Context, role model.Role, userID string) (bool, error) {
	p, ok := model.NewProfileFor(role)
	if !ok {
		return false, nil
	}

	db, cancel := r.with(ctx)
	defer cancel()

	var count int64
	if err := db.Model(p).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *profileRepo) Get(ctx context.Context, role model.Role, userID string) (model.Profile, error) {
	p, ok := model.NewProfileFor(role)
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	db, cancel := r.with(ctx)
	defer cancel()

	if err := db.Where("user_id = ?", userID).First(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (r *profileRepo) CreateIfAbsent(ctx context.Context, profile model.Profile) (bool, error) {
	if profile.OwnerID() == "" {
		return false, fmt.Errorf("资料缺少 user_id")
	}

	db, cancel := r.with(ctx)
	defer cancel()

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(profile)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *profileRepo) OwnersWithProfile(ctx context.Context, role model.Role, userIDs []string) (map[string]bool, error) {
	owners := make(map[string]bool)
	p, ok := model.NewProfileFor(role)
	if !ok || len(userIDs) == 0 {
		return owners, nil
	}

	db, cancel := r.with(ctx)
	defer cancel()

	var ids []string
	if err := db.Model(p).Where("user_id IN ?", userIDs).Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		owners[id] = true
	}
	return owners, nil
}
