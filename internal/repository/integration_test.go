//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/esl365/aijox.com-sub004/internal/model"
	"github.com/esl365/aijox.com-sub004/internal/repository"
	"github.com/esl365/aijox.com-sub004/pkg/database"
	pkgerrors "github.com/esl365/aijox.com-sub004/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=postgres password=postgres dbname=jobboard_test sslmode=disable TimeZone=Asia/Seoul"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取底层连接失败: %v\n", err)
		os.Exit(1)
	}
	// 走真实迁移脚本，而非 AutoMigrate
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// setupUser 创建未设置角色的用户并返回清理函数
func setupUser(t *testing.T, repo *repository.Repository) (*model.User, func()) {
	t.Helper()
	u := &model.User{
		Name:         "测试用户",
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "$2a$10$placeholder",
	}
	if err := repo.User.Create(context.Background(), u); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	return u, func() {
		for _, p := range []interface{}{&model.TeacherProfile{}, &model.RecruiterProfile{}, &model.SchoolProfile{}} {
			testDB.Where("user_id = ?", u.UserID).Delete(p)
		}
		testDB.Where("user_id = ?", u.UserID).Delete(&model.User{})
	}
}

// ═══════════════════════════════════════════════════════════
// 角色条件更新
// ═══════════════════════════════════════════════════════════

func TestIntegration_AssignRoleIfUnset_Concurrent(t *testing.T) {
	repo := repository.NewRepository(testDB, 5*time.Second)
	u, cleanup := setupUser(t, repo)
	defer cleanup()

	const workers = 16
	roles := []model.Role{model.RoleTeacher, model.RoleRecruiter, model.RoleSchool}
	results := make([]error, workers)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			results[i] = repo.User.AssignRoleIfUnset(context.Background(), u.UserID, roles[i%len(roles)])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	successes := 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, pkgerrors.ErrConditionalUpdate):
		default:
			t.Fatalf("意外错误: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("期望恰好 1 次成功，实际=%d", successes)
	}

	got, err := repo.User.GetByID(context.Background(), u.UserID)
	if err != nil {
		t.Fatalf("查询用户失败: %v", err)
	}
	if !got.Role.SelfAssignable() {
		t.Errorf("角色应已写入，实际=%q", got.Role)
	}
}

// ═══════════════════════════════════════════════════════════
// 资料幂等创建
// ═══════════════════════════════════════════════════════════

func TestIntegration_CreateIfAbsent_Concurrent(t *testing.T) {
	repo := repository.NewRepository(testDB, 5*time.Second)
	u, cleanup := setupUser(t, repo)
	defer cleanup()

	if err := repo.User.AssignRoleIfUnset(context.Background(), u.UserID, model.RoleSchool); err != nil {
		t.Fatalf("设置角色失败: %v", err)
	}

	const workers = 8
	created := make([]bool, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			now := time.Now()
			ok, err := repo.Profile.CreateIfAbsent(context.Background(), &model.SchoolProfile{
				UserID:     u.UserID,
				SchoolName: "Integration School",
				Country:    "South Korea",
				City:       "Seoul",
				IsVerified: true,
				VerifiedAt: &now,
			})
			created[i] = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("CreateIfAbsent 不应返回错误: %v", err)
	}

	n := 0
	for _, ok := range created {
		if ok {
			n++
		}
	}
	if n != 1 {
		t.Errorf("期望只创建 1 份资料，实际=%d", n)
	}

	exists, err := repo.Profile.Exists(context.Background(), model.RoleSchool, u.UserID)
	if err != nil || !exists {
		t.Errorf("资料应存在: exists=%v err=%v", exists, err)
	}
}

func TestIntegration_MigrationVersion(t *testing.T) {
	sqlDB, err := testDB.DB()
	if err != nil {
		t.Fatal(err)
	}
	mg, err := database.NewMigrator(sqlDB, zap.NewNop())
	if err != nil {
		t.Fatalf("创建迁移器失败: %v", err)
	}

	v, dirty, err := mg.Version()
	if err != nil {
		t.Fatalf("读取版本失败: %v", err)
	}
	if dirty || v < 2 {
		t.Errorf("期望已迁移到最新且非 dirty，实际 version=%d dirty=%v", v, dirty)
	}
}
