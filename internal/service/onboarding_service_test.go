package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/esl365/aijox.com-sub004/internal/dto"
	"github.com/esl365/aijox.com-sub004/internal/model"
	"github.com/esl365/aijox.com-sub004/internal/onboarding"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setupTestOnboardingService() (*onboardingService, *mockUserRepo, *mockProfileRepo) {
	cfg := testConfig()
	repo, users, profiles := newMockRepository()
	svc := NewOnboardingService(&cfg.Onboarding, repo, zap.NewNop()).(*onboardingService)
	return svc, users, profiles
}

func sessionOf(u *model.User) onboarding.Session {
	return onboarding.Session{Authenticated: true, UserID: u.UserID, Name: u.Name, Role: u.Role}
}

// ── AssignRole ──

func TestAssignRole_Success(t *testing.T) {
	svc, users, _ := setupTestOnboardingService()
	u := users.put(&model.User{UserID: "u1", Name: "Park", Email: "park@example.com"})
	rec := &invalidateRecorder{}

	for _, tt := range []struct {
		role model.Role
		want string
	}{
		{model.RoleTeacher, "/profile/setup"},
		{model.RoleRecruiter, "/recruiter/setup"},
		{model.RoleSchool, "/school/setup"},
	} {
		t.Run(string(tt.role), func(t *testing.T) {
			users.put(&model.User{UserID: u.UserID, Email: u.Email})
			got, err := svc.AssignRole(context.Background(), sessionOf(u), tt.role, rec.fn())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.role, users.roleOf(u.UserID))
		})
	}
	assert.Equal(t, 3, rec.count(), "每次成功写入都应失效缓存")
}

func TestAssignRole_Rejections(t *testing.T) {
	svc, users, _ := setupTestOnboardingService()
	users.put(&model.User{UserID: "u1", Email: "u1@example.com"})

	tests := []struct {
		name  string
		actor onboarding.Session
		role  model.Role
		want  error
	}{
		{"未登录", onboarding.Anonymous(), model.RoleTeacher, onboarding.ErrUnauthenticated},
		{"ADMIN 不可自选", onboarding.Session{Authenticated: true, UserID: "u1"}, model.RoleAdmin, onboarding.ErrInvalidRole},
		{"空角色", onboarding.Session{Authenticated: true, UserID: "u1"}, model.RoleUnset, onboarding.ErrInvalidRole},
		{"快照已有角色", onboarding.Session{Authenticated: true, UserID: "u1", Role: model.RoleTeacher}, model.RoleSchool, onboarding.ErrRoleAlreadySet},
		{"用户不存在", onboarding.Session{Authenticated: true, UserID: "ghost"}, model.RoleTeacher, onboarding.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &invalidateRecorder{}
			_, err := svc.AssignRole(context.Background(), tt.actor, tt.role, rec.fn())
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, rec.count())
		})
	}
	assert.Equal(t, model.RoleUnset, users.roleOf("u1"), "被拒绝的请求不应写入角色")
}

func TestAssignRole_StaleSnapshotLosesToStore(t *testing.T) {
	svc, users, _ := setupTestOnboardingService()
	users.put(&model.User{UserID: "u1", Email: "u1@example.com", Role: model.RoleRecruiter})
	rec := &invalidateRecorder{}

	// 快照仍显示未设置角色，但存储中已有
	_, err := svc.AssignRole(context.Background(), onboarding.Session{Authenticated: true, UserID: "u1"}, model.RoleTeacher, rec.fn())

	assert.ErrorIs(t, err, onboarding.ErrRoleAlreadySet)
	assert.Equal(t, model.RoleRecruiter, users.roleOf("u1"))
	assert.Equal(t, 1, rec.count(), "发现旧快照时应失效缓存")
}

func TestAssignRole_StoreFailure(t *testing.T) {
	svc, users, _ := setupTestOnboardingService()
	users.put(&model.User{UserID: "u1", Email: "u1@example.com"})
	users.err = errors.New("connection reset")

	_, err := svc.AssignRole(context.Background(), onboarding.Session{Authenticated: true, UserID: "u1"}, model.RoleTeacher, (&invalidateRecorder{}).fn())
	assert.ErrorIs(t, err, onboarding.ErrStoreUnavailable)
}

func TestAssignRole_ConcurrentDuplicateSubmissions(t *testing.T) {
	svc, users, _ := setupTestOnboardingService()
	u := users.put(&model.User{UserID: "u1", Email: "u1@example.com"})
	actor := sessionOf(u)
	rec := &invalidateRecorder{}

	roles := []model.Role{model.RoleTeacher, model.RoleRecruiter, model.RoleSchool, model.RoleTeacher, model.RoleSchool, model.RoleRecruiter}
	var ok, conflict atomic.Int32

	g, ctx := errgroup.WithContext(context.Background())
	for _, role := range roles {
		role := role
		g.Go(func() error {
			_, err := svc.AssignRole(ctx, actor, role, rec.fn())
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, onboarding.ErrRoleAlreadySet):
				conflict.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 1, ok.Load(), "只能有一个请求成功")
	assert.EqualValues(t, len(roles)-1, conflict.Load())
	assert.True(t, users.roleOf("u1").SelfAssignable())
	assert.Equal(t, len(roles), rec.count())
}

// ── ProvisionSchool ──

func TestProvisionSchool_CreatesVerifiedProfile(t *testing.T) {
	svc, users, profiles := setupTestOnboardingService()
	u := users.put(&model.User{UserID: "s1", Name: "Seoul Foreign School", Email: "sfs@example.com", Role: model.RoleSchool})
	rec := &invalidateRecorder{}

	got, err := svc.ProvisionSchool(context.Background(), sessionOf(u), rec.fn())
	require.NoError(t, err)
	assert.Equal(t, "/school/dashboard", got)
	assert.Equal(t, 1, rec.count())

	p, err := profiles.Get(context.Background(), model.RoleSchool, "s1")
	require.NoError(t, err)
	school := p.(*model.SchoolProfile)
	assert.Equal(t, "Seoul Foreign School", school.SchoolName)
	assert.Equal(t, "South Korea", school.Country)
	assert.Equal(t, "Seoul", school.City)
	assert.True(t, school.IsVerified)
	assert.NotNil(t, school.VerifiedAt)
}

func TestProvisionSchool_Idempotent(t *testing.T) {
	svc, users, profiles := setupTestOnboardingService()
	u := users.put(&model.User{UserID: "s1", Name: "Busan Academy", Email: "ba@example.com", Role: model.RoleSchool})

	g := new(errgroup.Group)
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			_, err := svc.ProvisionSchool(context.Background(), sessionOf(u), (&invalidateRecorder{}).fn())
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, profiles.count(model.RoleSchool))
}

func TestProvisionSchool_Rejections(t *testing.T) {
	svc, users, profiles := setupTestOnboardingService()
	teacher := users.put(&model.User{UserID: "t1", Email: "t1@example.com", Role: model.RoleTeacher})
	school := users.put(&model.User{UserID: "s1", Email: "s1@example.com", Role: model.RoleSchool})

	_, err := svc.ProvisionSchool(context.Background(), onboarding.Anonymous(), (&invalidateRecorder{}).fn())
	assert.ErrorIs(t, err, onboarding.ErrUnauthenticated)

	_, err = svc.ProvisionSchool(context.Background(), sessionOf(teacher), (&invalidateRecorder{}).fn())
	assert.ErrorIs(t, err, onboarding.ErrRoleMismatch)

	profiles.createErr = errors.New("unique violation on something else")
	rec := &invalidateRecorder{}
	_, err = svc.ProvisionSchool(context.Background(), sessionOf(school), rec.fn())
	assert.ErrorIs(t, err, onboarding.ErrProfileCreateFailed)
	assert.Zero(t, rec.count())
}

func TestProvisionSchool_FallsBackToEmailForName(t *testing.T) {
	svc, users, profiles := setupTestOnboardingService()
	u := users.put(&model.User{UserID: "s1", Name: "  ", Email: "office@school.kr", Role: model.RoleSchool})

	_, err := svc.ProvisionSchool(context.Background(), sessionOf(u), (&invalidateRecorder{}).fn())
	require.NoError(t, err)

	p, _ := profiles.Get(context.Background(), model.RoleSchool, "s1")
	assert.Equal(t, "office@school.kr", p.(*model.SchoolProfile).SchoolName)
}

// ── 教师 / 招聘方资料 ──

func TestCompleteTeacherProfile(t *testing.T) {
	svc, users, profiles := setupTestOnboardingService()
	u := users.put(&model.User{UserID: "t1", Email: "t1@example.com", Role: model.RoleTeacher})
	req := &dto.TeacherProfileRequest{FullName: " Jane Doe ", Nationality: "Canada", YearsExperience: 3}

	rec := &invalidateRecorder{}
	got, err := svc.CompleteTeacherProfile(context.Background(), sessionOf(u), req, rec.fn())
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", got)
	assert.Equal(t, 1, rec.count())

	p, _ := profiles.Get(context.Background(), model.RoleTeacher, "t1")
	assert.Equal(t, "Jane Doe", p.(*model.TeacherProfile).FullName)

	// 重复提交：不覆盖，仍然失效缓存
	_, err = svc.CompleteTeacherProfile(context.Background(), sessionOf(u), req, rec.fn())
	assert.ErrorIs(t, err, onboarding.ErrProfileExists)
	assert.Equal(t, 2, rec.count())
}

func TestCompleteRecruiterProfile_RoleMismatch(t *testing.T) {
	svc, users, profiles := setupTestOnboardingService()
	u := users.put(&model.User{UserID: "t1", Email: "t1@example.com", Role: model.RoleTeacher})

	_, err := svc.CompleteRecruiterProfile(context.Background(), sessionOf(u),
		&dto.RecruiterProfileRequest{CompanyName: "Acme Staffing"}, (&invalidateRecorder{}).fn())

	assert.ErrorIs(t, err, onboarding.ErrRoleMismatch)
	assert.Zero(t, profiles.count(model.RoleRecruiter))
}

func TestCompleteRecruiterProfile_StoreFailure(t *testing.T) {
	svc, users, profiles := setupTestOnboardingService()
	u := users.put(&model.User{UserID: "r1", Email: "r1@example.com", Role: model.RoleRecruiter})
	profiles.createErr = context.DeadlineExceeded

	_, err := svc.CompleteRecruiterProfile(context.Background(), sessionOf(u),
		&dto.RecruiterProfileRequest{CompanyName: "Acme Staffing"}, (&invalidateRecorder{}).fn())
	assert.ErrorIs(t, err, onboarding.ErrProfileCreateFailed)
}
