package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/esl365/aijox.com-sub004/config"
	"github.com/esl365/aijox.com-sub004/internal/model"
	"github.com/esl365/aijox.com-sub004/internal/onboarding"
)

func setupTestSessionService(cache SessionCache) (SessionService, *mockUserRepo, *mockProfileRepo) {
	repo, users, profiles := newMockRepository()
	return NewSessionService(repo, cache, 5*time.Minute, zap.NewNop()), users, profiles
}

func TestSessionService_Current_EmptyIDIsAnonymous(t *testing.T) {
	svc, _, _ := setupTestSessionService(newFakeCache())

	sess, err := svc.Current(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, onboarding.StateAnonymous, sess.State())
}

func TestSessionService_Current_UnknownUserIsAnonymous(t *testing.T) {
	svc, _, _ := setupTestSessionService(newFakeCache())

	sess, err := svc.Current(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, sess.Authenticated)
}

func TestSessionService_Current_JoinsProfileAndCaches(t *testing.T) {
	cache := newFakeCache()
	svc, users, profiles := setupTestSessionService(cache)
	users.put(&model.User{UserID: "u1", Name: "Lee", Email: "lee@example.com", Role: model.RoleTeacher})
	_, _ = profiles.CreateIfAbsent(context.Background(), &model.TeacherProfile{UserID: "u1", FullName: "Lee"})

	sess, err := svc.Current(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, onboarding.Session{
		Authenticated: true,
		UserID:        "u1",
		Name:          "Lee",
		Role:          model.RoleTeacher,
		HasProfile:    true,
	}, sess)
	assert.True(t, cache.cached("u1"))
}

func TestSessionService_Current_ServesStaleUntilInvalidated(t *testing.T) {
	cache := newFakeCache()
	svc, users, _ := setupTestSessionService(cache)
	users.put(&model.User{UserID: "u1", Email: "u1@example.com"})

	sess, err := svc.Current(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, onboarding.StateRoleUnset, sess.State())

	require.NoError(t, users.AssignRoleIfUnset(context.Background(), "u1", model.RoleRecruiter))

	sess, _ = svc.Current(context.Background(), "u1")
	assert.Equal(t, onboarding.StateRoleUnset, sess.State(), "失效前应读到缓存快照")

	svc.Invalidate(context.Background(), "u1")
	sess, _ = svc.Current(context.Background(), "u1")
	assert.Equal(t, onboarding.StateProfileIncomplete, sess.State())
}

func TestSessionService_Current_InvalidateDuringReadIsNotOverwritten(t *testing.T) {
	cache := newFakeCache()
	repo, users, _ := newMockRepository()
	sessions := NewSessionService(repo, cache, 5*time.Minute, zap.NewNop())
	onboard := NewOnboardingService(&config.OnboardingConfig{}, repo, zap.NewNop())
	users.put(&model.User{UserID: "u1", Email: "u1@example.com"})

	// 回源读取已完成、写缓存之前，另一个请求完成角色选择并失效缓存
	cache.beforeSet = func() {
		actor := onboarding.Session{Authenticated: true, UserID: "u1"}
		_, err := onboard.AssignRole(context.Background(), actor, model.RoleRecruiter, sessions.Invalidate)
		require.NoError(t, err)
	}

	sess, err := sessions.Current(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, onboarding.StateRoleUnset, sess.State(), "本次读取发生在角色写入之前")
	assert.False(t, cache.cached("u1"), "失效之后不应写回旧快照")

	sess, err = sessions.Current(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleRecruiter, sess.Role)
	assert.Equal(t, onboarding.StateProfileIncomplete, sess.State())
}

func TestSessionService_Current_GenerationErrorSkipsCache(t *testing.T) {
	cache := newFakeCache()
	cache.genErr = errors.New("redis down")
	svc, users, _ := setupTestSessionService(cache)
	users.put(&model.User{UserID: "u1", Email: "u1@example.com", Role: model.RoleTeacher})

	sess, err := svc.Current(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, onboarding.StateProfileIncomplete, sess.State())
	assert.False(t, cache.cached("u1"))
}

func TestSessionService_Current_CacheErrorFallsBackToStore(t *testing.T) {
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	svc, users, _ := setupTestSessionService(cache)
	users.put(&model.User{UserID: "u1", Email: "u1@example.com", Role: model.RoleAdmin})

	sess, err := svc.Current(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, onboarding.StateReady, sess.State())
}

func TestSessionService_Current_StoreFailure(t *testing.T) {
	svc, users, _ := setupTestSessionService(nil)
	users.err = errors.New("connection refused")

	_, err := svc.Current(context.Background(), "u1")
	assert.ErrorIs(t, err, onboarding.ErrStoreUnavailable)
}

func TestSessionService_Current_ProfileLookupFailure(t *testing.T) {
	svc, users, profiles := setupTestSessionService(nil)
	users.put(&model.User{UserID: "u1", Email: "u1@example.com", Role: model.RoleSchool})
	profiles.existsErr = context.DeadlineExceeded

	_, err := svc.Current(context.Background(), "u1")
	assert.ErrorIs(t, err, onboarding.ErrStoreUnavailable)
}

func TestSessionService_Invalidate_IgnoresCancelledRequest(t *testing.T) {
	cache := newFakeCache()
	svc, _, _ := setupTestSessionService(cache)
	cache.sessions["u1"] = []byte(`{}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Invalidate(ctx, "u1")

	assert.False(t, cache.cached("u1"))
}

func TestSessionService_Invalidate_FailureIsSwallowed(t *testing.T) {
	cache := newFakeCache()
	cache.deleteErr = errors.New("redis down")
	svc, _, _ := setupTestSessionService(cache)

	assert.NotPanics(t, func() { svc.Invalidate(context.Background(), "u1") })
	assert.Equal(t, 1, cache.deleteCalls)
}
