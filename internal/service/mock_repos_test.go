package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/esl365/aijox.com-sub004/internal/model"
	"github.com/esl365/aijox.com-sub004/internal/repository"
	pkgerrors "github.com/esl365/aijox.com-sub004/pkg/errors"
)

// ── Mock UserRepository ──
// 以互斥锁模拟存储层的条件更新，保证并发测试语义与真实数据库一致

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User // key: user_id
	err   error                  // 非 nil 时所有调用返回该错误
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	user.CreatedAt = time.Now()
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) AssignRoleIfUnset(_ context.Context, id string, role model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if u.Role.IsSet() {
		return pkgerrors.ErrConditionalUpdate
	}
	u.Role = role
	return nil
}

func (m *mockUserRepo) List(_ context.Context, offset, limit int) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, 0, m.err
	}
	all := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })

	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// put 直接写入测试用户
func (m *mockUserRepo) put(u *model.User) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.UserID] = &cp
	return u
}

func (m *mockUserRepo) roleOf(id string) model.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].Role
}

// ── Mock ProfileRepository ──

type mockProfileRepo struct {
	mu        sync.Mutex
	profiles  map[model.Role]map[string]model.Profile
	existsErr error
	createErr error
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[model.Role]map[string]model.Profile)}
}

func (m *mockProfileRepo) Exists(_ context.Context, role model.Role, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.profiles[role][userID]
	return ok, nil
}

func (m *mockProfileRepo) Get(_ context.Context, role model.Role, userID string) (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[role][userID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProfileRepo) CreateIfAbsent(_ context.Context, profile model.Profile) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return false, m.createErr
	}
	role := profile.ProfileRole()
	if m.profiles[role] == nil {
		m.profiles[role] = make(map[string]model.Profile)
	}
	if _, ok := m.profiles[role][profile.OwnerID()]; ok {
		return false, nil
	}
	m.profiles[role][profile.OwnerID()] = profile
	return true, nil
}

func (m *mockProfileRepo) OwnersWithProfile(_ context.Context, role model.Role, userIDs []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return nil, m.existsErr
	}
	owners := make(map[string]bool)
	for _, id := range userIDs {
		if _, ok := m.profiles[role][id]; ok {
			owners[id] = true
		}
	}
	return owners, nil
}

func (m *mockProfileRepo) count(role model.Role) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.profiles[role])
}

// ── Fake SessionCache / TokenBlacklist ──

type fakeCache struct {
	mu          sync.Mutex
	sessions    map[string][]byte
	generations map[string]int64
	blacklist   map[string]time.Duration
	getErr      error
	genErr      error
	deleteErr   error
	deleteCalls int
	// beforeSet 在写入前执行（不持锁），用于模拟回源期间的并发写
	beforeSet func()
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		sessions:    make(map[string][]byte),
		generations: make(map[string]int64),
		blacklist:   make(map[string]time.Duration),
	}
}

func (c *fakeCache) SessionGeneration(_ context.Context, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.genErr != nil {
		return 0, c.genErr
	}
	return c.generations[userID], nil
}

func (c *fakeCache) GetSession(_ context.Context, userID string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return false, c.getErr
	}
	data, ok := c.sessions[userID]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dst)
}

func (c *fakeCache) SetSession(_ context.Context, userID string, generation int64, v interface{}, _ time.Duration) (bool, error) {
	if c.beforeSet != nil {
		hook := c.beforeSet
		c.beforeSet = nil
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[userID] != generation {
		return false, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	c.sessions[userID] = data
	return true, nil
}

func (c *fakeCache) DeleteSession(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteCalls++
	if c.deleteErr != nil {
		return c.deleteErr
	}
	c.generations[userID]++
	delete(c.sessions, userID)
	return nil
}

func (c *fakeCache) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blacklist[jti] = ttl
	return nil
}

func (c *fakeCache) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.blacklist[jti]
	return ok, nil
}

func (c *fakeCache) cached(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sessions[userID]
	return ok
}

// ── 测试辅助 ──

func newMockRepository() (*repository.Repository, *mockUserRepo, *mockProfileRepo) {
	users := newMockUserRepo()
	profiles := newMockProfileRepo()
	return &repository.Repository{User: users, Profile: profiles}, users, profiles
}

// invalidateRecorder 记录失效回调的调用
type invalidateRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *invalidateRecorder) fn() func(ctx context.Context, userID string) {
	return func(_ context.Context, userID string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, userID)
	}
}

func (r *invalidateRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}
