package onboarding

import (
	"context"

	"github.com/esl365/aijox.com-sub004/internal/model"
)

// Session 单次请求内有效的会话快照
//
// HasProfile 在读取会话时由 users 与角色资料表关联得出，不落库；
// 刚创建的资料在缓存失效之前可能不可见（陈旧窗口）。
type Session struct {
	Authenticated bool       `json:"authenticated"`
	UserID        string     `json:"user_id,omitempty"`
	Name          string     `json:"name,omitempty"`
	Role          model.Role `json:"role"`
	HasProfile    bool       `json:"has_profile"`
}

// Anonymous 未登录会话
func Anonymous() Session { return Session{} }

// State 入驻状态
type State string

const (
	StateAnonymous         State = "anonymous"
	StateRoleUnset         State = "role_unset"
	StateProfileIncomplete State = "profile_incomplete"
	StateReady             State = "ready"
)

// State 由 (authenticated, role, hasProfile) 推导入驻状态
// 角色未设置时忽略 HasProfile；ADMIN 没有专属资料，直接视为就绪
func (s Session) State() State {
	switch {
	case !s.Authenticated:
		return StateAnonymous
	case !s.Role.IsSet():
		return StateRoleUnset
	case !s.Role.RequiresProfile():
		return StateReady
	case !s.HasProfile:
		return StateProfileIncomplete
	default:
		return StateReady
	}
}

// InvalidateFunc 会话缓存失效回调
// 尽力而为：实现方自行记录失败，不向调用方返回错误
type InvalidateFunc func(ctx context.Context, userID string)
