package onboarding

import (
	"net/url"
	"strings"

	"github.com/esl365/aijox.com-sub004/internal/model"
)

// Resolve 计算入口页的守卫判定
// 纯函数：会话由调用方读取后传入，不访问任何存储
func Resolve(s Session, pc PageContext) Decision {
	switch pc.Page.Access {
	case AccessPublic:
		return resolvePublic(s, pc.CallbackURL)
	case AccessRoleSelection:
		return resolveRoleSelection(s)
	default:
		return resolveProtected(s, pc)
	}
}

// 登录/注册页：与普通页面相反，就绪用户被送走而不是放行
func resolvePublic(s Session, callback string) Decision {
	switch s.State() {
	case StateAnonymous:
		return Allow()
	case StateRoleUnset:
		return Redirect(SelectRoleURL, nil)
	case StateProfileIncomplete:
		return Redirect(SetupURLFor(s.Role, LoginURL), nil)
	default:
		if target, ok := SafeCallback(callback); ok {
			return Redirect(target, nil)
		}
		return Redirect(HomeURLFor(s.Role), nil)
	}
}

func resolveRoleSelection(s Session) Decision {
	switch s.State() {
	case StateAnonymous:
		return Redirect(LoginRedirectURL(SelectRoleURL), ErrUnauthenticated)
	case StateRoleUnset:
		return Allow()
	case StateProfileIncomplete:
		return Redirect(SetupURLFor(s.Role, SelectRoleURL), ErrRoleAlreadySet)
	default:
		return Redirect(HomeURLFor(s.Role), ErrRoleAlreadySet)
	}
}

func resolveProtected(s Session, pc PageContext) Decision {
	page := pc.Page
	state := s.State()

	if state == StateAnonymous {
		dest := pc.RequestURI
		if dest == "" {
			dest = page.Path
		}
		return Redirect(LoginRedirectURL(dest), ErrUnauthenticated)
	}
	if state == StateRoleUnset {
		return Redirect(SelectRoleURL, nil)
	}
	// 角色限定页面：流程不属于该角色，送回默认主页而不是设置页
	if page.Role.IsSet() && s.Role != page.Role {
		return Redirect(DashboardURL, ErrRoleMismatch)
	}

	if page.Access == AccessSetup {
		if state == StateProfileIncomplete {
			return Allow()
		}
		return Redirect(HomeURLFor(s.Role), nil)
	}

	if state == StateProfileIncomplete {
		return Redirect(SetupURLFor(s.Role, page.Path), nil)
	}
	return Allow()
}

// SetupURLFor 角色对应的资料设置页
// originPage 仅供日志/统计，不影响结果
func SetupURLFor(role model.Role, originPage string) string {
	_ = originPage
	switch role {
	case model.RoleTeacher:
		return TeacherSetupURL
	case model.RoleRecruiter:
		return RecruiterSetupURL
	case model.RoleSchool:
		return SchoolSetupURL
	case model.RoleUnset:
		return SelectRoleURL
	default:
		return DashboardURL
	}
}

// HomeURLFor 就绪用户的默认落地页
func HomeURLFor(role model.Role) string {
	if role == model.RoleSchool {
		return SchoolDashboardURL
	}
	return DashboardURL
}

// LoginRedirectURL 带回调地址的登录页
func LoginRedirectURL(dest string) string {
	if target, ok := SafeCallback(dest); ok {
		return LoginURL + "?" + CallbackParam + "=" + url.QueryEscape(target)
	}
	return LoginURL
}

// SafeCallback 校验回调地址：只接受站内相对路径，且不能指回登录/注册页
func SafeCallback(raw string) (string, bool) {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	if u.Path == LoginURL || u.Path == SignupURL {
		return "", false
	}
	return raw, true
}
