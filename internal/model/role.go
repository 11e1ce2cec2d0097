package model

import "strings"

// Role 用户角色（封闭枚举）
//
// 空字符串表示尚未选择角色。ADMIN 只由运维直接写库开通，
// 自助选择角色的流程永远不会产生 ADMIN。
type Role string

const (
	RoleUnset     Role = ""
	RoleTeacher   Role = "TEACHER"
	RoleRecruiter Role = "RECRUITER"
	RoleSchool    Role = "SCHOOL"
	RoleAdmin     Role = "ADMIN"
)

// ParseRole 解析角色字符串（大小写不敏感），未知值返回 false
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleUnset, RoleTeacher, RoleRecruiter, RoleSchool, RoleAdmin:
		return r, true
	default:
		return RoleUnset, false
	}
}

// IsSet 角色是否已选择
func (r Role) IsSet() bool { return r != RoleUnset }

// SelfAssignable 是否可通过自助流程选择
func (r Role) SelfAssignable() bool {
	return r == RoleTeacher || r == RoleRecruiter || r == RoleSchool
}

// RequiresProfile 是否需要角色专属资料才能进入主页
func (r Role) RequiresProfile() bool { return r.SelfAssignable() }

func (r Role) String() string {
	if r == RoleUnset {
		return "UNSET"
	}
	return string(r)
}
