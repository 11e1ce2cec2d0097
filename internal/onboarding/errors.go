package onboarding

import "errors"

// ── 入驻流程错误分类 ──
//
// 页面守卫路径上的错误全部转换为重定向；
// 变更路径（选择角色、创建资料）上的错误转换为 {success:false, error}。
var (
	ErrUnauthenticated     = errors.New("未登录或会话无效")
	ErrRoleAlreadySet      = errors.New("角色已设置")
	ErrRoleMismatch        = errors.New("角色与页面不匹配")
	ErrProfileCreateFailed = errors.New("创建角色资料失败")
	ErrStoreUnavailable    = errors.New("存储不可用")
	ErrInvalidRole         = errors.New("无效的角色")
	ErrProfileExists       = errors.New("角色资料已存在")
)
