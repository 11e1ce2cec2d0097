package dto

import "github.com/esl365/aijox.com-sub004/internal/onboarding"

// ── 入驻模块 DTO ──

// SelectRoleRequest 选择角色表单；ADMIN 不在可选范围内
type SelectRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=TEACHER RECRUITER SCHOOL"`
}

// SelectRoleResult 选择角色结果，与前端表单约定一致
type SelectRoleResult struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ResolveRequest 守卫判定查询参数
type ResolveRequest struct {
	Path        string `form:"path"        binding:"required,startswith=/"`
	CallbackURL string `form:"callbackUrl"`
}

// ResolveResponse 守卫判定结果
type ResolveResponse struct {
	Page     string              `json:"page"`
	State    onboarding.State    `json:"state"`
	Decision onboarding.Decision `json:"decision"`
}

// PageResponse 页面放行时返回的数据（页面渲染由前端负责）
type PageResponse struct {
	Page    string             `json:"page"`
	Session onboarding.Session `json:"session"`
	Notice  string             `json:"notice,omitempty"`
}
