package onboarding

// Kind 判定类型
type Kind string

const (
	KindAllow    Kind = "allow"
	KindRedirect Kind = "redirect"
)

// Decision 守卫判定结果：放行或重定向
// Reason 记录重定向的原因，仅用于日志与指标
type Decision struct {
	Kind   Kind   `json:"kind"`
	Target string `json:"target,omitempty"`
	Reason error  `json:"-"`
}

// Allow 放行
func Allow() Decision { return Decision{Kind: KindAllow} }

// Redirect 重定向到 target
func Redirect(target string, reason error) Decision {
	return Decision{Kind: KindRedirect, Target: target, Reason: reason}
}

// IsAllow 是否放行
func (d Decision) IsAllow() bool { return d.Kind == KindAllow }
