package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OnboardingDecisions 页面守卫的判定结果
	OnboardingDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobboard",
		Name:      "onboarding_decisions_total",
		Help:      "Onboarding guard decisions by page and kind.",
	}, []string{"page", "kind"})

	// RoleAssignments 自助选择角色的结果
	RoleAssignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobboard",
		Name:      "role_assignments_total",
		Help:      "Self-service role assignment attempts by result.",
	}, []string{"result"})

	// SchoolAutoProvision 学校资料自动创建的结果
	SchoolAutoProvision = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobboard",
		Name:      "school_autoprovision_total",
		Help:      "School profile auto-provisioning by result.",
	}, []string{"result"})
)
