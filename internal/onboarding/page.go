package onboarding

import "github.com/esl365/aijox.com-sub004/internal/model"

// Access 页面的访问类别
type Access int

const (
	// AccessPublic 登录/注册页：已登录用户不应再看到表单
	AccessPublic Access = iota
	// AccessRoleSelection 角色选择页：仅对未选角色的用户开放
	AccessRoleSelection
	// AccessSetup 角色专属资料设置页：仅对资料未完成且角色匹配的用户开放
	AccessSetup
	// AccessProtected 普通受保护页面
	AccessProtected
)

const (
	LoginURL           = "/login"
	SignupURL          = "/signup"
	SelectRoleURL      = "/select-role"
	DashboardURL       = "/dashboard"
	SchoolDashboardURL = "/school/dashboard"

	TeacherSetupURL   = "/profile/setup"
	RecruiterSetupURL = "/recruiter/setup"
	SchoolSetupURL    = "/school/setup"

	CallbackParam = "callbackUrl"
)

// Page 受守卫的入口页
// Role 非空时为角色限定页面
type Page struct {
	Name   string
	Path   string
	Access Access
	Role   model.Role
}

var (
	PageLogin           = Page{Name: "login", Path: LoginURL, Access: AccessPublic}
	PageSignup          = Page{Name: "signup", Path: SignupURL, Access: AccessPublic}
	PageSelectRole      = Page{Name: "select-role", Path: SelectRoleURL, Access: AccessRoleSelection}
	PageTeacherSetup    = Page{Name: "teacher-setup", Path: TeacherSetupURL, Access: AccessSetup, Role: model.RoleTeacher}
	PageRecruiterSetup  = Page{Name: "recruiter-setup", Path: RecruiterSetupURL, Access: AccessSetup, Role: model.RoleRecruiter}
	PageSchoolSetup     = Page{Name: "school-setup", Path: SchoolSetupURL, Access: AccessSetup, Role: model.RoleSchool}
	PageDashboard       = Page{Name: "dashboard", Path: DashboardURL, Access: AccessProtected}
	PageSchoolDashboard = Page{Name: "school-dashboard", Path: SchoolDashboardURL, Access: AccessProtected, Role: model.RoleSchool}
)

// Pages 全部已知入口页
var Pages = []Page{
	PageLogin,
	PageSignup,
	PageSelectRole,
	PageTeacherSetup,
	PageRecruiterSetup,
	PageSchoolSetup,
	PageDashboard,
	PageSchoolDashboard,
}

// PageForPath 按路径查找入口页
// 未登记的路径按普通受保护页面处理（失败即关闭）
func PageForPath(path string) Page {
	for _, p := range Pages {
		if p.Path == path {
			return p
		}
	}
	return Page{Name: "other", Path: path, Access: AccessProtected}
}

// PageContext 守卫调用上下文
type PageContext struct {
	Page Page
	// RequestURI 原始请求地址（含查询串），为空时使用 Page.Path
	RequestURI string
	// CallbackURL 登录后要返回的地址，仅对登录/注册页有意义
	CallbackURL string
}
