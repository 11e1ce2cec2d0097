package dto

// ── 角色资料 DTO ──

// TeacherProfileRequest 教师资料设置表单
type TeacherProfileRequest struct {
	FullName        string `json:"full_name"        binding:"required,min=2,max=100"`
	Nationality     string `json:"nationality"      binding:"omitempty,max=100"`
	YearsExperience int    `json:"years_experience" binding:"omitempty,min=0,max=60"`
	Subjects        string `json:"subjects"         binding:"omitempty,max=500"`
	Bio             string `json:"bio"              binding:"omitempty,max=2000"`
}

// RecruiterProfileRequest 招聘方资料设置表单
type RecruiterProfileRequest struct {
	CompanyName string `json:"company_name" binding:"required,min=2,max=200"`
	Phone       string `json:"phone"        binding:"omitempty,max=50"`
	Website     string `json:"website"      binding:"omitempty,url,max=255"`
}

// ProfileSetupResult 资料设置结果
type ProfileSetupResult struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}
