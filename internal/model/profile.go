package model

import (
	"time"

	"gorm.io/gorm"
)

// Profile 角色专属资料（TeacherProfile / RecruiterProfile / SchoolProfile）
// 与 User 一对一，按 user_id 唯一
type Profile interface {
	ProfileRole() Role
	OwnerID() string
}

// NewProfileFor 返回指定角色对应的空资料模型，用于按角色查询
func NewProfileFor(role Role) (Profile, bool) {
	switch role {
	case RoleTeacher:
		return &TeacherProfile{}, true
	case RoleRecruiter:
		return &RecruiterProfile{}, true
	case RoleSchool:
		return &SchoolProfile{}, true
	default:
		return nil, false
	}
}

// TeacherProfile 教师资料 — 对应 teacher_profiles
type TeacherProfile struct {
	ProfileID       string `gorm:"type:uuid;primaryKey"               json:"profile_id"`
	UserID          string `gorm:"type:uuid;not null;uniqueIndex"     json:"user_id"`
	FullName        string `gorm:"type:varchar(100);not null"         json:"full_name"`
	Nationality     string `gorm:"type:varchar(100);not null;default:''" json:"nationality"`
	YearsExperience int    `gorm:"not null;default:0"                 json:"years_experience"`
	Subjects        string `gorm:"type:text;not null;default:''"      json:"subjects"`
	Bio             string `gorm:"type:text;not null;default:''"      json:"bio"`
	BaseModel
}

func (TeacherProfile) TableName() string  { return "teacher_profiles" }
func (TeacherProfile) ProfileRole() Role  { return RoleTeacher }
func (p *TeacherProfile) OwnerID() string { return p.UserID }
func (p *TeacherProfile) BeforeCreate(_ *gorm.DB) error {
	newID(&p.ProfileID)
	return nil
}

// RecruiterProfile 招聘方资料 — 对应 recruiter_profiles
type RecruiterProfile struct {
	ProfileID   string `gorm:"type:uuid;primaryKey"                  json:"profile_id"`
	UserID      string `gorm:"type:uuid;not null;uniqueIndex"        json:"user_id"`
	CompanyName string `gorm:"type:varchar(200);not null"            json:"company_name"`
	Phone       string `gorm:"type:varchar(50);not null;default:''"  json:"phone"`
	Website     string `gorm:"type:varchar(255);not null;default:''" json:"website"`
	BaseModel
}

func (RecruiterProfile) TableName() string  { return "recruiter_profiles" }
func (RecruiterProfile) ProfileRole() Role  { return RoleRecruiter }
func (p *RecruiterProfile) OwnerID() string { return p.UserID }
func (p *RecruiterProfile) BeforeCreate(_ *gorm.DB) error {
	newID(&p.ProfileID)
	return nil
}

// SchoolProfile 学校资料 — 对应 school_profiles
// 首次进入学校设置页时以占位默认值自动创建，之后可通过资料编辑修改
type SchoolProfile struct {
	ProfileID  string     `gorm:"type:uuid;primaryKey"           json:"profile_id"`
	UserID     string     `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	SchoolName string     `gorm:"type:varchar(200);not null"     json:"school_name"`
	Country    string     `gorm:"type:varchar(100);not null"     json:"country"`
	City       string     `gorm:"type:varchar(100);not null"     json:"city"`
	IsVerified bool       `gorm:"not null;default:false"         json:"is_verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	BaseModel
}

func (SchoolProfile) TableName() string  { return "school_profiles" }
func (SchoolProfile) ProfileRole() Role  { return RoleSchool }
func (p *SchoolProfile) OwnerID() string { return p.UserID }
func (p *SchoolProfile) BeforeCreate(_ *gorm.DB) error {
	newID(&p.ProfileID)
	return nil
}
