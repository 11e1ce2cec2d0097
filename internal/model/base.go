package model

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// newID 生成主键；数据库侧同样有 gen_random_uuid() 默认值，
// 这里在应用侧先行生成，便于 SQLite 测试库与日志关联
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
