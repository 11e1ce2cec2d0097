package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// defaultQueryTimeout 未配置时的单次存储调用超时
const defaultQueryTimeout = 5 * time.Second

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User    UserRepository
	Profile ProfileRepository
}

// NewRepository 创建 Repository 聚合
// queryTimeout 为每次存储调用附加的超时，保证请求不会无限阻塞
func NewRepository(db *gorm.DB, queryTimeout time.Duration) *Repository {
	base := conn{db: db, timeout: queryTimeout}
	if base.timeout <= 0 {
		base.timeout = defaultQueryTimeout
	}
	return &Repository{
		User:    &userRepo{conn: base},
		Profile: &profileRepo{conn: base},
	}
}

// conn 带超时的数据库句柄
type conn struct {
	db      *gorm.DB
	timeout time.Duration
}

// with 返回绑定了超时上下文的 *gorm.DB，调用方必须执行 cancel
func (c conn) with(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	return c.db.WithContext(ctx), cancel
}
