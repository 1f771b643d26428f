package models

import (
	"time"

	"gorm.io/gorm"
)

// User 后台用户表
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                  // 主键
	ExternalUID  string         `gorm:"type:varchar(64);index" json:"external_uid"`            // 外部身份标识
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`                     // 邮箱
	Name         string         `gorm:"type:varchar(128);default:''" json:"name"`              // 姓名
	Role         string         `gorm:"type:varchar(32);index;not null" json:"role"`           // 角色
	Status       string         `gorm:"type:varchar(16);index;default:'ACTIVE'" json:"status"` // 账号状态
	PasswordHash string         `gorm:"not null;default:''" json:"-"`                          // 密码哈希（不返回给前端）
	LastLoginAt  *time.Time     `json:"last_login_at"`                                         // 最后登录时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                               // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                        // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
