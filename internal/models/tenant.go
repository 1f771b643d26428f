package models

import "time"

// Tenant 租户表
type Tenant struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                 // 主键
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`               // 租户名称
	Code      string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`    // 租户编码
	Status    string    `gorm:"type:varchar(16);index;default:'ACTIVE'" json:"status"` // 状态
	CreatedAt time.Time `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                           // 更新时间
}

// TableName 指定表名
func (Tenant) TableName() string {
	return "tenants"
}
