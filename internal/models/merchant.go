package models

import "time"

// Merchant 商户表
// 说明：Code 固定为 3 位大写字母数字，作为奖励码前缀。
type Merchant struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                 // 主键
	TenantID  uint      `gorm:"index;not null" json:"tenant_id"`                      // 所属租户
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`               // 商户名称
	Code      string    `gorm:"type:varchar(8);uniqueIndex;not null" json:"code"`     // 商户编码
	Status    string    `gorm:"type:varchar(16);index;default:'ACTIVE'" json:"status"` // 状态
	CreatedAt time.Time `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                           // 更新时间

	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
}

// TableName 指定表名
func (Merchant) TableName() string {
	return "merchants"
}
