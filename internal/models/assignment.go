package models

import "time"

// TenantAssignment 用户与租户的授权关系
type TenantAssignment struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	UserID     uint      `gorm:"uniqueIndex:idx_tenant_assignment_user_tenant;not null" json:"user_id"`
	TenantID   uint      `gorm:"uniqueIndex:idx_tenant_assignment_user_tenant;index;not null" json:"tenant_id"`
	AssignedBy string    `gorm:"type:varchar(128)" json:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at"`

	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
}

// TableName 指定表名
func (TenantAssignment) TableName() string {
	return "tenant_assignments"
}

// MerchantAssignment 用户与商户的授权关系
type MerchantAssignment struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	UserID     uint      `gorm:"uniqueIndex:idx_merchant_assignment_user_merchant;not null" json:"user_id"`
	MerchantID uint      `gorm:"uniqueIndex:idx_merchant_assignment_user_merchant;index;not null" json:"merchant_id"`
	AssignedBy string    `gorm:"type:varchar(128)" json:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at"`

	Merchant *Merchant `gorm:"foreignKey:MerchantID" json:"merchant,omitempty"`
}

// TableName 指定表名
func (MerchantAssignment) TableName() string {
	return "merchant_assignments"
}
