package repository

import (
	"time"

	"github.com/bluboy-rewards/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssignmentRepository 用户授权范围数据访问接口
type AssignmentRepository interface {
	AssignTenant(userID, tenantID uint, assignedBy string) error
	RevokeTenant(userID, tenantID uint) error
	AssignMerchant(userID, merchantID uint, assignedBy string) error
	RevokeMerchant(userID, merchantID uint) error
	ListTenants(userID uint) ([]models.TenantAssignment, error)
	ListMerchants(userID uint) ([]models.MerchantAssignment, error)
	TenantIDs(userID uint) ([]uint, error)
	MerchantIDs(userID uint) ([]uint, error)
	WithTx(tx *gorm.DB) *GormAssignmentRepository
}

// GormAssignmentRepository GORM 实现
type GormAssignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository 创建授权范围仓库
func NewAssignmentRepository(db *gorm.DB) *GormAssignmentRepository {
	return &GormAssignmentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAssignmentRepository) WithTx(tx *gorm.DB) *GormAssignmentRepository {
	if tx == nil {
		return r
	}
	return &GormAssignmentRepository{db: tx}
}

// AssignTenant 授予租户范围，重复授权忽略
func (r *GormAssignmentRepository) AssignTenant(userID, tenantID uint, assignedBy string) error {
	row := models.TenantAssignment{UserID: userID, TenantID: tenantID, AssignedBy: assignedBy, AssignedAt: time.Now()}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

// RevokeTenant 撤销租户范围
func (r *GormAssignmentRepository) RevokeTenant(userID, tenantID uint) error {
	return r.db.Where("user_id = ? AND tenant_id = ?", userID, tenantID).Delete(&models.TenantAssignment{}).Error
}

// AssignMerchant 授予商户范围，重复授权忽略
func (r *GormAssignmentRepository) AssignMerchant(userID, merchantID uint, assignedBy string) error {
	row := models.MerchantAssignment{UserID: userID, MerchantID: merchantID, AssignedBy: assignedBy, AssignedAt: time.Now()}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

// RevokeMerchant 撤销商户范围
func (r *GormAssignmentRepository) RevokeMerchant(userID, merchantID uint) error {
	return r.db.Where("user_id = ? AND merchant_id = ?", userID, merchantID).Delete(&models.MerchantAssignment{}).Error
}

// ListTenants 查询用户的租户授权
func (r *GormAssignmentRepository) ListTenants(userID uint) ([]models.TenantAssignment, error) {
	var rows []models.TenantAssignment
	if err := r.db.Preload("Tenant").Where("user_id = ?", userID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListMerchants 查询用户的商户授权
func (r *GormAssignmentRepository) ListMerchants(userID uint) ([]models.MerchantAssignment, error) {
	var rows []models.MerchantAssignment
	if err := r.db.Preload("Merchant").Where("user_id = ?", userID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// TenantIDs 查询用户可见租户 ID
func (r *GormAssignmentRepository) TenantIDs(userID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.TenantAssignment{}).Where("user_id = ?", userID).Pluck("tenant_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// MerchantIDs 查询用户可见商户 ID
func (r *GormAssignmentRepository) MerchantIDs(userID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.MerchantAssignment{}).Where("user_id = ?", userID).Pluck("merchant_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
