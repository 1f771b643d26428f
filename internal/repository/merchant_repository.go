package repository

import (
	"errors"

	"github.com/bluboy-rewards/internal/models"

	"gorm.io/gorm"
)

// MerchantRepository 商户数据访问接口
type MerchantRepository interface {
	Create(merchant *models.Merchant) error
	Update(merchant *models.Merchant) error
	GetByID(id uint) (*models.Merchant, error)
	GetByCode(code string) (*models.Merchant, error)
	IDsByCodes(codes []string) ([]uint, error)
	IDsByTenantIDs(tenantIDs []uint) ([]uint, error)
	TenantIDsByIDs(ids []uint) ([]uint, error)
	List(filter MerchantListFilter) ([]models.Merchant, int64, error)
	Count(scope ScopeFilter) (int64, error)
	WithTx(tx *gorm.DB) *GormMerchantRepository
}

// GormMerchantRepository GORM 实现
type GormMerchantRepository struct {
	db *gorm.DB
}

// NewMerchantRepository 创建商户仓库
func NewMerchantRepository(db *gorm.DB) *GormMerchantRepository {
	return &GormMerchantRepository{db: db}
}

// WithTx 绑定事务
func (r *GormMerchantRepository) WithTx(tx *gorm.DB) *GormMerchantRepository {
	if tx == nil {
		return r
	}
	return &GormMerchantRepository{db: tx}
}

// Create 创建商户
func (r *GormMerchantRepository) Create(merchant *models.Merchant) error {
	return r.db.Create(merchant).Error
}

// Update 更新商户
func (r *GormMerchantRepository) Update(merchant *models.Merchant) error {
	return r.db.Omit("Tenant").Save(merchant).Error
}

// GetByID 根据 ID 获取商户
func (r *GormMerchantRepository) GetByID(id uint) (*models.Merchant, error) {
	var merchant models.Merchant
	if err := r.db.First(&merchant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &merchant, nil
}

// GetByCode 根据编码获取商户
func (r *GormMerchantRepository) GetByCode(code string) (*models.Merchant, error) {
	var merchant models.Merchant
	if err := r.db.Where("code = ?", code).First(&merchant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &merchant, nil
}

// IDsByCodes 按编码批量解析商户 ID
func (r *GormMerchantRepository) IDsByCodes(codes []string) ([]uint, error) {
	if len(codes) == 0 {
		return []uint{}, nil
	}
	var ids []uint
	if err := r.db.Model(&models.Merchant{}).Where("code IN ?", codes).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// IDsByTenantIDs 获取租户下全部商户 ID
func (r *GormMerchantRepository) IDsByTenantIDs(tenantIDs []uint) ([]uint, error) {
	if len(tenantIDs) == 0 {
		return []uint{}, nil
	}
	var ids []uint
	if err := r.db.Model(&models.Merchant{}).Where("tenant_id IN ?", tenantIDs).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// TenantIDsByIDs 获取商户所属租户 ID（去重）
func (r *GormMerchantRepository) TenantIDsByIDs(ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return []uint{}, nil
	}
	var tenantIDs []uint
	if err := r.db.Model(&models.Merchant{}).Where("id IN ?", ids).Distinct().Pluck("tenant_id", &tenantIDs).Error; err != nil {
		return nil, err
	}
	return tenantIDs, nil
}

// List 分页查询商户
func (r *GormMerchantRepository) List(filter MerchantListFilter) ([]models.Merchant, int64, error) {
	query := r.db.Model(&models.Merchant{})
	if filter.TenantID != 0 {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	query = applySearch(query, filter.Search, "name", "code")
	query = applyScope(query, filter.Scope, "tenant_id", "id")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var merchants []models.Merchant
	if err := query.Preload("Tenant").Order("id asc").Find(&merchants).Error; err != nil {
		return nil, 0, err
	}
	return merchants, total, nil
}

// Count 统计可见商户数
func (r *GormMerchantRepository) Count(scope ScopeFilter) (int64, error) {
	var total int64
	if err := applyScope(r.db.Model(&models.Merchant{}), scope, "tenant_id", "id").Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
