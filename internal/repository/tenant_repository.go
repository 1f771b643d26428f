package repository

import (
	"errors"

	"github.com/bluboy-rewards/internal/models"

	"gorm.io/gorm"
)

// TenantRepository 租户数据访问接口
type TenantRepository interface {
	Create(tenant *models.Tenant) error
	Update(tenant *models.Tenant) error
	GetByID(id uint) (*models.Tenant, error)
	GetByCode(code string) (*models.Tenant, error)
	IDsByCodes(codes []string) ([]uint, error)
	List(filter TenantListFilter) ([]models.Tenant, int64, error)
	Count(scope ScopeFilter) (int64, error)
}

// GormTenantRepository GORM 实现
type GormTenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository 创建租户仓库
func NewTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// Create 创建租户
func (r *GormTenantRepository) Create(tenant *models.Tenant) error {
	return r.db.Create(tenant).Error
}

// Update 更新租户
func (r *GormTenantRepository) Update(tenant *models.Tenant) error {
	return r.db.Save(tenant).Error
}

// GetByID 根据 ID 获取租户
func (r *GormTenantRepository) GetByID(id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

// GetByCode 根据编码获取租户
func (r *GormTenantRepository) GetByCode(code string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.Where("code = ?", code).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

// IDsByCodes 按编码批量解析租户 ID
func (r *GormTenantRepository) IDsByCodes(codes []string) ([]uint, error) {
	if len(codes) == 0 {
		return []uint{}, nil
	}
	var ids []uint
	if err := r.db.Model(&models.Tenant{}).Where("code IN ?", codes).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// List 分页查询租户
func (r *GormTenantRepository) List(filter TenantListFilter) ([]models.Tenant, int64, error) {
	query := r.db.Model(&models.Tenant{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	query = applySearch(query, filter.Search, "name", "code")
	query = applyScope(query, filter.Scope, "id", "")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var tenants []models.Tenant
	if err := query.Order("id asc").Find(&tenants).Error; err != nil {
		return nil, 0, err
	}
	return tenants, total, nil
}

// Count 统计可见租户数
func (r *GormTenantRepository) Count(scope ScopeFilter) (int64, error) {
	var total int64
	if err := applyScope(r.db.Model(&models.Tenant{}), scope, "id", "").Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
