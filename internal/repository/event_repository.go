package repository

import (
	"errors"
	"time"

	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventRepository 营销活动数据访问接口
type EventRepository interface {
	Create(event *models.MarketingEvent) error
	Update(event *models.MarketingEvent) error
	GetByID(id uint) (*models.MarketingEvent, error)
	GetByIDForUpdate(id uint) (*models.MarketingEvent, error)
	List(filter EventListFilter) ([]models.MarketingEvent, int64, error)
	UpdateStatus(id uint, expected, next string, fields map[string]interface{}) error
	ListEndedActive(now time.Time, limit int) ([]models.MarketingEvent, error)
	CountByStatus(status string, scope ScopeFilter) (int64, error)
	WithTx(tx *gorm.DB) *GormEventRepository
}

// GormEventRepository GORM 营销活动仓储实现
type GormEventRepository struct {
	db *gorm.DB
}

// NewEventRepository 创建营销活动仓储
func NewEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

// WithTx 绑定事务
func (r *GormEventRepository) WithTx(tx *gorm.DB) *GormEventRepository {
	if tx == nil {
		return r
	}
	return &GormEventRepository{db: tx}
}

// Create 创建活动
func (r *GormEventRepository) Create(event *models.MarketingEvent) error {
	return r.db.Create(event).Error
}

// Update 更新活动
func (r *GormEventRepository) Update(event *models.MarketingEvent) error {
	return r.db.Omit("Tenant", "Merchant").Save(event).Error
}

// GetByID 根据 ID 获取活动
func (r *GormEventRepository) GetByID(id uint) (*models.MarketingEvent, error) {
	if id == 0 {
		return nil, nil
	}
	var event models.MarketingEvent
	if err := r.db.Preload("Tenant").Preload("Merchant").First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// GetByIDForUpdate 事务内加行锁读取活动
func (r *GormEventRepository) GetByIDForUpdate(id uint) (*models.MarketingEvent, error) {
	if id == 0 {
		return nil, nil
	}
	var event models.MarketingEvent
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// List 分页查询活动
func (r *GormEventRepository) List(filter EventListFilter) ([]models.MarketingEvent, int64, error) {
	query := r.db.Model(&models.MarketingEvent{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TenantID != 0 {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.MerchantID != 0 {
		query = query.Where("merchant_id = ?", filter.MerchantID)
	}
	query = applySearch(query, filter.Search, "name")
	query = applyScope(query, filter.Scope, "tenant_id", "merchant_id")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var events []models.MarketingEvent
	if err := query.Preload("Tenant").Preload("Merchant").Order("id desc").Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// UpdateStatus 比较并设置活动状态
func (r *GormEventRepository) UpdateStatus(id uint, expected, next string, fields map[string]interface{}) error {
	if id == 0 {
		return ErrNotFound
	}
	updates := make(map[string]interface{}, len(fields)+2)
	for key, value := range fields {
		updates[key] = value
	}
	updates["status"] = next
	updates["updated_at"] = time.Now()

	result := r.db.Model(&models.MarketingEvent{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var current models.MarketingEvent
	if err := r.db.Select("id", "status").First(&current, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return &StatusConflictError{ID: id, Expected: expected, Current: current.Status}
}

// ListEndedActive 查询已过结束时间但仍为 ACTIVE 的活动
func (r *GormEventRepository) ListEndedActive(now time.Time, limit int) ([]models.MarketingEvent, error) {
	query := r.db.Where("status = ? AND end_date < ?", constants.EventStatusActive, now).Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var events []models.MarketingEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// CountByStatus 按状态统计活动数量
func (r *GormEventRepository) CountByStatus(status string, scope ScopeFilter) (int64, error) {
	query := r.db.Model(&models.MarketingEvent{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	query = applyScope(query, scope, "tenant_id", "merchant_id")
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
