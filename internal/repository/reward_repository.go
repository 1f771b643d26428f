package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const codeLookupChunkSize = 500

// RewardRepository 奖励数据访问接口
type RewardRepository interface {
	GetByID(id uint) (*models.Reward, error)
	FindByCodePart1(code string) (*models.Reward, error)
	ExistingCodePart1s(codes []string) (map[string]struct{}, error)
	InsertMany(rewards []models.Reward, batchSize int) (int, error)
	UpdateStatus(id uint, expected, next string, fields map[string]interface{}) error
	CountByStatus(filter RewardAggregateFilter) (int64, error)
	SumValue(filter RewardAggregateFilter) (decimal.Decimal, error)
	AggregateByStatus(filter RewardAggregateFilter) ([]RewardStatusAggregateRow, error)
	List(filter RewardListFilter) ([]models.Reward, int64, error)
	NextAvailable(eventID uint) (*models.Reward, error)
	CountByCustomer(eventID uint, customerID string) (int64, error)
	CountByEvent(eventID uint) (int64, error)
	ExpireDue(now time.Time) (int64, error)
	ExpireAvailableByEvent(eventID uint, now time.Time) (int64, error)
	CancelOpenByEvent(eventID uint, now time.Time) (int64, error)
	WithTx(tx *gorm.DB) *GormRewardRepository
	WithContext(ctx context.Context) *GormRewardRepository
}

// GormRewardRepository GORM 奖励仓储实现
type GormRewardRepository struct {
	db *gorm.DB
}

// NewRewardRepository 创建奖励仓储
func NewRewardRepository(db *gorm.DB) *GormRewardRepository {
	return &GormRewardRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRewardRepository) WithTx(tx *gorm.DB) *GormRewardRepository {
	if tx == nil {
		return r
	}
	return &GormRewardRepository{db: tx}
}

// WithContext 绑定请求上下文，超时与取消透传到驱动
func (r *GormRewardRepository) WithContext(ctx context.Context) *GormRewardRepository {
	if ctx == nil {
		return r
	}
	return &GormRewardRepository{db: r.db.WithContext(ctx)}
}

// GetByID 根据 ID 获取奖励
func (r *GormRewardRepository) GetByID(id uint) (*models.Reward, error) {
	if id == 0 {
		return nil, nil
	}
	var reward models.Reward
	if err := r.db.First(&reward, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reward, nil
}

// FindByCodePart1 按核销前缀查询奖励，未命中返回 nil
func (r *GormRewardRepository) FindByCodePart1(code string) (*models.Reward, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}
	var reward models.Reward
	if err := r.db.Where("code_part1 = ?", code).First(&reward).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reward, nil
}

// ExistingCodePart1s 返回已存在于库中的核销前缀集合
func (r *GormRewardRepository) ExistingCodePart1s(codes []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	for start := 0; start < len(codes); start += codeLookupChunkSize {
		end := start + codeLookupChunkSize
		if end > len(codes) {
			end = len(codes)
		}
		var found []string
		if err := r.db.Model(&models.Reward{}).
			Where("code_part1 IN ?", codes[start:end]).
			Pluck("code_part1", &found).Error; err != nil {
			return nil, err
		}
		for _, code := range found {
			existing[code] = struct{}{}
		}
	}
	return existing, nil
}

// InsertMany 分批写入奖励
func (r *GormRewardRepository) InsertMany(rewards []models.Reward, batchSize int) (int, error) {
	if len(rewards) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	result := r.db.CreateInBatches(&rewards, batchSize)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

// UpdateStatus 比较并设置奖励状态
// 仅当当前状态等于 expected 时写入；否则返回 ErrNotFound 或 *StatusConflictError。
func (r *GormRewardRepository) UpdateStatus(id uint, expected, next string, fields map[string]interface{}) error {
	if id == 0 {
		return ErrNotFound
	}
	updates := make(map[string]interface{}, len(fields)+2)
	for key, value := range fields {
		updates[key] = value
	}
	updates["status"] = next
	updates["updated_at"] = time.Now()

	result := r.db.Model(&models.Reward{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var current models.Reward
	if err := r.db.Select("id", "status").First(&current, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return &StatusConflictError{ID: id, Expected: expected, Current: current.Status}
}

func (r *GormRewardRepository) aggregateQuery(filter RewardAggregateFilter) *gorm.DB {
	query := r.db.Model(&models.Reward{})
	if filter.EventID != 0 {
		query = query.Where("event_id = ?", filter.EventID)
	}
	if filter.MerchantID != 0 {
		query = query.Where("merchant_id = ?", filter.MerchantID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.ExcludeDummy {
		query = query.Where("is_dummy = ?", false)
	}
	return applyScope(query, filter.Scope, "", "merchant_id")
}

// CountByStatus 统计奖励数量
func (r *GormRewardRepository) CountByStatus(filter RewardAggregateFilter) (int64, error) {
	var total int64
	if err := r.aggregateQuery(filter).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// SumValue 汇总奖励金额
func (r *GormRewardRepository) SumValue(filter RewardAggregateFilter) (decimal.Decimal, error) {
	var row struct {
		Total models.Money `gorm:"column:total"`
	}
	if err := r.aggregateQuery(filter).Select("COALESCE(SUM(value), 0) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Decimal.Round(2), nil
}

// AggregateByStatus 按状态一次性聚合数量与金额
func (r *GormRewardRepository) AggregateByStatus(filter RewardAggregateFilter) ([]RewardStatusAggregateRow, error) {
	var rows []RewardStatusAggregateRow
	if err := r.aggregateQuery(filter).
		Select("status, COUNT(*) AS total_count, COALESCE(SUM(value), 0) AS total_value").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// List 分页查询奖励
func (r *GormRewardRepository) List(filter RewardListFilter) ([]models.Reward, int64, error) {
	query := r.db.Model(&models.Reward{})
	switch filter.Tab {
	case constants.RewardTabOutstanding:
		query = query.Where("status IN ?", []string{constants.RewardStatusAvailable, constants.RewardStatusDistributed})
	case constants.RewardTabClaimed:
		query = query.Where("status = ?", constants.RewardStatusClaimed)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.EventID != 0 {
		query = query.Where("event_id = ?", filter.EventID)
	}
	if filter.MerchantID != 0 {
		query = query.Where("merchant_id = ?", filter.MerchantID)
	}
	if !filter.IncludeDummy {
		query = query.Where("is_dummy = ?", false)
	}
	query = applySearch(query, strings.ToUpper(filter.Search), "code_part1", "customer_id")
	query = applyScope(query, filter.Scope, "", "merchant_id")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rewards []models.Reward
	if err := query.Preload("Event").Order("id desc").Find(&rewards).Error; err != nil {
		return nil, 0, err
	}
	return rewards, total, nil
}

// NextAvailable 获取活动下一条可发放的非演示奖励
func (r *GormRewardRepository) NextAvailable(eventID uint) (*models.Reward, error) {
	var reward models.Reward
	if err := r.db.Where("event_id = ? AND status = ? AND is_dummy = ?", eventID, constants.RewardStatusAvailable, false).
		Order("id asc").
		First(&reward).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reward, nil
}

// CountByCustomer 统计客户在活动中已持有的奖励数
func (r *GormRewardRepository) CountByCustomer(eventID uint, customerID string) (int64, error) {
	var total int64
	if err := r.db.Model(&models.Reward{}).
		Where("event_id = ? AND customer_id = ?", eventID, customerID).
		Where("status IN ?", []string{constants.RewardStatusDistributed, constants.RewardStatusClaimed}).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CountByEvent 统计活动已生成的奖励数
func (r *GormRewardRepository) CountByEvent(eventID uint) (int64, error) {
	var total int64
	if err := r.db.Model(&models.Reward{}).Where("event_id = ?", eventID).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// ExpireDue 将已过有效期的未核销奖励置为过期
func (r *GormRewardRepository) ExpireDue(now time.Time) (int64, error) {
	result := r.db.Model(&models.Reward{}).
		Where("status IN ?", []string{constants.RewardStatusAvailable, constants.RewardStatusDistributed}).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Updates(map[string]interface{}{
			"status":     constants.RewardStatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

// ExpireAvailableByEvent 活动结束时将未发放奖励置为过期
func (r *GormRewardRepository) ExpireAvailableByEvent(eventID uint, now time.Time) (int64, error) {
	result := r.db.Model(&models.Reward{}).
		Where("event_id = ? AND status = ?", eventID, constants.RewardStatusAvailable).
		Updates(map[string]interface{}{
			"status":     constants.RewardStatusExpired,
			"expires_at": gorm.Expr("COALESCE(expires_at, ?)", now),
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

// CancelOpenByEvent 作废活动下所有未终结奖励
func (r *GormRewardRepository) CancelOpenByEvent(eventID uint, now time.Time) (int64, error) {
	result := r.db.Model(&models.Reward{}).
		Where("event_id = ?", eventID).
		Where("status IN ?", []string{constants.RewardStatusAvailable, constants.RewardStatusDistributed}).
		Updates(map[string]interface{}{
			"status":     constants.RewardStatusCancelled,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}
