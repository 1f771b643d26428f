package repository

import (
	"errors"

	"github.com/bluboy-rewards/internal/models"

	"gorm.io/gorm"
)

// RewardClaimLogRepository 核销日志数据访问接口
type RewardClaimLogRepository interface {
	Create(log *models.RewardClaimLog) error
	GetByRewardID(rewardID uint) (*models.RewardClaimLog, error)
	List(filter ClaimLogListFilter) ([]models.RewardClaimLog, int64, error)
	WithTx(tx *gorm.DB) *GormRewardClaimLogRepository
}

// GormRewardClaimLogRepository GORM 实现
type GormRewardClaimLogRepository struct {
	db *gorm.DB
}

// NewRewardClaimLogRepository 创建核销日志仓库
func NewRewardClaimLogRepository(db *gorm.DB) *GormRewardClaimLogRepository {
	return &GormRewardClaimLogRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRewardClaimLogRepository) WithTx(tx *gorm.DB) *GormRewardClaimLogRepository {
	if tx == nil {
		return r
	}
	return &GormRewardClaimLogRepository{db: tx}
}

// Create 写入核销日志
func (r *GormRewardClaimLogRepository) Create(log *models.RewardClaimLog) error {
	if log == nil {
		return nil
	}
	return r.db.Create(log).Error
}

// GetByRewardID 查询奖励的核销记录
func (r *GormRewardClaimLogRepository) GetByRewardID(rewardID uint) (*models.RewardClaimLog, error) {
	var log models.RewardClaimLog
	if err := r.db.Where("reward_id = ?", rewardID).First(&log).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

// List 分页查询核销日志
func (r *GormRewardClaimLogRepository) List(filter ClaimLogListFilter) ([]models.RewardClaimLog, int64, error) {
	query := r.db.Model(&models.RewardClaimLog{})
	if filter.EventID != 0 {
		query = query.Where("event_id = ?", filter.EventID)
	}
	if filter.OperatorEmail != "" {
		query = query.Where("operator_email = ?", filter.OperatorEmail)
	}
	query = applyScope(query, filter.Scope, "", "merchant_id")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var logs []models.RewardClaimLog
	if err := query.Order("id desc").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
