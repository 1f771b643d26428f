package repository

import (
	"fmt"
	"time"

	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/models"

	"gorm.io/gorm"
)

// DashboardRepository 仪表盘聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type DashboardRepository interface {
	GetOverview(scope ScopeFilter) (DashboardOverviewRow, error)
	GetClaimTrends(startAt, endAt time.Time, scope ScopeFilter) ([]DashboardClaimTrendRow, error)
}

// DashboardOverviewRow 仪表盘总览原始统计结果
type DashboardOverviewRow struct {
	TenantsTotal   int64
	MerchantsTotal int64
	EventsTotal    int64
	ActiveEvents   int64
	RewardsTotal   int64
	ClaimedRewards int64
	ClaimedValue   models.Money
}

// DashboardClaimTrendRow 每日核销趋势
type DashboardClaimTrendRow struct {
	Day          string
	ClaimedCount int64
	ClaimedValue models.Money
}

// GormDashboardRepository GORM 仪表盘聚合实现
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建仪表盘仓库
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

// GetOverview 获取总览统计（不含演示奖励）
func (r *GormDashboardRepository) GetOverview(scope ScopeFilter) (DashboardOverviewRow, error) {
	result := DashboardOverviewRow{}

	if err := applyScope(r.db.Model(&models.Tenant{}), scope, "id", "").
		Count(&result.TenantsTotal).Error; err != nil {
		return result, err
	}
	if err := applyScope(r.db.Model(&models.Merchant{}), scope, "tenant_id", "id").
		Count(&result.MerchantsTotal).Error; err != nil {
		return result, err
	}

	eventBase := func() *gorm.DB {
		return applyScope(r.db.Model(&models.MarketingEvent{}), scope, "tenant_id", "merchant_id")
	}
	if err := eventBase().Count(&result.EventsTotal).Error; err != nil {
		return result, err
	}
	if err := eventBase().Where("status = ?", constants.EventStatusActive).Count(&result.ActiveEvents).Error; err != nil {
		return result, err
	}

	rewardBase := func() *gorm.DB {
		return applyScope(r.db.Model(&models.Reward{}).Where("is_dummy = ?", false), scope, "", "merchant_id")
	}
	if err := rewardBase().Count(&result.RewardsTotal).Error; err != nil {
		return result, err
	}
	if err := rewardBase().Where("status = ?", constants.RewardStatusClaimed).Count(&result.ClaimedRewards).Error; err != nil {
		return result, err
	}
	var claimed struct {
		Total models.Money `gorm:"column:total"`
	}
	if err := rewardBase().Where("status = ?", constants.RewardStatusClaimed).
		Select("COALESCE(SUM(value), 0) AS total").
		Scan(&claimed).Error; err != nil {
		return result, err
	}
	result.ClaimedValue = claimed.Total
	return result, nil
}

// GetClaimTrends 获取每日核销趋势
func (r *GormDashboardRepository) GetClaimTrends(startAt, endAt time.Time, scope ScopeFilter) ([]DashboardClaimTrendRow, error) {
	dayExpr := "CAST(date(claimed_at) AS TEXT)"
	if dbDialectName(r.db) == "postgres" {
		dayExpr = "to_char(claimed_at, 'YYYY-MM-DD')"
	}
	query := r.db.Model(&models.Reward{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as claimed_count, COALESCE(SUM(value), 0) as claimed_value", dayExpr)).
		Where("status = ? AND is_dummy = ?", constants.RewardStatusClaimed, false).
		Where("claimed_at >= ? AND claimed_at < ?", startAt, endAt)
	query = applyScope(query, scope, "", "merchant_id")

	var rows []DashboardClaimTrendRow
	if err := query.Group(dayExpr).Order("day asc").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
