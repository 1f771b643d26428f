package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bluboy-rewards/internal/cache"
	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/metrics"
	"github.com/bluboy-rewards/internal/models"
	"github.com/bluboy-rewards/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	defaultAnalyticsCacheTTL = 5 * time.Minute
	analyticsCustomMaxDays   = 90
)

// AnalyticsService 仪表盘与奖励统计服务
// 说明：聚合全部在存储层完成，演示奖励不计入。
type AnalyticsService struct {
	dashboardRepo repository.DashboardRepository
	rewardRepo    repository.RewardRepository
	cacheStore    *cache.Store
	metrics       *metrics.Metrics
	ttl           time.Duration
}

// NewAnalyticsService 创建统计服务
func NewAnalyticsService(dashboardRepo repository.DashboardRepository, rewardRepo repository.RewardRepository, cacheStore *cache.Store, ttl time.Duration, m *metrics.Metrics) *AnalyticsService {
	if ttl <= 0 {
		ttl = defaultAnalyticsCacheTTL
	}
	return &AnalyticsService{
		dashboardRepo: dashboardRepo,
		rewardRepo:    rewardRepo,
		cacheStore:    cacheStore,
		metrics:       m,
		ttl:           ttl,
	}
}

// DashboardOverview 仪表盘总览
type DashboardOverview struct {
	TenantsTotal        int64  `json:"tenants_total"`
	MerchantsTotal      int64  `json:"merchants_total"`
	EventsTotal         int64  `json:"events_total"`
	ActiveEvents        int64  `json:"active_events"`
	RewardsTotal        int64  `json:"rewards_total"`
	ClaimedRewards      int64  `json:"claimed_rewards"`
	ClaimedValue        string `json:"claimed_value"`
	ClaimedValueDisplay string `json:"claimed_value_display"`
	ClaimRate           string `json:"claim_rate"`
}

// RewardAnalyticsInput 奖励统计查询参数
type RewardAnalyticsInput struct {
	EventID      uint
	MerchantID   uint
	ForceRefresh bool
}

// RewardAnalytics 奖励统计结果
type RewardAnalytics struct {
	Total               int64  `json:"total"`
	Available           int64  `json:"available"`
	Distributed         int64  `json:"distributed"`
	Claimed             int64  `json:"claimed"`
	Expired             int64  `json:"expired"`
	Cancelled           int64  `json:"cancelled"`
	TotalValue          string `json:"total_value"`
	ClaimedValue        string `json:"claimed_value"`
	TotalValueDisplay   string `json:"total_value_display"`
	ClaimedValueDisplay string `json:"claimed_value_display"`
	ClaimRate           string `json:"claim_rate"`
	Currency            string `json:"currency"`
}

// ClaimTrendInput 核销趋势查询参数
type ClaimTrendInput struct {
	Range        string
	From         *time.Time
	To           *time.Time
	Timezone     string
	ForceRefresh bool
}

// ClaimTrendPoint 每日核销数据
type ClaimTrendPoint struct {
	Day          string `json:"day"`
	ClaimedCount int64  `json:"claimed_count"`
	ClaimedValue string `json:"claimed_value"`
}

// ClaimTrendResponse 核销趋势
type ClaimTrendResponse struct {
	Range    string            `json:"range"`
	From     string            `json:"from"`
	To       string            `json:"to"`
	Timezone string            `json:"timezone"`
	Points   []ClaimTrendPoint `json:"points"`
}

type analyticsWindow struct {
	rangeKey string
	startAt  time.Time
	endAt    time.Time
	timezone string
}

// GetOverview 获取仪表盘总览
func (s *AnalyticsService) GetOverview(ctx context.Context, scope AccessScope, forceRefresh bool) (*DashboardOverview, error) {
	cacheKey := "analytics:overview:" + scopeCacheKey(scope)
	if !forceRefresh {
		var cached DashboardOverview
		if s.readCache(ctx, "overview", cacheKey, &cached) {
			return &cached, nil
		}
	}

	row, err := s.dashboardRepo.GetOverview(scope.Filter())
	if err != nil {
		return nil, err
	}
	claimedValue := models.NewMoneyFromDecimal(row.ClaimedValue.Decimal)
	response := &DashboardOverview{
		TenantsTotal:        row.TenantsTotal,
		MerchantsTotal:      row.MerchantsTotal,
		EventsTotal:         row.EventsTotal,
		ActiveEvents:        row.ActiveEvents,
		RewardsTotal:        row.RewardsTotal,
		ClaimedRewards:      row.ClaimedRewards,
		ClaimedValue:        claimedValue.StringFixed(2),
		ClaimedValueDisplay: FormatINR(claimedValue),
		ClaimRate:           ClaimRate(row.ClaimedRewards, row.RewardsTotal),
	}
	_ = s.cacheStore.SetJSON(ctx, cacheKey, response, s.ttl)
	return response, nil
}

// GetRewardAnalytics 获取奖励统计
func (s *AnalyticsService) GetRewardAnalytics(ctx context.Context, input RewardAnalyticsInput, scope AccessScope) (*RewardAnalytics, error) {
	cacheKey := fmt.Sprintf("analytics:rewards:%d:%d:%s", input.EventID, input.MerchantID, scopeCacheKey(scope))
	if !input.ForceRefresh {
		var cached RewardAnalytics
		if s.readCache(ctx, "rewards", cacheKey, &cached) {
			return &cached, nil
		}
	}

	rows, err := s.rewardRepo.WithContext(ctx).AggregateByStatus(repository.RewardAggregateFilter{
		EventID:      input.EventID,
		MerchantID:   input.MerchantID,
		ExcludeDummy: true,
		Scope:        scope.Filter(),
	})
	if err != nil {
		return nil, err
	}

	result := &RewardAnalytics{Currency: constants.RewardDefaultCurrencyCode}
	totalValue := decimal.Zero
	claimedValue := decimal.Zero
	for _, row := range rows {
		result.Total += row.Count
		totalValue = totalValue.Add(row.Value.Decimal)
		switch row.Status {
		case constants.RewardStatusAvailable:
			result.Available = row.Count
		case constants.RewardStatusDistributed:
			result.Distributed = row.Count
		case constants.RewardStatusClaimed:
			result.Claimed = row.Count
			claimedValue = row.Value.Decimal
		case constants.RewardStatusExpired:
			result.Expired = row.Count
		case constants.RewardStatusCancelled:
			result.Cancelled = row.Count
		}
	}
	total := models.NewMoneyFromDecimal(totalValue)
	claimed := models.NewMoneyFromDecimal(claimedValue)
	result.TotalValue = total.StringFixed(2)
	result.ClaimedValue = claimed.StringFixed(2)
	result.TotalValueDisplay = FormatINR(total)
	result.ClaimedValueDisplay = FormatINR(claimed)
	result.ClaimRate = ClaimRate(result.Claimed, result.Total)

	_ = s.cacheStore.SetJSON(ctx, cacheKey, result, s.ttl)
	return result, nil
}

// GetClaimTrends 获取每日核销趋势
func (s *AnalyticsService) GetClaimTrends(ctx context.Context, input ClaimTrendInput, scope AccessScope) (*ClaimTrendResponse, error) {
	window, err := resolveAnalyticsWindow(input, time.Now())
	if err != nil {
		return nil, err
	}
	cacheKey := fmt.Sprintf("analytics:trends:%s:%d:%d:%s:%s",
		window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone, scopeCacheKey(scope))
	if !input.ForceRefresh {
		var cached ClaimTrendResponse
		if s.readCache(ctx, "trends", cacheKey, &cached) {
			return &cached, nil
		}
	}

	rows, err := s.dashboardRepo.GetClaimTrends(window.startAt, window.endAt, scope.Filter())
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]repository.DashboardClaimTrendRow, len(rows))
	for _, row := range rows {
		byDay[row.Day] = row
	}
	location := window.startAt.Location()
	points := make([]ClaimTrendPoint, 0)
	for day := window.startAt; day.Before(window.endAt); day = day.AddDate(0, 0, 1) {
		key := day.In(location).Format("2006-01-02")
		row := byDay[key]
		points = append(points, ClaimTrendPoint{
			Day:          key,
			ClaimedCount: row.ClaimedCount,
			ClaimedValue: models.NewMoneyFromDecimal(row.ClaimedValue.Decimal).StringFixed(2),
		})
	}
	response := &ClaimTrendResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		Points:   points,
	}
	_ = s.cacheStore.SetJSON(ctx, cacheKey, response, s.ttl)
	return response, nil
}

func (s *AnalyticsService) readCache(ctx context.Context, area, key string, dest interface{}) bool {
	if !s.cacheStore.Enabled() {
		return false
	}
	hit, err := s.cacheStore.GetJSON(ctx, key, dest)
	hit = err == nil && hit
	s.metrics.ObserveCache("analytics_"+area, hit)
	return hit
}

// scopeCacheKey 缓存键需区分可见范围，避免跨租户复用
func scopeCacheKey(scope AccessScope) string {
	if scope.Unrestricted {
		return "all"
	}
	return "t" + joinIDs(scope.TenantIDs) + ":m" + joinIDs(scope.MerchantIDs)
}

func joinIDs(ids []uint) string {
	sorted := append([]uint(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, 0, len(sorted))
	for _, id := range sorted {
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return strings.Join(parts, ",")
}

func resolveAnalyticsWindow(input ClaimTrendInput, now time.Time) (analyticsWindow, error) {
	rangeKey := strings.ToLower(strings.TrimSpace(input.Range))
	if rangeKey == "" {
		rangeKey = "7d"
	}

	timezone := strings.TrimSpace(input.Timezone)
	location := time.Local
	if timezone != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			location = parsed
		} else {
			timezone = ""
		}
	}
	if timezone == "" {
		timezone = location.String()
	}

	localNow := now.In(location)
	todayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, location)
	window := analyticsWindow{rangeKey: rangeKey, timezone: timezone}

	switch rangeKey {
	case "today":
		window.startAt = todayStart
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "7d":
		window.startAt = todayStart.AddDate(0, 0, -6)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "30d":
		window.startAt = todayStart.AddDate(0, 0, -29)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "custom":
		if input.From == nil || input.To == nil {
			return analyticsWindow{}, ErrAnalyticsRangeInvalid
		}
		startFrom := input.From.In(location)
		endTo := input.To.In(location)
		if endTo.Before(startFrom) || endTo.Sub(startFrom) > time.Hour*24*analyticsCustomMaxDays {
			return analyticsWindow{}, ErrAnalyticsRangeInvalid
		}
		window.startAt = time.Date(startFrom.Year(), startFrom.Month(), startFrom.Day(), 0, 0, 0, 0, location)
		window.endAt = time.Date(endTo.Year(), endTo.Month(), endTo.Day(), 0, 0, 0, 0, location).AddDate(0, 0, 1)
	default:
		return analyticsWindow{}, ErrAnalyticsRangeInvalid
	}
	return window, nil
}
