package repository

import (
	"time"

	"github.com/bluboy-rewards/internal/models"
)

// ScopeFilter 数据可见范围
// Restricted 为 true 时仅返回 TenantIDs / MerchantIDs 命中的记录，两者都为空时返回空集。
type ScopeFilter struct {
	Restricted  bool
	TenantIDs   []uint
	MerchantIDs []uint
}

// RewardListFilter 查询奖励列表的过滤条件
type RewardListFilter struct {
	Page         int
	PageSize     int
	Tab          string
	Status       string
	EventID      uint
	MerchantID   uint
	Search       string
	IncludeDummy bool
	Scope        ScopeFilter
}

// RewardAggregateFilter 奖励聚合统计过滤条件
type RewardAggregateFilter struct {
	EventID      uint
	MerchantID   uint
	Statuses     []string
	ExcludeDummy bool
	Scope        ScopeFilter
}

// RewardStatusAggregateRow 按状态聚合的奖励数量与金额
type RewardStatusAggregateRow struct {
	Status string       `gorm:"column:status"`
	Count  int64        `gorm:"column:total_count"`
	Value  models.Money `gorm:"column:total_value"`
}

// EventListFilter 查询营销活动列表的过滤条件
type EventListFilter struct {
	Page       int
	PageSize   int
	Status     string
	TenantID   uint
	MerchantID uint
	Search     string
	Scope      ScopeFilter
}

// TenantListFilter 查询租户列表的过滤条件
type TenantListFilter struct {
	Page     int
	PageSize int
	Status   string
	Search   string
	Scope    ScopeFilter
}

// MerchantListFilter 查询商户列表的过滤条件
type MerchantListFilter struct {
	Page     int
	PageSize int
	TenantID uint
	Status   string
	Search   string
	Scope    ScopeFilter
}

// UserListFilter 查询后台用户列表的过滤条件
type UserListFilter struct {
	Page     int
	PageSize int
	Role     string
	Status   string
	Search   string
}

// ClaimLogListFilter 查询核销日志的过滤条件
type ClaimLogListFilter struct {
	Page          int
	PageSize      int
	EventID       uint
	OperatorEmail string
	Scope         ScopeFilter
}

// LoginLogListFilter 查询登录日志的过滤条件
type LoginLogListFilter struct {
	Page        int
	PageSize    int
	Email       string
	Status      string
	FailReason  string
	ClientIP    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
