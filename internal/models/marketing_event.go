package models

import "time"

// MarketingEvent 营销活动表
// 说明：ACTIVE 之后仅允许变更状态，奖励在激活时批量生成。
type MarketingEvent struct {
	ID                              uint       `gorm:"primarykey" json:"id"`                                   // 主键
	Name                            string     `gorm:"type:varchar(255);not null" json:"name"`                 // 活动名称
	Description                     string     `gorm:"type:text" json:"description"`                           // 活动描述
	TenantID                        uint       `gorm:"index;not null" json:"tenant_id"`                        // 所属租户
	MerchantID                      uint       `gorm:"index;not null" json:"merchant_id"`                      // 发放商户
	MinRewardValue                  Money      `gorm:"type:decimal(20,2);not null" json:"min_reward_value"`    // 最小奖励金额
	MaxRewardValue                  Money      `gorm:"type:decimal(20,2);not null" json:"max_reward_value"`    // 最大奖励金额
	TotalRewards                    int        `gorm:"not null" json:"total_rewards"`                          // 奖励总数
	DummyRewards                    int        `gorm:"not null;default:0" json:"dummy_rewards"`                // 演示奖励数
	AllowDummyRewards               bool       `gorm:"not null;default:false" json:"allow_dummy_rewards"`      // 是否允许演示奖励
	AllowMultipleRewardsPerCustomer bool       `gorm:"not null;default:false" json:"allow_multiple_rewards_per_customer"`
	StartDate                       time.Time  `gorm:"index;not null" json:"start_date"`                       // 开始时间
	EndDate                         time.Time  `gorm:"index;not null" json:"end_date"`                         // 结束时间
	RewardValidityStart             *time.Time `json:"reward_validity_start"`                                  // 奖励生效时间
	RewardValidityEnd               *time.Time `json:"reward_validity_end"`                                    // 奖励失效时间
	Status                          string     `gorm:"type:varchar(16);index;not null" json:"status"`          // 活动状态
	CreatedBy                       string     `gorm:"type:varchar(128)" json:"created_by"`                    // 创建人
	ActivatedAt                     *time.Time `json:"activated_at"`                                           // 激活时间
	CreatedAt                       time.Time  `gorm:"index" json:"created_at"`                                // 创建时间
	UpdatedAt                       time.Time  `json:"updated_at"`                                             // 更新时间

	Tenant   *Tenant   `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	Merchant *Merchant `gorm:"foreignKey:MerchantID" json:"merchant,omitempty"`
}

// TableName 指定表名
func (MarketingEvent) TableName() string {
	return "marketing_events"
}
