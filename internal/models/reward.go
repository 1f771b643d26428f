package models

import "time"

// Reward 奖励码表
// 说明：CodePart2 与 FullCode 默认不序列化，只在核销成功后单独返回。
type Reward struct {
	ID            uint       `gorm:"primarykey" json:"id"`                                         // 主键
	EventID       uint       `gorm:"index;not null" json:"event_id"`                               // 所属活动
	MerchantID    uint       `gorm:"index;not null" json:"merchant_id"`                            // 所属商户（冗余）
	CodePart1     string     `gorm:"type:varchar(16);uniqueIndex;not null" json:"code_part1"`      // 核销前缀
	CodePart2     string     `gorm:"type:varchar(16);not null" json:"-"`                           // 私有后缀
	FullCode      string     `gorm:"type:varchar(40);uniqueIndex;not null" json:"-"`               // 完整码
	Value         Money      `gorm:"type:decimal(20,2);not null" json:"value"`                     // 奖励金额
	Status        string     `gorm:"type:varchar(16);index;not null" json:"status"`                // 状态
	IsDummy       bool       `gorm:"index;not null;default:false" json:"is_dummy"`                 // 是否演示奖励
	CustomerID    *string    `gorm:"type:varchar(64);index" json:"customer_id,omitempty"`          // 客户标识
	DistributedAt *time.Time `json:"distributed_at,omitempty"`                                     // 发放时间
	ClaimedAt     *time.Time `json:"claimed_at,omitempty"`                                         // 核销时间
	ExpiresAt     *time.Time `gorm:"index" json:"expires_at,omitempty"`                            // 过期时间
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt     time.Time  `json:"updated_at"`                                                   // 更新时间

	Event    *MarketingEvent `gorm:"foreignKey:EventID" json:"event,omitempty"`
	Merchant *Merchant       `gorm:"foreignKey:MerchantID" json:"merchant,omitempty"`
}

// TableName 指定表名
func (Reward) TableName() string {
	return "rewards"
}
