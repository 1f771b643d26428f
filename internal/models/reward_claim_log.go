package models

import "time"

// RewardClaimLog 奖励核销审计日志（只追加）
type RewardClaimLog struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	RewardID      uint      `gorm:"uniqueIndex;not null" json:"reward_id"`
	EventID       uint      `gorm:"index;not null" json:"event_id"`
	MerchantID    uint      `gorm:"index;not null" json:"merchant_id"`
	OperatorEmail string    `gorm:"type:varchar(255);index" json:"operator_email"`
	OperatorRole  string    `gorm:"type:varchar(32)" json:"operator_role"`
	Value         Money     `gorm:"type:decimal(20,2);not null" json:"value"`
	RequestID     string    `gorm:"type:varchar(64);index" json:"request_id"`
	ClaimedAt     time.Time `gorm:"index" json:"claimed_at"`
}

// TableName 指定表名
func (RewardClaimLog) TableName() string {
	return "reward_claim_logs"
}
