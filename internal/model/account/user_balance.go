package accountmodel

import "time"

// UserBalance 用户代币余额（用户库 user_token_balance）
type UserBalance struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID       string    `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:uk_user" json:"userId"`
	TokenBalance int64     `gorm:"column:token_balance;not null;default:0" json:"tokenBalance"`
	CreateTime   time.Time `gorm:"column:create_time;not null" json:"createTime"`
	UpdateTime   time.Time `gorm:"column:update_time;not null" json:"updateTime"`
}

func (UserBalance) TableName() string {
	return "user_token_balance"
}
