package accountmodel

import "time"

// CreditLog 入账流水，order_no 唯一，标记该订单的余额已经加过
type CreditLog struct {
	ID         uint64    `gorm:"column:id;primaryKey" json:"id"` // snowflake
	OrderNo    string    `gorm:"column:order_no;type:varchar(32);not null;uniqueIndex:uk_order_no" json:"orderNo"`
	UserID     string    `gorm:"column:user_id;type:varchar(64);not null;index:idx_user" json:"userId"`
	Tokens     int64     `gorm:"column:tokens;not null" json:"tokens"`
	OldBalance int64     `gorm:"column:old_balance;not null" json:"oldBalance"`
	Balance    int64     `gorm:"column:balance;not null" json:"balance"`
	CreateTime time.Time `gorm:"column:create_time;not null" json:"createTime"`
}

func (CreditLog) TableName() string {
	return "user_token_credit_log"
}
