package dto

import "time"

// UserBalanceVo 用户代币余额
type UserBalanceVo struct {
	UserID       string     `json:"userId"`
	TokenBalance int64      `json:"tokenBalance"`
	UpdateTime   *time.Time `json:"updateTime,omitempty"`
}

// CreditLogVo 入账流水
type CreditLogVo struct {
	OrderNo    string    `json:"orderNo"`
	Tokens     int64     `json:"tokens"`
	OldBalance int64     `json:"oldBalance"`
	Balance    int64     `json:"balance"`
	CreateTime time.Time `json:"createTime"`
}
