package service

import (
	"context"

	"github.com/jinzhu/copier"
	"golang.org/x/sync/singleflight"

	"token-pay-api/internal/constant"
	"token-pay-api/internal/dto"
	accountmodel "token-pay-api/internal/model/account"
)

const defaultCreditLimit = 20

// BalanceReader 用户库只读能力
type BalanceReader interface {
	GetUserBalance(ctx context.Context, userID string) (*accountmodel.UserBalance, error)
	ListCreditLogs(ctx context.Context, userID string, limit int) ([]accountmodel.CreditLog, error)
}

type BalanceService struct {
	store BalanceReader
	group singleflight.Group
}

func NewBalanceService(store BalanceReader) *BalanceService {
	return &BalanceService{store: store}
}

// Get 查询余额，同一用户的并发查询合并为一次读库
func (s *BalanceService) Get(ctx context.Context, userID string) (*dto.UserBalanceVo, error) {
	v, err, _ := s.group.Do("balance:"+userID, func() (interface{}, error) {
		return s.store.GetUserBalance(ctx, userID)
	})
	if err != nil {
		return nil, constant.WrapError(constant.CodeDatabaseError, err)
	}
	b, _ := v.(*accountmodel.UserBalance)
	if b == nil {
		return nil, constant.NewError(constant.CodeAccountNotFound)
	}
	return &dto.UserBalanceVo{
		UserID:       b.UserID,
		TokenBalance: b.TokenBalance,
		UpdateTime:   &b.UpdateTime,
	}, nil
}

// Credits 最近入账流水
func (s *BalanceService) Credits(ctx context.Context, userID string, limit int) ([]dto.CreditLogVo, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultCreditLimit
	}
	logs, err := s.store.ListCreditLogs(ctx, userID, limit)
	if err != nil {
		return nil, constant.WrapError(constant.CodeDatabaseError, err)
	}
	out := make([]dto.CreditLogVo, 0, len(logs))
	if err := copier.Copy(&out, &logs); err != nil {
		return nil, constant.WrapError(constant.CodeSystemError, err)
	}
	return out, nil
}
