package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"token-pay-api/internal/config"
	"token-pay-api/internal/constant"
	"token-pay-api/internal/dto"
	"token-pay-api/internal/idgen"
	ledgermodel "token-pay-api/internal/model/ledger"
	"token-pay-api/internal/settlement"
	"token-pay-api/internal/utils"
)

// 订单号冲突时最多重新生成的次数
const orderNoAttempts = 3

const defaultOrderName = "Token Recharge"

// PaymentLedger 下单与查单需要的订单库能力
type PaymentLedger interface {
	CreateTransaction(ctx context.Context, t *ledgermodel.Transaction) error
	GetByOrderNo(ctx context.Context, orderNo string) (*ledgermodel.Transaction, error)
}

type PaymentService struct {
	ledger     PaymentLedger
	gateway    config.GatewayCfg
	price      decimal.Decimal
	log        logrus.FieldLogger
	newOrderNo func() string
}

func NewPaymentService(ledger PaymentLedger, gateway config.GatewayCfg, log logrus.FieldLogger) (*PaymentService, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(gateway.PricePerToken))
	if err != nil || !price.IsPositive() {
		return nil, fmt.Errorf("invalid gateway.pricePerToken %q", gateway.PricePerToken)
	}
	return &PaymentService{
		ledger:     ledger,
		gateway:    gateway,
		price:      price,
		log:        log,
		newOrderNo: idgen.NewOrderNumber,
	}, nil
}

// Create 创建充值订单并返回网关支付链接
func (s *PaymentService) Create(ctx context.Context, req dto.CreatePaymentReq) (*dto.CreatePaymentResp, error) {
	money, err := s.orderMoney(req)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultOrderName
	}
	param := ledgermodel.CreditParam{Tokens: req.Tokens, UserID: req.UserID}.Encode()

	var orderNo string
	for attempt := 1; ; attempt++ {
		orderNo = s.newOrderNo()
		err = s.ledger.CreateTransaction(ctx, &ledgermodel.Transaction{
			OrderNo:     orderNo,
			UserID:      req.UserID,
			Name:        name,
			PayType:     req.PayType,
			Money:       money,
			TradeStatus: constant.TradeStatusPending,
			Param:       param,
			SyncStatus:  constant.SyncStatusUnset,
		})
		if err == nil {
			break
		}
		if !errors.Is(err, settlement.ErrDuplicateOrderNo) {
			return nil, constant.WrapError(constant.CodeDatabaseError, err)
		}
		s.log.WithFields(logrus.Fields{"orderNo": orderNo, "attempt": attempt}).Warn("[PAYMENT] 订单号冲突，重新生成")
		if attempt == orderNoAttempts {
			return nil, settlement.NewError(settlement.KindOrderNumberCollision, orderNo, err)
		}
	}

	order := dto.PaymentOrder{
		Pid:        s.gateway.Pid,
		Type:       req.PayType,
		OutTradeNo: orderNo,
		NotifyURL:  s.gateway.NotifyURL,
		ReturnURL:  s.gateway.ReturnURL,
		Name:       name,
		Money:      money,
		Param:      param,
	}
	s.log.WithFields(logrus.Fields{
		"orderNo": orderNo,
		"userId":  req.UserID,
		"tokens":  req.Tokens,
		"money":   money.String(),
	}).Info("[PAYMENT] 订单已创建")

	return &dto.CreatePaymentResp{
		OrderNo: orderNo,
		PayURL:  utils.BuildPaymentURL(order.Params(), s.gateway.Key, s.gateway.SubmitURL),
		Money:   money.String(),
	}, nil
}

// orderMoney 金额一律按 单价 * 数量 计算，保留两位小数；
// 客户端传入的 money 只用于核对展示价格，不一致时拒绝下单
func (s *PaymentService) orderMoney(req dto.CreatePaymentReq) (decimal.Decimal, error) {
	if req.Tokens <= 0 || req.Tokens > ledgermodel.MaxCreditTokens {
		return decimal.Zero, constant.NewError(constant.CodeOrderAmountInvalid)
	}
	money := s.price.Mul(decimal.NewFromInt(req.Tokens)).Round(2)
	if !money.IsPositive() {
		return decimal.Zero, constant.NewError(constant.CodeOrderAmountInvalid)
	}
	if raw := strings.TrimSpace(req.Money); raw != "" {
		quoted, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, constant.WrapError(constant.CodeOrderAmountInvalid, err)
		}
		if !quoted.Equal(money) {
			return decimal.Zero, constant.WrapError(constant.CodeOrderAmountInvalid,
				fmt.Errorf("money %s, expected %s for %d tokens", raw, money.String(), req.Tokens))
		}
	}
	return money, nil
}

// Get 查询订单
func (s *PaymentService) Get(ctx context.Context, orderNo string) (*dto.TransactionVo, error) {
	txn, err := s.ledger.GetByOrderNo(ctx, orderNo)
	if err != nil {
		if errors.Is(err, settlement.ErrNotFound) {
			return nil, constant.WrapError(constant.CodeOrderNotFound, err)
		}
		return nil, constant.WrapError(constant.CodeDatabaseError, err)
	}
	var vo dto.TransactionVo
	if err := copier.Copy(&vo, txn); err != nil {
		return nil, constant.WrapError(constant.CodeSystemError, err)
	}
	return &vo, nil
}
