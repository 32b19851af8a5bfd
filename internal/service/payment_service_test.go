package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-pay-api/internal/config"
	"token-pay-api/internal/constant"
	"token-pay-api/internal/dto"
	ledgermodel "token-pay-api/internal/model/ledger"
	"token-pay-api/internal/settlement"
	"token-pay-api/internal/utils"
)

type memLedger struct {
	rows      map[string]*ledgermodel.Transaction
	createErr error
}

func (m *memLedger) CreateTransaction(_ context.Context, t *ledgermodel.Transaction) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.rows[t.OrderNo]; ok {
		return fmt.Errorf("order %s: %w", t.OrderNo, settlement.ErrDuplicateOrderNo)
	}
	cp := *t
	m.rows[t.OrderNo] = &cp
	return nil
}

func (m *memLedger) GetByOrderNo(_ context.Context, orderNo string) (*ledgermodel.Transaction, error) {
	t, ok := m.rows[orderNo]
	if !ok {
		return nil, settlement.ErrNotFound
	}
	return t, nil
}

var testGateway = config.GatewayCfg{
	SubmitURL:     "https://pay.example.com/submit.php",
	Pid:           "1001",
	Key:           "secret",
	NotifyURL:     "https://app.example.com/api/v1/payments/notify",
	PricePerToken: "0.1",
}

func newPaymentService(t *testing.T, orderNos ...string) (*PaymentService, *memLedger) {
	t.Helper()
	log, _ := test.NewNullLogger()
	ledger := &memLedger{rows: map[string]*ledgermodel.Transaction{}}
	svc, err := NewPaymentService(ledger, testGateway, log)
	require.NoError(t, err)
	if len(orderNos) > 0 {
		i := 0
		svc.newOrderNo = func() string {
			n := orderNos[i%len(orderNos)]
			i++
			return n
		}
	}
	return svc, ledger
}

// payURLParams 网关链接不做 URL 编码，按原样拆分
func payURLParams(t *testing.T, payURL string) map[string]string {
	t.Helper()
	parts := strings.SplitN(payURL, "?", 2)
	require.Len(t, parts, 2)
	out := map[string]string{}
	for _, kv := range strings.Split(parts[1], "&") {
		pair := strings.SplitN(kv, "=", 2)
		require.Len(t, pair, 2)
		out[pair[0]] = pair[1]
	}
	return out
}

func TestNewPaymentService_InvalidPrice(t *testing.T) {
	log, _ := test.NewNullLogger()
	for _, price := range []string{"", "abc", "0", "-1"} {
		gw := testGateway
		gw.PricePerToken = price
		_, err := NewPaymentService(&memLedger{}, gw, log)
		assert.Error(t, err, price)
	}
}

func TestPaymentService_Create(t *testing.T) {
	svc, ledger := newPaymentService(t, "20240101120000123")

	resp, err := svc.Create(context.Background(), dto.CreatePaymentReq{UserID: "user-42", Tokens: 105, PayType: "alipay"})
	require.NoError(t, err)

	assert.Equal(t, "20240101120000123", resp.OrderNo)
	assert.Equal(t, "10.5", resp.Money)
	row := ledger.rows[resp.OrderNo]
	require.NotNil(t, row)
	assert.Equal(t, constant.TradeStatusPending, row.TradeStatus)
	assert.True(t, decimal.RequireFromString("10.50").Equal(row.Money))
	p, err := row.CreditParam()
	require.NoError(t, err)
	assert.Equal(t, ledgermodel.CreditParam{Tokens: 105, UserID: "user-42"}, p)

	params := payURLParams(t, resp.PayURL)
	assert.True(t, strings.HasPrefix(resp.PayURL, testGateway.SubmitURL+"?"))
	assert.Equal(t, "1001", params["pid"])
	assert.Equal(t, defaultOrderName, params["name"])
	assert.Equal(t, constant.SignTypeMD5, params["sign_type"])
	assert.True(t, utils.VerifySign(params, testGateway.Key))
}

func TestPaymentService_CreateWithQuotedMoney(t *testing.T) {
	svc, _ := newPaymentService(t, "20240101120000124")

	resp, err := svc.Create(context.Background(), dto.CreatePaymentReq{UserID: "u", Tokens: 99, PayType: "wxpay", Money: "9.90", Name: "VIP"})
	require.NoError(t, err)
	assert.Equal(t, "9.9", resp.Money)
	assert.Equal(t, "VIP", payURLParams(t, resp.PayURL)["name"])
}

func TestPaymentService_CreateRejectsMismatchedMoney(t *testing.T) {
	svc, ledger := newPaymentService(t, "20240101120000125")

	cases := []dto.CreatePaymentReq{
		{UserID: "u", Tokens: 1000000, PayType: "alipay", Money: "0.01"},
		{UserID: "u", Tokens: 1, PayType: "wxpay", Money: "9.90"},
		{UserID: "u", Tokens: 1, PayType: "wxpay", Money: "0"},
		{UserID: "u", Tokens: 1, PayType: "wxpay", Money: "-0.1"},
		{UserID: "u", Tokens: 1, PayType: "wxpay", Money: "abc"},
	}
	for _, req := range cases {
		_, err := svc.Create(context.Background(), req)
		var ce constant.Error
		require.True(t, errors.As(err, &ce), req.Money)
		assert.Equal(t, constant.CodeOrderAmountInvalid, ce.Code(), req.Money)
	}
	assert.Empty(t, ledger.rows)
}

func TestPaymentService_CreateTokenBounds(t *testing.T) {
	svc, ledger := newPaymentService(t, "20240101120000126")

	for _, tokens := range []int64{0, -1, ledgermodel.MaxCreditTokens + 1} {
		_, err := svc.Create(context.Background(), dto.CreatePaymentReq{UserID: "u", Tokens: tokens, PayType: "alipay"})
		var ce constant.Error
		require.True(t, errors.As(err, &ce), tokens)
		assert.Equal(t, constant.CodeOrderAmountInvalid, ce.Code(), tokens)
	}
	assert.Empty(t, ledger.rows)

	resp, err := svc.Create(context.Background(), dto.CreatePaymentReq{UserID: "u", Tokens: ledgermodel.MaxCreditTokens, PayType: "alipay"})
	require.NoError(t, err)
	assert.Equal(t, "100000000", resp.Money)
}

func TestPaymentService_CreateRetriesOnCollision(t *testing.T) {
	svc, ledger := newPaymentService(t, "20240101120000123", "20240101120000123", "20240101120000777")
	ledger.rows["20240101120000123"] = &ledgermodel.Transaction{OrderNo: "20240101120000123"}

	resp, err := svc.Create(context.Background(), dto.CreatePaymentReq{UserID: "u", Tokens: 10, PayType: "alipay"})
	require.NoError(t, err)
	assert.Equal(t, "20240101120000777", resp.OrderNo)
}

func TestPaymentService_CreateCollisionExhausted(t *testing.T) {
	svc, ledger := newPaymentService(t, "20240101120000123")
	ledger.rows["20240101120000123"] = &ledgermodel.Transaction{OrderNo: "20240101120000123"}

	_, err := svc.Create(context.Background(), dto.CreatePaymentReq{UserID: "u", Tokens: 10, PayType: "alipay"})
	assert.True(t, errors.Is(err, settlement.ErrOrderNumberCollision))
}

func TestPaymentService_CreateDatabaseError(t *testing.T) {
	svc, ledger := newPaymentService(t)
	ledger.createErr = errors.New("connection refused")

	_, err := svc.Create(context.Background(), dto.CreatePaymentReq{UserID: "u", Tokens: 10, PayType: "alipay"})
	var ce constant.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, constant.CodeDatabaseError, ce.Code())
}

func TestPaymentService_Get(t *testing.T) {
	svc, ledger := newPaymentService(t)
	ledger.rows["o-1"] = &ledgermodel.Transaction{
		OrderNo:     "o-1",
		UserID:      "user-42",
		Money:       decimal.RequireFromString("5.00"),
		TradeStatus: constant.TradeStatusSuccess,
		SyncStatus:  constant.SyncStatusFailed,
		SyncError:   "BalanceWriteFailed",
	}

	vo, err := svc.Get(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, "user-42", vo.UserID)
	assert.Equal(t, constant.SyncStatusFailed, vo.SyncStatus)
	assert.Equal(t, "BalanceWriteFailed", vo.SyncError)
	assert.True(t, decimal.RequireFromString("5").Equal(vo.Money))

	_, err = svc.Get(context.Background(), "missing")
	var ce constant.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, constant.CodeOrderNotFound, ce.Code())
}
