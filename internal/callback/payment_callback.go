package callback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"token-pay-api/internal/config"
	"token-pay-api/internal/constant"
	"token-pay-api/internal/dto"
	"token-pay-api/internal/event"
	"token-pay-api/internal/metrics"
	ledgermodel "token-pay-api/internal/model/ledger"
	"token-pay-api/internal/notify"
	"token-pay-api/internal/settlement"
	"token-pay-api/internal/utils"
)

// NotifyLedger 回调处理需要的订单库能力
type NotifyLedger interface {
	GetByOrderNo(ctx context.Context, orderNo string) (*ledgermodel.Transaction, error)
	MarkTradeSuccess(ctx context.Context, orderNo, tradeNo string, paidAt time.Time) (bool, error)
}

// NotifyLogWriter 回调日志
type NotifyLogWriter interface {
	Insert(ctx context.Context, entry *ledgermodel.NotifyLog) error
}

// Reconciler 单订单入账
type Reconciler interface {
	Reconcile(ctx context.Context, orderNo string) settlement.Result
}

// NotifyMeta 请求上下文信息，仅用于落日志
type NotifyMeta struct {
	TraceID string
	IP      string
}

// PaymentCallback 网关异步通知处理
type PaymentCallback struct {
	ledger  NotifyLedger
	logs    NotifyLogWriter
	rec     Reconciler
	pub     event.Publisher
	alerter notify.Alerter
	gateway config.GatewayCfg
	async   bool
	log     logrus.FieldLogger
}

func NewPaymentCallback(ledger NotifyLedger, logs NotifyLogWriter, rec Reconciler, pub event.Publisher,
	alerter notify.Alerter, gateway config.GatewayCfg, async bool, log logrus.FieldLogger) *PaymentCallback {
	if pub == nil {
		pub = event.Nop{}
	}
	if alerter == nil {
		alerter = notify.Nop{}
	}
	return &PaymentCallback{
		ledger:  ledger,
		logs:    logs,
		rec:     rec,
		pub:     pub,
		alerter: alerter,
		gateway: gateway,
		async:   async,
		log:     log,
	}
}

// HandleNotify 验签 -> 校验商户与金额 -> 标记支付成功 -> 入账。
// 返回 nil 表示应答网关 success；返回错误时网关会重发通知。
// 商户号、订单、金额等数据问题重发也无法修复，落日志告警后仍应答 success。
func (s *PaymentCallback) HandleNotify(ctx context.Context, params map[string]string, meta NotifyMeta) error {
	start := time.Now()
	n := dto.NewPaymentNotification(params)
	log := s.log.WithFields(logrus.Fields{"orderNo": n.OutTradeNo, "tradeNo": n.TradeNo, "traceId": meta.TraceID})

	verified, err := s.process(ctx, log, n, params, meta)
	s.writeLog(ctx, n, params, meta, verified, err, start)
	if err == nil {
		metrics.PaymentNotifyTotal.WithLabelValues("success").Inc()
		return nil
	}

	if reason, ok := rejectReason(err); ok {
		metrics.PaymentNotifyTotal.WithLabelValues("rejected").Inc()
		log.WithError(err).WithField("reason", reason).Error("[CALLBACK] 回调数据异常，已应答并告警")
		s.alerter.Alert(notify.LevelError, "网关回调数据异常", notify.ReconcileFailedContent(n.OutTradeNo, reason, err))
		return nil
	}
	metrics.PaymentNotifyTotal.WithLabelValues("failed").Inc()
	log.WithError(err).Warn("[CALLBACK] 回调处理失败")
	return err
}

func (s *PaymentCallback) process(ctx context.Context, log logrus.FieldLogger, n dto.PaymentNotification,
	params map[string]string, meta NotifyMeta) (bool, error) {
	// 验签失败直接拒绝，不进入后续任何流程
	if !utils.VerifySign(params, s.gateway.Key) {
		s.alerter.Alert(notify.LevelWarn, "网关回调验签失败",
			notify.ReconcileFailedContent(n.OutTradeNo, settlement.KindSignatureMismatch.String(), fmt.Errorf("ip %s", meta.IP)))
		return false, settlement.NewError(settlement.KindSignatureMismatch, n.OutTradeNo, nil)
	}

	if n.Pid != s.gateway.Pid {
		return true, constant.WrapError(constant.CodeOrderMerchantInvalid, fmt.Errorf("pid %q", n.Pid))
	}
	if n.TradeStatus != constant.GatewayTradeSuccess {
		log.WithField("tradeStatus", n.TradeStatus).Info("[CALLBACK] 非成功状态通知，忽略")
		return true, nil
	}

	txn, err := s.ledger.GetByOrderNo(ctx, n.OutTradeNo)
	if err != nil {
		if errors.Is(err, settlement.ErrNotFound) {
			return true, constant.WrapError(constant.CodeOrderNotFound, err)
		}
		return true, constant.WrapError(constant.CodeDatabaseError, err)
	}
	if !utils.MoneyEqual(n.Money, txn.Money) {
		return true, constant.WrapError(constant.CodeOrderAmountInvalid, fmt.Errorf("callback money %s, order money %s", n.Money, txn.Money.String()))
	}

	switch txn.TradeStatus {
	case constant.TradeStatusPending:
		if _, err := s.ledger.MarkTradeSuccess(ctx, n.OutTradeNo, n.TradeNo, time.Now()); err != nil {
			return true, constant.WrapError(constant.CodeDatabaseError, err)
		}
	case constant.TradeStatusSuccess:
		// 网关重复通知
		if txn.SyncStatus == constant.SyncStatusSuccess {
			return true, nil
		}
	default:
		return true, constant.WrapError(constant.CodeOrderStatusInvalid, fmt.Errorf("trade status %s", txn.TradeStatus))
	}

	return true, s.settle(ctx, log, n.OutTradeNo)
}

// rejectReason 重发无法修复的数据错误
func rejectReason(err error) (string, bool) {
	var ce constant.Error
	if !errors.As(err, &ce) {
		return "", false
	}
	switch ce.Code() {
	case constant.CodeOrderMerchantInvalid:
		return "MerchantMismatch", true
	case constant.CodeOrderNotFound:
		return "OrderNotFound", true
	case constant.CodeOrderAmountInvalid:
		return "AmountMismatch", true
	case constant.CodeOrderStatusInvalid:
		return "OrderStatusInvalid", true
	}
	return "", false
}

// settle 异步模式投递 MQ，投递失败或同步模式时内联入账
func (s *PaymentCallback) settle(ctx context.Context, log logrus.FieldLogger, orderNo string) error {
	if s.async {
		err := s.pub.Publish(event.TopicReconcile, &dto.ReconcileMessage{
			OrderNo: orderNo,
			Source:  "notify",
			Ts:      time.Now().Unix(),
		})
		if err == nil {
			return nil
		}
		log.WithError(err).Warn("[CALLBACK] 入账任务投递失败，改为同步入账")
	}

	res := s.rec.Reconcile(ctx, orderNo)
	if res.Success {
		return nil
	}
	kind := settlement.KindOf(res.Err)
	switch {
	case kind == settlement.KindInProgress:
		// 其他实例正在处理
		return nil
	case !kind.Retryable():
		// 数据问题，网关重发也无济于事，已告警待人工处理
		return nil
	}
	return res.Err
}

func (s *PaymentCallback) writeLog(ctx context.Context, n dto.PaymentNotification, params map[string]string,
	meta NotifyMeta, verified bool, cause error, start time.Time) {
	if s.logs == nil {
		return
	}
	entry := &ledgermodel.NotifyLog{
		OrderNo:   n.OutTradeNo,
		TradeNo:   n.TradeNo,
		TraceID:   meta.TraceID,
		Params:    utils.MapToJSON(params),
		Verified:  verified,
		Status:    "success",
		IP:        meta.IP,
		LatencyMs: time.Since(start).Milliseconds(),
		CreatedAt: start,
	}
	if cause != nil {
		entry.Status = "failed"
		entry.ErrorMsg = cause.Error()
		if len(entry.ErrorMsg) > 500 {
			entry.ErrorMsg = entry.ErrorMsg[:500]
		}
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.logs.Insert(wctx, entry); err != nil {
		s.log.WithError(err).WithField("orderNo", n.OutTradeNo).Error("[CALLBACK] 回调日志写入失败")
	}
}
