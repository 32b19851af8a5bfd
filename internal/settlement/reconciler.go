package settlement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"token-pay-api/internal/constant"
	"token-pay-api/internal/dto"
	"token-pay-api/internal/event"
	"token-pay-api/internal/metrics"
	ledgermodel "token-pay-api/internal/model/ledger"
	"token-pay-api/internal/notify"
	rediskey "token-pay-api/internal/types/redis-key"
	"token-pay-api/internal/utils"
)

const (
	defaultCallTimeout   = 5 * time.Second
	defaultLockTTL       = 30 * time.Second
	defaultLease         = 2 * time.Minute
	defaultConflictRetry = 3
	conflictRetryDelay   = 20 * time.Millisecond
	maxSyncErrorLen      = 500
)

// Result 单次入账结果
type Result struct {
	OrderNo     string
	Success     bool
	TokensAdded int64
	UserID      string
	// AlreadySynced 订单此前已入账，本次未改动余额
	AlreadySynced bool
	// MarkerRepaired 余额已在之前加过，本次只补写了订单同步状态
	MarkerRepaired bool
	Balance        int64
	Err            error
}

// Options 入账参数，零值取默认
type Options struct {
	CallTimeout   time.Duration
	LockTTL       time.Duration
	Lease         time.Duration
	ConflictRetry int
}

func (o *Options) applyDefaults() {
	if o.CallTimeout <= 0 {
		o.CallTimeout = defaultCallTimeout
	}
	if o.LockTTL <= 0 {
		o.LockTTL = defaultLockTTL
	}
	if o.Lease <= 0 {
		o.Lease = defaultLease
	}
	if o.ConflictRetry <= 0 {
		o.ConflictRetry = defaultConflictRetry
	}
}

type Option func(*Reconciler)

// WithLocker 启用按订单加锁
func WithLocker(l Locker) Option { return func(r *Reconciler) { r.locker = l } }

// WithPublisher 入账成功后发布 balance.credited
func WithPublisher(p event.Publisher) Option { return func(r *Reconciler) { r.publisher = p } }

// WithAlerter 入账失败告警
func WithAlerter(a notify.Alerter) Option { return func(r *Reconciler) { r.alerter = a } }

func WithClock(now func() time.Time) Option { return func(r *Reconciler) { r.now = now } }

// Reconciler 将已支付订单的代币数量加到用户余额，并回写订单同步状态。
// 支付库与用户库之间没有分布式事务，顺序固定为先加余额后标记订单；
// 用户库中的入账流水（按订单号唯一）用来识别"余额已加但订单未标记"的中间态。
type Reconciler struct {
	ledger    LedgerStore
	balance   BalanceStore
	locker    Locker
	publisher event.Publisher
	alerter   notify.Alerter
	log       logrus.FieldLogger
	opts      Options
	now       func() time.Time
}

func NewReconciler(ledger LedgerStore, balance BalanceStore, log logrus.FieldLogger, opts Options, options ...Option) *Reconciler {
	opts.applyDefaults()
	r := &Reconciler{
		ledger:    ledger,
		balance:   balance,
		publisher: event.Nop{},
		alerter:   notify.Nop{},
		log:       log,
		opts:      opts,
		now:       time.Now,
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// Reconcile 对一个订单执行入账，可重复调用
func (r *Reconciler) Reconcile(ctx context.Context, orderNo string) (res Result) {
	start := r.now()
	res.OrderNo = orderNo
	log := r.log.WithField("orderNo", orderNo)

	// step 为当前步骤失败时归属的错误类型，panic 时按它上报
	var (
		step    = KindLedgerReadFailed
		claimed bool
	)
	defer func() {
		if p := recover(); p != nil {
			log.Errorf("[RECONCILE] panic: %v", p)
			res = Result{OrderNo: orderNo, UserID: res.UserID, Err: NewError(step, orderNo, fmt.Errorf("panic: %v", p))}
			r.markFailedSafe(ctx, log, orderNo, res.Err, claimed)
		}
		r.observe(res, start)
	}()

	if orderNo == "" {
		res.Err = NewError(KindOrderNotFound, orderNo, errors.New("empty order number"))
		return res
	}

	if r.locker != nil {
		release, ok, err := r.locker.Acquire(ctx, rediskey.ReconcileLockKey(orderNo), r.opts.LockTTL)
		switch {
		case err != nil:
			// 锁服务不可用时仍可依赖订单表的 CAS 认领
			log.WithError(err).Warn("[RECONCILE] 获取订单锁失败，继续执行")
		case !ok:
			res.Err = NewError(KindInProgress, orderNo, errors.New("order lock held"))
			return res
		default:
			defer release()
		}
	}

	var txn *ledgermodel.Transaction
	err := r.call(ctx, func(ctx context.Context) error {
		var e error
		txn, e = r.ledger.GetTransactionByOrderNumber(ctx, orderNo)
		return e
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			res.Err = NewError(KindOrderNotFound, orderNo, err)
			return res
		}
		res.Err = NewError(KindLedgerReadFailed, orderNo, err)
		r.markFailed(ctx, log, orderNo, res.Err, false)
		return res
	}
	res.UserID = txn.UserID

	if txn.SyncStatus == constant.SyncStatusSuccess {
		res.Success = true
		res.AlreadySynced = true
		return res
	}

	step = KindLedgerWriteFailed
	err = r.call(ctx, func(ctx context.Context) error {
		var e error
		claimed, e = r.ledger.ClaimSync(ctx, orderNo, r.opts.Lease)
		return e
	})
	if err != nil {
		res.Err = NewError(KindLedgerWriteFailed, orderNo, err)
		r.markFailed(ctx, log, orderNo, res.Err, false)
		return res
	}
	if !claimed {
		res.Err = NewError(KindInProgress, orderNo, errors.New("sync claimed by another worker"))
		return res
	}

	step = KindMissingCreditAmount
	param, err := txn.CreditParam()
	if err != nil {
		res.Err = NewError(KindMissingCreditAmount, orderNo, err)
		r.markFailed(ctx, log, orderNo, res.Err, true)
		return res
	}
	res.UserID = param.UserID

	step = KindBalanceWriteFailed
	applied, balance, err := r.applyCredit(ctx, orderNo, param)
	if err != nil {
		res.Err = err
		r.markFailed(ctx, log, orderNo, res.Err, true)
		return res
	}

	step = KindLedgerWriteFailed
	err = r.call(ctx, func(ctx context.Context) error {
		return r.ledger.UpdateTransactionSyncStatus(ctx, orderNo, constant.SyncStatusSuccess, SyncFields{At: r.now()})
	})
	if err != nil {
		// 余额已加，下次重试会通过入账流水跳过加款
		res.Err = NewError(KindLedgerWriteFailed, orderNo, err)
		r.markFailed(ctx, log, orderNo, res.Err, true)
		return res
	}

	res.Success = true
	if applied {
		res.TokensAdded = param.Tokens
		res.Balance = balance
		event.PublishBalanceCredited(r.publisher, log, &dto.BalanceCreditedEvent{
			OrderNo:    orderNo,
			UserID:     param.UserID,
			Tokens:     param.Tokens,
			Balance:    balance,
			CreditedAt: r.now().Unix(),
		})
	} else {
		res.MarkerRepaired = true
	}
	log.WithFields(logrus.Fields{
		"userId":   param.UserID,
		"tokens":   res.TokensAdded,
		"balance":  balance,
		"repaired": res.MarkerRepaired,
	}).Info("[RECONCILE] 入账完成")
	return res
}

// applyCredit 加余额；返回 applied=false 表示之前已加过
func (r *Reconciler) applyCredit(ctx context.Context, orderNo string, p ledgermodel.CreditParam) (bool, int64, error) {
	var has bool
	err := r.call(ctx, func(ctx context.Context) error {
		var e error
		has, e = r.balance.HasCredit(ctx, orderNo)
		return e
	})
	if err != nil {
		return false, 0, NewError(KindBalanceReadFailed, orderNo, err)
	}
	if has {
		return false, 0, nil
	}

	var (
		applied    = true
		newBalance int64
	)
	err = utils.DoWithRetry(ctx, r.opts.ConflictRetry, conflictRetryDelay, func() error {
		var current *int64
		err := r.call(ctx, func(ctx context.Context) error {
			b, e := r.balance.GetUserBalance(ctx, p.UserID)
			if e == nil && b != nil {
				current = &b.TokenBalance
			}
			return e
		})
		if err != nil {
			return NewError(KindBalanceReadFailed, orderNo, err)
		}

		err = r.call(ctx, func(ctx context.Context) error {
			if current == nil {
				newBalance = p.Tokens
				return r.balance.CreateUserBalance(ctx, p.UserID, p.Tokens, orderNo)
			}
			if *current < 0 || p.Tokens > math.MaxInt64-*current {
				return fmt.Errorf("%w: balance %d + tokens %d", ErrBalanceOverflow, *current, p.Tokens)
			}
			newBalance = *current + p.Tokens
			return r.balance.UpdateUserBalance(ctx, p.UserID, *current, newBalance, orderNo)
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrCreditExists):
			// 并发的另一次入账已提交
			applied = false
			return nil
		case errors.Is(err, ErrBalanceConflict):
			return err
		}
		return NewError(KindBalanceWriteFailed, orderNo, err)
	}, func(err error) bool {
		return errors.Is(err, ErrBalanceConflict)
	})
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return false, 0, se
		}
		return false, 0, NewError(KindBalanceWriteFailed, orderNo, err)
	}
	if !applied {
		return false, 0, nil
	}
	return true, newBalance, nil
}

// markFailed 尽力回写 FAILED，失败只记日志。
// claimed=false 时本实例未持有 PROCESSING，不覆盖他人的进行中状态。
func (r *Reconciler) markFailed(ctx context.Context, log logrus.FieldLogger, orderNo string, cause error, claimed bool) {
	msg := cause.Error()
	if len(msg) > maxSyncErrorLen {
		msg = msg[:maxSyncErrorLen]
	}
	from := []string{constant.SyncStatusUnset, constant.SyncStatusFailed}
	if claimed {
		from = append(from, constant.SyncStatusProcessing)
	}

	// 调用方取消后仍要留下失败记录
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.CallTimeout)
	defer cancel()
	if err := r.ledger.UpdateTransactionSyncStatus(wctx, orderNo, constant.SyncStatusFailed, SyncFields{
		At:    r.now(),
		Error: msg,
		From:  from,
	}); err != nil {
		log.WithError(err).Error("[RECONCILE] 回写 FAILED 失败")
	}

	kind := KindOf(cause)
	log.WithField("kind", kind.String()).WithError(cause).Error("[RECONCILE] 入账失败")
	r.alerter.Alert(notify.LevelError, "入账失败", notify.ReconcileFailedContent(orderNo, kind.String(), cause))
}

// markFailedSafe panic 恢复路径上的回写，存储再次 panic 时只记日志
func (r *Reconciler) markFailedSafe(ctx context.Context, log logrus.FieldLogger, orderNo string, cause error, claimed bool) {
	defer func() {
		if p := recover(); p != nil {
			log.Errorf("[RECONCILE] 回写 FAILED 时 panic: %v", p)
		}
	}()
	r.markFailed(ctx, log, orderNo, cause, claimed)
}

// call 单次存储调用附带超时
func (r *Reconciler) call(ctx context.Context, fn func(ctx context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
	defer cancel()
	return fn(cctx)
}

func (r *Reconciler) observe(res Result, start time.Time) {
	d := r.now().Sub(start)
	switch {
	case res.Success && res.AlreadySynced:
		metrics.ObserveReconcile(metrics.ResultSynced, "", d)
	case res.Success:
		metrics.ObserveReconcile(metrics.ResultSuccess, "", d)
		metrics.TokensCredited.Add(float64(res.TokensAdded))
	default:
		metrics.ObserveReconcile(metrics.ResultFailed, KindOf(res.Err).String(), d)
	}
}
