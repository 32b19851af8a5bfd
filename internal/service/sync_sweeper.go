package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"token-pay-api/internal/settlement"
)

// PendingLister 列出已支付未入账的订单
type PendingLister interface {
	ListSyncPending(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
}

// Reconcile 单订单入账
type Reconcile interface {
	Reconcile(ctx context.Context, orderNo string) settlement.Result
}

// Breaker 入账成功率熔断
type Breaker interface {
	Record(ctx context.Context, success bool) error
	Degraded(ctx context.Context) bool
}

// SyncSweeper 定时补偿：重新驱动回调后未完成入账的订单
type SyncSweeper struct {
	lister   PendingLister
	rec      Reconcile
	interval time.Duration
	batch    int
	// 支付后至少经过 grace 才扫描，给回调内联入账留出时间
	grace   time.Duration
	breaker Breaker
	log     logrus.FieldLogger
}

func NewSyncSweeper(lister PendingLister, rec Reconcile, interval time.Duration, batch int, log logrus.FieldLogger) *SyncSweeper {
	return &SyncSweeper{
		lister:   lister,
		rec:      rec,
		interval: interval,
		batch:    batch,
		grace:    interval,
		log:      log,
	}
}

// WithBreaker 用户库持续失败时暂停扫描
func (s *SyncSweeper) WithBreaker(b Breaker) *SyncSweeper {
	s.breaker = b
	return s
}

// Run 阻塞运行直到 ctx 结束
func (s *SyncSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce 扫描一批，返回成功入账的数量
func (s *SyncSweeper) SweepOnce(ctx context.Context) int {
	if s.breaker != nil && s.breaker.Degraded(ctx) {
		s.log.Warn("[SWEEP] 入账成功率过低，跳过本轮")
		return 0
	}
	orderNos, err := s.lister.ListSyncPending(ctx, time.Now().Add(-s.grace), s.batch)
	if err != nil {
		s.log.WithError(err).Error("[SWEEP] 扫描待入账订单失败")
		return 0
	}
	ok := 0
	for _, orderNo := range orderNos {
		if ctx.Err() != nil {
			break
		}
		res := s.rec.Reconcile(ctx, orderNo)
		if res.Success {
			ok++
			s.record(ctx, true)
			continue
		}
		kind := settlement.KindOf(res.Err)
		if kind == settlement.KindInProgress {
			continue
		}
		s.log.WithField("orderNo", orderNo).WithError(res.Err).Warn("[SWEEP] 补偿入账失败")
		// 数据问题不计入依赖健康
		if kind.Retryable() {
			s.record(ctx, false)
		}
	}
	if len(orderNos) > 0 {
		s.log.WithFields(logrus.Fields{"scanned": len(orderNos), "credited": ok}).Info("[SWEEP] 本轮补偿完成")
	}
	return ok
}

func (s *SyncSweeper) record(ctx context.Context, success bool) {
	if s.breaker == nil {
		return
	}
	if err := s.breaker.Record(ctx, success); err != nil {
		s.log.WithError(err).Debug("[SWEEP] 记录入账成功率失败")
	}
}
