package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"

	"token-pay-api/internal/dal"
	"token-pay-api/internal/dto"
	"token-pay-api/internal/event"
	"token-pay-api/internal/notify"
	"token-pay-api/internal/settlement"
)

const (
	defaultMaxRetry = 3
	resubscribeWait = 5 * time.Second
)

// Reconciler 单订单入账
type Reconciler interface {
	Reconcile(ctx context.Context, orderNo string) settlement.Result
}

// ReconcileConsumer 消费 payment_reconcile 队列，可重试的失败重新投递
type ReconcileConsumer struct {
	rec      Reconciler
	pub      event.Publisher
	alerter  notify.Alerter
	maxRetry int
	workers  int
	log      logrus.FieldLogger
}

func NewReconcileConsumer(rec Reconciler, pub event.Publisher, alerter notify.Alerter,
	maxRetry, workers int, log logrus.FieldLogger) *ReconcileConsumer {
	if maxRetry <= 0 {
		maxRetry = defaultMaxRetry
	}
	if workers <= 0 {
		workers = 1
	}
	if alerter == nil {
		alerter = notify.Nop{}
	}
	return &ReconcileConsumer{rec: rec, pub: pub, alerter: alerter, maxRetry: maxRetry, workers: workers, log: log}
}

// Start 阻塞消费直到 ctx 结束，通道断开后重新订阅
func (c *ReconcileConsumer) Start(ctx context.Context, mq *dal.RabbitMQ) {
	c.log.WithField("queue", dal.QueueReconcile).Info("[MQ] reconcile consumer is starting")
	for {
		if ch := mq.Channel(); ch != nil {
			msgs, err := ch.Consume(dal.QueueReconcile, "", false, false, false, false, nil)
			if err == nil {
				c.consume(ctx, msgs)
			} else {
				c.log.WithError(err).Error("[MQ] consume payment_reconcile failed")
			}
		}
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeWait):
		}
	}
}

func (c *ReconcileConsumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	g := new(errgroup.Group)
	g.SetLimit(c.workers)
	defer func() { _ = g.Wait() }()

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			g.Go(func() error {
				// 已取出的消息处理完再退出
				c.Handle(context.WithoutCancel(ctx), d)
				return nil
			})
		}
	}
}

// Handle 处理一条入账消息
func (c *ReconcileConsumer) Handle(ctx context.Context, d amqp.Delivery) {
	var msg dto.ReconcileMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.OrderNo == "" {
		c.log.WithField("body", string(d.Body)).Errorf("[MQ] 入账消息解析失败: %v", err)
		_ = d.Nack(false, false)
		return
	}
	log := c.log.WithFields(logrus.Fields{"orderNo": msg.OrderNo, "retry": msg.RetryCount, "source": msg.Source})

	res := c.rec.Reconcile(ctx, msg.OrderNo)
	if res.Success {
		_ = d.Ack(false)
		return
	}

	kind := settlement.KindOf(res.Err)
	if kind == settlement.KindInProgress || !kind.Retryable() {
		log.WithField("kind", kind.String()).WithError(res.Err).Warn("[MQ] 入账未完成，不再重试")
		_ = d.Ack(false)
		return
	}

	if msg.RetryCount >= c.maxRetry {
		log.WithError(res.Err).Error("[MQ] 入账超过最大重试次数")
		c.alerter.Alert(notify.LevelError, "入账重试耗尽",
			notify.ReconcileFailedContent(msg.OrderNo, kind.String(), fmt.Errorf("retry %d: %w", msg.RetryCount, res.Err)))
		_ = d.Ack(false)
		return
	}

	msg.RetryCount++
	msg.Ts = time.Now().Unix()
	if err := c.pub.Publish(event.TopicReconcile, &msg); err != nil {
		log.WithError(err).Error("[MQ] 入账重试投递失败，消息重回队列")
		_ = d.Nack(false, true)
		return
	}
	log.WithField("attempt", msg.RetryCount).Info("[MQ] 入账失败，已重新投递")
	_ = d.Ack(false)
}
