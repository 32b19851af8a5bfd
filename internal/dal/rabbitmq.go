package dal

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"token-pay-api/internal/config"
)

const (
	ExchangePayment      = "payment_events"
	QueueReconcile       = "payment_reconcile"
	QueueBalanceCredited = "balance_credited"
	RouteReconcile       = "payment.reconcile"
	RouteBalanceCredited = "balance.credited"
)

// RabbitMQ 带自愈的连接，断开后后台重连
type RabbitMQ struct {
	cfg config.RabbitCfg

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel

	// 用 NotifyClose 事件来判断是否已关闭（而不是 IsClosed）
	connClosedCh chan *amqp.Error
	chClosedCh   chan *amqp.Error

	reconnecting bool
}

// OpenRabbitMQ 初始化（首次连接）
func OpenRabbitMQ(cfg config.RabbitCfg) (*RabbitMQ, error) {
	r := &RabbitMQ{cfg: cfg}
	if err := r.connect(); err != nil {
		return nil, err
	}
	return r, nil
}

// -------- 内部：连接与自愈 --------

func (r *RabbitMQ) connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isConnAlive() && r.isChanAlive() {
		return nil
	}

	url := fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		r.cfg.Username, r.cfg.Password, r.cfg.Host, r.cfg.Port, r.cfg.VirtualHost)
	log.Printf("[RabbitMQ] connecting: %s:%d/%s", r.cfg.Host, r.cfg.Port, r.cfg.VirtualHost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel failed: %w", err)
	}
	if pc := r.cfg.PrefetchCount; pc > 0 {
		if err := ch.Qos(pc, 0, false); err != nil {
			log.Printf("[RabbitMQ] set qos failed: %v", err)
		}
	}
	if err := declareTopology(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	r.conn = conn
	r.channel = ch
	r.connClosedCh = conn.NotifyClose(make(chan *amqp.Error, 1))
	r.chClosedCh = ch.NotifyClose(make(chan *amqp.Error, 1))

	go r.watchClose(r.connClosedCh, r.chClosedCh)
	log.Printf("[RabbitMQ] connected")
	return nil
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangePayment, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare failed: %w", err)
	}
	bindings := map[string]string{
		QueueReconcile:       RouteReconcile,
		QueueBalanceCredited: RouteBalanceCredited,
	}
	for queue, route := range bindings {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s failed: %w", queue, err)
		}
		if err := ch.QueueBind(queue, route, ExchangePayment, false, nil); err != nil {
			return fmt.Errorf("queue bind %s failed: %w", queue, err)
		}
	}
	return nil
}

func (r *RabbitMQ) watchClose(connClosed, chClosed chan *amqp.Error) {
	select {
	case err, ok := <-connClosed:
		if ok {
			log.Printf("[RabbitMQ] connection closed: %v", err)
		}
	case err, ok := <-chClosed:
		if ok {
			log.Printf("[RabbitMQ] channel closed: %v", err)
		}
	}
	r.reconnect()
}

// 阻塞重试直至成功
func (r *RabbitMQ) reconnect() {
	r.mu.Lock()
	if r.reconnecting {
		r.mu.Unlock()
		return
	}
	r.reconnecting = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.reconnecting = false
		r.mu.Unlock()
	}()

	for {
		log.Println("[RabbitMQ] reconnecting...")
		if err := r.connect(); err == nil {
			return
		}
		time.Sleep(5 * time.Second)
	}
}

func (r *RabbitMQ) isConnAlive() bool {
	if r.conn == nil || r.connClosedCh == nil {
		return false
	}
	select {
	case <-r.connClosedCh:
		return false
	default:
		return true
	}
}

func (r *RabbitMQ) isChanAlive() bool {
	if r.channel == nil || r.chClosedCh == nil {
		return false
	}
	select {
	case <-r.chClosedCh:
		return false
	default:
		return true
	}
}

// Channel 返回当前可用通道，断开时触发重连
func (r *RabbitMQ) Channel() *amqp.Channel {
	r.mu.Lock()
	alive := r.isChanAlive()
	r.mu.Unlock()
	if !alive {
		r.reconnect()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
