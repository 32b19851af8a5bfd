package mq

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/streadway/amqp"

	"token-pay-api/internal/dal"
)

var errChannelUnavailable = errors.New("rabbitmq channel unavailable")

// publishChannel *amqp.Channel 的发布能力
type publishChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher 发布到 payment_events 交换机，routing key 即事件主题
type Publisher struct {
	exchange string
	channel  func() publishChannel
}

func NewPublisher(mq *dal.RabbitMQ) *Publisher {
	return &Publisher{
		exchange: dal.ExchangePayment,
		channel: func() publishChannel {
			ch := mq.Channel()
			if ch == nil {
				return nil
			}
			return ch
		},
	}
}

func (p *Publisher) Publish(topic string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	ch := p.channel()
	if ch == nil {
		return errChannelUnavailable
	}
	if err := ch.Publish(p.exchange, topic, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
