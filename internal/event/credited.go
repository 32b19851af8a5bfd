package event

import (
	"github.com/sirupsen/logrus"

	"token-pay-api/internal/dto"
)

// PublishBalanceCredited 异步发布入账成功事件，失败只记日志
func PublishBalanceCredited(p Publisher, log logrus.FieldLogger, msg *dto.BalanceCreditedEvent) {
	if p == nil || msg == nil {
		return
	}
	go func() {
		if err := p.Publish(TopicBalanceCredited, msg); err != nil {
			log.WithFields(logrus.Fields{
				"orderNo": msg.OrderNo,
				"userId":  msg.UserID,
			}).WithError(err).Error("[EVENT] 入账事件发布失败")
		}
	}()
}
