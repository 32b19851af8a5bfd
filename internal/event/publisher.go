package event

// 事件主题，与 MQ routing key 一致
const (
	TopicReconcile       = "payment.reconcile"
	TopicBalanceCredited = "balance.credited"
)

type Publisher interface {
	Publish(topic string, msg any) error
}

// Nop MQ 未启用时使用
type Nop struct{}

func (Nop) Publish(string, any) error { return nil }
