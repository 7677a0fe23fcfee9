package rabbitmq

// Exchange direct-exchange для всех уведомлений платформы.
const Exchange = "notifications"

// Ключи маршрутизации уведомлений.
const (
	RoutingGiftCode = "giftcode"
	RoutingMockTest = "mocktest"
	RoutingExpiring = "expiring"
	RoutingRefund   = "refund"
)

// Очереди, которые слушает отправитель писем.
const (
	QueueGiftCode = "notifications.giftcode"
	QueueMockTest = "notifications.mocktest"
	QueueExpiring = "notifications.expiring"
	QueueRefund   = "notifications.refund"
)

// QueueConfig очередь и ключ, которым она привязана к Exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// NotificationQueues возвращает очереди отправителя уведомлений.
func NotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueGiftCode, RoutingKey: RoutingGiftCode},
		{QueueName: QueueMockTest, RoutingKey: RoutingMockTest},
		{QueueName: QueueExpiring, RoutingKey: RoutingExpiring},
		{QueueName: QueueRefund, RoutingKey: RoutingRefund},
	}
}
